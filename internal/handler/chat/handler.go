package chat

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tdnguyen/plantdoc/backend/internal/service/geo"
	"github.com/tdnguyen/plantdoc/backend/internal/service/pipeline"
	"github.com/tdnguyen/plantdoc/backend/internal/service/session"
	"github.com/tdnguyen/plantdoc/backend/pkg/utils"
)

// uploads larger than this are rejected with 413
const maxImageBytes = 10 << 20

// Handler exposes the chat pipeline over HTTP.
type Handler struct {
	pipeline *pipeline.Pipeline
	sessions *session.Manager
	geocoder geo.Geocoder
}

// New creates the chat handler.
func New(p *pipeline.Pipeline, sessions *session.Manager, geocoder geo.Geocoder) *Handler {
	return &Handler{pipeline: p, sessions: sessions, geocoder: geocoder}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleGetSession)
	r.Post("/session/clear", h.handleClearSession)
	r.Post("/messages", h.handleSubmit)
	r.Post("/messages/{messageID}/location", h.handleSubmitLocation)
	r.Post("/geo/reverse", h.handleReverseGeocode)
}

// handleGetSession returns the current session, creating one on first
// run or when the stored record is unreadable.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Current(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess)
}

// handleClearSession starts a fresh conversation.
func (h *Handler) handleClearSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.pipeline.Clear(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess)
}

// handleSubmit accepts one user turn: either JSON {"text": ...} or
// multipart form data with an optional image field plus a text field.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeSubmit(w, r)
	if !ok {
		return
	}

	result, err := h.pipeline.Submit(r.Context(), input)
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, "text or image is required")
	case errors.Is(err, pipeline.ErrBusy):
		utils.RespondError(w, http.StatusConflict, "a diagnosis is already in progress")
	case err != nil:
		log.Printf("[chat] submit failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "diagnosis unavailable")
	default:
		utils.RespondJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) decodeSubmit(w http.ResponseWriter, r *http.Request) (pipeline.Input, bool) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return pipeline.Input{}, false
		}
		return pipeline.Input{Text: payload.Text}, true
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return pipeline.Input{}, false
	}

	input := pipeline.Input{Text: r.FormValue("text")}
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		if header.Size > maxImageBytes {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, "image exceeds the upload limit")
			return pipeline.Input{}, false
		}
		data, err := io.ReadAll(file)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "failed to read image")
			return pipeline.Input{}, false
		}
		input.ImageData = data
		input.ImageName = header.Filename
		// opaque reference stored on the message; the bytes themselves
		// only travel to the prediction service
		input.ImageRef = "attachment://" + uuid.NewString()
	}
	return input, true
}

// handleSubmitLocation resolves a pending location request.
func (h *Handler) handleSubmitLocation(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")

	var payload struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.pipeline.SubmitLocation(r.Context(), messageID, payload.Location)
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, "location is required")
	case errors.Is(err, pipeline.ErrMessageNotFound):
		utils.RespondError(w, http.StatusNotFound, "message not found")
	case err != nil:
		log.Printf("[chat] location submit failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "weather unavailable")
	default:
		utils.RespondJSON(w, http.StatusOK, result)
	}
}

// handleReverseGeocode resolves device coordinates to a place name for
// the auto-detect path; the client falls back to manual entry on error.
func (h *Handler) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Latitude == nil || payload.Longitude == nil {
		utils.RespondError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	place, err := h.geocoder.Reverse(r.Context(), *payload.Latitude, *payload.Longitude)
	if err != nil {
		log.Printf("[chat] reverse geocode failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "could not resolve location")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"location": place})
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tdnguyen/plantdoc/backend/internal/client/diagnosis"
	"github.com/tdnguyen/plantdoc/backend/internal/model/chat"
	"github.com/tdnguyen/plantdoc/backend/internal/service/session"
)

var (
	// ErrEmptyInput rejects a turn with neither text nor image, and a
	// location submission with a blank location.
	ErrEmptyInput = errors.New("empty input")
	// ErrBusy rejects a Submit while another one is still in flight.
	ErrBusy = errors.New("a diagnosis request is already in flight")
	// ErrMessageNotFound rejects a location for an unknown message id.
	ErrMessageNotFound = errors.New("message not found")
)

// Diagnoser maps a text description or image to a disease identification.
type Diagnoser interface {
	Predict(ctx context.Context, req diagnosis.Request) (chat.Diagnosis, error)
}

// WeatherLookup maps a free-text location to weather context.
type WeatherLookup interface {
	Fetch(ctx context.Context, location string) (chat.Weather, error)
}

// Pipeline drives a diagnosis interaction from user input through the
// prediction call and the optional location/weather follow-up. All
// durability goes through the session manager; the pipeline itself
// holds no message state.
type Pipeline struct {
	sessions *session.Manager
	diagnose Diagnoser
	weather  WeatherLookup
	timeout  time.Duration

	inFlight atomic.Bool
}

// New wires the pipeline. timeout bounds each external call; expiry is
// treated like any other client failure.
func New(sessions *session.Manager, diagnose Diagnoser, weather WeatherLookup, timeout time.Duration) *Pipeline {
	return &Pipeline{
		sessions: sessions,
		diagnose: diagnose,
		weather:  weather,
		timeout:  timeout,
	}
}

// Input is one user turn. ImageRef is the opaque reference stored on
// the message; ImageData is forwarded to the prediction service only.
type Input struct {
	Text      string
	ImageRef  string
	ImageData []byte
	ImageName string
}

// SubmitResult carries the messages a successful turn appended.
type SubmitResult struct {
	SessionID string       `json:"sessionId"`
	User      chat.Message `json:"userMessage"`
	System    chat.Message `json:"systemMessage"`
}

// Submit appends the user message, requests a diagnosis and appends the
// system response flagged as awaiting a location. Only one Submit may
// be in flight at a time. On diagnosis failure the user message stays
// appended; there is no rollback.
func (p *Pipeline) Submit(ctx context.Context, in Input) (SubmitResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" && len(in.ImageData) == 0 {
		return SubmitResult{}, ErrEmptyInput
	}

	if !p.inFlight.CompareAndSwap(false, true) {
		return SubmitResult{}, ErrBusy
	}
	defer p.inFlight.Store(false)

	sess, err := p.sessions.Current(ctx)
	if err != nil {
		return SubmitResult{}, err
	}

	userMsg := chat.Message{
		ID:        p.sessions.GenerateID(),
		Role:      chat.RoleUser,
		Content:   text,
		Image:     in.ImageRef,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := p.sessions.AddMessage(ctx, sess.ID, userMsg); err != nil {
		return SubmitResult{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	diag, err := p.diagnose.Predict(callCtx, diagnosis.Request{
		Text:      text,
		ImageData: in.ImageData,
		ImageName: in.ImageName,
	})
	if err != nil {
		return SubmitResult{SessionID: sess.ID, User: userMsg}, fmt.Errorf("diagnosis: %w", err)
	}

	systemMsg := chat.Message{
		ID:                p.sessions.GenerateID(),
		Role:              chat.RoleSystem,
		Content:           "Kết quả chẩn đoán: " + diag.DiseaseName,
		Timestamp:         time.Now().UnixMilli(),
		DiseaseInfo:       &diag,
		IsLocationRequest: true,
	}
	if err := p.sessions.AddMessage(ctx, sess.ID, systemMsg); err != nil {
		return SubmitResult{SessionID: sess.ID, User: userMsg}, err
	}

	return SubmitResult{SessionID: sess.ID, User: userMsg, System: systemMsg}, nil
}

// LocationResult carries the appended location message and the system
// message it resolved.
type LocationResult struct {
	SessionID string       `json:"sessionId"`
	User      chat.Message `json:"userMessage"`
	Updated   chat.Message `json:"updatedMessage"`
}

// SubmitLocation resolves a pending location request: it appends a user
// message announcing the location, fetches weather for it and mutates
// the target system message in place (weather attached, flag cleared).
// On weather failure the target keeps its flag so the user can retry.
func (p *Pipeline) SubmitLocation(ctx context.Context, messageID, location string) (LocationResult, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return LocationResult{}, ErrEmptyInput
	}

	sess, err := p.sessions.Current(ctx)
	if err != nil {
		return LocationResult{}, err
	}

	var target *chat.Message
	for i := range sess.Messages {
		if sess.Messages[i].ID == messageID {
			target = &sess.Messages[i]
			break
		}
	}
	// only a system message carrying a diagnosis can take weather
	if target == nil || target.Role != chat.RoleSystem || target.DiseaseInfo == nil {
		return LocationResult{}, ErrMessageNotFound
	}

	userMsg := chat.Message{
		ID:        p.sessions.GenerateID(),
		Role:      chat.RoleUser,
		Content:   "Vị trí của tôi: " + location,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := p.sessions.AddMessage(ctx, sess.ID, userMsg); err != nil {
		return LocationResult{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	weather, err := p.weather.Fetch(callCtx, location)
	if err != nil {
		return LocationResult{SessionID: sess.ID, User: userMsg}, fmt.Errorf("weather: %w", err)
	}

	updated := *target
	updated.WeatherInfo = &weather
	updated.IsLocationRequest = false
	if err := p.sessions.UpdateMessage(ctx, sess.ID, updated); err != nil {
		return LocationResult{SessionID: sess.ID, User: userMsg}, err
	}

	return LocationResult{SessionID: sess.ID, User: userMsg, Updated: updated}, nil
}

// Clear abandons the current conversation and starts an empty one.
func (p *Pipeline) Clear(ctx context.Context) (chat.Session, error) {
	return p.sessions.Create(ctx)
}

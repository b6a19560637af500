package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/tdnguyen/plantdoc/backend/internal/model/chat"
)

// Request is one prediction call. When image bytes are present they are
// sent alone as multipart form data; otherwise the text goes as JSON.
// The service never receives both.
type Request struct {
	Text      string
	ImageData []byte
	ImageName string
}

// Client is the HTTP adapter for the disease prediction service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New points the adapter at the prediction endpoint. Call deadlines are
// the caller's responsibility via context.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpClient: &http.Client{}}
}

// Predict submits the turn and decodes the diagnosis. A response
// without disease_name is treated as a service failure.
func (c *Client) Predict(ctx context.Context, req Request) (chat.Diagnosis, error) {
	var (
		body        io.Reader
		contentType string
		err         error
	)
	if len(req.ImageData) > 0 {
		body, contentType, err = imageForm(req)
	} else {
		body, contentType, err = textBody(req.Text)
	}
	if err != nil {
		return chat.Diagnosis{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return chat.Diagnosis{}, fmt.Errorf("build prediction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return chat.Diagnosis{}, fmt.Errorf("call prediction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return chat.Diagnosis{}, fmt.Errorf("prediction service returned status %d", resp.StatusCode)
	}

	var diag chat.Diagnosis
	if err := json.NewDecoder(resp.Body).Decode(&diag); err != nil {
		return chat.Diagnosis{}, fmt.Errorf("decode prediction response: %w", err)
	}
	if diag.DiseaseName == "" {
		return chat.Diagnosis{}, fmt.Errorf("prediction response missing disease_name")
	}
	return diag, nil
}

func textBody(text string) (io.Reader, string, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, "", fmt.Errorf("encode prediction request: %w", err)
	}
	return bytes.NewReader(payload), "application/json", nil
}

func imageForm(req Request) (io.Reader, string, error) {
	name := req.ImageName
	if name == "" {
		name = "upload.jpg"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", name)
	if err != nil {
		return nil, "", fmt.Errorf("build image form: %w", err)
	}
	if _, err := part.Write(req.ImageData); err != nil {
		return nil, "", fmt.Errorf("write image form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finish image form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tdnguyen/plantdoc/backend/internal/model/chat"
)

// Client is the HTTP adapter for the weather/context service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New points the adapter at the weather endpoint.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpClient: &http.Client{}}
}

// Fetch looks up weather context for a free-text location. Everything
// beyond the location field is carried back verbatim.
func (c *Client) Fetch(ctx context.Context, location string) (chat.Weather, error) {
	reqURL := c.baseURL + "?location=" + url.QueryEscape(location)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return chat.Weather{}, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return chat.Weather{}, fmt.Errorf("call weather service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return chat.Weather{}, fmt.Errorf("weather service returned status %d", resp.StatusCode)
	}

	var w chat.Weather
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return chat.Weather{}, fmt.Errorf("decode weather response: %w", err)
	}
	if w.Location == "" {
		return chat.Weather{}, fmt.Errorf("weather response missing location")
	}
	return w, nil
}

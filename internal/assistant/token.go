// Package assistant obtains voice-assistant room credentials from the backend.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDenied marks an application-level error payload from the token endpoint.
var ErrDenied = errors.New("assistant token request denied")

// Credentials joins one student identity to an assistant room.
type Credentials struct {
	Identity string
	URL      string
	Token    string
}

// Client requests per-session room tokens.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a token client for a backend base URL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type tokenRequest struct {
	Identity string `json:"identity"`
	Room     string `json:"room"`
}

type tokenResponse struct {
	URL   string `json:"url"`
	Token string `json:"token"`
	Error string `json:"error,omitempty"`
}

// RoomToken mints a fresh student identity and requests credentials for room.
func (c *Client) RoomToken(ctx context.Context, room string) (Credentials, error) {
	identity := "student_" + uuid.NewString()

	payload, err := json.Marshal(tokenRequest{Identity: identity, Room: room})
	if err != nil {
		return Credentials{}, fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voice_assistant/token/", bytes.NewReader(payload))
	if err != nil {
		return Credentials{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Credentials{}, fmt.Errorf("decode token response: %w", err)
	}

	if decoded.Error != "" {
		return Credentials{}, fmt.Errorf("%w: %s", ErrDenied, decoded.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Credentials{}, fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}
	if decoded.URL == "" || decoded.Token == "" {
		return Credentials{}, errors.New("token response missing url or token")
	}

	return Credentials{Identity: identity, URL: decoded.URL, Token: decoded.Token}, nil
}

// Package checker submits candidate answers to the grading backend.
package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/storyvoice/storyvoice/internal/quiz"
	"github.com/storyvoice/storyvoice/internal/verdict"
)

var (
	// ErrTransport marks network/HTTP-level submission failures.
	ErrTransport = errors.New("grading request failed")
	// ErrBackend marks an application-level error payload in a 200 response.
	ErrBackend = errors.New("grading backend reported an error")
)

// Client posts answers to per-question endpoints and decodes verdicts.
// Submissions are strictly sequential: the voice-path call must resolve
// before the typed-path call for the same question begins.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu sync.Mutex
}

// New constructs a grading client for a backend base URL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// voicePayload is the single-string body used for every spoken attempt.
type voicePayload struct {
	Answer string `json:"answer"`
}

type textPayload struct {
	Answer string `json:"answer"`
}

type multiPayload struct {
	Answers []string `json:"answers"`
}

type ratingPayload struct {
	Answer string `json:"answer"`
	Rating int    `json:"rating"`
}

// response mirrors the backend verdict body; Error is set on failures.
type response struct {
	Message         string   `json:"message"`
	IsCorrect       *bool    `json:"isCorrect,omitempty"`
	FeedbackType    string   `json:"feedback_type,omitempty"`
	ShowAnswer      bool     `json:"show_answer,omitempty"`
	CorrectAnswer   string   `json:"correct_answer,omitempty"`
	MisspelledWords []string `json:"misspelled_words,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// CheckVoice submits the normalized spoken transcript. Every shape sends the
// one-string body on the voice path; only the typed path splits by shape.
func (c *Client) CheckVoice(ctx context.Context, q quiz.Question, transcript string) (verdict.Verdict, error) {
	return c.submit(ctx, q.Endpoint, voicePayload{Answer: strings.TrimSpace(transcript)})
}

// CheckTyped submits the confirmed typed answer using the question's shape.
func (c *Client) CheckTyped(ctx context.Context, q quiz.Question, a quiz.Answer) (verdict.Verdict, error) {
	var body any
	switch q.Shape {
	case quiz.ShapeMultiField:
		fields := make([]string, 0, len(a.Fields))
		for _, field := range a.Fields {
			fields = append(fields, strings.TrimSpace(field))
		}
		body = multiPayload{Answers: fields}
	case quiz.ShapeRating:
		body = ratingPayload{Answer: strings.TrimSpace(a.Text), Rating: a.Rating}
	default:
		body = textPayload{Answer: strings.TrimSpace(a.Text)}
	}
	return c.submit(ctx, q.Endpoint, body)
}

// submit runs one grading roundtrip. The returned Verdict is always usable:
// on any failure it is a locally synthesized incorrect verdict, and the
// error describes the cause for logging only.
func (c *Client) submit(ctx context.Context, endpoint string, body any) (verdict.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(body)
	if err != nil {
		return verdict.Failure(""), fmt.Errorf("encode answer payload: %w", err)
	}

	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return verdict.Failure(""), fmt.Errorf("build grading request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log("grading request failed", "endpoint", endpoint, "error", err.Error())
		return verdict.Failure("Network error. Please check your connection and try again."),
			fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return verdict.Failure("Network error. Please check your connection and try again."),
			fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.log("grading response undecodable", "endpoint", endpoint, "status", resp.StatusCode)
		return verdict.Failure(""), fmt.Errorf("%w: decode body: %v", ErrTransport, err)
	}

	if decoded.Error != "" {
		c.log("grading backend error", "endpoint", endpoint, "error", decoded.Error)
		return verdict.Failure(decoded.Error), fmt.Errorf("%w: %s", ErrBackend, decoded.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log("grading non-2xx", "endpoint", endpoint, "status", resp.StatusCode)
		return verdict.Failure(decoded.Message), fmt.Errorf("%w: HTTP %d", ErrTransport, resp.StatusCode)
	}

	return decodedVerdict(decoded), nil
}

// decodedVerdict maps a backend payload onto the verdict model.
func decodedVerdict(resp response) verdict.Verdict {
	v := verdict.Verdict{
		Message:       resp.Message,
		Category:      verdict.Category(resp.FeedbackType),
		ShowAnswer:    resp.ShowAnswer,
		CorrectAnswer: resp.CorrectAnswer,
		Misspelled:    resp.MisspelledWords,
	}
	if resp.IsCorrect != nil {
		v.Correct = *resp.IsCorrect
	} else {
		// Some endpoints omit the flag and only grade by category.
		v.Correct = v.Category == verdict.CategoryExcellent || v.Category == verdict.CategoryGood
	}
	if v.Category == "" {
		if v.Correct {
			v.Category = verdict.CategoryExcellent
		} else {
			v.Category = verdict.CategoryIncorrect
		}
	}
	return v
}

// Health probes the backend readiness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health/", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrTransport, resp.StatusCode)
	}
	return nil
}

func (c *Client) log(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}

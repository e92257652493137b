// Package quiz defines the per-book question catalog, answer shapes, and
// the prompt-audio asset naming conventions the flipbooks use.
package quiz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AnswerShape selects the input widget and validation rule for a question.
type AnswerShape string

const (
	// ShapeFreeText expects one non-empty free-text answer.
	ShapeFreeText AnswerShape = "free_text"
	// ShapeChoice expects one answer from a fixed option list.
	ShapeChoice AnswerShape = "choice"
	// ShapeMultiField expects FieldCount parallel non-empty text fields.
	ShapeMultiField AnswerShape = "multi_field"
	// ShapeRating expects a 1-5 star rating plus a non-empty explanation.
	ShapeRating AnswerShape = "rating"
)

// Question is one quiz step of a book.
type Question struct {
	Ordinal int
	Route   string
	Next    string // route navigated to on "Next Question"; "/" finishes the book
	Book    string

	Prompt   string // spoken question text
	CueFile  string // prompt audio asset under the static root
	Endpoint string // grading endpoint path; empty means graded locally

	Shape      AnswerShape
	FieldCount int
	Choices    []string

	ListenFor time.Duration // bounded listening window for the voice attempt
}

// Answer carries the typed-path payload for any shape.
type Answer struct {
	Text   string
	Fields []string
	Rating int
}

var (
	ErrEmptyAnswer     = errors.New("answer must not be empty")
	ErrMissingFields   = errors.New("all answer fields must be filled in")
	ErrRatingRequired  = errors.New("a star rating must be selected")
	ErrChoiceRequired  = errors.New("answer must be one of the offered choices")
	ErrUnknownQuestion = errors.New("unknown question route")
)

// Validate enforces the question's answer shape before any submission.
func (q Question) Validate(a Answer) error {
	switch q.Shape {
	case ShapeFreeText:
		if strings.TrimSpace(a.Text) == "" {
			return ErrEmptyAnswer
		}
	case ShapeChoice:
		if strings.TrimSpace(a.Text) == "" {
			return ErrEmptyAnswer
		}
		for _, choice := range q.Choices {
			if strings.EqualFold(strings.TrimSpace(a.Text), choice) {
				return nil
			}
		}
		return ErrChoiceRequired
	case ShapeMultiField:
		want := q.FieldCount
		if want <= 0 {
			want = 3
		}
		if len(a.Fields) < want {
			return ErrMissingFields
		}
		for _, field := range a.Fields[:want] {
			if strings.TrimSpace(field) == "" {
				return ErrMissingFields
			}
		}
	case ShapeRating:
		if a.Rating < 1 || a.Rating > 5 {
			return ErrRatingRequired
		}
		if strings.TrimSpace(a.Text) == "" {
			return ErrEmptyAnswer
		}
	default:
		return fmt.Errorf("unknown answer shape %q", q.Shape)
	}
	return nil
}

// Graded reports whether this question is checked by the backend.
func (q Question) Graded() bool {
	return strings.TrimSpace(q.Endpoint) != ""
}

// Final reports whether this question ends its book.
func (q Question) Final() bool {
	return q.Next == "/" || q.Next == ""
}

// listening window defaults; the multi-part questions get the longer one.
const (
	defaultListenFor = 10 * time.Second
	longListenFor    = 15 * time.Second
)

package session

import (
	"context"
	"errors"
	"time"

	"github.com/storyvoice/storyvoice/internal/quiz"
	"github.com/storyvoice/storyvoice/internal/verdict"
)

var (
	// ErrVoiceUnavailable indicates speech capture cannot run on this host.
	// The question falls through to the typed flow.
	ErrVoiceUnavailable = errors.New("voice capture is not available")
	// ErrNotWritable indicates an answer edit arrived outside the typed stage.
	ErrNotWritable = errors.New("no typed answer is being edited right now")
)

// ListenResult is the listener output consumed by the session controller.
type ListenResult struct {
	Transcript    string
	BytesCaptured int64
	Latency       time.Duration
}

// Listener runs one bounded voice listening window. Closing stop ends the
// window early; the listener still returns whatever it heard.
type Listener interface {
	Listen(ctx context.Context, listenFor time.Duration, stop <-chan struct{}) (ListenResult, error)
}

// ListenFunc adapts a function to the Listener interface.
type ListenFunc func(context.Context, time.Duration, <-chan struct{}) (ListenResult, error)

func (f ListenFunc) Listen(ctx context.Context, listenFor time.Duration, stop <-chan struct{}) (ListenResult, error) {
	return f(ctx, listenFor, stop)
}

// PlaceholderListener reports voice capture as unavailable.
type PlaceholderListener struct{}

func (PlaceholderListener) Listen(context.Context, time.Duration, <-chan struct{}) (ListenResult, error) {
	return ListenResult{}, ErrVoiceUnavailable
}

// Speaker voices feedback text and blocks until playback finishes.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

type noopSpeaker struct{}

func (noopSpeaker) Speak(context.Context, string) error { return nil }
func (noopSpeaker) Stop()                               {}

// CuePlayer plays one prompt audio asset to completion.
type CuePlayer interface {
	PlayCue(ctx context.Context, file string) error
	Stop()
}

type noopCuePlayer struct{}

func (noopCuePlayer) PlayCue(context.Context, string) error { return nil }
func (noopCuePlayer) Stop()                                 {}

// Grader submits voice and typed attempts for one question.
type Grader interface {
	CheckVoice(ctx context.Context, q quiz.Question, transcript string) (verdict.Verdict, error)
	CheckTyped(ctx context.Context, q quiz.Question, a quiz.Answer) (verdict.Verdict, error)
}

type noopGrader struct{}

func (noopGrader) CheckVoice(context.Context, quiz.Question, string) (verdict.Verdict, error) {
	return verdict.Failure("Grading is not configured."), nil
}

func (noopGrader) CheckTyped(context.Context, quiz.Question, quiz.Answer) (verdict.Verdict, error) {
	return verdict.Failure("Grading is not configured."), nil
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowListening(context.Context)
	ShowThinking(context.Context)
	ShowWriting(context.Context)
	ShowError(context.Context, string)
	CueListen(context.Context)
	CueCorrect(context.Context)
	CueIncorrect(context.Context)
	CueAdvance(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context)     {}
func (noopIndicator) ShowThinking(context.Context)      {}
func (noopIndicator) ShowWriting(context.Context)       {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueListen(context.Context)         {}
func (noopIndicator) CueCorrect(context.Context)        {}
func (noopIndicator) CueIncorrect(context.Context)      {}
func (noopIndicator) CueAdvance(context.Context)        {}
func (noopIndicator) Hide(context.Context)              {}

// Package capture turns microphone audio into a finalized answer transcript
// using streaming cloud speech recognition.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/storyvoice/storyvoice/internal/audio"
	"github.com/storyvoice/storyvoice/internal/transcript"
)

// ErrUnsupported reports that speech recognition cannot run in this
// environment. Callers skip the voice attempt and go straight to typing.
var ErrUnsupported = errors.New("speech recognition is not available")

// Result is one completed listening window.
type Result struct {
	Transcript    string
	Segments      []string
	BytesCaptured int64
	Latency       time.Duration
	TimedOut      bool
}

// Recognizer runs bounded listening windows against Google Cloud Speech.
type Recognizer struct {
	languageCode string
	interim      bool
	logger       *slog.Logger
}

// NewRecognizer builds a recognizer for one configured language.
func NewRecognizer(languageCode string, interim bool, logger *slog.Logger) *Recognizer {
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &Recognizer{languageCode: languageCode, interim: interim, logger: logger}
}

// Available reports whether the recognizer can authenticate at all.
func (r *Recognizer) Available() bool {
	return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
}

// Listen records from the selected device for up to listenFor and returns the
// merged transcript. An empty transcript with a nil error means the window
// elapsed without recognizable speech.
func (r *Recognizer) Listen(ctx context.Context, device audio.Device, listenFor time.Duration, stop <-chan struct{}) (Result, error) {
	if !r.Available() {
		return Result{}, ErrUnsupported
	}
	if listenFor <= 0 {
		listenFor = 10 * time.Second
	}

	stream, err := openStream(ctx, r.languageCode, r.interim)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	mic, err := audio.StartCapture(ctx, device)
	if err != nil {
		_ = stream.cancel()
		return Result{}, err
	}

	timer := time.NewTimer(listenFor)
	defer timer.Stop()

	timedOut := false

feed:
	for {
		select {
		case <-ctx.Done():
			_ = mic.Stop()
			_ = stream.cancel()
			return Result{}, ctx.Err()
		case <-timer.C:
			timedOut = true
			break feed
		case <-stop:
			// Early stop is a normal end of the window; the transcript so
			// far is still collected.
			break feed
		case chunk, ok := <-mic.Chunks():
			if !ok {
				break feed
			}
			if err := stream.sendAudio(chunk); err != nil {
				r.log("send audio chunk failed", "error", err.Error())
				break feed
			}
		}
	}

	_ = mic.Stop()

	collectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	segments, latency, err := stream.closeAndCollect(collectCtx)
	if err != nil {
		return Result{BytesCaptured: mic.BytesCaptured(), TimedOut: timedOut},
			fmt.Errorf("collect transcript: %w", err)
	}

	return Result{
		Transcript:    transcript.Join(segments),
		Segments:      segments,
		BytesCaptured: mic.BytesCaptured(),
		Latency:       latency,
		TimedOut:      timedOut,
	}, nil
}

func (r *Recognizer) log(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, args...)
}

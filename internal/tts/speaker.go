// Package tts speaks grading feedback aloud, preferring cloud synthesis and
// degrading to a local command when the cloud is unreachable.
package tts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// BlobPlayer plays an in-memory audio payload through the shared handle.
type BlobPlayer interface {
	PlayBytes(ctx context.Context, data []byte, pattern string) error
	Stop()
}

// Options configures the feedback speaker.
type Options struct {
	APIKey       string
	VoiceID      string
	ModelID      string
	Stability    float64
	Similarity   float64
	BaseURL      string
	FallbackArgv []string
}

// Speaker renders feedback text as audio. At most one utterance is in flight;
// Speak blocks until the utterance finishes, is stopped, or fails, and always
// completes exactly once.
type Speaker struct {
	cloud        *cloudSynth
	fallbackArgv []string
	player       BlobPlayer
	logger       *slog.Logger

	speaking sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSpeaker builds a feedback speaker. Without an API key the cloud path is
// disabled and every utterance uses the fallback command.
func NewSpeaker(opts Options, player BlobPlayer, logger *slog.Logger) *Speaker {
	s := &Speaker{
		fallbackArgv: opts.FallbackArgv,
		player:       player,
		logger:       logger,
	}
	if len(s.fallbackArgv) == 0 {
		s.fallbackArgv = []string{"espeak-ng"}
	}
	if strings.TrimSpace(opts.APIKey) != "" {
		s.cloud = newCloudSynth(opts)
	}
	return s
}

// Speak voices one utterance and blocks until playback completes. Any cloud
// failure, synthesis or playback, falls through to the local command so the
// caller still gets exactly one completion. A new utterance preempts the one
// in flight.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.speaking.Lock()
	defer s.speaking.Unlock()

	speakCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	if s.cloud != nil {
		audio, err := s.cloud.synthesize(speakCtx, text)
		if err == nil {
			err = s.player.PlayBytes(speakCtx, audio, "storyvoice-tts-*.mp3")
			if err == nil {
				return nil
			}
		}
		if errors.Is(err, context.Canceled) || speakCtx.Err() != nil {
			return speakCtx.Err()
		}
		s.log("cloud speech failed; using local fallback", "error", err.Error())
	}

	return speakLocal(speakCtx, s.fallbackArgv, text)
}

// Stop interrupts the current utterance, if any. Safe to call repeatedly.
func (s *Speaker) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.player.Stop()
}

func (s *Speaker) log(msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, args...)
}

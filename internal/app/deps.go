package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/storyvoice/storyvoice/internal/assistant"
	"github.com/storyvoice/storyvoice/internal/audio"
	"github.com/storyvoice/storyvoice/internal/capture"
	"github.com/storyvoice/storyvoice/internal/checker"
	"github.com/storyvoice/storyvoice/internal/config"
	"github.com/storyvoice/storyvoice/internal/indicator"
	"github.com/storyvoice/storyvoice/internal/session"
	"github.com/storyvoice/storyvoice/internal/tts"
)

// sessionDeps bundles the side-effect ports wired into a session controller.
type sessionDeps struct {
	cue       session.CuePlayer
	listener  session.Listener
	speaker   session.Speaker
	grader    session.Grader
	indicator session.Indicator
	assetDir  string
}

// buildSessionDeps wires runtime dependencies from config. One shared
// playback handle backs the prompt cue, spoken feedback, and indicator tones
// so only one of them can sound at a time.
func buildSessionDeps(ctx context.Context, cfg config.Config, logger *slog.Logger) sessionDeps {
	player := audio.NewPlayer()

	deps := sessionDeps{
		cue:      promptCue{player: player},
		listener: buildListener(ctx, cfg, player, logger),
		speaker: tts.NewSpeaker(tts.Options{
			APIKey:       os.Getenv(cfg.TTS.APIKeyEnv),
			VoiceID:      cfg.TTS.VoiceID,
			ModelID:      cfg.TTS.ModelID,
			Stability:    cfg.TTS.Stability,
			Similarity:   cfg.TTS.Similarity,
			FallbackArgv: cfg.TTS.FallbackCmd.Argv,
		}, player, logger),
		grader: checker.New(
			cfg.Backend.BaseURL,
			time.Duration(cfg.Backend.TimeoutMS)*time.Millisecond,
			logger,
		),
		indicator: indicator.NewDesktopNotify(indicator.Options{
			Enable:         cfg.Indicator.Enable,
			AppName:        cfg.Indicator.DesktopAppName,
			SoundEnable:    cfg.Indicator.SoundEnable,
			ErrorTimeoutMS: cfg.Indicator.ErrorTimeoutMS,
		}, player, logger),
		assetDir: config.ExpandUserPath(cfg.Audio.AssetDir),
	}
	return deps
}

// buildListener resolves the input device and the speech recognizer. Any
// missing piece degrades to the placeholder so questions skip the voice
// attempt instead of failing.
func buildListener(ctx context.Context, cfg config.Config, player *audio.Player, logger *slog.Logger) session.Listener {
	recognizer := capture.NewRecognizer(cfg.STT.LanguageCode, cfg.STT.InterimResults, logger)
	if !recognizer.Available() {
		logger.Warn("speech credentials missing; voice attempts disabled")
		return session.PlaceholderListener{}
	}

	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		logger.Warn("no usable input device; voice attempts disabled", "error", err.Error())
		return session.PlaceholderListener{}
	}
	if selection.Warning != "" {
		logger.Warn("audio device fallback", "warning", selection.Warning)
	}

	device := selection.Device
	return session.ListenFunc(func(ctx context.Context, listenFor time.Duration, stop <-chan struct{}) (session.ListenResult, error) {
		// The microphone and playback share the sound server; stop any
		// in-flight cue before the window opens.
		player.Stop()

		result, err := recognizer.Listen(ctx, device, listenFor, stop)
		if err != nil {
			if errors.Is(err, capture.ErrUnsupported) {
				return session.ListenResult{}, session.ErrVoiceUnavailable
			}
			return session.ListenResult{}, err
		}
		return session.ListenResult{
			Transcript:    result.Transcript,
			BytesCaptured: result.BytesCaptured,
			Latency:       result.Latency,
		}, nil
	})
}

// promptCue adapts the shared playback handle to the session cue port.
type promptCue struct {
	player *audio.Player
}

func (p promptCue) PlayCue(ctx context.Context, file string) error {
	return p.player.PlayFile(ctx, file)
}

func (p promptCue) Stop() {
	p.player.Stop()
}

func (r Runner) commandAssistant(ctx context.Context, cfg config.Config, room string) int {
	client := assistant.New(cfg.Backend.BaseURL, time.Duration(cfg.Backend.TimeoutMS)*time.Millisecond)
	creds, err := client.RoomToken(ctx, room)
	if err != nil {
		if errors.Is(err, assistant.ErrDenied) {
			fmt.Fprintf(r.Stderr, "error: assistant denied: %v\n", err)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintf(r.Stdout, "identity: %s\n", creds.Identity)
	fmt.Fprintf(r.Stdout, "url: %s\n", creds.URL)
	fmt.Fprintf(r.Stdout, "token: %s\n", creds.Token)
	return 0
}

// dumpSessionResult writes one question's outcome as a JSON debug artifact.
func dumpSessionResult(logger *slog.Logger, result session.Result) {
	payload := map[string]any{
		"route":          result.Route,
		"state":          string(result.State),
		"transcript":     result.Transcript,
		"answer":         result.Answer,
		"voice_verdict":  result.VoiceVerdict,
		"verdict":        result.Verdict,
		"next_route":     result.NextRoute,
		"cancelled":      result.Cancelled,
		"bytes_captured": result.BytesCaptured,
		"started_at":     result.StartedAt.Format(time.RFC3339Nano),
		"finished_at":    result.FinishedAt.Format(time.RFC3339Nano),
	}

	file, err := createDebugFile("result", "json")
	if err != nil {
		logger.Warn("unable to create debug dump", "error", err.Error())
		return
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		logger.Warn("unable to write debug dump", "error", err.Error())
	}
}

func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	debugDir := filepath.Join(stateDir, "storyvoice", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	baseURL := strings.TrimSpace(cfg.Backend.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("backend.base_url must not be empty")
	}
	if parsed, err := url.Parse(baseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend.base_url %q must be an absolute URL", baseURL)
	}
	if cfg.Backend.TimeoutMS <= 0 {
		return nil, fmt.Errorf("backend.timeout_ms must be > 0")
	}

	if strings.TrimSpace(cfg.TTS.VoiceID) == "" {
		return nil, fmt.Errorf("tts.voice_id must not be empty")
	}
	if strings.TrimSpace(cfg.TTS.ModelID) == "" {
		return nil, fmt.Errorf("tts.model_id must not be empty")
	}
	if cfg.TTS.Stability < 0 || cfg.TTS.Stability > 1 {
		return nil, fmt.Errorf("tts.stability must be between 0 and 1")
	}
	if cfg.TTS.Similarity < 0 || cfg.TTS.Similarity > 1 {
		return nil, fmt.Errorf("tts.similarity must be between 0 and 1")
	}
	if len(cfg.TTS.FallbackCmd.Argv) == 0 {
		return nil, fmt.Errorf("tts.fallback_cmd must not be empty")
	}

	if strings.TrimSpace(cfg.STT.LanguageCode) == "" {
		return nil, fmt.Errorf("stt.language_code must not be empty")
	}

	book := strings.ToLower(strings.TrimSpace(cfg.Session.Book))
	if book != "goldilocks" && book != "peter" {
		return nil, fmt.Errorf("session.book must be one of: goldilocks, peter")
	}
	if cfg.Session.ListenMS <= 0 {
		return nil, fmt.Errorf("session.listen_ms must be > 0")
	}
	if cfg.Session.LongListenMS < cfg.Session.ListenMS {
		return nil, fmt.Errorf("session.long_listen_ms must be >= session.listen_ms")
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Audio.AssetDir) == "" {
		warnings = append(warnings, Warning{Message: "audio.asset_dir is empty; prompt playback will be skipped"})
	}

	return warnings, nil
}

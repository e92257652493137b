package config

import (
	"fmt"
	"strconv"
	"strings"
)

const legacyFormatWarning = "legacy key=value config format is deprecated; migrate to JSONC"

// Parse reads configuration content as JSONC (preferred) or legacy key/value format.
//
// JSONC is selected when the first non-whitespace character is `{`.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if strings.HasPrefix(trimmed, "{") {
		return parseJSONC(content, base)
	}

	cfg, warnings, err := parseLegacy(content, base)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append([]Warning{{Message: legacyFormatWarning}}, warnings...)
	return cfg, warnings, nil
}

// parseLegacy reads the dotted key=value format, one assignment per line.
func parseLegacy(content string, base Config) (Config, []Warning, error) {
	cfg := base
	warnings := make([]Warning, 0)

	for lineNo, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return Config{}, nil, fmt.Errorf("line %d: expected key=value, got %q", lineNo+1, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		applied, err := applyLegacyKey(&cfg, key, value)
		if err != nil {
			return Config{}, nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		if !applied {
			warnings = append(warnings, Warning{Line: lineNo + 1, Message: fmt.Sprintf("unknown config key %q", key)})
		}
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func applyLegacyKey(cfg *Config, key string, value string) (bool, error) {
	switch key {
	case "backend.base_url":
		cfg.Backend.BaseURL = value
	case "backend.timeout_ms":
		return true, setInt(&cfg.Backend.TimeoutMS, key, value)
	case "tts.voice_id":
		cfg.TTS.VoiceID = value
	case "tts.model_id":
		cfg.TTS.ModelID = value
	case "tts.stability":
		return true, setFloat(&cfg.TTS.Stability, key, value)
	case "tts.similarity":
		return true, setFloat(&cfg.TTS.Similarity, key, value)
	case "tts.api_key_env":
		cfg.TTS.APIKeyEnv = value
	case "tts.fallback_cmd":
		argv, err := parseArgv(value)
		if err != nil {
			return true, fmt.Errorf("invalid tts.fallback_cmd: %w", err)
		}
		cfg.TTS.FallbackCmd = CommandConfig{Raw: value, Argv: argv}
	case "stt.language_code":
		cfg.STT.LanguageCode = value
	case "stt.interim":
		return true, setBool(&cfg.STT.InterimResults, key, value)
	case "audio.input":
		cfg.Audio.Input = value
	case "audio.fallback":
		cfg.Audio.Fallback = value
	case "audio.asset_dir":
		cfg.Audio.AssetDir = value
	case "session.book":
		cfg.Session.Book = value
	case "session.auto_start":
		return true, setBool(&cfg.Session.AutoStart, key, value)
	case "session.listen_ms":
		return true, setInt(&cfg.Session.ListenMS, key, value)
	case "session.long_listen_ms":
		return true, setInt(&cfg.Session.LongListenMS, key, value)
	case "indicator.enable":
		return true, setBool(&cfg.Indicator.Enable, key, value)
	case "indicator.desktop_app_name":
		cfg.Indicator.DesktopAppName = value
	case "indicator.sound_enable":
		return true, setBool(&cfg.Indicator.SoundEnable, key, value)
	case "indicator.error_timeout_ms":
		return true, setInt(&cfg.Indicator.ErrorTimeoutMS, key, value)
	case "debug.response_dump":
		return true, setBool(&cfg.Debug.EnableResponseDump, key, value)
	default:
		return false, nil
	}
	return true, nil
}

func setInt(target *int, key string, value string) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	*target = parsed
	return nil
}

func setFloat(target *float64, key string, value string) error {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number, got %q", key, value)
	}
	*target = parsed
	return nil
}

func setBool(target *bool, key string, value string) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be a boolean, got %q", key, value)
	}
	*target = parsed
	return nil
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Backend   *jsoncBackend   `json:"backend"`
	TTS       *jsoncTTS       `json:"tts"`
	STT       *jsoncSTT       `json:"stt"`
	Audio     *jsoncAudio     `json:"audio"`
	Session   *jsoncSession   `json:"session"`
	Indicator *jsoncIndicator `json:"indicator"`
	Debug     *jsoncDebug     `json:"debug"`
}

type jsoncBackend struct {
	BaseURL   *string `json:"base_url"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncTTS struct {
	VoiceID     *string  `json:"voice_id"`
	ModelID     *string  `json:"model_id"`
	Stability   *float64 `json:"stability"`
	Similarity  *float64 `json:"similarity"`
	APIKeyEnv   *string  `json:"api_key_env"`
	FallbackCmd *string  `json:"fallback_cmd"`
}

type jsoncSTT struct {
	LanguageCode   *string `json:"language_code"`
	InterimResults *bool   `json:"interim"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
	AssetDir *string `json:"asset_dir"`
}

type jsoncSession struct {
	Book         *string `json:"book"`
	AutoStart    *bool   `json:"auto_start"`
	ListenMS     *int    `json:"listen_ms"`
	LongListenMS *int    `json:"long_listen_ms"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncDebug struct {
	ResponseDump *bool `json:"response_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if payload.Backend != nil {
		if payload.Backend.BaseURL != nil {
			cfg.Backend.BaseURL = strings.TrimSpace(*payload.Backend.BaseURL)
		}
		if payload.Backend.TimeoutMS != nil {
			cfg.Backend.TimeoutMS = *payload.Backend.TimeoutMS
		}
	}

	if payload.TTS != nil {
		if payload.TTS.VoiceID != nil {
			cfg.TTS.VoiceID = strings.TrimSpace(*payload.TTS.VoiceID)
		}
		if payload.TTS.ModelID != nil {
			cfg.TTS.ModelID = strings.TrimSpace(*payload.TTS.ModelID)
		}
		if payload.TTS.Stability != nil {
			cfg.TTS.Stability = *payload.TTS.Stability
		}
		if payload.TTS.Similarity != nil {
			cfg.TTS.Similarity = *payload.TTS.Similarity
		}
		if payload.TTS.APIKeyEnv != nil {
			cfg.TTS.APIKeyEnv = strings.TrimSpace(*payload.TTS.APIKeyEnv)
		}
		if payload.TTS.FallbackCmd != nil {
			raw := *payload.TTS.FallbackCmd
			argv, err := parseArgv(raw)
			if err != nil {
				return fmt.Errorf("invalid tts.fallback_cmd: %w", err)
			}
			cfg.TTS.FallbackCmd = CommandConfig{Raw: raw, Argv: argv}
		}
	}

	if payload.STT != nil {
		if payload.STT.LanguageCode != nil {
			cfg.STT.LanguageCode = strings.TrimSpace(*payload.STT.LanguageCode)
		}
		if payload.STT.InterimResults != nil {
			cfg.STT.InterimResults = *payload.STT.InterimResults
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
		if payload.Audio.AssetDir != nil {
			cfg.Audio.AssetDir = strings.TrimSpace(*payload.Audio.AssetDir)
		}
	}

	if payload.Session != nil {
		if payload.Session.Book != nil {
			cfg.Session.Book = strings.TrimSpace(*payload.Session.Book)
		}
		if payload.Session.AutoStart != nil {
			cfg.Session.AutoStart = *payload.Session.AutoStart
		}
		if payload.Session.ListenMS != nil {
			cfg.Session.ListenMS = *payload.Session.ListenMS
		}
		if payload.Session.LongListenMS != nil {
			cfg.Session.LongListenMS = *payload.Session.LongListenMS
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *payload.Indicator.ErrorTimeoutMS
		}
	}

	if payload.Debug != nil && payload.Debug.ResponseDump != nil {
		cfg.Debug.EnableResponseDump = *payload.Debug.ResponseDump
	}

	return nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' || ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

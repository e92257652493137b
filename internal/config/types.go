// Package config resolves, parses, validates, and defaults storyvoice configuration.
package config

// Config is the fully materialized runtime configuration used by storyvoice.
type Config struct {
	Backend   BackendConfig
	TTS       TTSConfig
	STT       STTConfig
	Audio     AudioConfig
	Session   SessionConfig
	Indicator IndicatorConfig
	Debug     DebugConfig
}

// BackendConfig locates the grading backend.
type BackendConfig struct {
	BaseURL   string
	TimeoutMS int
}

// TTSConfig controls spoken-feedback synthesis.
type TTSConfig struct {
	VoiceID     string
	ModelID     string
	Stability   float64
	Similarity  float64
	APIKeyEnv   string
	FallbackCmd CommandConfig
}

// STTConfig controls streaming speech recognition.
type STTConfig struct {
	LanguageCode   string
	InterimResults bool
}

// AudioConfig controls input-source selection and prompt asset location.
type AudioConfig struct {
	Input    string
	Fallback string
	AssetDir string
}

// SessionConfig controls quiz flow defaults.
type SessionConfig struct {
	Book         string
	AutoStart    bool
	ListenMS     int
	LongListenMS int
}

// IndicatorConfig controls desktop notifications and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableResponseDump bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

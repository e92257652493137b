package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	fallbackCmd := "espeak-ng"

	return Config{
		Backend: BackendConfig{
			BaseURL:   "http://127.0.0.1:8000",
			TimeoutMS: 10000,
		},
		TTS: TTSConfig{
			VoiceID:     "pqHfZKP75CvOlQylNhV4",
			ModelID:     "eleven_monolingual_v1",
			Stability:   0.6,
			Similarity:  0.7,
			APIKeyEnv:   "ELEVENLABS_API_KEY",
			FallbackCmd: CommandConfig{Raw: fallbackCmd, Argv: mustParseArgv(fallbackCmd)},
		},
		STT: STTConfig{
			LanguageCode:   "en-US",
			InterimResults: true,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
			AssetDir: "~/.local/share/storyvoice/audio",
		},
		Session: SessionConfig{
			Book:         "goldilocks",
			AutoStart:    true,
			ListenMS:     10000,
			LongListenMS: 15000,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "storyvoice",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Debug: DebugConfig{},
	}
}

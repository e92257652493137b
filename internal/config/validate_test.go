package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaultsPass(t *testing.T) {
	_, err := Validate(Default())
	require.NoError(t, err)
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := Default()
	cfg.Backend.BaseURL = ""
	_, err := Validate(cfg)
	require.Error(t, err)

	cfg = Default()
	cfg.Backend.BaseURL = "not a url"
	_, err = Validate(cfg)
	require.Error(t, err)

	cfg = Default()
	cfg.Backend.TimeoutMS = 0
	_, err = Validate(cfg)
	require.Error(t, err)
}

func TestValidateRejectsBadTTS(t *testing.T) {
	cfg := Default()
	cfg.TTS.VoiceID = " "
	_, err := Validate(cfg)
	require.Error(t, err)

	cfg = Default()
	cfg.TTS.Stability = 1.5
	_, err = Validate(cfg)
	require.Error(t, err)

	cfg = Default()
	cfg.TTS.FallbackCmd = CommandConfig{}
	_, err = Validate(cfg)
	require.Error(t, err)
}

func TestValidateRejectsUnknownBook(t *testing.T) {
	cfg := Default()
	cfg.Session.Book = "cinderella"
	_, err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateRejectsInvertedListenWindows(t *testing.T) {
	cfg := Default()
	cfg.Session.ListenMS = 15000
	cfg.Session.LongListenMS = 10000
	_, err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateWarnsOnEmptyAssetDir(t *testing.T) {
	cfg := Default()
	cfg.Audio.AssetDir = ""
	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
}

package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func devices() []Device {
	return []Device{
		{ID: "alsa_input.usb-mic", Description: "USB Microphone", Available: true},
		{ID: "alsa_input.internal", Description: "Built-in Audio", Available: true, Default: true},
		{ID: "alsa_input.muted", Description: "Muted Mic", Available: true, Muted: true},
		{ID: "alsa_input.gone", Description: "Suspended Mic", Available: false},
	}
}

func TestSelectFromListDefault(t *testing.T) {
	selection, err := selectFromList(devices(), "default", "")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.internal", selection.Device.ID)
	require.Empty(t, selection.Warning)
}

func TestSelectFromListByTerm(t *testing.T) {
	selection, err := selectFromList(devices(), "usb", "")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-mic", selection.Device.ID)
}

func TestSelectFromListFallsBackWhenPrimaryMuted(t *testing.T) {
	selection, err := selectFromList(devices(), "muted", "usb")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-mic", selection.Device.ID)
	require.True(t, selection.Fallback)
	require.Contains(t, selection.Warning, "muted")
}

func TestSelectFromListNoMatch(t *testing.T) {
	_, err := selectFromList(devices(), "nonexistent", "")
	require.Error(t, err)

	_, err = selectFromList(nil, "default", "")
	require.Error(t, err)
}

func TestSelectFromListUnusableFallback(t *testing.T) {
	_, err := selectFromList(devices(), "muted", "gone")
	require.Error(t, err)
}

func TestSynthesizeTonesShape(t *testing.T) {
	pcm := SynthesizeTones([]ToneSpec{
		{FrequencyHz: 880, Duration: 70 * time.Millisecond, Volume: 0.18},
		{FrequencyHz: 1175, Duration: 70 * time.Millisecond, Volume: 0.18},
	})
	require.NotEmpty(t, pcm)

	// Two 70ms tones plus one 22ms gap at 16kHz.
	want := samplesForDuration(70*time.Millisecond)*2 + samplesForDuration(22*time.Millisecond)
	require.Len(t, pcm, want)
}

func TestSynthesizeTonesEmpty(t *testing.T) {
	require.Nil(t, SynthesizeTones(nil))
	require.Empty(t, synthesizeTone(ToneSpec{FrequencyHz: 0, Duration: time.Second, Volume: 1}))
}

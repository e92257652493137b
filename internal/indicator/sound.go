package indicator

import (
	"time"

	"github.com/storyvoice/storyvoice/internal/audio"
)

type cueKind int

const (
	cueListen cueKind = iota + 1
	cueCorrect
	cueIncorrect
	cueAdvance
)

// Cue palettes are tuned soft and short for young listeners.
var (
	listenCuePCM = audio.SynthesizeTones([]audio.ToneSpec{
		{FrequencyHz: 880, Duration: 70 * time.Millisecond, Volume: 0.16},
		{FrequencyHz: 1175, Duration: 70 * time.Millisecond, Volume: 0.16},
	})
	correctCuePCM = audio.SynthesizeTones([]audio.ToneSpec{
		{FrequencyHz: 740, Duration: 65 * time.Millisecond, Volume: 0.16},
		{FrequencyHz: 988, Duration: 90 * time.Millisecond, Volume: 0.16},
	})
	incorrectCuePCM = audio.SynthesizeTones([]audio.ToneSpec{
		{FrequencyHz: 480, Duration: 75 * time.Millisecond, Volume: 0.14},
		{FrequencyHz: 415, Duration: 90 * time.Millisecond, Volume: 0.14},
	})
	advanceCuePCM = audio.SynthesizeTones([]audio.ToneSpec{
		{FrequencyHz: 660, Duration: 60 * time.Millisecond, Volume: 0.16},
		{FrequencyHz: 880, Duration: 60 * time.Millisecond, Volume: 0.16},
		{FrequencyHz: 1100, Duration: 80 * time.Millisecond, Volume: 0.16},
	})
)

func cueSamples(kind cueKind) []int16 {
	switch kind {
	case cueListen:
		return listenCuePCM
	case cueCorrect:
		return correctCuePCM
	case cueIncorrect:
		return incorrectCuePCM
	case cueAdvance:
		return advanceCuePCM
	default:
		return nil
	}
}

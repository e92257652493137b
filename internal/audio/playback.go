package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

// ErrStopped reports that a playback was interrupted by Stop or a newer
// playback claiming the shared handle.
var ErrStopped = errors.New("playback stopped")

// Player owns the single shared playback handle. At most one playback is
// authoritative at a time: starting a new one stops the previous holder
// (last-writer-wins), and Stop is idempotent.
type Player struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPlayer returns an idle shared playback handle.
func NewPlayer() *Player {
	return &Player{}
}

// claim cancels any in-flight playback and registers the new one.
func (p *Player) claim(ctx context.Context) (context.Context, context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	playCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	return playCtx, cancel
}

// release clears the registration if it still belongs to this playback.
func (p *Player) release(cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cancel()
	if p.cancel != nil {
		p.cancel = nil
	}
}

// Stop interrupts the current playback, if any. Safe to call repeatedly.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// PlayFile plays one audio file to completion and blocks until it finishes,
// is stopped, or fails. A failed start is the caller's signal to surface a
// manual play affordance instead of stalling.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat audio file %q: %w", path, err)
	}

	playCtx, cancel := p.claim(ctx)
	defer p.release(cancel)

	err := runPlayerCommand(playCtx, path)
	if playCtx.Err() != nil && ctx.Err() == nil {
		return ErrStopped
	}
	if playCtx.Err() != nil {
		return playCtx.Err()
	}
	return err
}

// PlayBytes plays an in-memory audio payload (e.g. a synthesized speech
// stream) through the shared handle via a temporary file.
func (p *Player) PlayBytes(ctx context.Context, data []byte, pattern string) error {
	if len(data) == 0 {
		return nil
	}
	if pattern == "" {
		pattern = "storyvoice-*.mp3"
	}

	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return fmt.Errorf("create playback temp file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write playback temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close playback temp file: %w", err)
	}

	return p.PlayFile(ctx, f.Name())
}

// runPlayerCommand shells out to pw-play with a paplay fallback.
func runPlayerCommand(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err == nil || ctx.Err() != nil {
		return ctxOr(ctx, nil)
	}

	cmd = exec.CommandContext(ctx, "paplay", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play audio file %q: %w", path, err)
	}
	return nil
}

func ctxOr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// PlayTone plays a short synthesized PCM cue through the shared handle.
func (p *Player) PlayTone(ctx context.Context, samples []int16) error {
	if len(samples) == 0 {
		return nil
	}

	playCtx, cancel := p.claim(ctx)
	defer p.release(cancel)

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if playCtx.Err() != nil {
			return 0, pulse.EndOfData
		}
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(captureSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("storyvoice cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	if playCtx.Err() != nil {
		return ErrStopped
	}
	return nil
}

// ToneSpec describes one synthesized tone segment.
type ToneSpec struct {
	FrequencyHz float64
	Duration    time.Duration
	Volume      float64
}

// SynthesizeTones renders tone segments (22ms gaps between them) as 16kHz
// mono PCM, with short attack/release ramps to avoid clicks.
func SynthesizeTones(parts []ToneSpec) []int16 {
	if len(parts) == 0 {
		return nil
	}
	gapSamples := samplesForDuration(22 * time.Millisecond)

	var pcm []int16
	for i, part := range parts {
		pcm = append(pcm, synthesizeTone(part)...)
		if i < len(parts)-1 && gapSamples > 0 {
			pcm = append(pcm, make([]int16, gapSamples)...)
		}
	}
	return pcm
}

func synthesizeTone(spec ToneSpec) []int16 {
	n := samplesForDuration(spec.Duration)
	if n <= 0 || spec.FrequencyHz <= 0 || spec.Volume <= 0 {
		return nil
	}

	ramp := n / 10
	maxRamp := captureSampleRate / 200 // 5ms
	if ramp > maxRamp {
		ramp = maxRamp
	}
	if ramp < 1 {
		ramp = 1
	}

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		if tail := n - i - 1; tail < ramp {
			if release := float64(tail) / float64(ramp); release < envelope {
				envelope = release
			}
		}
		t := float64(i) / captureSampleRate
		pcm[i] = int16(math.Round(math.Sin(2*math.Pi*spec.FrequencyHz*t) * spec.Volume * envelope * 32767))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * captureSampleRate))
}

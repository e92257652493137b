// Package indicator surfaces quiz state to the desktop: notifications for the
// current stage and short audio cues around listening and grading.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Controller is the session-facing indicator contract.
type Controller interface {
	ShowListening(context.Context)
	ShowThinking(context.Context)
	ShowWriting(context.Context)
	ShowError(context.Context, string)
	CueListen(context.Context)
	CueCorrect(context.Context)
	CueIncorrect(context.Context)
	CueAdvance(context.Context)
	Hide(context.Context)
}

// TonePlayer plays one synthesized PCM cue through the shared audio handle.
type TonePlayer interface {
	PlayTone(ctx context.Context, samples []int16) error
}

// Options configures the desktop indicator.
type Options struct {
	Enable         bool
	AppName        string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// DesktopNotify is the concrete indicator used by runtime sessions. It sends
// replaceable freedesktop notifications and plays synthesized cues.
type DesktopNotify struct {
	opts     Options
	logger   *slog.Logger
	tones    TonePlayer
	messages messages

	mu             sync.Mutex
	notificationID uint32
	soundMu        sync.Mutex
}

// NewDesktopNotify creates an indicator controller.
func NewDesktopNotify(opts Options, tones TonePlayer, logger *slog.Logger) *DesktopNotify {
	return &DesktopNotify{
		opts:     opts,
		logger:   logger,
		tones:    tones,
		messages: indicatorMessagesFromEnv(),
	}
}

// ShowListening signals the listening window.
func (d *DesktopNotify) ShowListening(ctx context.Context) {
	d.show(ctx, d.messages.listening, 300000)
}

// ShowThinking signals that an answer is being graded.
func (d *DesktopNotify) ShowThinking(ctx context.Context) {
	d.show(ctx, d.messages.thinking, 300000)
}

// ShowWriting signals that the typed confirmation form is open.
func (d *DesktopNotify) ShowWriting(ctx context.Context) {
	d.show(ctx, d.messages.writing, 300000)
}

// ShowError displays an error-state message.
func (d *DesktopNotify) ShowError(ctx context.Context, text string) {
	if text == "" {
		text = d.messages.errorText
	}
	timeout := d.opts.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	d.show(ctx, text, timeout)
}

// CueListen emits the start-of-listening cue.
func (d *DesktopNotify) CueListen(ctx context.Context) {
	d.playCue(ctx, cueListen)
}

// CueCorrect emits the correct-answer chime.
func (d *DesktopNotify) CueCorrect(ctx context.Context) {
	d.playCue(ctx, cueCorrect)
}

// CueIncorrect emits the gentle try-again cue.
func (d *DesktopNotify) CueIncorrect(ctx context.Context) {
	d.playCue(ctx, cueIncorrect)
}

// CueAdvance emits the next-question cue.
func (d *DesktopNotify) CueAdvance(ctx context.Context) {
	d.playCue(ctx, cueAdvance)
}

// Hide dismisses the active notification.
func (d *DesktopNotify) Hide(ctx context.Context) {
	if !d.opts.Enable {
		return
	}
	d.run(ctx, d.dismissDesktop)
}

func (d *DesktopNotify) show(ctx context.Context, text string, timeoutMS int) {
	if !d.opts.Enable {
		return
	}
	d.run(ctx, func(ctx context.Context) error {
		return d.notifyDesktop(ctx, text, timeoutMS)
	})
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (d *DesktopNotify) notifyDesktop(ctx context.Context, text string, timeoutMS int) error {
	d.mu.Lock()
	replaceID := d.notificationID
	d.mu.Unlock()

	appName := strings.TrimSpace(d.opts.AppName)
	if appName == "" {
		appName = "storyvoice"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.notificationID = id
	d.mu.Unlock()
	return nil
}

// dismissDesktop closes the current notification ID when present.
func (d *DesktopNotify) dismissDesktop(ctx context.Context) error {
	d.mu.Lock()
	id := d.notificationID
	d.notificationID = 0
	d.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (d *DesktopNotify) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		d.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (d *DesktopNotify) playCue(ctx context.Context, kind cueKind) {
	if !d.opts.SoundEnable || d.tones == nil {
		return
	}
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return
	}
	go func() {
		d.soundMu.Lock()
		defer d.soundMu.Unlock()
		cueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 4*time.Second)
		defer cancel()
		if err := d.tones.PlayTone(cueCtx, samples); err != nil {
			d.log("indicator audio cue failed", err)
		}
	}()
}

func (d *DesktopNotify) log(message string, err error) {
	if d.logger == nil || err == nil {
		return
	}
	d.logger.Debug(message, "error", err.Error())
}

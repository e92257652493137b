// Package session coordinates the per-question interaction flow: prompt
// playback, the voice attempt, spoken feedback, the typed confirmation, and
// the final verdict.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/storyvoice/storyvoice/internal/fsm"
	"github.com/storyvoice/storyvoice/internal/ipc"
	"github.com/storyvoice/storyvoice/internal/quiz"
	"github.com/storyvoice/storyvoice/internal/transcript"
	"github.com/storyvoice/storyvoice/internal/verdict"
)

type actionKind int

const (
	actionPlay actionKind = iota + 1
	actionCheck
	actionRetry
	actionNext
	actionRestart
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	Route         string
	State         fsm.State
	Transcript    string
	Answer        quiz.Answer
	VoiceVerdict  *verdict.Verdict
	Verdict       verdict.Verdict
	NextRoute     string
	Cancelled     bool
	Err           error
	BytesCaptured int64
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Controller orchestrates question stages and side effects. Exactly one of
// the prompt cue, the microphone, and spoken feedback is active at a time;
// the shared playback handle enforces the audio side of that contract.
type Controller struct {
	logger    *slog.Logger
	cue       CuePlayer
	listen    Listener
	speak     Speaker
	grade     Grader
	indicator Indicator
	assetDir  string

	mu       sync.RWMutex
	state    fsm.State
	question quiz.Question
	active   bool
	draft    quiz.Answer
	heard    string
	last     verdict.Verdict
	hasLast  bool
	stopMic  chan struct{}

	actions chan actionKind
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	cue CuePlayer,
	listener Listener,
	speaker Speaker,
	grader Grader,
	ind Indicator,
	assetDir string,
) *Controller {
	if cue == nil {
		cue = noopCuePlayer{}
	}
	if listener == nil {
		listener = PlaceholderListener{}
	}
	if speaker == nil {
		speaker = noopSpeaker{}
	}
	if grader == nil {
		grader = noopGrader{}
	}
	if ind == nil {
		ind = noopIndicator{}
	}

	return &Controller{
		logger:    logger,
		cue:       cue,
		listen:    listener,
		speak:     speaker,
		grade:     grader,
		indicator: ind,
		assetDir:  assetDir,
		state:     fsm.StateIdle,
		actions:   make(chan actionKind, 1),
	}
}

// State returns the current stage snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// transition applies one stage event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run executes one question from prompt cue to advancement. It returns when
// the child moves on, the question is abandoned, or the context is cancelled.
func (c *Controller) Run(ctx context.Context, q quiz.Question) Result {
	result := Result{Route: q.Route, StartedAt: time.Now()}

	c.mu.Lock()
	c.question = q
	c.active = true
	c.draft = quiz.Answer{}
	if q.Shape == quiz.ShapeMultiField {
		want := q.FieldCount
		if want <= 0 {
			want = 3
		}
		c.draft.Fields = make([]string, want)
	}
	c.heard = ""
	c.hasLast = false
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()

		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	if err := c.transition(fsm.EventStart); err != nil {
		return c.finish(result, err)
	}

	for {
		outcome, err := c.runOnce(ctx, q, &result)
		if err == nil && outcome {
			return c.finish(result, nil)
		}
		if ctx.Err() != nil {
			return c.abandon(result)
		}
		if err != nil {
			// Error stage: wait for an explicit restart.
			c.indicator.ShowError(ctx, "")
			c.log("question flow failed", "route", q.Route, "error", err.Error())
			_ = c.transition(fsm.EventFail)

		waitRestart:
			for {
				select {
				case <-ctx.Done():
					return c.abandon(result)
				case a := <-c.actions:
					if a == actionRestart {
						break waitRestart
					}
				}
			}
			if restartErr := c.transition(fsm.EventRestart); restartErr != nil {
				return c.finish(result, restartErr)
			}
		}
	}
}

// runOnce drives a single pass through the stages. It returns true when the
// question finished and the caller should return.
func (c *Controller) runOnce(ctx context.Context, q quiz.Question, result *Result) (bool, error) {
	if err := c.playPrompt(ctx, q); err != nil {
		return false, err
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err := c.voiceAttempt(ctx, q, result); err != nil {
		return false, err
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	return c.typedFlow(ctx, q, result)
}

// playPrompt plays the question cue. A failed start keeps the prompt stage
// open so a manual play request can retry it.
func (c *Controller) playPrompt(ctx context.Context, q quiz.Question) error {
	if c.assetDir == "" || q.CueFile == "" {
		c.log("no prompt cue configured; opening microphone", "route", q.Route)
		return c.transition(fsm.EventCueDone)
	}

	for {
		err := c.cue.PlayCue(ctx, quiz.AssetPath(c.assetDir, q.CueFile))
		if err == nil {
			return c.transition(fsm.EventCueDone)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.log("prompt cue playback failed; waiting for manual play", "route", q.Route, "error", err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-c.actions:
			if a == actionPlay {
				continue
			}
			c.log("ignoring action while prompt is pending", "route", q.Route)
		}
	}
}

// voiceAttempt runs the listening window, grades the transcript, and speaks
// the feedback. Hosts without speech support skip straight to typing.
func (c *Controller) voiceAttempt(ctx context.Context, q quiz.Question, result *Result) error {
	stop := make(chan struct{})
	c.mu.Lock()
	c.stopMic = stop
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.stopMic = nil
		c.mu.Unlock()
	}()

	c.indicator.ShowListening(ctx)
	c.indicator.CueListen(ctx)

	listened, err := c.listen.Listen(ctx, q.ListenFor, stop)
	if err != nil {
		if errors.Is(err, ErrVoiceUnavailable) {
			c.log("voice capture unavailable; skipping to typed answer", "route", q.Route)
			return c.transition(fsm.EventVoiceSkipped)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log("listening failed; skipping to typed answer", "route", q.Route, "error", err.Error())
		return c.transition(fsm.EventVoiceSkipped)
	}

	heard := transcript.Normalize(listened.Transcript)
	result.Transcript = heard
	result.BytesCaptured = listened.BytesCaptured

	if err := c.transition(fsm.EventTranscript); err != nil {
		return err
	}

	c.mu.Lock()
	c.heard = heard
	c.prefillDraft(heard)
	c.mu.Unlock()

	c.indicator.ShowThinking(ctx)

	// The spoken attempt always submits the single transcript string, even
	// for multi-field questions.
	v, gradeErr := c.grade.CheckVoice(ctx, q, heard)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if gradeErr != nil {
		c.log("voice grading degraded", "route", q.Route, "error", gradeErr.Error())
	}
	result.VoiceVerdict = &v

	if err := c.transition(fsm.EventGraded); err != nil {
		return err
	}

	if spoken := v.Spoken(); spoken != "" {
		if err := c.speak.Speak(ctx, spoken); err != nil && ctx.Err() == nil {
			c.log("spoken feedback failed", "route", q.Route, "error", err.Error())
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := c.transition(fsm.EventSpoken); err != nil {
		return err
	}

	// The form-opening cue is best effort; the typed stage opens regardless.
	if c.assetDir != "" {
		if err := c.cue.PlayCue(ctx, quiz.AssetPath(c.assetDir, quiz.InputPromptFile)); err != nil && ctx.Err() == nil {
			c.log("input prompt cue failed", "route", q.Route, "error", err.Error())
		}
	}
	return ctx.Err()
}

// prefillDraft seeds the typed form with what was heard. Callers hold mu.
func (c *Controller) prefillDraft(heard string) {
	if heard == "" {
		return
	}
	switch c.question.Shape {
	case quiz.ShapeMultiField:
		if len(c.draft.Fields) > 0 && c.draft.Fields[0] == "" {
			c.draft.Fields[0] = heard
		}
	default:
		if c.draft.Text == "" {
			c.draft.Text = heard
		}
	}
}

// typedFlow serves the confirmation form until the child advances.
func (c *Controller) typedFlow(ctx context.Context, q quiz.Question, result *Result) (bool, error) {
	c.indicator.ShowWriting(ctx)

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case a := <-c.actions:
			switch a {
			case actionCheck:
				if err := c.checkAnswer(ctx, q, result); err != nil {
					return false, err
				}
			case actionRetry:
				if err := c.transition(fsm.EventRetry); err != nil {
					return false, err
				}
				c.indicator.ShowWriting(ctx)
			case actionNext:
				if err := c.transition(fsm.EventAdvance); err != nil {
					return false, err
				}
				c.indicator.CueAdvance(ctx)
				result.NextRoute = q.Next
				return true, nil
			default:
				c.log("ignoring action in typed stage", "route", q.Route)
			}
		}
	}
}

// checkAnswer submits the validated draft and records the verdict.
func (c *Controller) checkAnswer(ctx context.Context, q quiz.Question, result *Result) error {
	if err := c.transition(fsm.EventCheck); err != nil {
		return err
	}
	c.indicator.ShowThinking(ctx)

	c.mu.RLock()
	answer := snapshotAnswer(c.draft)
	c.mu.RUnlock()

	var v verdict.Verdict
	if q.Graded() {
		graded, gradeErr := c.grade.CheckTyped(ctx, q, answer)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if gradeErr != nil {
			c.log("typed grading degraded", "route", q.Route, "error", gradeErr.Error())
		}
		v = graded
	} else {
		// Ungraded steps (the local rating page) complete immediately.
		v = verdict.Verdict{Correct: true, Category: verdict.CategoryExcellent, Message: "Thank you for sharing!", Local: true}
	}

	if err := c.transition(fsm.EventVerdict); err != nil {
		return err
	}

	c.mu.Lock()
	c.last = v
	c.hasLast = true
	c.mu.Unlock()

	result.Answer = answer
	result.Verdict = v

	if v.Correct {
		c.indicator.CueCorrect(ctx)
	} else {
		c.indicator.CueIncorrect(ctx)
	}
	return nil
}

// Handle serves IPC commands for the active question.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return c.status()
	case "play":
		return c.requestPlay()
	case "answer":
		return c.applyAnswer(req)
	case "field":
		return c.applyField(req)
	case "rate":
		return c.applyRating(req)
	case "check":
		return c.requestCheck()
	case "retry":
		return c.requestRetry()
	case "next":
		return c.requestNext()
	case "restart":
		return c.requestRestart()
	case "stop":
		return c.requestStopListening()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) status() ipc.Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ipc.Response{OK: true, State: string(c.state), Question: c.question.Route, Message: "status"}
}

// requestPlay retries prompt playback after a failed start.
func (c *Controller) requestPlay() ipc.Response {
	state := c.State()
	if state != fsm.StatePromptPlaying {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot play from state %s", state)}
	}
	return c.enqueue(actionPlay, state, "play requested")
}

// applyAnswer replaces the draft answer text (or all fields at once).
func (c *Controller) applyAnswer(req ipc.Request) ipc.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != fsm.StateWriting {
		return ipc.Response{OK: false, State: string(c.state), Error: ErrNotWritable.Error()}
	}
	if len(req.Fields) > 0 {
		fields := make([]string, len(c.draft.Fields))
		copy(fields, req.Fields)
		c.draft.Fields = fields
	} else {
		c.draft.Text = req.Text
	}
	return ipc.Response{OK: true, State: string(c.state), Message: "answer updated"}
}

// applyField sets one entry of a multi-field draft.
func (c *Controller) applyField(req ipc.Request) ipc.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != fsm.StateWriting {
		return ipc.Response{OK: false, State: string(c.state), Error: ErrNotWritable.Error()}
	}
	if req.Index < 0 || req.Index >= len(c.draft.Fields) {
		return ipc.Response{OK: false, State: string(c.state), Error: fmt.Sprintf("field index %d out of range", req.Index)}
	}
	c.draft.Fields[req.Index] = req.Text
	return ipc.Response{OK: true, State: string(c.state), Message: "field updated"}
}

// applyRating sets the star rating for review questions.
func (c *Controller) applyRating(req ipc.Request) ipc.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != fsm.StateWriting {
		return ipc.Response{OK: false, State: string(c.state), Error: ErrNotWritable.Error()}
	}
	if req.Rating < 1 || req.Rating > 5 {
		return ipc.Response{OK: false, State: string(c.state), Error: "rating must be between 1 and 5"}
	}
	c.draft.Rating = req.Rating
	return ipc.Response{OK: true, State: string(c.state), Message: "rating updated"}
}

// requestCheck validates the draft and enqueues the submission. Invalid
// answers never reach the network.
func (c *Controller) requestCheck() ipc.Response {
	c.mu.RLock()
	state := c.state
	q := c.question
	answer := snapshotAnswer(c.draft)
	c.mu.RUnlock()

	if state != fsm.StateWriting {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot check from state %s", state)}
	}
	if err := q.Validate(answer); err != nil {
		return ipc.Response{OK: false, State: string(state), Error: err.Error()}
	}
	return c.enqueue(actionCheck, state, "check requested")
}

// requestRetry re-opens the form after a verdict that was not fully correct.
func (c *Controller) requestRetry() ipc.Response {
	c.mu.RLock()
	state := c.state
	last := c.last
	hasLast := c.hasLast
	c.mu.RUnlock()

	if state != fsm.StateComplete {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot retry from state %s", state)}
	}
	if hasLast && !last.Retryable() {
		return ipc.Response{OK: false, State: string(state), Error: "answer was correct; nothing to retry"}
	}
	return c.enqueue(actionRetry, state, "retry requested")
}

func (c *Controller) requestNext() ipc.Response {
	state := c.State()
	if state != fsm.StateComplete {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot advance from state %s", state)}
	}
	return c.enqueue(actionNext, state, "next requested")
}

func (c *Controller) requestRestart() ipc.Response {
	state := c.State()
	if state != fsm.StateError {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot restart from state %s", state)}
	}
	return c.enqueue(actionRestart, state, "restart requested")
}

// requestStopListening closes the microphone window early. Whatever was
// heard so far still goes through grading.
func (c *Controller) requestStopListening() ipc.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != fsm.StateListening || c.stopMic == nil {
		return ipc.Response{OK: false, State: string(c.state), Error: fmt.Sprintf("cannot stop listening from state %s", c.state)}
	}
	close(c.stopMic)
	c.stopMic = nil
	return ipc.Response{OK: true, State: string(c.state), Message: "listening stopped"}
}

func (c *Controller) enqueue(a actionKind, state fsm.State, message string) ipc.Response {
	select {
	case c.actions <- a:
		return ipc.Response{OK: true, State: string(state), Message: message}
	default:
		return ipc.Response{OK: true, State: string(state), Message: message + " (already pending)"}
	}
}

// abandon performs the hard-cancellation contract: all audio stops and the
// stage machine resets.
func (c *Controller) abandon(result Result) Result {
	c.cue.Stop()
	c.speak.Stop()
	_ = c.transition(fsm.EventReset)

	result.State = c.State()
	result.Cancelled = true
	result.FinishedAt = time.Now()
	return result
}

func (c *Controller) finish(result Result, err error) Result {
	result.State = c.State()
	result.Err = err
	result.FinishedAt = time.Now()
	return result
}

func snapshotAnswer(a quiz.Answer) quiz.Answer {
	out := quiz.Answer{Text: a.Text, Rating: a.Rating}
	if len(a.Fields) > 0 {
		out.Fields = append([]string(nil), a.Fields...)
	}
	return out
}

func (c *Controller) log(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}

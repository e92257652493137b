package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storyvoice/storyvoice/internal/fsm"
	"github.com/storyvoice/storyvoice/internal/ipc"
	"github.com/storyvoice/storyvoice/internal/quiz"
	"github.com/storyvoice/storyvoice/internal/verdict"
)

type fakeCue struct {
	mu     sync.Mutex
	played []string
	fails  int
	stops  int
}

func (f *fakeCue) PlayCue(_ context.Context, file string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return context.DeadlineExceeded
	}
	f.played = append(f.played, file)
	return nil
}

func (f *fakeCue) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeCue) files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	stops  int
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeSpeaker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeSpeaker) said() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

type fakeGrader struct {
	mu          sync.Mutex
	voiceHeard  []string
	typedSeen   []quiz.Answer
	voiceResult verdict.Verdict
	typedResult []verdict.Verdict
}

func (f *fakeGrader) CheckVoice(_ context.Context, _ quiz.Question, transcript string) (verdict.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voiceHeard = append(f.voiceHeard, transcript)
	return f.voiceResult, nil
}

func (f *fakeGrader) CheckTyped(_ context.Context, _ quiz.Question, a quiz.Answer) (verdict.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typedSeen = append(f.typedSeen, a)
	v := verdict.Verdict{Correct: true, Message: "Correct!"}
	if len(f.typedResult) > 0 {
		v = f.typedResult[0]
		f.typedResult = f.typedResult[1:]
	}
	return v, nil
}

func (f *fakeGrader) voice() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.voiceHeard...)
}

func (f *fakeGrader) typed() []quiz.Answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]quiz.Answer(nil), f.typedSeen...)
}

func freeTextQuestion() quiz.Question {
	return quiz.Question{
		Route:     "/GodAct1",
		Next:      "/GodAct2",
		Book:      quiz.BookGoldilocks,
		CueFile:   "/title_1.mp3",
		Endpoint:  "/api/check-question1/",
		Shape:     quiz.ShapeFreeText,
		ListenFor: 50 * time.Millisecond,
	}
}

func listenerReturning(text string) Listener {
	return ListenFunc(func(context.Context, time.Duration, <-chan struct{}) (ListenResult, error) {
		return ListenResult{Transcript: text, BytesCaptured: 640}, nil
	})
}

func waitForState(t *testing.T, c *Controller, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, 2*time.Second, 5*time.Millisecond)
}

func TestRunFullVoiceAndTypedFlow(t *testing.T) {
	cue := &fakeCue{}
	speaker := &fakeSpeaker{}
	grader := &fakeGrader{voiceResult: verdict.Verdict{Correct: true, Category: verdict.CategoryExcellent, Message: "That is the title!"}}

	c := NewController(nil, cue, listenerReturning("goldilocks and the three bears"), speaker, grader, nil, "/assets")

	results := make(chan Result, 1)
	go func() { results <- c.Run(context.Background(), freeTextQuestion()) }()

	waitForState(t, c, fsm.StateWriting)

	// The spoken transcript is capitalized once and submitted on the voice path.
	require.Equal(t, []string{"Goldilocks and the three bears"}, grader.voice())
	require.Equal(t, []string{"Excellent! That is the title!"}, speaker.said())
	require.Equal(t, []string{"/assets/title_1.mp3", "/assets/input_audio.mp3"}, cue.files())

	// The form is prefilled with what was heard.
	resp := c.Handle(context.Background(), ipc.Request{Command: "status"})
	require.Equal(t, "/GodAct1", resp.Question)

	resp = c.Handle(context.Background(), ipc.Request{Command: "check"})
	require.True(t, resp.OK)

	waitForState(t, c, fsm.StateComplete)
	resp = c.Handle(context.Background(), ipc.Request{Command: "next"})
	require.True(t, resp.OK)

	result := <-results
	require.NoError(t, result.Err)
	require.False(t, result.Cancelled)
	require.Equal(t, "/GodAct2", result.NextRoute)
	require.Equal(t, "Goldilocks and the three bears", result.Transcript)
	require.Equal(t, "Goldilocks and the three bears", result.Answer.Text)
	require.True(t, result.Verdict.Correct)
	require.NotNil(t, result.VoiceVerdict)
}

func TestRunSkipsVoiceWhenUnavailable(t *testing.T) {
	cue := &fakeCue{}
	grader := &fakeGrader{}
	c := NewController(nil, cue, PlaceholderListener{}, nil, grader, nil, "/assets")

	results := make(chan Result, 1)
	go func() { results <- c.Run(context.Background(), freeTextQuestion()) }()

	waitForState(t, c, fsm.StateWriting)
	require.Empty(t, grader.voice())

	resp := c.Handle(context.Background(), ipc.Request{Command: "answer", Text: "Goldilocks and the Three Bears"})
	require.True(t, resp.OK)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "check"}).OK)

	waitForState(t, c, fsm.StateComplete)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "next"}).OK)

	result := <-results
	require.NoError(t, result.Err)
	require.Equal(t, "Goldilocks and the Three Bears", result.Answer.Text)
}

func TestCheckRejectsInvalidAnswerBeforeSubmission(t *testing.T) {
	grader := &fakeGrader{}
	c := NewController(nil, &fakeCue{}, PlaceholderListener{}, nil, grader, nil, "")

	done := make(chan Result, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { done <- c.Run(ctx, freeTextQuestion()) }()

	waitForState(t, c, fsm.StateWriting)

	resp := c.Handle(context.Background(), ipc.Request{Command: "check"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "empty")
	require.Empty(t, grader.typed())

	cancel()
	result := <-done
	require.True(t, result.Cancelled)
}

func TestRetryAfterIncorrectVerdict(t *testing.T) {
	grader := &fakeGrader{typedResult: []verdict.Verdict{
		{Correct: false, Message: "Not quite."},
		{Correct: true, Message: "Correct!"},
	}}
	c := NewController(nil, &fakeCue{}, PlaceholderListener{}, nil, grader, nil, "")

	results := make(chan Result, 1)
	go func() { results <- c.Run(context.Background(), freeTextQuestion()) }()

	waitForState(t, c, fsm.StateWriting)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "answer", Text: "wrong guess"}).OK)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "check"}).OK)

	waitForState(t, c, fsm.StateComplete)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "retry"}).OK)

	waitForState(t, c, fsm.StateWriting)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "answer", Text: "Goldilocks"}).OK)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "check"}).OK)

	waitForState(t, c, fsm.StateComplete)

	// Correct answers cannot be retried.
	resp := c.Handle(context.Background(), ipc.Request{Command: "retry"})
	require.False(t, resp.OK)

	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "next"}).OK)
	result := <-results
	require.True(t, result.Verdict.Correct)
	require.Len(t, grader.typed(), 2)
}

func TestMultiFieldDraftEditing(t *testing.T) {
	grader := &fakeGrader{}
	q := freeTextQuestion()
	q.Shape = quiz.ShapeMultiField
	q.FieldCount = 3

	c := NewController(nil, &fakeCue{}, PlaceholderListener{}, nil, grader, nil, "")

	results := make(chan Result, 1)
	go func() { results <- c.Run(context.Background(), q) }()

	waitForState(t, c, fsm.StateWriting)

	// Partial drafts are rejected before any network submission.
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "field", Index: 0, Text: "She ate porridge"}).OK)
	require.False(t, c.Handle(context.Background(), ipc.Request{Command: "check"}).OK)

	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "field", Index: 1, Text: "She broke a chair"}).OK)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "field", Index: 2, Text: "She fell asleep"}).OK)
	require.False(t, c.Handle(context.Background(), ipc.Request{Command: "field", Index: 3, Text: "overflow"}).OK)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "check"}).OK)

	waitForState(t, c, fsm.StateComplete)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "next"}).OK)

	result := <-results
	require.Equal(t, []string{"She ate porridge", "She broke a chair", "She fell asleep"}, result.Answer.Fields)
}

func TestUngradedRatingStepCompletesLocally(t *testing.T) {
	grader := &fakeGrader{}
	q := freeTextQuestion()
	q.Endpoint = ""
	q.Shape = quiz.ShapeRating
	q.Next = "/"

	c := NewController(nil, &fakeCue{}, PlaceholderListener{}, nil, grader, nil, "")

	results := make(chan Result, 1)
	go func() { results <- c.Run(context.Background(), q) }()

	waitForState(t, c, fsm.StateWriting)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "rate", Rating: 5}).OK)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "answer", Text: "I loved it"}).OK)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "check"}).OK)

	waitForState(t, c, fsm.StateComplete)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "next"}).OK)

	result := <-results
	require.Empty(t, grader.typed())
	require.True(t, result.Verdict.Correct)
	require.True(t, result.Verdict.Local)
	require.Equal(t, 5, result.Answer.Rating)
}

func TestCancellationStopsAllPlayback(t *testing.T) {
	cue := &fakeCue{}
	speaker := &fakeSpeaker{}
	c := NewController(nil, cue, PlaceholderListener{}, speaker, &fakeGrader{}, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan Result, 1)
	go func() { results <- c.Run(ctx, freeTextQuestion()) }()

	waitForState(t, c, fsm.StateWriting)
	cancel()

	result := <-results
	require.True(t, result.Cancelled)
	require.Equal(t, fsm.StateIdle, result.State)
	require.Equal(t, 1, cue.stops)
	require.Equal(t, 1, speaker.stops)
}

func TestManualPlayRetriesFailedPrompt(t *testing.T) {
	cue := &fakeCue{fails: 1}
	c := NewController(nil, cue, listenerReturning("a bear"), nil, &fakeGrader{}, nil, "/assets")

	results := make(chan Result, 1)
	go func() { results <- c.Run(context.Background(), freeTextQuestion()) }()

	waitForState(t, c, fsm.StatePromptPlaying)
	require.Eventually(t, func() bool {
		return c.Handle(context.Background(), ipc.Request{Command: "play"}).OK
	}, 2*time.Second, 10*time.Millisecond)

	waitForState(t, c, fsm.StateWriting)
	require.Contains(t, cue.files(), "/assets/title_1.mp3")

	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "check"}).OK)
	waitForState(t, c, fsm.StateComplete)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "next"}).OK)
	<-results
}

func TestStopClosesListeningWindowEarly(t *testing.T) {
	listener := ListenFunc(func(ctx context.Context, listenFor time.Duration, stop <-chan struct{}) (ListenResult, error) {
		select {
		case <-stop:
			return ListenResult{Transcript: "goldilocks", BytesCaptured: 320}, nil
		case <-time.After(listenFor):
			return ListenResult{}, nil
		case <-ctx.Done():
			return ListenResult{}, ctx.Err()
		}
	})
	grader := &fakeGrader{voiceResult: verdict.Verdict{Correct: true, Message: "Yes!"}}

	q := freeTextQuestion()
	q.ListenFor = 10 * time.Second

	c := NewController(nil, &fakeCue{}, listener, nil, grader, nil, "/assets")

	results := make(chan Result, 1)
	go func() { results <- c.Run(context.Background(), q) }()

	waitForState(t, c, fsm.StateListening)
	require.Eventually(t, func() bool {
		return c.Handle(context.Background(), ipc.Request{Command: "stop"}).OK
	}, 2*time.Second, 10*time.Millisecond)

	waitForState(t, c, fsm.StateWriting)
	require.Equal(t, []string{"Goldilocks"}, grader.voice())

	// Outside the listening window the command is rejected.
	require.False(t, c.Handle(context.Background(), ipc.Request{Command: "stop"}).OK)

	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "check"}).OK)
	waitForState(t, c, fsm.StateComplete)
	require.True(t, c.Handle(context.Background(), ipc.Request{Command: "next"}).OK)
	<-results
}

func TestHandleRejectsCommandsOutsideTheirStage(t *testing.T) {
	c := NewController(nil, nil, nil, nil, nil, nil, "")

	require.False(t, c.Handle(context.Background(), ipc.Request{Command: "answer", Text: "x"}).OK)
	require.False(t, c.Handle(context.Background(), ipc.Request{Command: "check"}).OK)
	require.False(t, c.Handle(context.Background(), ipc.Request{Command: "next"}).OK)
	require.False(t, c.Handle(context.Background(), ipc.Request{Command: "restart"}).OK)
	require.False(t, c.Handle(context.Background(), ipc.Request{Command: "bogus"}).OK)

	resp := c.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, resp.OK)
	require.Equal(t, string(fsm.StateIdle), resp.State)
}

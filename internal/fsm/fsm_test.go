package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionVoiceThenTypedHappyPath(t *testing.T) {
	s := StateIdle

	for _, step := range []struct {
		event Event
		want  State
	}{
		{EventStart, StatePromptPlaying},
		{EventCueDone, StateListening},
		{EventTranscript, StateProcessing},
		{EventGraded, StateVocalFeedback},
		{EventSpoken, StateWriting},
		{EventCheck, StateChecking},
		{EventVerdict, StateComplete},
		{EventAdvance, StateIdle},
	} {
		next, err := Transition(s, step.event)
		require.NoError(t, err)
		require.Equal(t, step.want, next)
		s = next
	}
}

func TestTransitionVoiceSkippedPath(t *testing.T) {
	next, err := Transition(StatePromptPlaying, EventVoiceSkipped)
	require.NoError(t, err)
	require.Equal(t, StateWriting, next)

	next, err = Transition(StateListening, EventVoiceSkipped)
	require.NoError(t, err)
	require.Equal(t, StateWriting, next)
}

func TestTransitionRetryReturnsToWriting(t *testing.T) {
	next, err := Transition(StateComplete, EventRetry)
	require.NoError(t, err)
	require.Equal(t, StateWriting, next)
}

func TestTransitionFailFromAnyStateGoesError(t *testing.T) {
	states := []State{
		StateIdle, StatePromptPlaying, StateListening, StateProcessing,
		StateVocalFeedback, StateWriting, StateChecking, StateComplete, StateError,
	}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateError, next)
	}
}

func TestTransitionResetFromAnyStateGoesIdle(t *testing.T) {
	states := []State{
		StatePromptPlaying, StateListening, StateProcessing,
		StateVocalFeedback, StateWriting, StateChecking, StateComplete, StateError,
	}
	for _, state := range states {
		next, err := Transition(state, EventReset)
		require.NoError(t, err)
		require.Equal(t, StateIdle, next)
	}
}

func TestTransitionErrorRestartsFromPrompt(t *testing.T) {
	next, err := Transition(StateError, EventRestart)
	require.NoError(t, err)
	require.Equal(t, StatePromptPlaying, next)
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{name: "idle cueDone invalid", state: StateIdle, event: EventCueDone},
		{name: "idle check invalid", state: StateIdle, event: EventCheck},
		{name: "promptPlaying transcript invalid", state: StatePromptPlaying, event: EventTranscript},
		{name: "listening start invalid", state: StateListening, event: EventStart},
		{name: "processing spoken invalid", state: StateProcessing, event: EventSpoken},
		{name: "vocalFeedback check invalid", state: StateVocalFeedback, event: EventCheck},
		{name: "writing verdict invalid", state: StateWriting, event: EventVerdict},
		{name: "checking retry invalid", state: StateChecking, event: EventRetry},
		{name: "complete check invalid", state: StateComplete, event: EventCheck},
		{name: "error advance invalid", state: StateError, event: EventAdvance},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.state, next)
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid transition")
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}

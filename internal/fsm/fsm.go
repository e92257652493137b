// Package fsm defines the per-question interaction stage machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle          State = "idle"
	StatePromptPlaying State = "promptPlaying"
	StateListening     State = "listening"
	StateProcessing    State = "processing"
	StateVocalFeedback State = "vocalFeedback"
	StateWriting       State = "writing"
	StateChecking      State = "checking"
	StateComplete      State = "complete"
	StateError         State = "error"
)

const (
	// EventStart begins a question session: the prompt cue starts playing.
	EventStart Event = "start"
	// EventCueDone fires when the prompt cue finished and the mic may open.
	EventCueDone Event = "cueDone"
	// EventVoiceSkipped routes straight to the typed flow when speech
	// capture is unavailable on this host.
	EventVoiceSkipped Event = "voiceSkipped"
	// EventTranscript delivers a finalized (possibly empty) transcript.
	EventTranscript Event = "transcript"
	// EventGraded fires when the voice-path submission resolved.
	EventGraded Event = "graded"
	// EventSpoken fires when spoken feedback playback finished.
	EventSpoken Event = "spoken"
	// EventCheck submits the typed answer.
	EventCheck Event = "check"
	// EventVerdict delivers the typed-path verdict.
	EventVerdict Event = "verdict"
	// EventRetry clears the verdict and returns to the typed form.
	EventRetry Event = "retry"
	// EventAdvance leaves a completed question toward navigation.
	EventAdvance Event = "advance"
	// EventFail enters the error stage from anywhere.
	EventFail Event = "fail"
	// EventRestart re-runs the question from the prompt cue after an error.
	EventRestart Event = "restart"
	// EventReset disposes the session from any stage (unmount contract).
	EventReset Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}
	if event == EventReset {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StatePromptPlaying, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePromptPlaying:
		switch event {
		case EventCueDone:
			return StateListening, nil
		case EventVoiceSkipped:
			return StateWriting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventTranscript:
			return StateProcessing, nil
		case EventVoiceSkipped:
			return StateWriting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventGraded:
			return StateVocalFeedback, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateVocalFeedback:
		switch event {
		case EventSpoken:
			return StateWriting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateWriting:
		switch event {
		case EventCheck:
			return StateChecking, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateChecking:
		switch event {
		case EventVerdict:
			return StateComplete, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateComplete:
		switch event {
		case EventRetry:
			return StateWriting, nil
		case EventAdvance:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventRestart:
			return StatePromptPlaying, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}

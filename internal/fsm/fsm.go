// Package fsm holds the report workflow transition table.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

const (
	EventStart   Event = "start"
	EventStop    Event = "stop"
	EventEmpty   Event = "empty"
	EventFail    Event = "fail"
	EventSucceed Event = "succeed"
	EventRetry   Event = "retry"
	EventReset   Event = "reset"
)

// Transition returns the next state or an error when the pair is not in the table.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateProcessing, nil
		case EventEmpty:
			return StateIdle, nil
		case EventFail:
			return StateError, nil
		}
	case StateProcessing:
		switch event {
		case EventSucceed:
			return StateSuccess, nil
		case EventFail:
			return StateError, nil
		}
	case StateSuccess:
		switch event {
		case EventReset:
			return StateIdle, nil
		}
	case StateError:
		switch event {
		case EventRetry:
			return StateIdle, nil
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
	return current, invalidTransition(current, event)
}

// Valid reports whether event is accepted in state.
func Valid(current State, event Event) bool {
	_, err := Transition(current, event)
	return err == nil
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}

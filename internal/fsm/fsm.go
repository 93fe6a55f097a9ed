// Package fsm tracks the lifecycle of one question-answering invocation.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateCapturing    State = "capturing"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateSynthesizing State = "synthesizing"
)

const (
	EventStart       Event = "start"
	EventCaptured    Event = "captured"
	EventTranscribed Event = "transcribed"
	EventGenerated   Event = "generated"
	EventSynthesized Event = "synthesized"
	EventAbort       Event = "abort"
)

// Transition returns the state reached from current on event. Abort is valid
// from every state and always lands on idle.
func Transition(current State, event Event) (State, error) {
	if event == EventAbort {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		if event == EventStart {
			return StateCapturing, nil
		}
	case StateCapturing:
		if event == EventCaptured {
			return StateTranscribing, nil
		}
	case StateTranscribing:
		if event == EventTranscribed {
			return StateGenerating, nil
		}
	case StateGenerating:
		if event == EventGenerated {
			return StateSynthesizing, nil
		}
	case StateSynthesizing:
		if event == EventSynthesized {
			return StateIdle, nil
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
	return current, invalidTransition(current, event)
}

// Machine records every state an invocation passes through.
type Machine struct {
	current State
	history []State
}

func New() *Machine {
	return &Machine{current: StateIdle, history: []State{StateIdle}}
}

func (m *Machine) Current() State {
	return m.current
}

func (m *Machine) History() []State {
	out := make([]State, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Machine) Fire(event Event) error {
	next, err := Transition(m.current, event)
	if err != nil {
		return err
	}
	m.current = next
	m.history = append(m.history, next)
	return nil
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}

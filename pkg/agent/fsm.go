package agent

import (
	"sync"
	"time"
)

// State tracks where a conversation turn is inside the tool loop.
type State int

const (
	StateAwaitingModel State = iota
	StateExecutingTools
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateExecutingTools:
		return "EXECUTING_TOOLS"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// stateMachine validates the turn lifecycle. A turn alternates between
// awaiting the model and executing tools until it settles in a
// terminal state.
type stateMachine struct {
	mu      sync.RWMutex
	current State
	history []StateChange
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateAwaitingModel}
}

func (sm *stateMachine) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

func transitionValid(from, to State) bool {
	validTransitions := map[State][]State{
		StateAwaitingModel:  {StateExecutingTools, StateDone, StateFailed},
		StateExecutingTools: {StateAwaitingModel, StateDone, StateFailed},
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (sm *stateMachine) Transition(to State, reason string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !transitionValid(sm.current, to) {
		return &InvalidTransitionError{From: sm.current, To: to}
	}
	sm.history = append(sm.history, StateChange{
		FromState: sm.current,
		ToState:   to,
		Timestamp: time.Now(),
		Reason:    reason,
	})
	sm.current = to
	return nil
}

// History returns the recorded transitions in order.
func (sm *stateMachine) History() []StateChange {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]StateChange, len(sm.history))
	copy(out, sm.history)
	return out
}

// InvalidTransitionError represents an invalid state transition attempt.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}

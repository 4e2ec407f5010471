package routing

import (
	"errors"

	"github.com/vietddude/recap/internal/core/domain"
)

// State is an alias for domain.BreakerState for internal use.
type State = domain.BreakerState

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid breaker state transition")

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
var ValidTransitions = map[State][]State{
	domain.BreakerStateClosed:   {domain.BreakerStateOpen},
	domain.BreakerStateOpen:     {domain.BreakerStateHalfOpen},
	domain.BreakerStateHalfOpen: {domain.BreakerStateClosed, domain.BreakerStateOpen},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}

	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case domain.BreakerStateClosed:
		return "Closed - calls flow through, failures counted"
	case domain.BreakerStateOpen:
		return "Open - calls rejected until the cooldown elapses"
	case domain.BreakerStateHalfOpen:
		return "Half-open - one trial call in flight, everyone else rejected"
	default:
		return "Unknown state"
	}
}

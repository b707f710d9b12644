package models

import (
	"fmt"
	"time"
)

// ProvisioningState is the lifecycle status of a resource instance,
// distinct from its configuration payload.
type ProvisioningState string

const (
	StateCreating  ProvisioningState = "Creating"
	StateSucceeded ProvisioningState = "Succeeded"
	StateUpdating  ProvisioningState = "Updating"
	StateDeleting  ProvisioningState = "Deleting"
	StateDeleted   ProvisioningState = "Deleted"
	StateFailed    ProvisioningState = "Failed"
)

// stateTransitions is the full transition table. Deleted is terminal.
// Failed is retriable: a new create or update attempt may leave it.
var stateTransitions = map[ProvisioningState][]ProvisioningState{
	StateCreating:  {StateSucceeded, StateFailed},
	StateSucceeded: {StateUpdating, StateDeleting},
	StateUpdating:  {StateSucceeded, StateFailed},
	StateFailed:    {StateCreating, StateUpdating, StateDeleting},
	StateDeleting:  {StateDeleted},
	StateDeleted:   nil,
}

// CanTransition reports whether s -> to is a legal transition.
func (s ProvisioningState) CanTransition(to ProvisioningState) bool {
	for _, next := range stateTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s ProvisioningState) IsTerminal() bool {
	return len(stateTransitions[s]) == 0
}

// InvalidTransitionError reports a state-machine transition outside the
// table. It indicates a caller bug, not a recoverable input problem.
type InvalidTransitionError struct {
	From ProvisioningState
	To   ProvisioningState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid provisioning state transition %s -> %s", e.From, e.To)
}

// StateEntry is one append-only history record of a state transition.
type StateEntry struct {
	State     ProvisioningState `json:"state"`
	EnteredAt time.Time         `json:"enteredAt"`
	Actor     string            `json:"actor"`
}

// Package settlement defines the per-bid settlement state machine. States
// and events are tagged values with an explicit transition table, so an
// illegal progression is a checkable error rather than an ad hoc status
// string overwrite.
package settlement

import (
	"errors"
	"fmt"
)

type State string

const (
	StatePending           State = "pending"
	StateExecutorSubmitted State = "executor_submitted"
	StateExecutorFilled    State = "executor_filled"
	StateAssetsDistributed State = "assets_distributed"
	StateFailed            State = "failed"
	StateExpired           State = "expired"
)

type EventKind string

const (
	EventSubmitted   EventKind = "submitted"
	EventFilled      EventKind = "filled"
	EventDistributed EventKind = "distributed"
	EventFailed      EventKind = "failed"
	EventExpired     EventKind = "expired"
)

// Machine-readable failure reasons, distinguished by phase: an executor
// rejection leaves funds with the bidder, a distribution failure means funds
// may already be custodied and need reconciliation.
const (
	ReasonExecutorRejected   = "executor_rejected"
	ReasonExecutorTimeout    = "executor_timeout"
	ReasonDistributionFailed = "distribution_failed"
)

var ErrIllegalTransition = errors.New("illegal settlement transition")

type transitionKey struct {
	from  State
	event EventKind
}

var transitions = map[transitionKey]State{
	{StatePending, EventSubmitted}:          StateExecutorSubmitted,
	{StateExecutorSubmitted, EventFilled}:   StateExecutorFilled,
	{StateExecutorFilled, EventDistributed}: StateAssetsDistributed,

	{StatePending, EventFailed}:           StateFailed,
	{StateExecutorSubmitted, EventFailed}: StateFailed,
	{StateExecutorFilled, EventFailed}:    StateFailed,

	{StatePending, EventExpired}:           StateExpired,
	{StateExecutorSubmitted, EventExpired}: StateExpired,
	{StateExecutorFilled, EventExpired}:    StateExpired,
}

// Next returns the state after applying event, or ErrIllegalTransition.
// Terminal states absorb nothing: a failed record is never retried in place,
// a retry is a new record.
func Next(from State, event EventKind) (State, error) {
	next, ok := transitions[transitionKey{from, event}]
	if !ok {
		return from, fmt.Errorf("%w: %s + %s", ErrIllegalTransition, from, event)
	}
	return next, nil
}

func IsTerminal(s State) bool {
	switch s {
	case StateAssetsDistributed, StateFailed, StateExpired:
		return true
	}
	return false
}

func IsValid(s State) bool {
	switch s {
	case StatePending, StateExecutorSubmitted, StateExecutorFilled,
		StateAssetsDistributed, StateFailed, StateExpired:
		return true
	}
	return false
}

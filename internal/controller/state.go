// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package controller

// State is the batch pipeline state. Any state can transition to
// StateRollingBack on error; every run terminates in StateCommitted or
// StateFailed.
type State int

const (
	// StateInit is the initial state before any work.
	StateInit State = iota
	// StateValidating covers CPU resolution and job construction.
	StateValidating
	// StateDispatching covers handing jobs to the worker pool.
	StateDispatching
	// StateAwaitingBarrier covers waiting for every job to complete.
	StateAwaitingBarrier
	// StateValidatingResults covers per-sample output validation.
	StateValidatingResults
	// StateAggregating covers averaging, correlation and rendering.
	StateAggregating
	// StateCommitted is the terminal success state; no artifacts are deleted.
	StateCommitted
	// StateRollingBack covers deletion of non-log artifacts after a failure.
	StateRollingBack
	// StateFailed is the terminal failure state.
	StateFailed
)

// String implements the Stringer interface for State.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateValidating:
		return "validating"
	case StateDispatching:
		return "dispatching"
	case StateAwaitingBarrier:
		return "awaiting-barrier"
	case StateValidatingResults:
		return "validating-results"
	case StateAggregating:
		return "aggregating"
	case StateCommitted:
		return "committed"
	case StateRollingBack:
		return "rolling-back"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Package kanban implements the application pipeline: a lifecycle state
// machine over the board columns, and the orchestrator that assembles
// the column view and turns drag-and-drop moves into state transitions.
//
// Valid column graph:
//
//	available ──► applied ──► interview ──► offered
//	                  │            │
//	                  └────────────┴──────► rejected
//
// offered and rejected are terminal. available is virtual: it holds
// ranked jobs the user has not applied to yet, so its single outgoing
// edge creates an application instead of moving one. The graph below is
// the only source of truth; both move validation and drop-target
// listing read from it.
package kanban

import (
	"fmt"
	"time"

	"jobmate/matching-service/internal/model"
)

// validMoves lists every allowed (from → to) column pair, including the
// synthetic available → applied edge.
var validMoves = map[model.Column][]model.Column{
	model.ColumnAvailable: {model.ColumnApplied},
	model.ColumnApplied:   {model.ColumnInterview, model.ColumnRejected},
	model.ColumnInterview: {model.ColumnOffered, model.ColumnRejected},
	// offered and rejected are terminal — no outgoing moves
}

// Decision is the state machine's verdict on one move. Reason is empty
// when the move is allowed.
type Decision struct {
	Allowed bool
	Reason  string
}

// AttemptTransition evaluates moving a card from one column to another.
// It is pure: on an allowed move the caller appends the history entry
// and persists the new status.
func AttemptTransition(from, to model.Column) Decision {
	targets, ok := validMoves[from]
	if !ok {
		return Decision{Reason: "status is terminal"}
	}
	for _, t := range targets {
		if t == to {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: denialReason(from, to)}
}

// denialReason phrases why a non-terminal source cannot reach to.
func denialReason(from, to model.Column) string {
	switch {
	case from == model.ColumnAvailable:
		return "can only apply to jobs from the available column"
	case from == model.ColumnApplied && to == model.ColumnOffered:
		return "cannot skip interview stage"
	}
	return fmt.Sprintf("cannot move from %s to %s", from, to)
}

// ValidTargets returns the columns reachable from the given column in
// one move. Terminal columns yield an empty slice.
func ValidTargets(from model.Column) []model.Column {
	targets := validMoves[from]
	out := make([]model.Column, len(targets))
	copy(out, targets)
	return out
}

// IsTerminal reports whether no moves leave the column.
func IsTerminal(c model.Column) bool {
	_, ok := validMoves[c]
	return !ok
}

// NewHistoryEntry builds the append-only history record for an allowed
// move. The first entry of every application records the synthetic
// available → applied edge.
func NewHistoryEntry(from model.Column, to model.Status, at time.Time, notes string) model.StatusChange {
	return model.StatusChange{From: from, To: to, At: at.UTC(), Notes: notes}
}

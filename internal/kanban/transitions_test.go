package kanban_test

import (
	"reflect"
	"testing"
	"time"

	"jobmate/matching-service/internal/kanban"
	"jobmate/matching-service/internal/model"
)

var allColumns = []model.Column{
	model.ColumnAvailable,
	model.ColumnApplied,
	model.ColumnInterview,
	model.ColumnOffered,
	model.ColumnRejected,
}

// ── AttemptTransition — allowed edges ──────────────────────────────────────

func TestAttemptTransition_AllowedEdges(t *testing.T) {
	cases := []struct {
		from model.Column
		to   model.Column
	}{
		{model.ColumnAvailable, model.ColumnApplied},
		{model.ColumnApplied, model.ColumnInterview},
		{model.ColumnApplied, model.ColumnRejected},
		{model.ColumnInterview, model.ColumnOffered},
		{model.ColumnInterview, model.ColumnRejected},
	}
	for _, c := range cases {
		d := kanban.AttemptTransition(c.from, c.to)
		if !d.Allowed {
			t.Errorf("AttemptTransition(%s → %s) denied: %q, want allowed", c.from, c.to, d.Reason)
		}
		if d.Reason != "" {
			t.Errorf("AttemptTransition(%s → %s) allowed but Reason = %q, want empty", c.from, c.to, d.Reason)
		}
	}
}

// ── AttemptTransition — skipping the interview stage ───────────────────────

func TestAttemptTransition_SkipInterview(t *testing.T) {
	d := kanban.AttemptTransition(model.ColumnApplied, model.ColumnOffered)
	if d.Allowed {
		t.Fatal("AttemptTransition(applied → offered) should be denied")
	}
	if d.Reason != "cannot skip interview stage" {
		t.Errorf("Reason = %q, want %q", d.Reason, "cannot skip interview stage")
	}
}

// ── AttemptTransition — terminal columns have no outgoing edges ────────────

func TestAttemptTransition_FromTerminal(t *testing.T) {
	for _, from := range []model.Column{model.ColumnOffered, model.ColumnRejected} {
		for _, to := range allColumns {
			d := kanban.AttemptTransition(from, to)
			if d.Allowed {
				t.Errorf("AttemptTransition(%s → %s) should be denied (terminal)", from, to)
				continue
			}
			if d.Reason != "status is terminal" {
				t.Errorf("AttemptTransition(%s → %s) Reason = %q, want %q", from, to, d.Reason, "status is terminal")
			}
		}
	}
}

// ── AttemptTransition — available only leads to applied ───────────────────

func TestAttemptTransition_AvailableOnlyLeadsToApplied(t *testing.T) {
	for _, to := range []model.Column{model.ColumnAvailable, model.ColumnInterview, model.ColumnOffered, model.ColumnRejected} {
		d := kanban.AttemptTransition(model.ColumnAvailable, to)
		if d.Allowed {
			t.Errorf("AttemptTransition(available → %s) should be denied", to)
			continue
		}
		if d.Reason != "can only apply to jobs from the available column" {
			t.Errorf("AttemptTransition(available → %s) Reason = %q, want the apply-only message", to, d.Reason)
		}
	}
}

// ── AttemptTransition — backwards and self moves ───────────────────────────

func TestAttemptTransition_Backwards(t *testing.T) {
	cases := []struct {
		from model.Column
		to   model.Column
	}{
		{model.ColumnApplied, model.ColumnAvailable},
		{model.ColumnInterview, model.ColumnApplied},
		{model.ColumnInterview, model.ColumnAvailable},
	}
	for _, c := range cases {
		if d := kanban.AttemptTransition(c.from, c.to); d.Allowed {
			t.Errorf("AttemptTransition(%s → %s) should be denied (backwards)", c.from, c.to)
		}
	}
}

func TestAttemptTransition_Self(t *testing.T) {
	for _, c := range allColumns {
		if d := kanban.AttemptTransition(c, c); d.Allowed {
			t.Errorf("AttemptTransition(%s → %s) should be denied (self)", c, c)
		}
	}
}

// ── ValidTargets — shares the graph with AttemptTransition ─────────────────

func TestValidTargets(t *testing.T) {
	cases := []struct {
		from model.Column
		want []model.Column
	}{
		{model.ColumnAvailable, []model.Column{model.ColumnApplied}},
		{model.ColumnApplied, []model.Column{model.ColumnInterview, model.ColumnRejected}},
		{model.ColumnInterview, []model.Column{model.ColumnOffered, model.ColumnRejected}},
		{model.ColumnOffered, []model.Column{}},
		{model.ColumnRejected, []model.Column{}},
	}
	for _, c := range cases {
		got := kanban.ValidTargets(c.from)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("ValidTargets(%s) = %v, want %v", c.from, got, c.want)
		}
	}
}

// Every ValidTargets entry must be an allowed transition and vice versa.
func TestValidTargets_AgreesWithAttemptTransition(t *testing.T) {
	for _, from := range allColumns {
		targets := make(map[model.Column]bool)
		for _, to := range kanban.ValidTargets(from) {
			targets[to] = true
		}
		for _, to := range allColumns {
			if got := kanban.AttemptTransition(from, to).Allowed; got != targets[to] {
				t.Errorf("graph disagreement for %s → %s: AttemptTransition=%v, ValidTargets=%v", from, to, got, targets[to])
			}
		}
	}
}

// ── IsTerminal ─────────────────────────────────────────────────────────────

func TestIsTerminal(t *testing.T) {
	for _, c := range allColumns {
		want := c == model.ColumnOffered || c == model.ColumnRejected
		if got := kanban.IsTerminal(c); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", c, got, want)
		}
	}
}

// ── NewHistoryEntry ────────────────────────────────────────────────────────

func TestNewHistoryEntry(t *testing.T) {
	loc := time.FixedZone("CEST", 2*3600)
	at := time.Date(2026, 8, 20, 15, 30, 0, 0, loc)

	got := kanban.NewHistoryEntry(model.ColumnAvailable, model.StatusApplied, at, "applied via board")
	if got.From != model.ColumnAvailable || got.To != model.StatusApplied {
		t.Errorf("entry edge = %s → %s, want available → applied", got.From, got.To)
	}
	if got.Notes != "applied via board" {
		t.Errorf("Notes = %q, want %q", got.Notes, "applied via board")
	}
	if !got.At.Equal(at) || got.At.Location() != time.UTC {
		t.Errorf("At = %v, want the same instant in UTC", got.At)
	}
}

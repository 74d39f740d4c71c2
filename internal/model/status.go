package model

import "fmt"

// Status values mirror the application_status enum in PostgreSQL.
type Status string

const (
	StatusApplied   Status = "applied"
	StatusInterview Status = "interview"
	StatusOffered   Status = "offered"
	StatusRejected  Status = "rejected"
)

// Column identifies a Kanban pipeline column. Columns are the four
// application statuses plus the virtual "available" column, which holds
// jobs the user has not applied to yet and is never persisted.
type Column string

const (
	ColumnAvailable Column = "available"
	ColumnApplied   Column = "applied"
	ColumnInterview Column = "interview"
	ColumnOffered   Column = "offered"
	ColumnRejected  Column = "rejected"
)

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusApplied, StatusInterview, StatusOffered, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// ParseColumn converts a raw string to a Column, returning an error for
// unknown values.
func ParseColumn(s string) (Column, error) {
	c := Column(s)
	switch c {
	case ColumnAvailable, ColumnApplied, ColumnInterview, ColumnOffered, ColumnRejected:
		return c, nil
	}
	return "", fmt.Errorf("unknown pipeline column %q", s)
}

// Column returns the pipeline column that displays applications with
// status s.
func (s Status) Column() Column { return Column(s) }

// Status converts a column to the application status it represents.
// The virtual "available" column has no status; ok is false.
func (c Column) Status() (Status, bool) {
	if c == ColumnAvailable {
		return "", false
	}
	return Status(c), true
}

// ExperienceLevel is the normalised seniority scale used by both job
// listings and user profiles.
type ExperienceLevel string

const (
	ExperienceEntry  ExperienceLevel = "entry"
	ExperienceMid    ExperienceLevel = "mid"
	ExperienceSenior ExperienceLevel = "senior"
	ExperienceLead   ExperienceLevel = "lead"
)

// experienceRank orders the scale so adjacency can be computed.
var experienceRank = map[ExperienceLevel]int{
	ExperienceEntry:  0,
	ExperienceMid:    1,
	ExperienceSenior: 2,
	ExperienceLead:   3,
}

// Rank returns the position of e on the entry < mid < senior < lead
// scale. ok is false for unknown levels.
func (e ExperienceLevel) Rank() (int, bool) {
	r, ok := experienceRank[e]
	return r, ok
}

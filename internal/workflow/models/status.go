// Package models defines the application aggregate and its lifecycle state
// machine.
//
// Valid status graph:
//
//	Pending ──► UnderReview ──► Shortlisted ──► InterviewScheduled ──► Approved
//	   │             │               │                   │
//	   └─────────────┴───────────────┴───────────────────┴──► Rejected
//
// Approved and Rejected are terminal states.
package models

import (
	dErrors "internhub/pkg/domain-errors"
)

// Status values mirror the application_status column in PostgreSQL.
type Status string

const (
	StatusPending            Status = "pending"
	StatusUnderReview        Status = "under_review"
	StatusShortlisted        Status = "shortlisted"
	StatusInterviewScheduled Status = "interview_scheduled"
	StatusApproved           Status = "approved"
	StatusRejected           Status = "rejected"
)

// transitions lists every allowed (from -> to) edge. Statuses absent from
// the map are terminal. Order within a slice is the order surfaced to
// clients by AllowedTransitions.
var transitions = map[Status][]Status{
	StatusPending:            {StatusUnderReview, StatusRejected},
	StatusUnderReview:        {StatusShortlisted, StatusRejected},
	StatusShortlisted:        {StatusInterviewScheduled, StatusRejected},
	StatusInterviewScheduled: {StatusApproved, StatusRejected},
	// Approved and Rejected are terminal, so they have no entry here.
}

// AllStatuses is the closed enumeration in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusUnderReview,
	StatusShortlisted,
	StatusInterviewScheduled,
	StatusApproved,
	StatusRejected,
}

// IsValid reports whether the status is a member of the enumeration.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusShortlisted,
		StatusInterviewScheduled, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ParseStatus converts a raw string to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown application status %q", s)
	}
	return st, nil
}

// CanTransitionTo reports whether moving from s to target is permitted.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the ordered set of legal successor statuses.
// Terminal statuses return an empty slice. The result is a copy.
func (s Status) AllowedTransitions() []Status {
	allowed := transitions[s]
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Label is the human-readable form shown in admin views.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusUnderReview:
		return "Under review"
	case StatusShortlisted:
		return "Shortlisted"
	case StatusInterviewScheduled:
		return "Interview scheduled"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	}
	return string(s)
}

// ColorTag is the badge color hint for admin views.
func (s Status) ColorTag() string {
	switch s {
	case StatusPending:
		return "gray"
	case StatusUnderReview:
		return "blue"
	case StatusShortlisted:
		return "purple"
	case StatusInterviewScheduled:
		return "amber"
	case StatusApproved:
		return "green"
	case StatusRejected:
		return "red"
	}
	return "gray"
}

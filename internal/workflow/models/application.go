package models

import (
	"fmt"
	"strings"
	"time"

	id "internhub/pkg/domain"
	dErrors "internhub/pkg/domain-errors"
)

// Application is the aggregate root for one candidate's request against one
// opportunity.
//
// Invariants:
//   - ApplicantID and OpportunityID are non-nil and immutable after construction
//   - Status is always a member of the Status enumeration
//   - Status only changes through CanTransitionTo + ApplyTransition (the
//     engine's validate/apply pair); never by direct assignment
//   - MatchScore is computed externally and kept in [0, 100] for historical
//     fidelity; this package never recomputes it
//   - CreatedAt is immutable after construction
type Application struct {
	ID            id.ApplicationID `json:"id"`
	ApplicantID   id.UserID        `json:"applicant_id"`
	OpportunityID id.OpportunityID `json:"opportunity_id"`
	Status        Status           `json:"status"`
	MatchScore    float64          `json:"match_score"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewApplication constructs an application in the Pending status.
func NewApplication(appID id.ApplicationID, applicantID id.UserID, opportunityID id.OpportunityID, matchScore float64, now time.Time) (*Application, error) {
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application id is required")
	}
	if applicantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "applicant id is required")
	}
	if opportunityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "opportunity id is required")
	}
	if matchScore < 0 || matchScore > 100 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "match score must be between 0 and 100")
	}
	return &Application{
		ID:            appID,
		ApplicantID:   applicantID,
		OpportunityID: opportunityID,
		Status:        StatusPending,
		MatchScore:    matchScore,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsLive reports whether the application still occupies its applicant's slot
// for the opportunity. Terminal applications free the slot.
func (a *Application) IsLive() bool {
	return !a.Status.IsTerminal()
}

// CanTransitionTo checks the transition against the state machine. Returns
// an *InvalidTransitionError if the edge is not in the table.
// Use with ApplyTransition inside the store's transactional boundary.
func (a *Application) CanTransitionTo(target Status) error {
	if a.Status.CanTransitionTo(target) {
		return nil
	}
	return &InvalidTransitionError{
		From:    a.Status,
		To:      target,
		Allowed: a.Status.AllowedTransitions(),
	}
}

// ApplyTransition moves the application to the target status. Must only be
// called after CanTransitionTo returns nil.
func (a *Application) ApplyTransition(target Status, now time.Time) {
	a.Status = target
	a.UpdatedAt = now
}

// InvalidTransitionError reports a request that is not an edge of the state
// machine. It carries the full allowed set so callers can render
// diagnostics ("allowed transitions: X, Y").
type InvalidTransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot transition from terminal status %q", e.From)
	}
	names := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		names[i] = string(s)
	}
	return fmt.Sprintf("cannot transition from %q to %q (allowed: %s)",
		e.From, e.To, strings.Join(names, ", "))
}

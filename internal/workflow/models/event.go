package models

import (
	"time"

	id "internhub/pkg/domain"
)

// StatusChanged is the domain event raised after a transition commits. It is
// emitted from the engine and consumed by the notification dispatcher; the
// engine itself never delivers anything.
//
// FromStatus is nil for the "created" pseudo-transition, mirroring the
// status log.
type StatusChanged struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	ApplicantID   id.UserID        `json:"applicant_id"`
	OpportunityID id.OpportunityID `json:"opportunity_id"`
	FromStatus    *Status          `json:"from_status"`
	ToStatus      Status           `json:"to_status"`
	ChangedBy     id.ActorID       `json:"changed_by"`
	ActorKind     id.ActorKind     `json:"actor_kind"`
	Note          string           `json:"note"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

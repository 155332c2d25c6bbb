package models

import (
	"time"

	"github.com/google/uuid"

	id "internhub/pkg/domain"
)

// StatusLogEntry is one immutable audit record per committed transition.
// Entries are append-only: once written they are never updated or deleted,
// even if the caller that requested the transition goes away.
//
// FromStatus is nil only for the initial "created" pseudo-transition.
type StatusLogEntry struct {
	ID            uuid.UUID        `json:"id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	FromStatus    *Status          `json:"from_status"`
	ToStatus      Status           `json:"to_status"`
	ActorID       id.ActorID       `json:"actor_id"`
	ActorKind     id.ActorKind     `json:"actor_kind"`
	Note          string           `json:"note"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewStatusLogEntry builds the audit record for a committed transition.
func NewStatusLogEntry(appID id.ApplicationID, from *Status, to Status, actorID id.ActorID, kind id.ActorKind, note string, now time.Time) StatusLogEntry {
	return StatusLogEntry{
		ID:            uuid.New(),
		ApplicationID: appID,
		FromStatus:    from,
		ToStatus:      to,
		ActorID:       actorID,
		ActorKind:     kind,
		Note:          note,
		CreatedAt:     now,
	}
}

package domain

import (
	dErrors "internhub/pkg/domain-errors"
)

// ActorKind classifies who initiated a state change.
type ActorKind string

const (
	// ActorAdmin is a human reviewer acting through the admin surface.
	ActorAdmin ActorKind = "admin"

	// ActorStudent is the applicant acting on their own application.
	ActorStudent ActorKind = "student"

	// ActorSystem is an automated process, e.g. the stale-application sweep.
	ActorSystem ActorKind = "system"
)

// IsValid reports whether the kind is a known member of the enumeration.
func (k ActorKind) IsValid() bool {
	switch k {
	case ActorAdmin, ActorStudent, ActorSystem:
		return true
	}
	return false
}

// ParseActorKind converts a raw string to an ActorKind, rejecting unknown
// values.
func ParseActorKind(s string) (ActorKind, error) {
	k := ActorKind(s)
	if !k.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown actor kind %q", s)
	}
	return k, nil
}

// Package models defines the idempotent notification log records and the
// fingerprint that deduplicates them.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/google/uuid"

	id "internhub/pkg/domain"
	dErrors "internhub/pkg/domain-errors"
)

// EventKind tags the logical notification an entry suppresses duplicates of.
type EventKind string

const (
	KindApplicationReceived EventKind = "application_received"
	KindStatusChanged       EventKind = "application_status_changed"
	KindInterviewScheduled  EventKind = "interview_scheduled"
	KindApplicationDecided  EventKind = "application_decided"
)

// IsValid reports whether the kind is a known member of the enumeration.
func (k EventKind) IsValid() bool {
	switch k {
	case KindApplicationReceived, KindStatusChanged, KindInterviewScheduled, KindApplicationDecided:
		return true
	}
	return false
}

// ParseEventKind converts a raw string to an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(s)
	if !k.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown event kind %q", s)
	}
	return k, nil
}

// DeliveryStatus tracks the hand-off outcome for an entry. It is the only
// mutable field of an entry; a delivery failure updates it and never deletes
// the entry, so the dedup guarantee survives channel outages.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Entry is one idempotent notification log record.
//
// Uniqueness invariant: no two entries share
// (SubjectUserID, Kind, Fingerprint). The store's insert-if-absent primitive
// enforces it atomically.
type Entry struct {
	ID            uuid.UUID         `json:"id"`
	SubjectUserID id.UserID         `json:"subject_user_id"`
	Kind          EventKind         `json:"event_kind"`
	Fingerprint   string            `json:"fingerprint"`
	Status        DeliveryStatus    `json:"status"`
	Payload       map[string]string `json:"payload"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewEntry builds a pending entry for first-sight insertion.
func NewEntry(subject id.UserID, kind EventKind, payload map[string]string, now time.Time) Entry {
	return Entry{
		ID:            uuid.New(),
		SubjectUserID: subject,
		Kind:          kind,
		Fingerprint:   Fingerprint(subject, kind, payload, now),
		Status:        DeliveryPending,
		Payload:       payload,
		CreatedAt:     now,
	}
}

// Fingerprint derives the deduplication key: a hash over the subject, the
// event kind, the payload fields in sorted order, and the timestamp
// truncated to the enclosing minute.
//
// Two attempts for the same logical event within the same minute collide;
// attempts in different minute buckets are treated as distinct events. The
// coarse window is a deliberate trade-off carried over from the portal's
// original behavior, not a bug.
func Fingerprint(subject id.UserID, kind EventKind, payload map[string]string, at time.Time) string {
	h := sha256.New()
	h.Write([]byte(subject.String()))
	h.Write([]byte{0x1f})
	h.Write([]byte(kind))
	h.Write([]byte{0x1f})

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0x1e})
		h.Write([]byte(payload[k]))
		h.Write([]byte{0x1f})
	}

	bucket := at.UTC().Truncate(time.Minute)
	h.Write([]byte(bucket.Format(time.RFC3339)))

	return hex.EncodeToString(h.Sum(nil))
}

package domain

import (
	"github.com/google/uuid"

	dErrors "internhub/pkg/domain-errors"
)

// Typed identifiers keep the compiler between us and the classic
// "passed the applicant id where the opportunity id goes" bug.
type (
	// ApplicationID identifies one candidate's application to one opportunity.
	ApplicationID uuid.UUID

	// UserID identifies a portal user (applicant or admin).
	UserID uuid.UUID

	// OpportunityID identifies an internship opportunity.
	OpportunityID uuid.UUID

	// ActorID identifies whoever requested a state change. It is usually a
	// UserID, but the automated sweep uses the reserved SystemActorID.
	ActorID uuid.UUID
)

// SystemActorID is the reserved identity for automated transitions (the
// stale-application sweep). It is passed explicitly, never read from
// ambient state.
var SystemActorID = ActorID(uuid.MustParse("00000000-0000-0000-0000-000000000001"))

func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id OpportunityID) String() string { return uuid.UUID(id).String() }
func (id ActorID) String() string       { return uuid.UUID(id).String() }

func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id OpportunityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps IDs as canonical UUID strings on every wire
// (JSON event payloads included) instead of raw byte arrays.

func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id OpportunityID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ActorID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }

func (id *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *OpportunityID) UnmarshalText(b []byte) error {
	parsed, err := ParseOpportunityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ActorID) UnmarshalText(b []byte) error {
	parsed, err := ParseActorID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewApplicationID mints a fresh application identifier.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// ParseApplicationID parses and validates an application ID from its string form.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parse(s)
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(u), nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseOpportunityID parses and validates an opportunity ID from its string form.
func ParseOpportunityID(s string) (OpportunityID, error) {
	u, err := parse(s)
	if err != nil {
		return OpportunityID{}, err
	}
	return OpportunityID(u), nil
}

// ParseActorID parses and validates an actor ID from its string form.
func ParseActorID(s string) (ActorID, error) {
	u, err := parse(s)
	if err != nil {
		return ActorID{}, err
	}
	return ActorID(u), nil
}

// parse enforces the shared invariant: IDs are valid, non-nil UUIDs.
func parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

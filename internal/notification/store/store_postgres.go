package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"internhub/internal/notification/models"
	id "internhub/pkg/domain"
	"internhub/pkg/platform/sentinel"
	pgtx "internhub/pkg/platform/tx"
)

// PostgresStore persists notification log entries in PostgreSQL. The unique
// index on (subject_user_id, event_kind, fingerprint) makes the
// insert-if-absent a single atomic statement: ON CONFLICT DO NOTHING plus a
// follow-up read of whichever row won.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed notification log store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InsertIfAbsent atomically inserts the entry unless its uniqueness triple
// already exists. Returns the stored entry and whether this call created it.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, entry models.Entry) (*models.Entry, bool, error) {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("marshal payload: %w", err)
	}

	insert := `
		INSERT INTO notification_log (id, subject_user_id, event_kind, fingerprint, status, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subject_user_id, event_kind, fingerprint) DO NOTHING
	`
	res, err := pgtx.Pick(ctx, s.db).ExecContext(ctx, insert,
		entry.ID,
		uuid.UUID(entry.SubjectUserID),
		string(entry.Kind),
		entry.Fingerprint,
		string(entry.Status),
		payload,
		entry.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert notification entry: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert notification entry: %w", err)
	}
	if inserted > 0 {
		return &entry, true, nil
	}

	// Lost the race or a duplicate trigger: return the pre-existing entry
	// untouched.
	existing, err := s.findByTriple(ctx, entry.SubjectUserID, entry.Kind, entry.Fingerprint)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// UpdateStatus records the delivery outcome for an existing entry.
func (s *PostgresStore) UpdateStatus(ctx context.Context, entryID uuid.UUID, status models.DeliveryStatus) error {
	res, err := pgtx.Pick(ctx, s.db).ExecContext(ctx,
		`UPDATE notification_log SET status = $2 WHERE id = $1`,
		entryID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListBySubject returns all entries for a subject user, newest first.
func (s *PostgresStore) ListBySubject(ctx context.Context, subject id.UserID) ([]models.Entry, error) {
	rows, err := pgtx.Pick(ctx, s.db).QueryContext(ctx,
		selectEntry+` WHERE subject_user_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(subject),
	)
	if err != nil {
		return nil, fmt.Errorf("list notification entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list notification entries: %w", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notification entries: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) findByTriple(ctx context.Context, subject id.UserID, kind models.EventKind, fingerprint string) (*models.Entry, error) {
	query := selectEntry + ` WHERE subject_user_id = $1 AND event_kind = $2 AND fingerprint = $3`
	entry, err := scanEntry(pgtx.Pick(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(subject), string(kind), fingerprint,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find notification entry: %w", err)
	}
	return entry, nil
}

const selectEntry = `
	SELECT id, subject_user_id, event_kind, fingerprint, status, payload, created_at
	FROM notification_log`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		entry   models.Entry
		subject uuid.UUID
		kind    string
		status  string
		payload []byte
	)
	if err := row.Scan(&entry.ID, &subject, &kind, &entry.Fingerprint, &status, &payload, &entry.CreatedAt); err != nil {
		return nil, err
	}
	entry.SubjectUserID = id.UserID(subject)
	entry.Kind = models.EventKind(kind)
	entry.Status = models.DeliveryStatus(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return nil, err
		}
	}
	return &entry, nil
}

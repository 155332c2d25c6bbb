package statuslog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"internhub/internal/workflow/models"
	id "internhub/pkg/domain"
	pgtx "internhub/pkg/platform/tx"
)

// PostgresStore persists status log entries in PostgreSQL. The table is
// append-only; no update or delete statements exist on purpose.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed status log.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append records one transition. Joins the context transaction when the
// caller runs inside the engine's transactional boundary, so the log write
// commits atomically with the status update.
func (s *PostgresStore) Append(ctx context.Context, entry models.StatusLogEntry) error {
	query := `
		INSERT INTO status_log (id, application_id, from_status, to_status, actor_id, actor_kind, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	var from any
	if entry.FromStatus != nil {
		from = string(*entry.FromStatus)
	}
	_, err := pgtx.Pick(ctx, s.db).ExecContext(ctx, query,
		entry.ID,
		uuid.UUID(entry.ApplicationID),
		from,
		string(entry.ToStatus),
		uuid.UUID(entry.ActorID),
		string(entry.ActorKind),
		entry.Note,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append status log: %w", err)
	}
	return nil
}

// ListByApplication returns the entries for one application, oldest first.
func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]models.StatusLogEntry, error) {
	query := `
		SELECT id, application_id, from_status, to_status, actor_id, actor_kind, note, created_at
		FROM status_log
		WHERE application_id = $1
		ORDER BY created_at, id
	`
	rows, err := pgtx.Pick(ctx, s.db).QueryContext(ctx, query, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list status log: %w", err)
	}
	defer rows.Close()

	var out []models.StatusLogEntry
	for rows.Next() {
		var (
			entry     models.StatusLogEntry
			entryApp  uuid.UUID
			actorID   uuid.UUID
			from      sql.NullString
			to        string
			actorKind string
		)
		if err := rows.Scan(&entry.ID, &entryApp, &from, &to, &actorID, &actorKind, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("list status log: %w", err)
		}
		entry.ApplicationID = id.ApplicationID(entryApp)
		entry.ActorID = id.ActorID(actorID)
		entry.ActorKind = id.ActorKind(actorKind)
		entry.ToStatus = models.Status(to)
		if from.Valid {
			status := models.Status(from.String)
			entry.FromStatus = &status
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list status log: %w", err)
	}
	return out, nil
}

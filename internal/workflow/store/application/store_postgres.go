package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"internhub/internal/workflow/models"
	id "internhub/pkg/domain"
	"internhub/pkg/platform/sentinel"
	pgtx "internhub/pkg/platform/tx"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

// PostgresStore persists applications in PostgreSQL. This store is pure I/O:
// transition validation belongs to the service, which runs it inside the
// transactional boundary so FindByIDForUpdate's row lock covers the whole
// check-and-update sequence.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed application store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the application. The partial unique index on
// (applicant_id, opportunity_id) for live rows turns duplicate submissions
// into sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (id, applicant_id, opportunity_id, status, match_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := pgtx.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(app.ID),
		uuid.UUID(app.ApplicantID),
		uuid.UUID(app.OpportunityID),
		string(app.Status),
		app.MatchScore,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID loads one application.
func (s *PostgresStore) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	query := selectApplication + ` WHERE id = $1`
	app, err := scanApplication(pgtx.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(appID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

// FindByIDForUpdate loads one application under a row lock. Must be called
// inside a context transaction; concurrent transition requests for the same
// application serialize on this lock.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	query := selectApplication + ` WHERE id = $1 FOR UPDATE`
	app, err := scanApplication(pgtx.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(appID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application for update: %w", err)
	}
	return app, nil
}

// Update persists status and timestamp changes.
func (s *PostgresStore) Update(ctx context.Context, app *models.Application) error {
	query := `
		UPDATE applications
		SET status = $2, match_score = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := pgtx.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(app.ID),
		string(app.Status),
		app.MatchScore,
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListByStatusCreatedBefore returns applications in the given status created
// strictly before the cutoff, oldest first.
func (s *PostgresStore) ListByStatusCreatedBefore(ctx context.Context, status models.Status, cutoff time.Time) ([]*models.Application, error) {
	query := selectApplication + ` WHERE status = $1 AND created_at < $2 ORDER BY created_at`
	rows, err := pgtx.Pick(ctx, s.db).QueryContext(ctx, query, string(status), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("list applications: %w", err)
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return out, nil
}

const selectApplication = `
	SELECT id, applicant_id, opportunity_id, status, match_score, created_at, updated_at
	FROM applications`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app           models.Application
		appID         uuid.UUID
		applicantID   uuid.UUID
		opportunityID uuid.UUID
		status        string
	)
	err := row.Scan(&appID, &applicantID, &opportunityID, &status, &app.MatchScore, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	app.ID = id.ApplicationID(appID)
	app.ApplicantID = id.UserID(applicantID)
	app.OpportunityID = id.OpportunityID(opportunityID)
	app.Status = models.Status(status)
	return &app, nil
}

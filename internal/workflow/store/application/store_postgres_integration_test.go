//go:build integration

package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"internhub/internal/workflow/models"
	"internhub/internal/workflow/store/application"
	id "internhub/pkg/domain"
	"internhub/pkg/platform/sentinel"
	pgtx "internhub/pkg/platform/tx"
	"internhub/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *application.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = application.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(s.ctx, "status_log", "applications"))
}

func (s *PostgresStoreSuite) newApplication(createdAt time.Time) *models.Application {
	app, err := models.NewApplication(
		id.NewApplicationID(),
		id.UserID(uuid.New()),
		id.OpportunityID(uuid.New()),
		70,
		createdAt.UTC().Truncate(time.Microsecond),
	)
	s.Require().NoError(err)
	return app
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	app := s.newApplication(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, app))

	found, err := s.store.FindByID(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(app.ID, found.ID)
	s.Equal(models.StatusPending, found.Status)
	s.Equal(app.ApplicantID, found.ApplicantID)

	_, err = s.store.FindByID(s.ctx, id.NewApplicationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestLivePartialUniqueIndex() {
	app := s.newApplication(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, app))

	s.Run("live duplicate violates the partial index", func() {
		dup := s.newApplication(time.Now())
		dup.ApplicantID = app.ApplicantID
		dup.OpportunityID = app.OpportunityID
		s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("terminal rows free the slot", func() {
		app.Status = models.StatusRejected
		s.Require().NoError(s.store.Update(s.ctx, app))

		next := s.newApplication(time.Now())
		next.ApplicantID = app.ApplicantID
		next.OpportunityID = app.OpportunityID
		s.NoError(s.store.Create(s.ctx, next))
	})
}

func (s *PostgresStoreSuite) TestUpdate() {
	app := s.newApplication(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, app))

	app.Status = models.StatusUnderReview
	app.UpdatedAt = app.UpdatedAt.Add(time.Hour)
	s.Require().NoError(s.store.Update(s.ctx, app))

	found, err := s.store.FindByID(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, found.Status)

	missing := s.newApplication(time.Now())
	s.ErrorIs(s.store.Update(s.ctx, missing), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByStatusCreatedBefore() {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	oldest := s.newApplication(base.Add(-72 * time.Hour))
	middle := s.newApplication(base.Add(-48 * time.Hour))
	fresh := s.newApplication(base.Add(-1 * time.Hour))
	for _, app := range []*models.Application{oldest, middle, fresh} {
		s.Require().NoError(s.store.Create(s.ctx, app))
	}

	got, err := s.store.ListByStatusCreatedBefore(s.ctx, models.StatusPending, base.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(oldest.ID, got[0].ID)
	s.Equal(middle.ID, got[1].ID)
}

// TestRowLockSerializesCheckAndUpdate races two transactions over the same
// row; the FOR UPDATE lock forces the second to observe the first's commit.
func (s *PostgresStoreSuite) TestRowLockSerializesCheckAndUpdate() {
	app := s.newApplication(time.Now())
	s.Require().NoError(s.store.Create(s.ctx, app))

	runner := pgtx.NewRunner(s.postgres.DB)
	statuses := make([]models.Status, 2)

	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = runner.RunInTx(s.ctx, func(txCtx context.Context) error {
				locked, err := s.store.FindByIDForUpdate(txCtx, app.ID)
				if err != nil {
					return err
				}
				statuses[i] = locked.Status
				if locked.Status == models.StatusPending {
					locked.Status = models.StatusUnderReview
					locked.UpdatedAt = time.Now().UTC()
					return s.store.Update(txCtx, locked)
				}
				return nil
			})
		}()
	}
	wg.Wait()

	final, err := s.store.FindByID(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, final.Status)

	// One racer saw pending, the other saw the committed update.
	s.Contains(statuses, models.StatusPending)
	s.Contains(statuses, models.StatusUnderReview)
}

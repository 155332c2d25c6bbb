package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "internhub/pkg/domain"
	dErrors "internhub/pkg/domain-errors"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	app, err := NewApplication(
		id.NewApplicationID(),
		id.UserID(uuid.New()),
		id.OpportunityID(uuid.New()),
		82.5,
		time.Now(),
	)
	require.NoError(t, err)
	return app
}

func TestNewApplication(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("starts pending", func(t *testing.T) {
		app, err := NewApplication(id.NewApplicationID(), id.UserID(uuid.New()), id.OpportunityID(uuid.New()), 50, now)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, app.Status)
		assert.Equal(t, now, app.CreatedAt)
		assert.Equal(t, now, app.UpdatedAt)
		assert.True(t, app.IsLive())
	})

	t.Run("rejects nil ids", func(t *testing.T) {
		_, err := NewApplication(id.ApplicationID{}, id.UserID(uuid.New()), id.OpportunityID(uuid.New()), 50, now)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvariantViolation))

		_, err = NewApplication(id.NewApplicationID(), id.UserID{}, id.OpportunityID(uuid.New()), 50, now)
		require.Error(t, err)

		_, err = NewApplication(id.NewApplicationID(), id.UserID(uuid.New()), id.OpportunityID{}, 50, now)
		require.Error(t, err)
	})

	t.Run("rejects out-of-range match score", func(t *testing.T) {
		_, err := NewApplication(id.NewApplicationID(), id.UserID(uuid.New()), id.OpportunityID(uuid.New()), -1, now)
		require.Error(t, err)

		_, err = NewApplication(id.NewApplicationID(), id.UserID(uuid.New()), id.OpportunityID(uuid.New()), 100.01, now)
		require.Error(t, err)

		_, err = NewApplication(id.NewApplicationID(), id.UserID(uuid.New()), id.OpportunityID(uuid.New()), 100, now)
		assert.NoError(t, err, "boundary value 100 is valid")
	})
}

func TestApplicationTransitionValidateApplyPair(t *testing.T) {
	app := newTestApplication(t)
	later := app.CreatedAt.Add(time.Hour)

	require.NoError(t, app.CanTransitionTo(StatusUnderReview))
	app.ApplyTransition(StatusUnderReview, later)

	assert.Equal(t, StatusUnderReview, app.Status)
	assert.Equal(t, later, app.UpdatedAt)
	assert.True(t, app.CreatedAt.Before(app.UpdatedAt))
}

func TestApplicationInvalidTransitionError(t *testing.T) {
	t.Run("carries from, to and the allowed set", func(t *testing.T) {
		app := newTestApplication(t)

		err := app.CanTransitionTo(StatusApproved)
		require.Error(t, err)

		var invalid *InvalidTransitionError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, StatusPending, invalid.From)
		assert.Equal(t, StatusApproved, invalid.To)
		assert.Equal(t, []Status{StatusUnderReview, StatusRejected}, invalid.Allowed)
		assert.Contains(t, invalid.Error(), "allowed: under_review, rejected")
	})

	t.Run("terminal statuses allow nothing", func(t *testing.T) {
		app := newTestApplication(t)
		app.Status = StatusRejected

		for _, target := range AllStatuses {
			err := app.CanTransitionTo(target)
			require.Error(t, err, "rejected -> %s must fail", target)
		}

		err := app.CanTransitionTo(StatusPending)
		var invalid *InvalidTransitionError
		require.True(t, errors.As(err, &invalid))
		assert.Contains(t, invalid.Error(), "terminal")
		assert.False(t, app.IsLive())
	})

	t.Run("self transition is not an edge", func(t *testing.T) {
		app := newTestApplication(t)
		require.Error(t, app.CanTransitionTo(StatusPending))
	})
}

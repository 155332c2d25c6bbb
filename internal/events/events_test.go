package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internhub/internal/workflow/models"
	id "internhub/pkg/domain"
)

func newEvent() models.StatusChanged {
	return models.StatusChanged{
		ApplicationID: id.NewApplicationID(),
		ApplicantID:   id.UserID(uuid.New()),
		ToStatus:      models.StatusUnderReview,
	}
}

func TestChannelPublisherDeliversInOrder(t *testing.T) {
	pub := NewChannelPublisher(4, nil)
	ctx := context.Background()

	first := newEvent()
	second := newEvent()
	require.NoError(t, pub.Publish(ctx, first))
	require.NoError(t, pub.Publish(ctx, second))

	assert.Equal(t, first.ApplicationID, (<-pub.Events()).ApplicationID)
	assert.Equal(t, second.ApplicationID, (<-pub.Events()).ApplicationID)
}

func TestChannelPublisherDropsWhenFull(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	pub := NewChannelPublisher(1, logger)
	ctx := context.Background()

	kept := newEvent()
	require.NoError(t, pub.Publish(ctx, kept))
	require.NoError(t, pub.Publish(ctx, newEvent()), "a full buffer must not stall the caller")

	assert.Contains(t, buf.String(), "event buffer full")
	assert.Equal(t, kept.ApplicationID, (<-pub.Events()).ApplicationID)
	select {
	case ev := <-pub.Events():
		t.Fatalf("unexpected buffered event %s", ev.ApplicationID)
	default:
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.StatusChanged
	fail   bool
}

func (s *recordingSink) Publish(_ context.Context, event models.StatusChanged) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestMultiFansOutToAllSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	multi := NewMulti(nil, a, b)

	require.NoError(t, multi.Publish(context.Background(), newEvent()))

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestMultiSurvivesFailingSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	broken := &recordingSink{fail: true}
	healthy := &recordingSink{}
	multi := NewMulti(logger, broken, healthy)

	require.NoError(t, multi.Publish(context.Background(), newEvent()))

	assert.Equal(t, 1, healthy.count())
	assert.Contains(t, buf.String(), "event sink failed")
}

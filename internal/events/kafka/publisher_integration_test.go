//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"internhub/internal/events/kafka"
	"internhub/internal/workflow/models"
	id "internhub/pkg/domain"
	"internhub/pkg/testutil/containers"
)

func TestPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rp := containers.NewRedpandaContainer(t)
	ctx := context.Background()

	const topic = "internhub.application-status"
	publisher, err := kafka.New([]string{rp.Broker}, topic)
	require.NoError(t, err)
	defer publisher.Close()

	from := models.StatusPending
	event := models.StatusChanged{
		ApplicationID: id.NewApplicationID(),
		ApplicantID:   id.UserID(uuid.New()),
		OpportunityID: id.OpportunityID(uuid.New()),
		FromStatus:    &from,
		ToStatus:      models.StatusUnderReview,
		ChangedBy:     id.ActorID(uuid.New()),
		ActorKind:     id.ActorAdmin,
		Note:          "promising candidate",
		OccurredAt:    time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, publisher.Publish(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, event.ApplicationID.String(), string(records[0].Key))

	var got models.StatusChanged
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, event, got)
}

func TestNewValidation(t *testing.T) {
	_, err := kafka.New(nil, "topic")
	require.Error(t, err)

	_, err = kafka.New([]string{"localhost:9092"}, "")
	require.Error(t, err)
}

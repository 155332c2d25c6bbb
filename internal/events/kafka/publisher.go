// Package kafka publishes domain events to a Kafka topic for downstream
// consumers (reporting, data warehouse). Optional: wired only when brokers
// are configured.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"internhub/internal/workflow/models"
)

// Publisher writes StatusChanged events to a topic, keyed by application ID
// so per-application ordering is preserved within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and returns a Publisher.
func New(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Publish produces the event synchronously. The transition has already
// committed, so a produce failure is reported to the caller for logging but
// never unwinds anything.
func (p *Publisher) Publish(ctx context.Context, event models.StatusChanged) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.ApplicationID.String()),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (p *Publisher) Close() {
	p.client.Close()
}

// Package events carries domain events from the workflow engine to whatever
// consumes them. The engine publishes through the Sink interface and stays
// ignorant of channels, brokers, and delivery concerns.
package events

import (
	"context"
	"log/slog"

	"internhub/internal/workflow/models"
)

// Sink accepts committed domain events. Publish must not block the caller
// for long: the transition has already committed and cannot be rolled back,
// so sinks deal with their own backpressure.
type Sink interface {
	Publish(ctx context.Context, event models.StatusChanged) error
}

// ChannelPublisher fans events into an in-process buffered channel consumed
// by the notification worker.
type ChannelPublisher struct {
	ch     chan models.StatusChanged
	logger *slog.Logger
}

// NewChannelPublisher builds a publisher with the given buffer size.
func NewChannelPublisher(buffer int, logger *slog.Logger) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelPublisher{
		ch:     make(chan models.StatusChanged, buffer),
		logger: logger,
	}
}

// Publish enqueues the event. When the buffer is full the event is dropped
// and logged rather than stalling the transition commit path; the
// notification log downstream is the at-most-once guard, not this channel.
func (p *ChannelPublisher) Publish(ctx context.Context, event models.StatusChanged) error {
	select {
	case p.ch <- event:
		return nil
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "event buffer full, dropping event",
				"application_id", event.ApplicationID.String(),
				"to_status", string(event.ToStatus),
			)
		}
		return nil
	}
}

// Events exposes the consuming side of the channel.
func (p *ChannelPublisher) Events() <-chan models.StatusChanged {
	return p.ch
}

// Multi fans one event out to several sinks. A failing sink is logged and
// does not stop the others.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewMulti builds a fan-out sink.
func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, logger: logger}
}

func (m *Multi) Publish(ctx context.Context, event models.StatusChanged) error {
	for _, sink := range m.sinks {
		if err := sink.Publish(ctx, event); err != nil && m.logger != nil {
			m.logger.WarnContext(ctx, "event sink failed",
				"application_id", event.ApplicationID.String(),
				"error", err.Error(),
			)
		}
	}
	return nil
}

// Package worker pumps committed status-change events into the notification
// dispatcher.
package worker

import (
	"context"
	"log/slog"

	wfmodels "internhub/internal/workflow/models"
)

// Handler processes one status-change event.
type Handler interface {
	HandleStatusChanged(ctx context.Context, event wfmodels.StatusChanged) error
}

// Worker drains an event channel and feeds the handler. A failing event is
// logged and skipped; the loop only stops when the channel closes or the
// context is cancelled.
type Worker struct {
	events  <-chan wfmodels.StatusChanged
	handler Handler
	logger  *slog.Logger
}

func New(events <-chan wfmodels.StatusChanged, handler Handler, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{events: events, handler: handler, logger: logger}
}

// Run blocks until ctx is cancelled or the event channel closes.
func (w *Worker) Run(ctx context.Context) {
	w.logger.InfoContext(ctx, "notification worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "notification worker stopping", "reason", ctx.Err())
			return
		case event, ok := <-w.events:
			if !ok {
				w.logger.InfoContext(ctx, "notification worker stopping", "reason", "event channel closed")
				return
			}
			if err := w.handler.HandleStatusChanged(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "handling status change event",
					"application_id", event.ApplicationID.String(),
					"to_status", string(event.ToStatus),
					"error", err,
				)
			}
		}
	}
}

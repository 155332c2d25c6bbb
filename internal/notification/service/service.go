// Package service implements the idempotent notification log and the
// dispatcher that reacts to status-change events.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"internhub/internal/notification/metrics"
	"internhub/internal/notification/models"
	wfmodels "internhub/internal/workflow/models"
	id "internhub/pkg/domain"
	dErrors "internhub/pkg/domain-errors"
	"internhub/pkg/platform/sentinel"
	"internhub/pkg/requestcontext"
)

// Store is the persistence contract for the notification log. InsertIfAbsent
// is the idempotency primitive: it either creates the entry or returns the
// entry that already occupies the (subject, kind, fingerprint) slot.
type Store interface {
	InsertIfAbsent(ctx context.Context, entry models.Entry) (*models.Entry, bool, error)
	UpdateStatus(ctx context.Context, entryID uuid.UUID, status models.DeliveryStatus) error
	ListBySubject(ctx context.Context, subject id.UserID) ([]models.Entry, error)
}

// Log records notification triggers exactly once per fingerprint bucket.
type Log struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type LogOption func(*Log)

func WithLogger(logger *slog.Logger) LogOption {
	return func(l *Log) { l.logger = logger }
}

func WithMetrics(m *metrics.Metrics) LogOption {
	return func(l *Log) { l.metrics = m }
}

func NewLog(store Store, opts ...LogOption) (*Log, error) {
	if store == nil {
		return nil, errors.New("notification store is required")
	}
	l := &Log{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("internhub/notification"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Record inserts a notification trigger. Calling it twice with the same
// subject, kind and payload inside one minute yields the same entry with
// wasCreated false on the second call; a retry after the minute rolls over
// creates a fresh entry.
func (l *Log) Record(ctx context.Context, subject id.UserID, kind models.EventKind, payload map[string]string) (*models.Entry, bool, error) {
	ctx, span := l.tracer.Start(ctx, "notification.Record")
	defer span.End()

	if subject.IsNil() {
		return nil, false, dErrors.New(dErrors.CodeValidation, "notification subject is required")
	}
	if !kind.IsValid() {
		return nil, false, dErrors.Newf(dErrors.CodeValidation, "unknown event kind %q", kind)
	}

	now := requestcontext.Now(ctx)
	entry := models.NewEntry(subject, kind, payload, now)

	stored, created, err := l.store.InsertIfAbsent(ctx, entry)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "recording notification")
	}
	if created {
		l.metrics.RecordCreated(string(kind))
		l.logger.InfoContext(ctx, "notification recorded",
			"log_type", "audit",
			"event", "notification_recorded",
			"subject_user_id", subject.String(),
			"event_kind", string(kind),
			"fingerprint", stored.Fingerprint,
		)
	} else {
		l.metrics.RecordSuppressed(string(kind))
		l.logger.DebugContext(ctx, "duplicate notification suppressed",
			"subject_user_id", subject.String(),
			"event_kind", string(kind),
			"fingerprint", stored.Fingerprint,
		)
	}
	return stored, created, nil
}

// MarkDelivery records the hand-off outcome for an entry.
func (l *Log) MarkDelivery(ctx context.Context, entryID uuid.UUID, status models.DeliveryStatus) error {
	if err := l.store.UpdateStatus(ctx, entryID, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification entry not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "updating delivery status")
	}
	return nil
}

// ListForSubject returns the subject's notification history.
func (l *Log) ListForSubject(ctx context.Context, subject id.UserID) ([]models.Entry, error) {
	if subject.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "notification subject is required")
	}
	entries, err := l.store.ListBySubject(ctx, subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing notifications")
	}
	return entries, nil
}

// Sender is the delivery hook the dispatcher hands fresh entries to.
type Sender interface {
	Send(ctx context.Context, recipient id.UserID, subject, body string) error
}

// Dispatcher turns committed status changes into notification log entries
// and hands freshly created ones to the sender. Duplicate triggers stop at
// the log and never reach the sender.
type Dispatcher struct {
	log     *Log
	sender  Sender
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewDispatcher(log *Log, sender Sender, logger *slog.Logger, m *metrics.Metrics) (*Dispatcher, error) {
	if log == nil {
		return nil, errors.New("notification log is required")
	}
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		log:     log,
		sender:  sender,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("internhub/notification"),
	}, nil
}

// HandleStatusChanged maps a status-change event onto an event kind, records
// it and, if the record is new, delivers it. Sender failures mark the entry
// failed but are not propagated; the log entry is the source of truth.
func (d *Dispatcher) HandleStatusChanged(ctx context.Context, event wfmodels.StatusChanged) error {
	ctx, span := d.tracer.Start(ctx, "notification.HandleStatusChanged")
	defer span.End()

	kind := kindFor(event)
	payload := payloadFor(event)

	entry, created, err := d.log.Record(ctx, event.ApplicantID, kind, payload)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	subject, body := render(kind, event)
	if err := d.sender.Send(ctx, event.ApplicantID, subject, body); err != nil {
		d.metrics.RecordDelivery(string(kind), "failed")
		d.logger.ErrorContext(ctx, "notification delivery failed",
			"entry_id", entry.ID.String(),
			"event_kind", string(kind),
			"error", err,
		)
		if markErr := d.log.MarkDelivery(ctx, entry.ID, models.DeliveryFailed); markErr != nil {
			d.logger.ErrorContext(ctx, "marking delivery failed", "entry_id", entry.ID.String(), "error", markErr)
		}
		return nil
	}

	d.metrics.RecordDelivery(string(kind), "sent")
	if err := d.log.MarkDelivery(ctx, entry.ID, models.DeliverySent); err != nil {
		d.logger.ErrorContext(ctx, "marking delivery sent", "entry_id", entry.ID.String(), "error", err)
	}
	return nil
}

// kindFor picks the notification kind for a status change. The created
// pseudo-transition has no from status; decisions and interview scheduling
// get their own kinds so their dedup buckets stay separate from routine
// status updates.
func kindFor(event wfmodels.StatusChanged) models.EventKind {
	switch {
	case event.FromStatus == nil:
		return models.KindApplicationReceived
	case event.ToStatus == wfmodels.StatusInterviewScheduled:
		return models.KindInterviewScheduled
	case event.ToStatus == wfmodels.StatusApproved, event.ToStatus == wfmodels.StatusRejected:
		return models.KindApplicationDecided
	default:
		return models.KindStatusChanged
	}
}

func payloadFor(event wfmodels.StatusChanged) map[string]string {
	payload := map[string]string{
		"application_id": event.ApplicationID.String(),
		"opportunity_id": event.OpportunityID.String(),
		"to_status":      string(event.ToStatus),
	}
	if event.FromStatus != nil {
		payload["from_status"] = string(*event.FromStatus)
	}
	return payload
}

func render(kind models.EventKind, event wfmodels.StatusChanged) (subject, body string) {
	switch kind {
	case models.KindApplicationReceived:
		return "Application received",
			fmt.Sprintf("We received your application %s. You can track its progress in the portal.", event.ApplicationID)
	case models.KindInterviewScheduled:
		return "Interview scheduled",
			fmt.Sprintf("An interview has been scheduled for your application %s.", event.ApplicationID)
	case models.KindApplicationDecided:
		return "Decision on your application",
			fmt.Sprintf("Your application %s has been %s.", event.ApplicationID, event.ToStatus.Label())
	default:
		return "Application update",
			fmt.Sprintf("Your application %s moved to %s on %s.",
				event.ApplicationID, event.ToStatus.Label(), event.OccurredAt.Format(time.RFC1123))
	}
}

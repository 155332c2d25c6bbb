// Package service implements the application status workflow engine: it
// enforces the lifecycle state machine and produces an auditable,
// notifiable transition.
//
// Authorization is not this package's concern. Callers check permission
// before invoking the engine; the engine trusts the actor it is given,
// rejecting only a missing one.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"internhub/internal/events"
	"internhub/internal/workflow/metrics"
	"internhub/internal/workflow/models"
	id "internhub/pkg/domain"
	dErrors "internhub/pkg/domain-errors"
	"internhub/pkg/platform/sentinel"
	"internhub/pkg/requestcontext"
)

// ApplicationStore persists the application aggregate.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	FindByIDForUpdate(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	Update(ctx context.Context, app *models.Application) error
	ListByStatusCreatedBefore(ctx context.Context, status models.Status, cutoff time.Time) ([]*models.Application, error)
}

// StatusLogStore persists the append-only audit trail.
type StatusLogStore interface {
	Append(ctx context.Context, entry models.StatusLogEntry) error
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]models.StatusLogEntry, error)
}

// Engine validates and commits state changes against the transition table.
type Engine struct {
	apps    ApplicationStore
	logs    StatusLogStore
	tx      StoreTx
	sink    events.Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// TransitionResult is returned on a committed transition.
type TransitionResult struct {
	Application *models.Application
	Event       models.StatusChanged
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches workflow metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithEvents attaches the sink committed transitions are published to.
func WithEvents(sink events.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithTx overrides the transactional boundary. Defaults to the in-memory
// mutex boundary; production wiring passes the PostgreSQL one.
func WithTx(tx StoreTx) Option {
	return func(e *Engine) { e.tx = tx }
}

// New constructs an Engine.
func New(apps ApplicationStore, logs StatusLogStore, opts ...Option) (*Engine, error) {
	if apps == nil {
		return nil, errors.New("application store is required")
	}
	if logs == nil {
		return nil, errors.New("status log store is required")
	}
	e := &Engine{
		apps:   apps,
		logs:   logs,
		tx:     NewMemoryTx(),
		tracer: otel.Tracer("internhub/workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CreateApplication submits a new application in Pending and writes the
// "created" pseudo-transition to the status log (nil from-status).
//
// One live application per (applicant, opportunity) is a business rule, not
// a state-machine edge, so a duplicate is rejected as unprocessable rather
// than as a transition conflict.
func (e *Engine) CreateApplication(ctx context.Context, applicantID id.UserID, opportunityID id.OpportunityID, matchScore float64) (*models.Application, error) {
	now := requestcontext.Now(ctx)

	app, err := models.NewApplication(id.NewApplicationID(), applicantID, opportunityID, matchScore, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	err = e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := e.apps.Create(txCtx, app); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeUnprocessable, "a live application for this opportunity already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
		}
		entry := models.NewStatusLogEntry(app.ID, nil, app.Status, id.ActorID(applicantID), id.ActorStudent, "application submitted", now)
		if err := e.logs.Append(txCtx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append status log")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.RecordCreated()
	e.logAudit(ctx, "application_created",
		"application_id", app.ID.String(),
		"applicant_id", applicantID.String(),
	)
	e.publish(ctx, models.StatusChanged{
		ApplicationID: app.ID,
		ApplicantID:   app.ApplicantID,
		OpportunityID: app.OpportunityID,
		FromStatus:    nil,
		ToStatus:      app.Status,
		ChangedBy:     id.ActorID(applicantID),
		ActorKind:     id.ActorStudent,
		Note:          "application submitted",
		OccurredAt:    now,
	})
	return app, nil
}

// RequestTransition validates the requested transition against the current
// state and, when legal, atomically updates the status and appends exactly
// one audit entry. On an illegal edge it returns a conflict error carrying
// the current status, the requested status, and the full allowed set, and
// mutates nothing.
//
// The engine never delivers notifications; it publishes the domain event and
// returns it to the caller.
func (e *Engine) RequestTransition(ctx context.Context, appID id.ApplicationID, target models.Status, actorID id.ActorID, actorKind id.ActorKind, note string) (*TransitionResult, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.RequestTransition")
	defer span.End()

	if !target.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown target status %q", string(target))
	}
	if !actorKind.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown actor kind %q", string(actorKind))
	}
	// Defensive check: authorization happens upstream, but an engine invoked
	// without an actor is always a caller bug.
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "transition requires an authenticated actor")
	}
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "application id is required")
	}

	now := requestcontext.Now(ctx)

	var (
		updated *models.Application
		from    models.Status
	)
	err := e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := e.apps.FindByIDForUpdate(txCtx, appID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeUnprocessable, "application does not exist")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
		}

		if err := app.CanTransitionTo(target); err != nil {
			return dErrors.Wrap(err, dErrors.CodeConflict, "illegal status transition")
		}

		from = app.Status
		app.ApplyTransition(target, now)
		if err := e.apps.Update(txCtx, app); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist transition")
		}

		fromCopy := from
		entry := models.NewStatusLogEntry(app.ID, &fromCopy, target, actorID, actorKind, note, now)
		if err := e.logs.Append(txCtx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append status log")
		}

		updated = app
		return nil
	})
	if err != nil {
		var ite *models.InvalidTransitionError
		if errors.As(err, &ite) {
			e.metrics.RecordRejected(string(ite.From))
			e.logAudit(ctx, "transition_rejected",
				"application_id", appID.String(),
				"from_status", string(ite.From),
				"to_status", string(ite.To),
				"actor_id", actorID.String(),
			)
		}
		return nil, err
	}

	fromCopy := from
	event := models.StatusChanged{
		ApplicationID: updated.ID,
		ApplicantID:   updated.ApplicantID,
		OpportunityID: updated.OpportunityID,
		FromStatus:    &fromCopy,
		ToStatus:      target,
		ChangedBy:     actorID,
		ActorKind:     actorKind,
		Note:          note,
		OccurredAt:    now,
	}

	e.metrics.RecordCommitted(string(target), string(actorKind))
	e.logAudit(ctx, "status_changed",
		"application_id", updated.ID.String(),
		"from_status", string(from),
		"to_status", string(target),
		"actor_id", actorID.String(),
		"actor_kind", string(actorKind),
	)
	e.publish(ctx, event)

	return &TransitionResult{Application: updated, Event: event}, nil
}

// GetApplication loads one application.
func (e *Engine) GetApplication(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "application id is required")
	}
	app, err := e.apps.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return app, nil
}

// History returns the application's audit trail, oldest first.
func (e *Engine) History(ctx context.Context, appID id.ApplicationID) ([]models.StatusLogEntry, error) {
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "application id is required")
	}
	if _, err := e.GetApplication(ctx, appID); err != nil {
		return nil, err
	}
	entries, err := e.logs.ListByApplication(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load status log")
	}
	return entries, nil
}

// ListStale returns applications that have sat in the given status since
// before the cutoff, oldest first. Feeds the sweep.
func (e *Engine) ListStale(ctx context.Context, status models.Status, cutoff time.Time) ([]*models.Application, error) {
	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", string(status))
	}
	apps, err := e.apps.ListByStatusCreatedBefore(ctx, status, cutoff)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

func (e *Engine) publish(ctx context.Context, event models.StatusChanged) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, event); err != nil && e.logger != nil {
		// The transition already committed; a sink failure is observability
		// loss, not a rollback trigger.
		e.logger.WarnContext(ctx, "failed to publish domain event",
			"application_id", event.ApplicationID.String(),
			"error", err.Error(),
		)
	}
}

func (e *Engine) logAudit(ctx context.Context, event string, attributes ...any) {
	if e.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	e.logger.InfoContext(ctx, event, args...)
}

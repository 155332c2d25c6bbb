// Package sweep promotes applications that have sat untouched in the intake
// queue past a configured age.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	wfmodels "internhub/internal/workflow/models"
	"internhub/internal/workflow/service"
	id "internhub/pkg/domain"
	"internhub/pkg/requestcontext"
)

const defaultConcurrency = 4

// Engine is the slice of the workflow engine the sweeper drives.
type Engine interface {
	ListStale(ctx context.Context, status wfmodels.Status, cutoff time.Time) ([]*wfmodels.Application, error)
	RequestTransition(ctx context.Context, appID id.ApplicationID, target wfmodels.Status, actorID id.ActorID, actorKind id.ActorKind, note string) (*service.TransitionResult, error)
}

// Report summarizes one sweep run.
type Report struct {
	Selected int
	Promoted int
	Failed   int
}

// Sweeper moves stale pending applications to under review on behalf of the
// system actor. Each promotion is an ordinary transition, so it is audited
// and raises the usual domain event.
type Sweeper struct {
	engine      Engine
	threshold   time.Duration
	concurrency int
	logger      *slog.Logger
}

type Option func(*Sweeper)

func WithConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

func New(engine Engine, threshold time.Duration, opts ...Option) (*Sweeper, error) {
	if engine == nil {
		return nil, errors.New("workflow engine is required")
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("sweep threshold must be positive, got %s", threshold)
	}
	s := &Sweeper{
		engine:      engine,
		threshold:   threshold,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run performs one sweep. A failed promotion is counted and logged but does
// not stop the run; the next scheduled sweep retries whatever is still
// pending.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	cutoff := requestcontext.Now(ctx).Add(-s.threshold)

	stale, err := s.engine.ListStale(ctx, wfmodels.StatusPending, cutoff)
	if err != nil {
		return Report{}, fmt.Errorf("listing stale applications: %w", err)
	}

	report := Report{Selected: len(stale)}
	if len(stale) == 0 {
		s.logger.InfoContext(ctx, "stale sweep found nothing to do", "cutoff", cutoff)
		return report, nil
	}

	note := fmt.Sprintf("auto-promoted after %d days in pending", int(s.threshold.Hours())/24)

	results := make([]bool, len(stale))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, app := range stale {
		g.Go(func() error {
			_, err := s.engine.RequestTransition(gctx, app.ID, wfmodels.StatusUnderReview, id.SystemActorID, id.ActorSystem, note)
			if err != nil {
				// Another actor may have moved the application between the
				// listing and the promotion; that is a skip, not a fault.
				s.logger.WarnContext(gctx, "stale promotion failed",
					"application_id", app.ID.String(),
					"error", err,
				)
				return nil
			}
			results[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	for _, ok := range results {
		if ok {
			report.Promoted++
		} else {
			report.Failed++
		}
	}

	s.logger.InfoContext(ctx, "stale sweep finished",
		"log_type", "audit",
		"event", "stale_sweep_completed",
		"selected", report.Selected,
		"promoted", report.Promoted,
		"failed", report.Failed,
		"cutoff", cutoff,
	)
	return report, nil
}

package service

import (
	"context"
	"sync"
	"time"

	dErrors "internhub/pkg/domain-errors"
)

// StoreTx provides the transactional boundary for a transition commit.
// Implementations may wrap a database transaction or, in memory, a coarse
// lock. The engine runs its whole check-and-update sequence (load, validate,
// apply, append log) inside one RunInTx call, so two callers racing to
// transition the same application serialize here: only one observes the
// "before" state used for validation.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultTxTimeout bounds how long a transition commit may hold the boundary.
const defaultTxTimeout = 5 * time.Second

// memoryTx is the in-memory boundary: one mutex held across the callback.
// Coarse, but transition commits are short and unit tests do not need
// sharding.
type memoryTx struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewMemoryTx builds the in-memory transactional boundary used with the
// in-memory stores.
func NewMemoryTx() StoreTx {
	return &memoryTx{}
}

func (t *memoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

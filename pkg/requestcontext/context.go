// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets values; services, workers, and tests read them without
// importing net/http. Workers and tests inject a fixed time with WithTime so
// time-bucketed logic (notification fingerprints, staleness cutoffs) stays
// deterministic.
package requestcontext

import (
	"context"
	"time"

	id "internhub/pkg/domain"
)

type (
	actorIDKey     struct{}
	actorKindKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyActorID     = actorIDKey{}
	ContextKeyActorKind   = actorKindKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// ActorID retrieves the authenticated actor from the context.
// Returns the zero value if not set.
func ActorID(ctx context.Context) id.ActorID {
	if actorID, ok := ctx.Value(ContextKeyActorID).(id.ActorID); ok {
		return actorID
	}
	return id.ActorID{}
}

// ActorKind retrieves the authenticated actor's kind from the context.
// Returns the empty kind if not set.
func ActorKind(ctx context.Context) id.ActorKind {
	if kind, ok := ctx.Value(ContextKeyActorKind).(id.ActorKind); ok {
		return kind
	}
	return ""
}

// WithActor injects an actor identity and kind into the context.
func WithActor(ctx context.Context, actorID id.ActorID, kind id.ActorKind) context.Context {
	ctx = context.WithValue(ctx, ContextKeyActorID, actorID)
	return context.WithValue(ctx, ContextKeyActorKind, kind)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests without injection).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for batch workers that need one consistent timestamp per run.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

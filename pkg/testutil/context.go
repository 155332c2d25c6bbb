package testutil

import (
	"context"
	"net/http"
	"time"

	id "internhub/pkg/domain"
	"internhub/pkg/requestcontext"
)

// WithActor adds an actor identity to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithActor(req *http.Request, actorID id.ActorID, kind id.ActorKind) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), actorID, kind)
	return req.WithContext(ctx)
}

// ContextAt returns a context pinned to the given time so clock-dependent
// behavior is deterministic in tests.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// Package handler exposes the notification log over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"internhub/internal/notification/models"
	"internhub/internal/platform/middleware"
	id "internhub/pkg/domain"
	dErrors "internhub/pkg/domain-errors"
	"internhub/pkg/platform/httputil"
	"internhub/pkg/requestcontext"
)

// Service defines the notification operations the handler needs.
type Service interface {
	ListForSubject(ctx context.Context, subject id.UserID) ([]models.Entry, error)
}

// Handler handles notification endpoints.
type Handler struct {
	notifications Service
	logger        *slog.Logger
	validator     middleware.ActorValidator
}

// New creates a new notification Handler.
func New(notifications Service, logger *slog.Logger, validator middleware.ActorValidator) *Handler {
	return &Handler{
		notifications: notifications,
		logger:        logger,
		validator:     validator,
	}
}

// Register registers the notification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.RequireActor(h.validator, h.logger))
		r.Get("/me/notifications", h.handleListMine)
	})
}

type entryResponse struct {
	ID        string            `json:"id"`
	EventKind string            `json:"event_kind"`
	Status    string            `json:"status"`
	Payload   map[string]string `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

// handleListMine returns the authenticated user's notification history.
func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := id.UserID(requestcontext.ActorID(ctx))

	entries, err := h.notifications.ListForSubject(ctx, subject)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to list notifications",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entryResponse{
			ID:        entry.ID.String(),
			EventKind: string(entry.Kind),
			Status:    string(entry.Status),
			Payload:   entry.Payload,
			CreatedAt: entry.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

// Package handler exposes the application workflow over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"internhub/internal/platform/middleware"
	"internhub/internal/workflow/models"
	"internhub/internal/workflow/service"
	id "internhub/pkg/domain"
	dErrors "internhub/pkg/domain-errors"
	"internhub/pkg/platform/httputil"
	"internhub/pkg/requestcontext"
)

// Service defines the workflow operations the handler needs.
type Service interface {
	CreateApplication(ctx context.Context, applicantID id.UserID, opportunityID id.OpportunityID, matchScore float64) (*models.Application, error)
	RequestTransition(ctx context.Context, appID id.ApplicationID, target models.Status, actorID id.ActorID, actorKind id.ActorKind, note string) (*service.TransitionResult, error)
	GetApplication(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	History(ctx context.Context, appID id.ApplicationID) ([]models.StatusLogEntry, error)
}

// Handler handles application workflow endpoints.
type Handler struct {
	workflow  Service
	logger    *slog.Logger
	validator middleware.ActorValidator
}

// New creates a new workflow Handler.
func New(workflow Service, logger *slog.Logger, validator middleware.ActorValidator) *Handler {
	return &Handler{
		workflow:  workflow,
		logger:    logger,
		validator: validator,
	}
}

// Register registers the workflow routes with the chi router. The status
// catalog is public; everything else requires an authenticated actor.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.RequireActor(h.validator, h.logger))
		r.Post("/applications", h.handleCreateApplication)
		r.Get("/applications/{id}", h.handleGetApplication)
		r.Get("/applications/{id}/history", h.handleGetHistory)
		r.Post("/applications/{id}/transition", h.handleTransition)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Get("/statuses", h.handleListStatuses)
	})
}

type createApplicationRequest struct {
	ApplicantID   string  `json:"applicant_id,omitempty"`
	OpportunityID string  `json:"opportunity_id"`
	MatchScore    float64 `json:"match_score"`
}

type transitionRequest struct {
	ToStatus string `json:"to_status"`
	Note     string `json:"note,omitempty"`
}

type applicationResponse struct {
	ID            string    `json:"id"`
	ApplicantID   string    `json:"applicant_id"`
	OpportunityID string    `json:"opportunity_id"`
	Status        string    `json:"status"`
	StatusLabel   string    `json:"status_label"`
	ColorTag      string    `json:"color_tag"`
	MatchScore    float64   `json:"match_score"`
	Terminal      bool      `json:"terminal"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type historyEntryResponse struct {
	ID         string    `json:"id"`
	FromStatus *string   `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	ActorKind  string    `json:"actor_kind"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type statusResponse struct {
	Status      string   `json:"status"`
	Label       string   `json:"label"`
	ColorTag    string   `json:"color_tag"`
	Terminal    bool     `json:"terminal"`
	Transitions []string `json:"allowed_transitions"`
}

// handleCreateApplication submits a new application. Students apply as
// themselves; admins may submit on behalf of an applicant by setting
// applicant_id.
func (h *Handler) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create application request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	opportunityID, err := id.ParseOpportunityID(req.OpportunityID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid opportunity_id"))
		return
	}

	applicantID, err := h.resolveApplicant(ctx, req.ApplicantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	app, err := h.workflow.CreateApplication(ctx, applicantID, opportunityID, req.MatchScore)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create application", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toApplicationResponse(app))
}

func (h *Handler) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid application id"))
		return
	}

	app, err := h.workflow.GetApplication(ctx, appID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get application", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid application id"))
		return
	}

	entries, err := h.workflow.History(ctx, appID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get application history", err)
		return
	}

	out := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toHistoryResponse(entry))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// handleTransition requests a status change. Admins may request any
// transition; students may only withdraw their own application by moving it
// to rejected.
func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid application id"))
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid transition request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	target, err := models.ParseStatus(req.ToStatus)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown target status"))
		return
	}

	actorID := requestcontext.ActorID(ctx)
	actorKind := requestcontext.ActorKind(ctx)

	if actorKind == id.ActorStudent {
		if err := h.authorizeWithdrawal(ctx, appID, actorID, target); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	result, err := h.workflow.RequestTransition(ctx, appID, target, actorID, actorKind, req.Note)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to transition application", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(result.Application))
}

func (h *Handler) handleListStatuses(w http.ResponseWriter, r *http.Request) {
	out := make([]statusResponse, 0, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		transitions := make([]string, 0, len(s.AllowedTransitions()))
		for _, t := range s.AllowedTransitions() {
			transitions = append(transitions, string(t))
		}
		out = append(out, statusResponse{
			Status:      string(s),
			Label:       s.Label(),
			ColorTag:    s.ColorTag(),
			Terminal:    s.IsTerminal(),
			Transitions: transitions,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"statuses": out})
}

// resolveApplicant decides whose application is being created. Only admins
// may act on behalf of another applicant.
func (h *Handler) resolveApplicant(ctx context.Context, override string) (id.UserID, error) {
	actorID := requestcontext.ActorID(ctx)
	actorKind := requestcontext.ActorKind(ctx)

	if override == "" {
		return id.UserID(actorID), nil
	}
	if actorKind != id.ActorAdmin {
		return id.UserID{}, dErrors.New(dErrors.CodeForbidden, "only admins may submit on behalf of an applicant")
	}
	applicantID, err := id.ParseUserID(override)
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeValidation, "invalid applicant_id")
	}
	return applicantID, nil
}

// authorizeWithdrawal enforces the student policy: a student may only move
// their own application to rejected, and only while it is still pending.
func (h *Handler) authorizeWithdrawal(ctx context.Context, appID id.ApplicationID, actorID id.ActorID, target models.Status) error {
	if target != models.StatusRejected {
		return dErrors.New(dErrors.CodeForbidden, "students may only withdraw an application")
	}
	app, err := h.workflow.GetApplication(ctx, appID)
	if err != nil {
		return err
	}
	if app.ApplicantID != id.UserID(actorID) {
		return dErrors.New(dErrors.CodeForbidden, "students may only withdraw their own application")
	}
	if app.Status != models.StatusPending {
		return dErrors.New(dErrors.CodeUnprocessable, "only pending applications can be withdrawn")
	}
	return nil
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if dErrors.Is(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err.Error())
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err.Error())
	}

	// Illegal edges carry their allowed set so clients can render what the
	// application actually accepts from its current status.
	var ite *models.InvalidTransitionError
	if errors.As(err, &ite) {
		allowed := make([]string, 0, len(ite.Allowed))
		for _, s := range ite.Allowed {
			allowed = append(allowed, string(s))
		}
		httputil.WriteErrorDetails(w, err, map[string]any{
			"from_status":         string(ite.From),
			"to_status":           string(ite.To),
			"allowed_transitions": allowed,
		})
		return
	}
	httputil.WriteError(w, err)
}

func toApplicationResponse(app *models.Application) applicationResponse {
	return applicationResponse{
		ID:            app.ID.String(),
		ApplicantID:   app.ApplicantID.String(),
		OpportunityID: app.OpportunityID.String(),
		Status:        string(app.Status),
		StatusLabel:   app.Status.Label(),
		ColorTag:      app.Status.ColorTag(),
		MatchScore:    app.MatchScore,
		Terminal:      app.Status.IsTerminal(),
		CreatedAt:     app.CreatedAt,
		UpdatedAt:     app.UpdatedAt,
	}
}

func toHistoryResponse(entry models.StatusLogEntry) historyEntryResponse {
	var from *string
	if entry.FromStatus != nil {
		s := string(*entry.FromStatus)
		from = &s
	}
	return historyEntryResponse{
		ID:         entry.ID.String(),
		FromStatus: from,
		ToStatus:   string(entry.ToStatus),
		ActorID:    entry.ActorID.String(),
		ActorKind:  string(entry.ActorKind),
		Note:       entry.Note,
		CreatedAt:  entry.CreatedAt,
	}
}

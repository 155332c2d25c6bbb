package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"internhub/internal/workflow/models"
	"internhub/internal/workflow/service"
	appstore "internhub/internal/workflow/store/application"
	logstore "internhub/internal/workflow/store/statuslog"
	id "internhub/pkg/domain"
	dErrors "internhub/pkg/domain-errors"
	"internhub/pkg/testutil"
)

// stubValidator maps fixed bearer tokens to actors.
type stubValidator struct {
	actors map[string]stubActor
}

type stubActor struct {
	id   id.ActorID
	kind id.ActorKind
}

func (v *stubValidator) Actor(token string) (id.ActorID, id.ActorKind, error) {
	actor, ok := v.actors[token]
	if !ok {
		return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return actor.id, actor.kind, nil
}

type HandlerSuite struct {
	suite.Suite
	engine  *service.Engine
	router  chi.Router
	admin   stubActor
	student stubActor
}

func (s *HandlerSuite) SetupTest() {
	engine, err := service.New(appstore.NewInMemory(), logstore.NewInMemory())
	s.Require().NoError(err)
	s.engine = engine

	s.admin = stubActor{id: id.ActorID(uuid.New()), kind: id.ActorAdmin}
	s.student = stubActor{id: id.ActorID(uuid.New()), kind: id.ActorStudent}
	validator := &stubValidator{actors: map[string]stubActor{
		"admin-token":   s.admin,
		"student-token": s.student,
	}}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.router = chi.NewRouter()
	New(engine, logger, validator).Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(req *http.Request, token string) *applicationPayload {
	req.Header.Set("Authorization", "Bearer "+token)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[applicationPayload](s.T(), rr)
}

type applicationPayload struct {
	ID          string  `json:"id"`
	ApplicantID string  `json:"applicant_id"`
	Status      string  `json:"status"`
	StatusLabel string  `json:"status_label"`
	ColorTag    string  `json:"color_tag"`
	MatchScore  float64 `json:"match_score"`
	Terminal    bool    `json:"terminal"`
}

func (s *HandlerSuite) createAsStudent() *applicationPayload {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", map[string]any{
		"opportunity_id": uuid.NewString(),
		"match_score":    72.5,
	})
	req.Header.Set("Authorization", "Bearer student-token")
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[applicationPayload](s.T(), rr)
}

func (s *HandlerSuite) TestCreateApplication() {
	s.Run("student applies as themselves", func() {
		app := s.createAsStudent()
		s.Equal("pending", app.Status)
		s.Equal("Pending", app.StatusLabel)
		s.Equal("gray", app.ColorTag)
		s.Equal(s.student.id.String(), app.ApplicantID)
		s.InDelta(72.5, app.MatchScore, 0.001)
	})

	s.Run("admin applies on behalf of an applicant", func() {
		applicant := uuid.NewString()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", map[string]any{
			"applicant_id":   applicant,
			"opportunity_id": uuid.NewString(),
			"match_score":    50,
		})
		req.Header.Set("Authorization", "Bearer admin-token")
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
		app := testutil.UnmarshalResponse[applicationPayload](s.T(), rr)
		s.Equal(applicant, app.ApplicantID)
	})

	s.Run("student may not apply for someone else", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", map[string]any{
			"applicant_id":   uuid.NewString(),
			"opportunity_id": uuid.NewString(),
			"match_score":    50,
		})
		req.Header.Set("Authorization", "Bearer student-token")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("rejects malformed body", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", map[string]any{
			"opportunity_id": "not-a-uuid",
			"match_score":    50,
		})
		req.Header.Set("Authorization", "Bearer student-token")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("requires auth", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", map[string]any{
			"opportunity_id": uuid.NewString(),
			"match_score":    50,
		})
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
}

func (s *HandlerSuite) TestGetApplication() {
	app := s.createAsStudent()

	s.Run("returns the application", func() {
		got := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/"+app.ID), "admin-token")
		s.Equal(app.ID, got.ID)
	})

	s.Run("404 for unknown id", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/applications/"+uuid.NewString())
		req.Header.Set("Authorization", "Bearer admin-token")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("400 for malformed id", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/applications/not-a-uuid")
		req.Header.Set("Authorization", "Bearer admin-token")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlerSuite) TestTransition() {
	s.Run("admin moves the application forward", func() {
		app := s.createAsStudent()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost,
			fmt.Sprintf("/applications/%s/transition", app.ID),
			map[string]any{"to_status": "under_review", "note": "screening done"},
		)
		got := s.do(req, "admin-token")
		s.Equal("under_review", got.Status)
		s.Equal("blue", got.ColorTag)
	})

	s.Run("illegal edge returns conflict with the allowed set", func() {
		app := s.createAsStudent()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost,
			fmt.Sprintf("/applications/%s/transition", app.ID),
			map[string]any{"to_status": "approved"},
		)
		req.Header.Set("Authorization", "Bearer admin-token")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusConflict, rr.Code)

		type conflictPayload struct {
			Error   string `json:"error"`
			Details struct {
				FromStatus         string   `json:"from_status"`
				ToStatus           string   `json:"to_status"`
				AllowedTransitions []string `json:"allowed_transitions"`
			} `json:"details"`
		}
		got := testutil.UnmarshalResponse[conflictPayload](s.T(), rr)
		s.Equal("conflict", got.Error)
		s.Equal("pending", got.Details.FromStatus)
		s.Equal("approved", got.Details.ToStatus)
		s.Equal([]string{"under_review", "rejected"}, got.Details.AllowedTransitions)
	})

	s.Run("unknown application returns unprocessable", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost,
			fmt.Sprintf("/applications/%s/transition", uuid.NewString()),
			map[string]any{"to_status": "under_review"},
		)
		req.Header.Set("Authorization", "Bearer admin-token")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnprocessableEntity, rr.Code)
	})

	s.Run("unknown target status is a validation failure", func() {
		app := s.createAsStudent()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost,
			fmt.Sprintf("/applications/%s/transition", app.ID),
			map[string]any{"to_status": "archived"},
		)
		req.Header.Set("Authorization", "Bearer admin-token")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("student withdraws their own application", func() {
		app := s.createAsStudent()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost,
			fmt.Sprintf("/applications/%s/transition", app.ID),
			map[string]any{"to_status": "rejected", "note": "accepted elsewhere"},
		)
		got := s.do(req, "student-token")
		s.Equal("rejected", got.Status)
		s.True(got.Terminal)
	})

	s.Run("student may not withdraw once the application left pending", func() {
		app := s.createAsStudent()
		advance := testutil.NewJSONRequest(s.T(), http.MethodPost,
			fmt.Sprintf("/applications/%s/transition", app.ID),
			map[string]any{"to_status": "under_review"},
		)
		advance.Header.Set("Authorization", "Bearer admin-token")
		rr := testutil.DoRequest(s.router, advance)
		s.Require().Equal(http.StatusOK, rr.Code)

		withdraw := testutil.NewJSONRequest(s.T(), http.MethodPost,
			fmt.Sprintf("/applications/%s/transition", app.ID),
			map[string]any{"to_status": "rejected", "note": "changed my mind"},
		)
		withdraw.Header.Set("Authorization", "Bearer student-token")
		rr = testutil.DoRequest(s.router, withdraw)
		s.Equal(http.StatusUnprocessableEntity, rr.Code)

		got := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/"+app.ID), "admin-token")
		s.Equal("under_review", got.Status)
	})

	s.Run("student may not move the application forward", func() {
		app := s.createAsStudent()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost,
			fmt.Sprintf("/applications/%s/transition", app.ID),
			map[string]any{"to_status": "under_review"},
		)
		req.Header.Set("Authorization", "Bearer student-token")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("student may not withdraw someone else's application", func() {
		applicant := uuid.NewString()
		createReq := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", map[string]any{
			"applicant_id":   applicant,
			"opportunity_id": uuid.NewString(),
			"match_score":    50,
		})
		createReq.Header.Set("Authorization", "Bearer admin-token")
		rr := testutil.DoRequest(s.router, createReq)
		s.Require().Equal(http.StatusCreated, rr.Code)
		other := testutil.UnmarshalResponse[applicationPayload](s.T(), rr)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost,
			fmt.Sprintf("/applications/%s/transition", other.ID),
			map[string]any{"to_status": "rejected"},
		)
		req.Header.Set("Authorization", "Bearer student-token")
		rr = testutil.DoRequest(s.router, req)
		s.Equal(http.StatusForbidden, rr.Code)
	})
}

func (s *HandlerSuite) TestHistory() {
	app := s.createAsStudent()

	transition := testutil.NewJSONRequest(s.T(), http.MethodPost,
		fmt.Sprintf("/applications/%s/transition", app.ID),
		map[string]any{"to_status": "under_review"},
	)
	s.do(transition, "admin-token")

	req := testutil.NewRequest(s.T(), http.MethodGet, fmt.Sprintf("/applications/%s/history", app.ID))
	req.Header.Set("Authorization", "Bearer admin-token")
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	type historyPayload struct {
		Entries []struct {
			FromStatus *string `json:"from_status"`
			ToStatus   string  `json:"to_status"`
			ActorKind  string  `json:"actor_kind"`
		} `json:"entries"`
	}
	got := testutil.UnmarshalResponse[historyPayload](s.T(), rr)
	s.Require().Len(got.Entries, 2)
	s.Nil(got.Entries[0].FromStatus)
	s.Equal("pending", got.Entries[0].ToStatus)
	s.Require().NotNil(got.Entries[1].FromStatus)
	s.Equal("pending", *got.Entries[1].FromStatus)
	s.Equal("under_review", got.Entries[1].ToStatus)
	s.Equal("admin", got.Entries[1].ActorKind)
}

func (s *HandlerSuite) TestStatusCatalog() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/statuses")
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, "catalog requires no auth")

	type catalogPayload struct {
		Statuses []struct {
			Status      string   `json:"status"`
			Label       string   `json:"label"`
			ColorTag    string   `json:"color_tag"`
			Terminal    bool     `json:"terminal"`
			Transitions []string `json:"allowed_transitions"`
		} `json:"statuses"`
	}
	got := testutil.UnmarshalResponse[catalogPayload](s.T(), rr)
	s.Require().Len(got.Statuses, len(models.AllStatuses))

	byStatus := map[string][]string{}
	for _, entry := range got.Statuses {
		byStatus[entry.Status] = entry.Transitions
	}
	s.Equal([]string{"under_review", "rejected"}, byStatus["pending"])
	s.Empty(byStatus["approved"])
	s.Empty(byStatus["rejected"])
}

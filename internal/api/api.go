package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/querygenie/querygenie/internal/auth"
	"github.com/querygenie/querygenie/internal/database"
	"github.com/querygenie/querygenie/internal/gateway"
	"github.com/querygenie/querygenie/internal/generation"
	"github.com/querygenie/querygenie/pkg/api"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type BackendService struct {
	db   *gorm.DB
	auth *auth.Service
	flow *generation.Flow
}

func NewBackendService(db *gorm.DB, authService *auth.Service, flow *generation.Flow) *BackendService {
	return &BackendService{db: db, auth: authService, flow: flow}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))

	s.addAuthRoutes(r)

	r.Route("/queries", func(r chi.Router) {
		r.Use(auth.RequireSession(""))
		r.Post("/", RestHandler(s.Generate))
		r.Get("/", RestHandler(s.ListQueries))
	})
}

func (s *BackendService) Generate(r *http.Request) (any, error) {
	req, err := ParseRequest[api.GenerateRequest](r)
	if err != nil {
		return nil, err
	}

	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, CodedErrorf(http.StatusUnauthorized, "authentication required")
	}

	output, err := s.flow.Generate(r.Context(), user, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, generation.ErrBlankPrompt):
			return nil, CodedErrorf(http.StatusBadRequest, "describe your database to generate SQL")
		case errors.Is(err, generation.ErrInFlight):
			return nil, CodedErrorf(http.StatusConflict, "a generation is already in progress, please wait for it to finish")
		}
		var gwErr *gateway.GatewayError
		if errors.As(err, &gwErr) {
			return nil, CodedErrorf(http.StatusBadGateway, "failed to generate SQL: %v", gwErr)
		}
		return nil, err
	}

	return api.GenerateResponse{
		Prompt:       output.Prompt,
		GeneratedSql: output.SQL,
		Notice:       output.Notice,
	}, nil
}

func (s *BackendService) ListQueries(r *http.Request) (any, error) {
	req, err := ParseRequestQueryParams[api.ListQueriesRequest](r)
	if err != nil {
		return nil, err
	}

	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, CodedErrorf(http.StatusUnauthorized, "authentication required")
	}

	records, err := database.ListQueries(r.Context(), s.db, user.Id)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving query history")
	}

	// Search is a display-only, case-insensitive substring filter over the
	// prompt text, applied after the ownership-scoped read.
	search := strings.ToLower(strings.TrimSpace(req.Search))

	queries := make([]api.QueryRecord, 0, len(records))
	for _, record := range records {
		if search != "" && !strings.Contains(strings.ToLower(record.Prompt), search) {
			continue
		}
		queries = append(queries, api.QueryRecord{
			Id:        record.Id,
			Prompt:    record.Prompt,
			Response:  record.Response,
			CreatedAt: record.CreationTime,
		})
	}

	return api.ListQueriesResponse{Queries: queries}, nil
}

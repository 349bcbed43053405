// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/fairway/internal/adapters/mq/queue"
	"github.com/okian/fairway/internal/adapters/repository"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	IntakeDependencies
	PlanDependencies
	PlayerDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	intakesHandler *IntakesHandler
	plansHandler   *PlansHandler
	playersHandler *PlayersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, l logger.Logger) *Server {
	if l == nil {
		l = logger.Nop()
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		intakesHandler: NewIntakesHandler(deps, l),
		plansHandler:   NewPlansHandler(deps, l),
		playersHandler: NewPlayersHandler(deps, l),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /intakes", MetricsMiddleware(s.intakesHandler.HandlePostIntake, "intakes"))
	mux.HandleFunc("GET /intakes/{id}", MetricsMiddleware(s.intakesHandler.HandleGetIntake, "intake"))

	mux.HandleFunc("POST /plans", MetricsMiddleware(s.plansHandler.HandlePostPlan, "plans"))
	mux.HandleFunc("GET /plans/{id}", MetricsMiddleware(s.plansHandler.HandleGetPlan, "plan"))

	mux.HandleFunc("GET /players/{id}/plan", MetricsMiddleware(s.playersHandler.HandleActivePlan, "player_plan"))
	mux.HandleFunc("GET /players/{id}/plans", MetricsMiddleware(s.playersHandler.HandleListPlans, "player_plans"))
	mux.HandleFunc("POST /players/{id}/regenerate", MetricsMiddleware(s.playersHandler.HandleRegenerate, "regenerate"))
}

type errorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Fields  []model.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps an upstream error onto a status code and error code.
func writeDomainError(ctx context.Context, l logger.Logger, w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, model.ErrScheduling):
		return http.StatusConflict, "scheduling_error"
	case errors.Is(err, model.ErrInvariant):
		return http.StatusInternalServerError, "invariant_violation"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrInvalidRecord), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrDuplicatePlan):
		return http.StatusConflict, "conflict"
	case errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}

package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

// PlayerDependencies reads a player's plans and queues regeneration.
type PlayerDependencies interface {
	ActivePlan(ctx context.Context, playerID string) (model.GeneratedPlan, error)
	ListPlans(ctx context.Context, playerID string) ([]model.AnnualTrainingPlan, error)
	EnqueueRegeneration(ctx context.Context, playerID, reason string) (model.RegenerationJob, error)
}

// PlayersHandler handles per-player requests.
type PlayersHandler struct {
	deps   PlayerDependencies
	logger logger.Logger
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies, l logger.Logger) *PlayersHandler {
	return &PlayersHandler{deps: deps, logger: l}
}

type regenerateRequest struct {
	Reason string `json:"reason"`
}

type regenerateResponse struct {
	Status string                `json:"status"`
	Job    model.RegenerationJob `json:"job"`
}

// HandleActivePlan handles GET /players/{id}/plan.
func (h *PlayersHandler) HandleActivePlan(w http.ResponseWriter, r *http.Request) {
	const op = "api.active_plan"
	gp, err := h.deps.ActivePlan(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, gp)
}

// HandleListPlans handles GET /players/{id}/plans.
func (h *PlayersHandler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_plans"
	plans, err := h.deps.ListPlans(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(r.Context(), h.logger, w, op, err)
		return
	}
	if plans == nil {
		plans = []model.AnnualTrainingPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// HandleRegenerate handles POST /players/{id}/regenerate. The body is
// optional.
func (h *PlayersHandler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	const op = "api.regenerate"
	var req regenerateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Reason == "" {
		req.Reason = "requested"
	}
	job, err := h.deps.EnqueueRegeneration(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeDomainError(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, regenerateResponse{Status: "accepted", Job: job})
}

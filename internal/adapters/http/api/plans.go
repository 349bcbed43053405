package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

// IdempotencyHeader carries the client's idempotency key on POST /plans.
const IdempotencyHeader = "Idempotency-Key"

// PlanDependencies generates and reads plans.
type PlanDependencies interface {
	// GeneratePlanIdempotent generates a plan for intakeID. A repeated
	// non-empty key returns the earlier plan with replayed=true.
	GeneratePlanIdempotent(ctx context.Context, key, intakeID string) (model.GeneratedPlan, bool, error)
	GetPlan(ctx context.Context, planID string) (model.GeneratedPlan, error)
}

// PlansHandler handles plan requests.
type PlansHandler struct {
	deps   PlanDependencies
	logger logger.Logger
}

// NewPlansHandler creates a new plans handler.
func NewPlansHandler(deps PlanDependencies, l logger.Logger) *PlansHandler {
	return &PlansHandler{deps: deps, logger: l}
}

type planRequest struct {
	IntakeID string `json:"intake_id"`
}

// HandlePostPlan handles POST /plans. Generation is synchronous.
func (h *PlansHandler) HandlePostPlan(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_plan"
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.IntakeID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing intake_id"))
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	gp, replayed, err := h.deps.GeneratePlanIdempotent(r.Context(), key, req.IntakeID)
	if err != nil {
		writeDomainError(r.Context(), h.logger, w, op, err)
		return
	}
	w.Header().Set("Location", "/plans/"+gp.Plan.ID)
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		writeJSON(w, http.StatusOK, gp)
		return
	}
	writeJSON(w, http.StatusCreated, gp)
}

// HandleGetPlan handles GET /plans/{id}.
func (h *PlansHandler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_plan"
	gp, err := h.deps.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, gp)
}

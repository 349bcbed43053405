package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

// IntakeDependencies stores and reads player intakes.
type IntakeDependencies interface {
	SaveIntake(ctx context.Context, in *model.PlayerIntake) error
	GetIntake(ctx context.Context, intakeID string) (*model.PlayerIntake, error)
}

// IntakesHandler handles intake requests.
type IntakesHandler struct {
	deps   IntakeDependencies
	logger logger.Logger
}

// NewIntakesHandler creates a new intakes handler.
func NewIntakesHandler(deps IntakeDependencies, l logger.Logger) *IntakesHandler {
	return &IntakesHandler{deps: deps, logger: l}
}

type intakeResponse struct {
	ID        string `json:"id"`
	PlayerID  string `json:"player_id"`
	Completed bool   `json:"completed"`
}

// HandlePostIntake handles POST /intakes. An intake without an id gets one.
func (h *IntakesHandler) HandlePostIntake(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_intake"
	var in model.PlayerIntake
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if err := h.deps.SaveIntake(r.Context(), &in); err != nil {
		writeDomainError(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, intakeResponse{ID: in.ID, PlayerID: in.PlayerID, Completed: in.Complete()})
}

// HandleGetIntake handles GET /intakes/{id}.
func (h *IntakesHandler) HandleGetIntake(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_intake"
	in, err := h.deps.GetIntake(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

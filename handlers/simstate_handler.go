package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fludio/fludiobe/internal/policy"
	"github.com/fludio/fludiobe/middleware"
	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/services/simstate"
	"github.com/fludio/fludiobe/utils"
	"go.uber.org/zap"
)

// SimStateService is the subset of simstate.Service the handlers use
type SimStateService interface {
	List(ctx context.Context, principal *policy.Principal) ([]*models.SimState, error)
	Create(ctx context.Context, principal *policy.Principal, in simstate.CreateInput) (*models.SimState, error)
	Get(ctx context.Context, principal *policy.Principal, id int64) (*models.SimState, error)
	Update(ctx context.Context, principal *policy.Principal, id int64, in simstate.UpdateInput) (*models.SimState, error)
	Delete(ctx context.Context, principal *policy.Principal, id int64) error
}

// SimStateRequest is the body of create and update requests. Any owner
// field sent by the client is ignored.
type SimStateRequest struct {
	Name    *string         `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// SimStateHandler handles simulation state HTTP requests
type SimStateHandler struct {
	states SimStateService
	logger *zap.Logger
}

// NewSimStateHandler creates a new SimStateHandler
func NewSimStateHandler(states SimStateService, logger *zap.Logger) *SimStateHandler {
	return &SimStateHandler{
		states: states,
		logger: logger,
	}
}

// HandleList handles GET /api/simstates/
func (h *SimStateHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	states, err := h.states.List(ctx, middleware.GetPrincipalFromContext(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, states)
}

// HandleCreate handles POST /api/simstates/
func (h *SimStateHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SimStateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	in := simstate.CreateInput{Payload: req.Payload}
	if req.Name != nil {
		in.Name = *req.Name
	}

	state, err := h.states.Create(ctx, middleware.GetPrincipalFromContext(ctx), in)
	if err != nil {
		h.logger.Debug("simulation state create failed",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, state)
}

// HandleGet handles GET /api/simstates/{id}/
func (h *SimStateHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	state, err := h.states.Get(ctx, middleware.GetPrincipalFromContext(ctx), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, state)
}

// HandleUpdate handles PUT and PATCH /api/simstates/{id}/
func (h *SimStateHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req SimStateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	state, err := h.states.Update(ctx, middleware.GetPrincipalFromContext(ctx), id, simstate.UpdateInput{
		Name:    req.Name,
		Payload: req.Payload,
		Partial: r.Method == http.MethodPatch,
	})
	if err != nil {
		h.logger.Debug("simulation state update failed",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Int64("id", id),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, state)
}

// HandleDelete handles DELETE /api/simstates/{id}/
func (h *SimStateHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.states.Delete(ctx, middleware.GetPrincipalFromContext(ctx), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

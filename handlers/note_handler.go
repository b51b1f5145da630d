package handlers

import (
	"context"
	"net/http"

	"github.com/fludio/fludiobe/internal/policy"
	"github.com/fludio/fludiobe/middleware"
	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/services/notes"
	"github.com/fludio/fludiobe/utils"
	"go.uber.org/zap"
)

// NoteService is the subset of notes.Service the handlers use
type NoteService interface {
	List(ctx context.Context, principal *policy.Principal) ([]*models.Note, error)
	Create(ctx context.Context, principal *policy.Principal, in notes.Input) (*models.Note, error)
	Get(ctx context.Context, principal *policy.Principal, id int64) (*models.Note, error)
	Update(ctx context.Context, principal *policy.Principal, id int64, in notes.Input) (*models.Note, error)
	Delete(ctx context.Context, principal *policy.Principal, id int64) error
}

// NoteRequest is the body of note create and update requests
type NoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// NoteHandler handles note HTTP requests
type NoteHandler struct {
	notes  NoteService
	logger *zap.Logger
}

// NewNoteHandler creates a new NoteHandler
func NewNoteHandler(svc NoteService, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{
		notes:  svc,
		logger: logger,
	}
}

// HandleList handles GET /api/notes/
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.notes.List(ctx, middleware.GetPrincipalFromContext(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, list)
}

// HandleCreate handles POST /api/notes/
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req NoteRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	note, err := h.notes.Create(ctx, middleware.GetPrincipalFromContext(ctx), notes.Input{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, note)
}

// HandleGet handles GET /api/notes/{id}/
func (h *NoteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	note, err := h.notes.Get(ctx, middleware.GetPrincipalFromContext(ctx), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, note)
}

// HandleUpdate handles PUT and PATCH /api/notes/{id}/
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req NoteRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	note, err := h.notes.Update(ctx, middleware.GetPrincipalFromContext(ctx), id, notes.Input{
		Title:   req.Title,
		Content: req.Content,
		Partial: r.Method == http.MethodPatch,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, note)
}

// HandleDelete handles DELETE /api/notes/{id}/
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.notes.Delete(ctx, middleware.GetPrincipalFromContext(ctx), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

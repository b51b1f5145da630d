package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fludio/fludiobe/middleware"
	"github.com/fludio/fludiobe/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes caps request bodies when the router does not set a
// tighter limit
const DefaultMaxBodyBytes int64 = 1 << 20

var errInvalidID = errors.New("invalid id")

// decodeBody decodes a JSON request body into dst and writes a 400 on failure.
// It reports whether the handler should continue.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(w, r, dst, DefaultMaxBodyBytes); err != nil {
		logger.Debug("failed to decode request body",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

// validateBody runs struct validation and writes a 400 on failure
func validateBody(w http.ResponseWriter, dst interface{}, logger *zap.Logger) bool {
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

// parseID reads the {id} URL parameter. Malformed ids name no object, so
// they are reported as not found.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		_ = utils.WriteNotFound(w, errInvalidID.Error())
		return 0, false
	}
	return id, true
}

// RootHandler serves the API index
type RootHandler struct{}

// NewRootHandler creates a new RootHandler
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleIndex handles GET /api/ and lists the top-level resources
func (h *RootHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	base := requestScheme(r) + "://" + r.Host + "/api/"
	_ = utils.WriteOK(w, map[string]string{
		"simstates": base + "simstates/",
		"notes":     base + "notes/",
	})
}

// HandleRedirect handles GET / by pointing clients at the API index
func (h *RootHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/api/", http.StatusFound)
}

// HandleNotFound writes a JSON 404 for unknown routes
func (h *RootHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteNotFound(w, "")
}

// HandleMethodNotAllowed writes a JSON 405 for known routes
func (h *RootHandler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteMethodNotAllowed(w, r.Method)
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

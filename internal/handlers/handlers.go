package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/service"
)

// maxBodySize caps request bodies; the largest valid payload is a full-length task.
const maxBodySize = 16 << 10

var errInvalidJSON = errors.New("invalid json")

// HealthChecker reports store liveness and the applied schema version.
type HealthChecker interface {
	Ping(ctx context.Context) (int, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	tasks  *service.TaskService
	users  *service.UserService
	health HealthChecker
	log    log.FieldLogger
}

// New creates a new Handlers instance.
func New(tasks *service.TaskService, users *service.UserService, health HealthChecker, logger log.FieldLogger) *Handlers {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Handlers{
		tasks:  tasks,
		users:  users,
		health: health,
		log:    logger,
	}
}

type errorResponse struct {
	Error   string              `json:"error"`
	Details []models.FieldIssue `json:"details,omitempty"`
}

// parseID extracts and parses a positive integer ID from URL parameters.
func parseID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

// actorID returns the authenticated principal's id. The auth middleware
// guarantees one is present on every /api route.
func actorID(r *http.Request) string {
	p, _ := auth.PrincipalFrom(r.Context())
	return p.ID
}

// decodeJSON strictly decodes a size-limited body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, errorResponse{Error: message})
}

func (h *Handlers) respondServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithError(err).WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error("internal server error")
	respondError(w, http.StatusInternalServerError, "internal server error")
}

// respondServiceError maps a service error onto a response. missingStatus is
// used for ErrNotFoundOrForbidden, which is 403 for moves and 404 elsewhere.
func (h *Handlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error, missingStatus int) int {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: ve.Issues})
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFoundOrForbidden):
		if missingStatus == http.StatusForbidden {
			respondError(w, missingStatus, "forbidden")
		} else {
			respondError(w, missingStatus, "task not found")
		}
		return missingStatus
	case errors.Is(err, service.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user not found")
		return http.StatusNotFound
	default:
		h.respondServerError(w, r, err)
		return http.StatusInternalServerError
	}
}

package handlers

import (
	"net/http"

	"taskboard/internal/models"
)

// GetMe returns the caller's user record.
func (h *Handlers) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), actorID(r))
	if err != nil {
		h.respondServiceError(w, r, err, http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateMe edits the caller's name and/or email.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var in models.UpdateUserInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Update(r.Context(), actorID(r), in)
	if err != nil {
		h.respondServiceError(w, r, err, http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// DeleteMe deletes the caller and all of their tasks.
func (h *Handlers) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), actorID(r)); err != nil {
		h.respondServiceError(w, r, err, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Healthz reports whether the store is reachable.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	version, err := h.health.Ping(r.Context())
	if err != nil {
		h.log.WithError(err).Warn("health check failed")
		respondError(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "schemaVersion": version})
}

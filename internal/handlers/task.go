package handlers

import (
	"net/http"

	"taskboard/internal/models"
)

// ListTasks returns the caller's tasks grouped by status.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.tasks.ListGroupedByStatus(r.Context(), actorID(r))
	if err != nil {
		h.respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, grouped)
}

// CountTasks returns per-status task counts.
func (h *Handlers) CountTasks(w http.ResponseWriter, r *http.Request) {
	counts, err := h.tasks.CountByStatus(r.Context(), actorID(r))
	if err != nil {
		h.respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// GetTask returns a single task.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.tasks.GetByID(r.Context(), actorID(r), id)
	if err != nil {
		h.respondServerError(w, r, err)
		return
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// CreateTask creates a task at the end of the NOT_STARTED group.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in models.CreateTaskInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.tasks.Create(r.Context(), actorID(r), in)
	if err != nil {
		h.respondServiceError(w, r, err, http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// UpdateTask edits a task's title and/or description.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var in models.UpdateTaskInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.tasks.Edit(r.Context(), actorID(r), id, in)
	if err != nil {
		h.respondServiceError(w, r, err, http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// ChangeTaskStatus sets a task's status without repositioning it.
func (h *Handlers) ChangeTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var in models.ChangeStatusInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.tasks.ChangeStatus(r.Context(), actorID(r), id, in.Status)
	if err != nil {
		h.respondServiceError(w, r, err, http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// MoveTask repositions a task between two neighbors, possibly in another
// status group. The destination status is checked by the service after the
// ownership check, so a foreign task is always answered with 403.
func (h *Handlers) MoveTask(w http.ResponseWriter, r *http.Request) {
	metrics, ctx := newMoveMetrics(r.Context(), h.log)

	id, err := parseID(r, "id")
	if err != nil {
		metrics.SetErrorStage("decode")
		respondError(w, http.StatusBadRequest, "invalid task id")
		metrics.Log(http.StatusBadRequest, err)
		return
	}
	metrics.SetTaskID(id)

	var in models.MoveTaskInput
	if err := decodeJSON(r, &in); err != nil {
		metrics.SetErrorStage("decode")
		respondError(w, http.StatusBadRequest, err.Error())
		metrics.Log(http.StatusBadRequest, err)
		return
	}
	metrics.SetRequest(in)

	task, err := h.tasks.Move(ctx, actorID(r), id, in.ToStatus, in.BeforeID, in.AfterID)
	if err != nil {
		metrics.SetErrorStage("service")
		status := h.respondServiceError(w, r, err, http.StatusForbidden)
		metrics.Log(status, err)
		return
	}

	metrics.SetResult(task)
	respondJSON(w, http.StatusOK, task)
	metrics.Log(http.StatusOK, nil)
}

// DeleteTask permanently deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := h.tasks.Delete(r.Context(), actorID(r), id); err != nil {
		h.respondServiceError(w, r, err, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Package client mirrors a user's tasks locally for a kanban board. Mutations
// are applied optimistically and reconciled with, or rolled back from, the
// server's answer.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"taskboard/internal/models"
)

// Remote is the task API the cache reconciles against.
type Remote interface {
	List(ctx context.Context) (models.GroupedTasks, error)
	Count(ctx context.Context) (models.StatusCounts, error)
	Create(ctx context.Context, in models.CreateTaskInput) (*models.Task, error)
	Update(ctx context.Context, id int64, in models.UpdateTaskInput) (*models.Task, error)
	ChangeStatus(ctx context.Context, id int64, status models.Status) (*models.Task, error)
	Move(ctx context.Context, id int64, in models.MoveTaskInput) (*models.Task, error)
	Delete(ctx context.Context, id int64) error
}

// RemoteError is a failed remote call. Status is zero when no response was received.
type RemoteError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Forbidden reports whether the server refused the operation for this principal.
func (e *RemoteError) Forbidden() bool {
	return e.Status == http.StatusForbidden
}

// HTTPRemote talks to the taskboard HTTP API with a bearer token.
type HTTPRemote struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPRemote creates a remote for baseURL. A nil client gets a 10s timeout.
func NewHTTPRemote(baseURL, token string, client *http.Client) *HTTPRemote {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (r *HTTPRemote) List(ctx context.Context) (models.GroupedTasks, error) {
	var grouped models.GroupedTasks
	err := r.do(ctx, "list", http.MethodGet, "/api/tasks", nil, &grouped)
	return grouped, err
}

func (r *HTTPRemote) Count(ctx context.Context) (models.StatusCounts, error) {
	var counts models.StatusCounts
	err := r.do(ctx, "count", http.MethodGet, "/api/tasks/count", nil, &counts)
	return counts, err
}

func (r *HTTPRemote) Create(ctx context.Context, in models.CreateTaskInput) (*models.Task, error) {
	var task models.Task
	if err := r.do(ctx, "create", http.MethodPost, "/api/tasks", in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *HTTPRemote) Update(ctx context.Context, id int64, in models.UpdateTaskInput) (*models.Task, error) {
	var task models.Task
	if err := r.do(ctx, "update", http.MethodPut, fmt.Sprintf("/api/tasks/%d", id), in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *HTTPRemote) ChangeStatus(ctx context.Context, id int64, status models.Status) (*models.Task, error) {
	var task models.Task
	body := models.ChangeStatusInput{Status: status}
	if err := r.do(ctx, "change status", http.MethodPatch, fmt.Sprintf("/api/tasks/%d/status", id), body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *HTTPRemote) Move(ctx context.Context, id int64, in models.MoveTaskInput) (*models.Task, error) {
	var task models.Task
	if err := r.do(ctx, "move", http.MethodPost, fmt.Sprintf("/api/tasks/%d/move", id), in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *HTTPRemote) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, "delete", http.MethodDelete, fmt.Sprintf("/api/tasks/%d", id), nil, nil)
}

func (r *HTTPRemote) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return &RemoteError{Op: op, Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return &RemoteError{Op: op, Message: "build request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{Op: op, Status: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &RemoteError{Op: op, Status: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return &RemoteError{Op: op, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

// errorMessage extracts the API error text, including field details when present.
func errorMessage(data []byte, fallback string) string {
	var body struct {
		Error   string              `json:"error"`
		Details []models.FieldIssue `json:"details"`
	}
	if err := sonic.Unmarshal(data, &body); err != nil || body.Error == "" {
		return fallback
	}
	if len(body.Details) == 0 {
		return body.Error
	}
	msgs := make([]string, len(body.Details))
	for i, d := range body.Details {
		msgs[i] = d.Message
	}
	return body.Error + ": " + strings.Join(msgs, "; ")
}

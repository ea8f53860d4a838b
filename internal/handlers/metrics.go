package handlers

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"taskboard/internal/models"
)

const (
	tracerName   = "taskboard/handlers"
	moveSpanName = "tasks.move"
	moveRoute    = "/api/tasks/{id}/move"
)

// moveMetrics records one move request as a span and a structured log entry.
type moveMetrics struct {
	logger     log.FieldLogger
	span       trace.Span
	start      time.Time
	taskID     int64
	toStatus   models.Status
	hasBefore  bool
	hasAfter   bool
	position   *float64
	errorStage string
}

func newMoveMetrics(ctx context.Context, logger log.FieldLogger) (*moveMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, moveSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.route", moveRoute)),
	)
	return &moveMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, ctx
}

func (m *moveMetrics) SetTaskID(id int64) {
	m.taskID = id
}

func (m *moveMetrics) SetRequest(in models.MoveTaskInput) {
	m.toStatus = in.ToStatus
	m.hasBefore = in.BeforeID != nil
	m.hasAfter = in.AfterID != nil
}

func (m *moveMetrics) SetResult(task *models.Task) {
	if task == nil {
		return
	}
	p := task.Position
	m.position = &p
}

func (m *moveMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log ends the span and writes the tasks.move entry. It must be called once.
func (m *moveMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	totalMS := durationToMillis(time.Since(m.start))
	attrs := []attribute.KeyValue{
		attribute.Int("http.status_code", status),
		attribute.Int64("taskboard.move.task_id", m.taskID),
		attribute.String("taskboard.move.to_status", string(m.toStatus)),
		attribute.Bool("taskboard.move.has_before", m.hasBefore),
		attribute.Bool("taskboard.move.has_after", m.hasAfter),
		attribute.Float64("taskboard.move.total_ms", totalMS),
	}
	fields := log.Fields{
		"route":      moveRoute,
		"status":     status,
		"task_id":    m.taskID,
		"to_status":  string(m.toStatus),
		"has_before": m.hasBefore,
		"has_after":  m.hasAfter,
		"total_ms":   totalMS,
	}

	if m.position != nil {
		attrs = append(attrs, attribute.Float64("taskboard.move.position", *m.position))
		fields["position"] = *m.position
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("taskboard.move.error_stage", m.errorStage))
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if sc := m.span.SpanContext(); sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
	}

	m.span.SetAttributes(attrs...)
	switch {
	case status >= http.StatusBadRequest && err != nil:
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusBadRequest:
		m.span.SetStatus(codes.Error, http.StatusText(status))
	default:
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.End()

	entry := m.logger.WithFields(fields)
	switch {
	case status >= http.StatusInternalServerError:
		entry.Error(moveSpanName)
	case status >= http.StatusBadRequest:
		entry.Warn(moveSpanName)
	default:
		entry.Info(moveSpanName)
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

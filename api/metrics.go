package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName          = "board-api/api"
	snapshotSpanName    = "api.snapshot.request"
	snapshotEventName   = "board.snapshot.request"
	snapshotEventDomain = "board"
)

// snapshotMetrics records timings for a snapshot request and emits
// them both as a trace span and as a structured log event.
type snapshotMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	route          string
	fetchDuration  time.Duration
	encodeDuration time.Duration
	itemsReturned  int
	errorStage     string
}

func newSnapshotMetrics(ctx context.Context, logger *log.Logger, route string) (*snapshotMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, snapshotSpanName)
	return &snapshotMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
		route:  route,
	}, spanCtx
}

func (m *snapshotMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *snapshotMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *snapshotMetrics) SetItemsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.itemsReturned = count
}

func (m *snapshotMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finalizes the span and writes one observability event covering
// the whole request. Safe to call exactly once, from a deferred call.
func (m *snapshotMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.Float64("board.snapshot.total_ms", durationToMillis(time.Since(m.start))),
		attribute.Int("board.snapshot.items_returned", m.itemsReturned),
	}
	if m.fetchDuration > 0 {
		attrs = append(attrs, attribute.Float64("board.snapshot.fetch_ms", durationToMillis(m.fetchDuration)))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("board.snapshot.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("board.snapshot.error_stage", m.errorStage))
	}

	severityText, severityNumber := severityForStatus(status, err)
	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", snapshotEventName),
		attribute.String("event.domain", snapshotEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, attrs...)
	if err != nil {
		eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
	}

	m.span.SetAttributes(attrs...)
	m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
	if err != nil || status >= 500 {
		description := "request failed"
		if err != nil {
			description = err.Error()
		}
		m.span.SetStatus(codes.Error, description)
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.End()

	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      snapshotEventName,
		"event.domain":    snapshotEventDomain,
		"attributes":      attrMap,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if traceID := m.span.SpanContext().TraceID(); traceID.IsValid() {
		fields["trace_id"] = traceID.String()
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	entry := m.logger.WithFields(fields)
	switch {
	case severityNumber >= 17:
		entry.Error("observability.event")
	case severityNumber >= 13:
		entry.Warn("observability.event")
	default:
		entry.Info("observability.event")
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= 500:
		return "ERROR", 17
	case status >= 400:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

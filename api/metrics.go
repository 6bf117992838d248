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

func tracer() trace.Tracer {
	return otel.Tracer("codeflow-api/api")
}

// boardRequestMetrics collects per-request timings for the board projection
// route and emits them as a structured log line plus an otel span.
type boardRequestMetrics struct {
	logger           *log.Logger
	span             trace.Span
	start            time.Time
	authDuration     time.Duration
	renderDuration   time.Duration
	encodeDuration   time.Duration
	cardsReturned    int
	searchProvided   bool
	priorityProvided bool
	errorStage       string
}

func newBoardRequestMetrics(ctx context.Context, logger *log.Logger) (*boardRequestMetrics, context.Context) {
	spanCtx, span := tracer().Start(ctx, "board.render")
	return &boardRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *boardRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *boardRequestMetrics) ObserveRender(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.renderDuration = duration
}

func (m *boardRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *boardRequestMetrics) SetCardsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.cardsReturned = count
}

func (m *boardRequestMetrics) SetFiltersProvided(search, priority bool) {
	m.searchProvided = search
	m.priorityProvided = priority
}

func (m *boardRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *boardRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.Int("http.status", status),
			attribute.Int("board.cards_returned", m.cardsReturned),
			attribute.Bool("board.search_provided", m.searchProvided),
			attribute.Bool("board.priority_provided", m.priorityProvided),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("board.error_stage", m.errorStage))
		}
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"route":             "/api/board",
		"status":            status,
		"total_ms":          durationToMillis(time.Since(m.start)),
		"cards_returned":    m.cardsReturned,
		"search_provided":   m.searchProvided,
		"priority_provided": m.priorityProvided,
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.renderDuration > 0 {
		fields["render_ms"] = durationToMillis(m.renderDuration)
	}
	if m.encodeDuration > 0 {
		fields["encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Info("board.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

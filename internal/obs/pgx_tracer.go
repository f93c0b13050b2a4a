package obs

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type queryTraceKey struct{}

type queryTrace struct {
	span      trace.Span
	operation string
	start     time.Time
}

// PGXTracer implements pgx.QueryTracer. Every statement gets a span and, when
// Duration is set, an observation labelled by SQL verb and outcome.
type PGXTracer struct {
	Duration *prometheus.HistogramVec
}

// NewQueryDurationHistogram registers the histogram consumed by PGXTracer.
func NewQueryDurationHistogram(namespace string, reg prometheus.Registerer) *prometheus.HistogramVec {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "db_query_duration_ms",
		Help:      "Postgres statement latency in milliseconds.",
		Buckets:   []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
	}, []string{"operation", "result"})
	return register(reg, h)
}

func (t PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := sqlOperation(data.SQL)
	ctx, span := otel.Tracer("db.pgx").Start(ctx, "pgx "+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.statement", truncateSQL(data.SQL)),
	)
	return context.WithValue(ctx, queryTraceKey{}, queryTrace{span: span, operation: op, start: time.Now()})
}

func (t PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qt, ok := ctx.Value(queryTraceKey{}).(queryTrace)
	if !ok {
		return
	}
	result := "ok"
	if data.Err != nil && data.Err != pgx.ErrNoRows {
		result = "error"
		qt.span.RecordError(data.Err)
		qt.span.SetStatus(codes.Error, "query failed")
	}
	qt.span.End()
	if t.Duration != nil {
		t.Duration.WithLabelValues(qt.operation, result).Observe(DurationMillis(time.Since(qt.start)))
	}
}

func sqlOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToUpper(fields[0])
}

func truncateSQL(sql string) string {
	const limit = 300
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) > limit {
		return trimmed[:limit] + "..."
	}
	return trimmed
}

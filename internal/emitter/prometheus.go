package emitter

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type sessionKey struct {
	profile string
	region  string
	kind    string
}

// PrometheusEmitter records emitted results as OTEL metrics. With the
// Prometheus exporter installed they end up in the textfile on exit.
type PrometheusEmitter struct {
	meter metric.Meter

	recordsTotal  metric.Int64Counter
	resultRecords metric.Int64ObservableGauge

	// State for observable gauge
	mu     sync.RWMutex
	counts map[sessionKey]int
}

// NewPrometheusEmitter creates a metrics emitter on the global meter provider.
func NewPrometheusEmitter() (*PrometheusEmitter, error) {
	return newPrometheusEmitter(otel.Meter("harness"))
}

func newPrometheusEmitter(meter metric.Meter) (*PrometheusEmitter, error) {
	e := &PrometheusEmitter{
		meter:  meter,
		counts: make(map[sessionKey]int),
	}

	var err error
	e.recordsTotal, err = meter.Int64Counter(
		"harness_records_total",
		metric.WithDescription("Total records emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("create records_total counter: %w", err)
	}

	e.resultRecords, err = meter.Int64ObservableGauge(
		"harness_result_records",
		metric.WithDescription("Records in the last result per session"),
		metric.WithInt64Callback(e.observeResults),
	)
	if err != nil {
		return nil, fmt.Errorf("create result_records gauge: %w", err)
	}

	return e, nil
}

// Emit counts the records of result.
func (e *PrometheusEmitter) Emit(ctx context.Context, result Result) error {
	key := sessionKey{profile: result.Profile, region: result.Region, kind: string(result.Kind)}

	e.recordsTotal.Add(ctx, int64(len(result.Records)), metric.WithAttributes(key.attributes()...))

	e.mu.Lock()
	e.counts[key] = len(result.Records)
	e.mu.Unlock()

	log.Debug().
		Str("profile", result.Profile).
		Str("region", result.Region).
		Str("kind", string(result.Kind)).
		Int("records", len(result.Records)).
		Msg("result emitted")

	return nil
}

// observeResults is the callback for the result_records gauge.
func (e *PrometheusEmitter) observeResults(_ context.Context, o metric.Int64Observer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for key, n := range e.counts {
		o.Observe(int64(n), metric.WithAttributes(key.attributes()...))
	}
	return nil
}

// Close is a no-op for the Prometheus emitter.
func (e *PrometheusEmitter) Close() error {
	return nil
}

func (k sessionKey) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("profile", k.profile),
		attribute.String("region", k.region),
		attribute.String("kind", k.kind),
	}
}

package store

import (
	"context"
	"errors"

	"github.com/axmq/ds/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/axmq/ds/store"

// TracedStore wraps a Store with OpenTelemetry spans.
// Layer order: TracedStore -> InstrumentedStore -> backend
type TracedStore struct {
	store  Store
	tracer trace.Tracer
	system string
}

// NewTracedStore creates a traced store. A nil tracer uses the global provider.
func NewTracedStore(store Store, tracer trace.Tracer, system string) *TracedStore {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &TracedStore{
		store:  store,
		tracer: tracer,
		system: system,
	}
}

// Transaction implements Store.Transaction with a span around the whole
// transaction, including retries
func (s *TracedStore) Transaction(ctx context.Context, fn TxnFunc) error {
	ctx, span := s.tracer.Start(ctx, "store.transaction",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.system),
			attribute.String("db.operation", "transaction"),
		),
	)
	defer span.End()

	attempts := 0
	err := s.store.Transaction(ctx, func(ctx context.Context, txn Txn) error {
		attempts++
		return fn(ctx, txn)
	})

	span.SetAttributes(attribute.Int("store.attempts", attempts))
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, ErrNotFound):
		span.SetAttributes(attribute.Bool("store.found", false))
		span.SetStatus(codes.Ok, "")
	default:
		tracing.RecordError(ctx, err)
	}
	return err
}

// DirtyRead implements Store.DirtyRead with a span
func (s *TracedStore) DirtyRead(ctx context.Context, table string, key []byte) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "store.dirty_read",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.system),
			attribute.String("db.operation", "dirty_read"),
			attribute.String("store.table", table),
		),
	)
	defer span.End()

	value, err := s.store.DirtyRead(ctx, table, key)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, ErrNotFound):
		span.SetAttributes(attribute.Bool("store.found", false))
		span.SetStatus(codes.Ok, "")
	default:
		tracing.RecordError(ctx, err)
	}

	return value, err
}

// Close closes the wrapped store
func (s *TracedStore) Close() error {
	return s.store.Close()
}

package log

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuanvumaihuynh/tenant-inventory/pkg/correlationid"
)

var _ slog.Handler = (*enrichedHandler)(nil)

type storeIDKey struct{}

// WithStoreID returns a copy of ctx whose log records carry the store (tenant) id.
// It only affects logging; storage access always receives the store id explicitly.
func WithStoreID(ctx context.Context, storeID uuid.UUID) context.Context {
	return context.WithValue(ctx, storeIDKey{}, storeID)
}

func storeIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(storeIDKey{}).(uuid.UUID)
	return id, ok
}

// enrichedHandler enriches logs with trace, correlation and tenant data
type enrichedHandler struct {
	h slog.Handler
}

func newEnrichedHandler(h slog.Handler) enrichedHandler {
	return enrichedHandler{h: h}
}

func (eh enrichedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return eh.h.Enabled(ctx, level)
}

func (eh enrichedHandler) Handle(ctx context.Context, r slog.Record) error {
	if correlationID, ok := correlationid.FromContext(ctx); ok {
		r.Add("correlation_id", slog.StringValue(correlationID))
	}

	if storeID, ok := storeIDFromContext(ctx); ok {
		r.Add("store_id", slog.StringValue(storeID.String()))
	}

	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if spanCtx.IsValid() {
		r.Add("trace_id", slog.StringValue(spanCtx.TraceID().String()))
		r.Add("span_id", slog.StringValue(spanCtx.SpanID().String()))
	}

	return eh.h.Handle(ctx, r)
}

func (eh enrichedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newEnrichedHandler(eh.h.WithAttrs(attrs))
}

func (eh enrichedHandler) WithGroup(name string) slog.Handler {
	return newEnrichedHandler(eh.h.WithGroup(name))
}

package mq

import (
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("internal/storage/mq")

// kotelHooks instruments a client with the global tracer provider and propagator, so it must
// be called after telemetry is initialized.
func kotelHooks() []kgo.Hook {
	return kotel.NewKotel(
		kotel.WithTracer(kotel.NewTracer(
			kotel.TracerProvider(otel.GetTracerProvider()),
			kotel.TracerPropagator(otel.GetTextMapPropagator()),
		)),
	).Hooks()
}

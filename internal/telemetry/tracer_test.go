package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/config"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/telemetry"
)

func TestInitTracer(t *testing.T) {
	t.Run("Should install a propagator without exporting when no collector is set", func(t *testing.T) {
		cleanup, err := telemetry.InitTracer(context.Background(), config.Otel{ServiceName: "test"})
		require.NoError(t, err)
		require.NotNil(t, cleanup)

		assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
		assert.NoError(t, cleanup(context.Background()))
	})
}

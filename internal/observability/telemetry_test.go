package observability

import (
	"context"
	"testing"

	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetry_Disabled(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracer_NoopBeforeInit(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "worldgen.test")
	defer span.End()
	assert.False(t, span.SpanContext().IsSampled(), "до инициализации спаны не записываются")
}

func TestEndpointOrDefault(t *testing.T) {
	assert.Equal(t, "localhost:4318", endpointOrDefault(""))
	assert.Equal(t, "otel:4318", endpointOrDefault("otel:4318"))
}

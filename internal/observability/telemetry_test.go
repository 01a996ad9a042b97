package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetryDisabled(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), "anima-test", Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := Tracer().Start(context.Background(), "noop")
	span.End()
}

func TestEndpointOrDefault(t *testing.T) {
	assert.Equal(t, "localhost:4318", endpointOrDefault(""))
	assert.Equal(t, "otel:4318", endpointOrDefault("otel:4318"))
}

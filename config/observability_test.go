package config_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/global"

	"github.com/notelab/noteservice/config"
)

func Test_NewObservabilityProviders_DefaultsToConsoleExporters(t *testing.T) {
	t.Setenv("NOTES_OTLP_ENDPOINT", "")

	providers, err := config.NewObservabilityProviders(context.Background(), "test-service", "0.0.1")

	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)
	require.NotNil(t, providers.LoggerProvider)
	require.NotNil(t, providers.Resource)

	// The otelslog bridge resolves the global provider; registration is what
	// makes trace-correlated logging reachable.
	assert.Same(t, providers.LoggerProvider, global.GetLoggerProvider())

	assert.NoError(t, providers.Shutdown())
}

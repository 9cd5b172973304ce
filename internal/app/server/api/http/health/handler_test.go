package health

import (
	"context"
	"io"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthCheck_ReportsOK(t *testing.T) {
	handler := NewHandler(testLogger(), huma.Middlewares{})

	// Терминал трактует любой ответ кроме OK как недоступный сервер
	output, err := handler.healthCheck(context.Background(), &Input{})

	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, "OK", output.Body.Status)
}

func TestNewHandler_WiresDependencies(t *testing.T) {
	handler := NewHandler(testLogger(), huma.Middlewares{})

	assert.NotNil(t, handler.log)
	assert.NotNil(t, handler.middleware)
}

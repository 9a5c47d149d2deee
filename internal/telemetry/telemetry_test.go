package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitBuildsTextLoggerByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, shutdown, err := Init(Options{ServiceName: "gl-test", LogLevel: slog.LevelInfo, Writer: &buf})
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer shutdown(context.Background())

	logger.Info("hello", "k", "v")
	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "k=v")
}

func TestInitBuildsJSONLoggerWhenRequested(t *testing.T) {
	var buf bytes.Buffer
	logger, shutdown, err := Init(Options{ServiceName: "gl-test", LogJSON: true, Writer: &buf})
	require.NoError(t, err)
	defer shutdown(context.Background())

	logger.Info("hello")
	require.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestInitWithoutTraceOrMetricsShutdownIsNoOp(t *testing.T) {
	var buf bytes.Buffer
	_, shutdown, err := Init(Options{ServiceName: "gl-test", Writer: &buf})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitWithTraceAndMetricsInstallsProviders(t *testing.T) {
	var buf bytes.Buffer
	_, shutdown, err := Init(Options{ServiceName: "gl-test", Trace: true, Metrics: true, Writer: &buf})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var buf bytes.Buffer
	shutdown, err := InitTracer(ServiceName, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "dispatch.batch")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	require.Contains(t, buf.String(), "dispatch.batch")
	require.Contains(t, buf.String(), ServiceName)
}

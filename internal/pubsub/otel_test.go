package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupOTel(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled tracing", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{Enabled: false})
		require.NoError(t, err)
		require.NotNil(t, tracer)
		require.NotNil(t, cleanup)

		_, span := tracer.Start(ctx, "test")
		assert.False(t, span.SpanContext().IsValid(), "no-op spans carry no context")
		span.End()
		cleanup()
	})

	t.Run("enabled tracing", func(t *testing.T) {
		config := DefaultTracingConfig()
		config.Enabled = true
		config.ZipkinURL = "http://invalid-url:9411/api/v2/spans"

		tracer, cleanup, err := SetupOTel(ctx, config)
		require.NoError(t, err)
		require.NotNil(t, tracer)
		cleanup()
	})
}

func TestTracingSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	bridge := NewWatermillBridge(tp.Tracer("test"), nil)
	defer bridge.Close()

	ctx := context.Background()
	received := make(chan Message, 1)
	require.NoError(t, bridge.Subscribe(ctx, "test.topic", func(ctx context.Context, msg Message) error {
		received <- msg
		return nil
	}))

	require.NoError(t, bridge.Publish(ctx, Message{Topic: "test.topic", Payload: []byte(`{"k":"v"}`)}))
	<-received

	require.Eventually(t, func() bool {
		names := map[string]bool{}
		for _, s := range recorder.Ended() {
			names[s.Name()] = true
		}
		return names["pubsub.publish.test.topic"] && names["pubsub.process.test.topic"]
	}, time.Second, 10*time.Millisecond)
}

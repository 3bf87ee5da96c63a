package telemetry

import (
	"context"
	"errors"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/backoffice/internal/infrastructure/config"
)

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := config.TelemetryConfig{ServiceName: "backoffice-test"}

	tp, err := NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.Same(t, logger, lp.Bridge(logger, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(ctx))

	p, err := NewProfiler(cfg, logger)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresServer(t *testing.T) {
	_, err := NewProfiler(config.TelemetryConfig{ProfilingEnabled: true}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), newSampler(0).Description())
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased")
}

func TestStartSpan_RecordsAttributesAndErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ctx, span := StartSpan(context.Background(), "collection.run",
		WithAttribute(SpanAttrSupplierCode, "ACME"),
		WithAttribute(SpanAttrPage, 3),
	)
	assert.NotEmpty(t, GetTraceID(ctx))
	SetAttributes(span, SpanAttrItems, 25, 42, "ignored")
	RecordError(span, errors.New("upstream failed"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "collection.run", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)

	attrs := make(map[string]string)
	for _, kv := range got.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "ACME", attrs[SpanAttrSupplierCode])
	assert.Equal(t, "3", attrs[SpanAttrPage])
	assert.Equal(t, "25", attrs[SpanAttrItems])
	assert.Len(t, got.Events(), 1)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Equal(t, "", GetTraceID(context.Background()))
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"Supplier":    "ACME",
		"job_id":      "0d3c",
		"Trigger-Src": "manual",
		"empty":       "",
		"route":       strings.Repeat("x", 200),
	})
	assert.Equal(t, []string{
		"route", strings.Repeat("x", MaxLabelValueLength),
		"supplier", "ACME",
		"trigger_src", "manual",
	}, pairs)
	assert.Nil(t, sanitizeLabels(nil))
}

func TestWithProfilingLabels(t *testing.T) {
	var seen map[string]string
	WithProfilingLabels(context.Background(), CollectionLabels("ACME", "graphql", "manual"), func(ctx context.Context) {
		seen = make(map[string]string)
		pprof.ForLabels(ctx, func(key, value string) bool {
			seen[key] = value
			return true
		})
	})
	assert.Equal(t, "ACME", seen[ProfilingLabelSupplier])
	assert.Equal(t, "graphql", seen[ProfilingLabelIntegration])
	assert.Equal(t, "collect", seen[ProfilingLabelOperation])

	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestLevelFilterCore(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	filtered := &levelFilterCore{Core: core, minLevel: zapcore.WarnLevel}
	logger := zap.New(filtered).With(zap.String("component", "test"))

	logger.Info("dropped")
	logger.Warn("kept")

	require.Len(t, recorded.All(), 1)
	assert.Equal(t, "kept", recorded.All()[0].Message)
	assert.Equal(t, "test", recorded.All()[0].ContextMap()["component"])
}

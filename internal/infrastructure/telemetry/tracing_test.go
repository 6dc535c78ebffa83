package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func TestStartServiceSpan(t *testing.T) {
	recorder := setupTestTracer(t)
	orderID := uuid.New()

	ctx, parent := StartServiceSpan(context.Background(), "deduction", "execute",
		SpanAttrOrderID, orderID,
		SpanAttrLines, 2,
		42, "ignored",
	)
	_, child := StartServiceSpan(ctx, "ledger", "apply")
	child.End()
	SetAttributes(parent, SpanAttrSkipped, false, SpanAttrIngredients, int64(3))
	AddEvent(parent, "recipe_warning", "code", "MISSING_RECIPE")
	parent.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "ledger.apply", ended[0].Name())
	assert.Equal(t, "deduction.execute", ended[1].Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())

	attrs := ended[1].Attributes()
	assert.Contains(t, attrs, attribute.String(SpanAttrOrderID, orderID.String()))
	assert.Contains(t, attrs, attribute.Int(SpanAttrLines, 2))
	assert.Contains(t, attrs, attribute.Bool(SpanAttrSkipped, false))
	assert.Contains(t, attrs, attribute.Int64(SpanAttrIngredients, 3))
	assert.Len(t, attrs, 4, "non-string keys are skipped")

	require.Len(t, ended[1].Events(), 1)
	assert.Equal(t, "recipe_warning", ended[1].Events()[0].Name)
}

func TestRecordError(t *testing.T) {
	recorder := setupTestTracer(t)

	_, span := StartServiceSpan(context.Background(), "ledger", "apply")
	RecordError(span, nil)
	RecordError(span, errors.New("stock conflict"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "stock conflict", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)

	assert.NotPanics(t, func() {
		RecordError(nil, errors.New("boom"))
		SetAttributes(nil, "k", "v")
		AddEvent(nil, "event")
	})
}

func TestToAttribute(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, attribute.String("k", "v"), toAttribute("k", "v"))
	assert.Equal(t, attribute.Float64("k", 0.5), toAttribute("k", 0.5))
	assert.Equal(t, attribute.String("k", id.String()), toAttribute("k", id))
	assert.Equal(t, attribute.String("k", "[1 2]"), toAttribute("k", []int{1, 2}))
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), TracingConfig{
		Enabled:     false,
		ServiceName: "cafe-deduction-worker",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestSamplerFor(t *testing.T) {
	assert.True(t, strings.HasPrefix(samplerFor(1).Description(), "ParentBased{root:AlwaysOnSampler,"))
	assert.True(t, strings.HasPrefix(samplerFor(0).Description(), "ParentBased{root:AlwaysOffSampler,"))
	assert.True(t, strings.HasPrefix(samplerFor(0.25).Description(), "ParentBased{root:TraceIDRatioBased{0.25},"))
}

package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMetric struct {
	name   string
	labels map[string]string
	value  any
}

func TestTelemetryEmitter(t *testing.T) {
	var captured []capturedMetric
	RegisterTelemetryEmitter(func(name string, labels map[string]string, value any) {
		captured = append(captured, capturedMetric{name: name, labels: labels, value: value})
	})
	defer RegisterTelemetryEmitter(nil)

	engine := newTestEngine(t)
	_, name, err := engine.RegisterTable(0, testFormSchema())
	require.NoError(t, err)

	_, _, err = engine.Validate(name, validModel())
	require.NoError(t, err)

	require.NotEmpty(t, captured)
	assert.Equal(t, "schema_compile_latency_ms", captured[0].name)
	assert.Equal(t, name, captured[0].labels["table"])

	last := captured[len(captured)-1]
	assert.Equal(t, "schema_validation_messages", last.name)
	assert.Equal(t, "structural", last.labels["mode"])
	assert.Equal(t, int64(0), last.value)
}

func TestTelemetryNilRestoresNoop(t *testing.T) {
	calls := 0
	RegisterTelemetryEmitter(func(string, map[string]string, any) { calls++ })
	EmitCompileLatency("x", 1)
	assert.Equal(t, 1, calls)

	RegisterTelemetryEmitter(nil)
	EmitCompileLatency("x", 1)
	assert.Equal(t, 1, calls)
}

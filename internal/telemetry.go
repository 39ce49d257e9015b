package internal

import (
	"sync"
)

// telemetry.go
// Lightweight telemetry hook layer. Callers may register a real emitter (or a
// test stub) via RegisterTelemetryEmitter; the default is a no-op so the
// engine carries no hard metrics dependency.

type telemetryEmitter func(name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl telemetryEmitter = func(name string, labels map[string]string, value any) {
		// noop by default
	}
)

// RegisterTelemetryEmitter registers a custom emitter function. Passing nil
// restores the no-op default.
func RegisterTelemetryEmitter(fn telemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emit(name string, labels map[string]string, value any) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	fn(name, labels, value)
}

// EmitCompileLatency records the register-time compile latency in
// milliseconds for one table.
func EmitCompileLatency(table string, ms int64) {
	emit("schema_compile_latency_ms", map[string]string{"table": table}, ms)
}

// EmitValidationMessages records how many messages one validation pass
// produced, labeled by mode ("structural" or "semantic").
func EmitValidationMessages(table, mode string, count int64) {
	emit("schema_validation_messages", map[string]string{"table": table, "mode": mode}, count)
}

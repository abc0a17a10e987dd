package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "test-svc", buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got nothing")
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("failed to decode %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "invalid-level")

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered at info level, got %q", buf.String())
	}
	l.Info("shown")
	if buf.Len() == 0 {
		t.Error("expected info line to be written")
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_FORMAT")

	l := NewFromEnv("env-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInfoWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "debug")

	l.Info("module loaded", Fields(FieldPath, "./plugins/a", "exports", 3))

	m := decodeLine(t, &buf)
	if m["message"] != "module loaded" {
		t.Errorf("expected message, got %v", m["message"])
	}
	if m[FieldPath] != "./plugins/a" {
		t.Errorf("expected path field, got %v", m[FieldPath])
	}
	if m["exports"] != float64(3) {
		t.Errorf("expected exports=3, got %v", m["exports"])
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info").WithComponent("catalog")
	l.Info("hello")

	m := decodeLine(t, &buf)
	if m[FieldComponent] != "catalog" {
		t.Errorf("expected component=catalog, got %v", m[FieldComponent])
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info").
		WithFields(Fields(FieldContract, "Greeter")).
		WithError(errors.New("boom"))
	l.Warn("skipped")

	m := decodeLine(t, &buf)
	if m[FieldContract] != "Greeter" {
		t.Errorf("expected contract field, got %v", m[FieldContract])
	}
	if m["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", m["error"])
	}
}

func TestWithContextAddsTraceIDs(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "wire")
	defer span.End()

	var buf bytes.Buffer
	newJSONLogger(&buf, "info").WithContext(ctx).Info("traced")

	m := decodeLine(t, &buf)
	if m[FieldTraceID] != span.SpanContext().TraceID().String() {
		t.Errorf("expected trace id %s, got %v", span.SpanContext().TraceID(), m[FieldTraceID])
	}
	if m[FieldSpanID] != span.SpanContext().SpanID().String() {
		t.Errorf("expected span id %s, got %v", span.SpanContext().SpanID(), m[FieldSpanID])
	}
}

func TestWithContextWithoutSpan(t *testing.T) {
	l := NewNop()
	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected the same logger when no span is active")
	}
}

func TestInit(t *testing.T) {
	prev := globalLogger
	defer SetGlobalLogger(prev)

	Init(&Config{ServiceName: "wiring", Level: "warn", Format: "json"})
	if GetGlobalLogger().service != "wiring" {
		t.Errorf("expected service 'wiring', got %q", GetGlobalLogger().service)
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	prev := globalLogger
	defer SetGlobalLogger(prev)

	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default logger")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected output 'stderr', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp enabled")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"pretty", Config{Level: "debug", Format: "pretty"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "registrar", &buf)
	l.Info("wired")

	out := buf.String()
	if !strings.Contains(out, "[REG][INF]") {
		t.Errorf("expected service and level tags, got %q", out)
	}
	if !strings.Contains(out, "wired") {
		t.Errorf("expected message, got %q", out)
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewNop()
	Register("custom", l)
	if Get("custom") != l {
		t.Error("expected registered logger")
	}
}

func TestRegisterDefaults(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&Config{Level: "debug", Format: "json"}, "host", &buf)
	RegisterDefaults(base)

	for _, name := range Components {
		if !slices.Contains(Registered(), name) {
			t.Errorf("expected %s to be registered", name)
		}
	}
	Get("resolver").Info("cached")
	if !strings.Contains(buf.String(), `"component":"resolver"`) {
		t.Errorf("expected component tag, got %q", buf.String())
	}
}

func TestGetUnregistered(t *testing.T) {
	if Get("never-registered") == nil {
		t.Error("expected fallback logger")
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(m) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(m), m)
	}
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestErrorFields(t *testing.T) {
	m := ErrorFields("load", errors.New("bad"))
	if m[FieldOperation] != "load" || m[FieldError] != "bad" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestDurationFields(t *testing.T) {
	m := DurationFields("wire", 1500*time.Millisecond)
	if m[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", m[FieldDuration])
	}
}

func TestMergeWithError(t *testing.T) {
	m := MergeWithError(nil, errors.New("x"))
	if m[FieldError] != "x" {
		t.Errorf("expected error field, got %v", m)
	}
}

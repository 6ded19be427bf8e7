package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/platinummonkey/helpdesk/pkg/contextkeys"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		if buf.Len() > 0 {
			t.Error("Debug message should not be logged at Info level")
		}
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")

		entry := decodeEntry(t, &buf)
		if entry["level"] != "INFO" {
			t.Errorf("Expected level INFO, got %v", entry["level"])
		}
		if entry["msg"] != "info message" {
			t.Errorf("Expected message 'info message', got %v", entry["msg"])
		}
	})

	t.Run("formatted warn", func(t *testing.T) {
		buf.Reset()
		logger.Warnf("using %s as admin", "dev@x.com")

		entry := decodeEntry(t, &buf)
		if entry["msg"] != "using dev@x.com as admin" {
			t.Errorf("Unexpected message %v", entry["msg"])
		}
	})
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	logger.WithField("role", "admin").
		WithFields(map[string]interface{}{"source": "claims"}).
		WithError(errors.New("boom")).
		WithSession("abc").
		Debug("resolved")

	entry := decodeEntry(t, &buf)
	for key, want := range map[string]string{
		"role":       "admin",
		"source":     "claims",
		"error":      "boom",
		"session_id": "abc",
	} {
		if entry[key] != want {
			t.Errorf("Expected %s=%s, got %v", key, want, entry[key])
		}
	}
}

func TestLogger_NilErrorAndEmptySession(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	if logger.WithError(nil) != logger {
		t.Error("WithError(nil) should return the same logger")
	}
	if logger.WithSession("") != logger {
		t.Error("WithSession(\"\") should return the same logger")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"DEBUG":   DebugLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"info":    InfoLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}

	for input, want := range tests {
		if got := ParseLogLevel(input); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewLogger(InfoLevel, &buf))
	ctx = contextkeys.WithRequestID(ctx, "req-1")
	ctx = contextkeys.WithSessionID(ctx, "sess-1")

	FromContext(ctx).Info("hello")

	entry := decodeEntry(t, &buf)
	if entry["request_id"] != "req-1" {
		t.Errorf("Expected request_id req-1, got %v", entry["request_id"])
	}
	if entry["session_id"] != "sess-1" {
		t.Errorf("Expected session_id sess-1, got %v", entry["session_id"])
	}
	if _, ok := entry["trace_id"]; ok {
		t.Error("Did not expect trace_id without an active span")
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("Expected a default logger")
	}
}

func TestLoggerWithTrace(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	LoggerWithTrace(ctx, NewLogger(InfoLevel, &buf)).Info("traced")

	entry := decodeEntry(t, &buf)
	if entry["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("Expected trace_id %s, got %v", span.SpanContext().TraceID(), entry["trace_id"])
	}
	if entry["span_id"] != span.SpanContext().SpanID().String() {
		t.Errorf("Expected span_id %s, got %v", span.SpanContext().SpanID(), entry["span_id"])
	}
}

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestLogEventWireFormat(t *testing.T) {
	ev := LogEvent{
		Seq:       3,
		Level:     LevelWarn,
		Message:   "careful",
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Seq is internal ordering state, not part of the wire contract.
	if strings.Contains(string(data), "seq") {
		t.Errorf("wire JSON should not contain seq: %s", data)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal into map: %v", err)
	}
	if m["level"] != "warn" || m["message"] != "careful" {
		t.Errorf("wire JSON = %s", data)
	}
	if _, ok := m["timestamp"].(string); !ok {
		t.Errorf("timestamp should be a string, got %T", m["timestamp"])
	}
}

func TestLogEventAcceptsLegacyVariant(t *testing.T) {
	// Early producers emitted only {timestamp, message}.
	raw := `{"timestamp":"2024-06-01T12:00:00Z","message":"hello"}`

	var ev LogEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal legacy variant: %v", err)
	}
	if ev.Level != LevelLog {
		t.Errorf("level = %q, want %q", ev.Level, LevelLog)
	}
	if ev.Message != "hello" {
		t.Errorf("message = %q, want hello", ev.Message)
	}
}

func TestReturnValueMarshal(t *testing.T) {
	tests := []struct {
		name string
		rv   ReturnValue
		want string
	}{
		{"empty", Empty(), "null"},
		{"number", Value(json.RawMessage(`42`)), "42"},
		{"object", Value(json.RawMessage(`{"a":1}`)), `{"a":1}`},
		{"zero value", ReturnValue{}, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.rv)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("marshal = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestErrorKindMatching(t *testing.T) {
	err := fmt.Errorf("execute: %w", NewError(KindTimeout, "deadline elapsed"))

	if !errors.Is(err, NewError(KindTimeout, "")) {
		t.Error("errors.Is should match by kind regardless of detail")
	}
	if errors.Is(err, NewError(KindAborted, "")) {
		t.Error("errors.Is should not match a different kind")
	}
	if got := KindOf(err); got != KindTimeout {
		t.Errorf("KindOf = %q, want %q", got, KindTimeout)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %q, want %q", got, KindInternal)
	}
}

func TestErrorKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{KindInvalidRequest, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindCapacityExceeded, http.StatusServiceUnavailable},
		{KindTimeout, http.StatusGatewayTimeout},
		{KindCompileError, http.StatusInternalServerError},
		{KindRuntimeError, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.kind.HTTPStatus(); got != tt.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

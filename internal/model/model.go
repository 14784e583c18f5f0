package model

import (
	"encoding/json"
	"time"
)

// Log severity constants. Every console call flows through the single log
// channel tagged with its original severity.
const (
	LevelLog   = "log"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelDebug = "debug"
)

// LogEvent is a single console record captured during an execution.
//
// The wire JSON is {"level","message","timestamp"}; Seq orders events within
// one execution and is not part of the wire format.
type LogEvent struct {
	Seq       int       `json:"-"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// logEventWire mirrors LogEvent for decoding. Older producers emitted only
// {timestamp, message}; a missing level defaults to "log".
type logEventWire struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// UnmarshalJSON accepts both the current and the minimal legacy wire variant.
func (e *LogEvent) UnmarshalJSON(data []byte) error {
	var w logEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Level = w.Level
	if e.Level == "" {
		e.Level = LevelLog
	}
	e.Message = w.Message
	e.Timestamp = w.Timestamp
	return nil
}

// ReturnValue kind constants.
const (
	ReturnKindEmpty = "empty"
	ReturnKindValue = "value"
)

// ReturnValue is the tagged final value of an execution: either Empty or a
// JSON-representable payload. Error outcomes are carried separately as
// *Error so the kind enumeration stays closed.
type ReturnValue struct {
	Kind    string
	Payload json.RawMessage
}

// Empty returns the empty return value.
func Empty() ReturnValue {
	return ReturnValue{Kind: ReturnKindEmpty}
}

// Value returns a return value wrapping the given JSON payload.
func Value(payload json.RawMessage) ReturnValue {
	return ReturnValue{Kind: ReturnKindValue, Payload: payload}
}

// IsEmpty reports whether the return value carries no payload.
func (r ReturnValue) IsEmpty() bool {
	return r.Kind != ReturnKindValue
}

// MarshalJSON renders the payload, or JSON null for Empty.
func (r ReturnValue) MarshalJSON() ([]byte, error) {
	if r.IsEmpty() || len(r.Payload) == 0 {
		return []byte("null"), nil
	}
	return r.Payload, nil
}

// Envelope is the structured record a sandbox produces at completion. In the
// out-of-process realization it is the stdout contract between the runtime
// binary and the orchestrator.
type Envelope struct {
	Output          json.RawMessage `json:"output"`
	Logs            []LogEvent      `json:"logs"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	Error           *ErrorPayload   `json:"error,omitempty"`
}

// ErrorPayload is the wire form of a script failure inside an envelope.
type ErrorPayload struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

// Execution is the completed result of one invocation.
type Execution struct {
	ID         string
	FunctionID string
	Return     ReturnValue
	Logs       []LogEvent
	Elapsed    time.Duration
}

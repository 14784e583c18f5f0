package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/divitsinghall/Vortex/internal/model"
	"github.com/divitsinghall/Vortex/internal/runner"
)

// fakeBinary writes an executable shell script standing in for the
// runtime worker.
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-runtime")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

func newTestRunner(t *testing.T, binary string) *Runner {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	r := New(binary, "", logger)
	r.tempDir = t.TempDir()
	return r
}

func spec() runner.Spec {
	return runner.Spec{
		ExecutionID: model.NewExecutionID(),
		FunctionID:  "fn1",
		Source:      `console.log("hi")`,
		Topic:       "exec:test",
	}
}

func TestExecuteParsesEnvelope(t *testing.T) {
	envelope := `{"output":42,"logs":[` +
		`{"level":"log","message":"hi","timestamp":"2024-06-01T00:00:00Z"},` +
		`{"level":"warn","message":"[WARN] careful","timestamp":"2024-06-01T00:00:01Z"}` +
		`],"execution_time_ms":7}`
	r := newTestRunner(t, fakeBinary(t, fmt.Sprintf("echo '%s'", envelope)))

	res, err := r.Execute(context.Background(), spec())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if string(res.Return.Payload) != "42" {
		t.Errorf("output = %s, want 42", res.Return.Payload)
	}
	if len(res.Logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(res.Logs))
	}
	// Sequence numbers are restored from wire order.
	if res.Logs[0].Seq != 1 || res.Logs[1].Seq != 2 {
		t.Errorf("seqs = %d,%d, want 1,2", res.Logs[0].Seq, res.Logs[1].Seq)
	}
	if res.Elapsed != 7*time.Millisecond {
		t.Errorf("elapsed = %v, want 7ms", res.Elapsed)
	}
}

func TestExecuteAcceptsLegacyLogVariant(t *testing.T) {
	envelope := `{"output":null,"logs":[{"timestamp":"2024-06-01T00:00:00Z","message":"old"}],"execution_time_ms":1}`
	r := newTestRunner(t, fakeBinary(t, fmt.Sprintf("echo '%s'", envelope)))

	res, err := r.Execute(context.Background(), spec())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Logs) != 1 || res.Logs[0].Level != model.LevelLog {
		t.Errorf("logs = %+v, want one event with level defaulted to log", res.Logs)
	}
	if !res.Return.IsEmpty() {
		t.Errorf("null output should map to empty return, got %+v", res.Return)
	}
}

func TestExecuteErrorEnvelope(t *testing.T) {
	envelope := `{"output":null,"logs":[{"level":"log","message":"before","timestamp":"2024-06-01T00:00:00Z"}],` +
		`"execution_time_ms":3,"error":{"kind":"compile_error","detail":"unexpected token"}}`
	r := newTestRunner(t, fakeBinary(t, fmt.Sprintf("echo '%s'; exit 1", envelope)))

	res, err := r.Execute(context.Background(), spec())
	if !errors.Is(err, model.NewError(model.KindCompileError, "")) {
		t.Fatalf("err = %v, want compile error", err)
	}
	// Partial logs survive the failure.
	if res == nil || len(res.Logs) != 1 || res.Logs[0].Message != "before" {
		t.Errorf("partial logs not preserved: %+v", res)
	}
}

func TestExecuteMalformedOutput(t *testing.T) {
	r := newTestRunner(t, fakeBinary(t, "echo 'this is not json'"))

	_, err := r.Execute(context.Background(), spec())
	if !errors.Is(err, model.NewError(model.KindRuntimeError, "")) {
		t.Fatalf("err = %v, want runtime error", err)
	}
	if !strings.Contains(err.Error(), "malformed") {
		t.Errorf("err = %v, want malformed envelope detail", err)
	}
}

func TestExecuteNonZeroExitWithoutEnvelope(t *testing.T) {
	r := newTestRunner(t, fakeBinary(t, "echo 'kaboom' >&2; exit 3"))

	_, err := r.Execute(context.Background(), spec())
	if !errors.Is(err, model.NewError(model.KindRuntimeError, "")) {
		t.Fatalf("err = %v, want runtime error", err)
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("err = %v, want child stderr in detail", err)
	}
}

func TestExecuteKillsChildOnDeadline(t *testing.T) {
	r := newTestRunner(t, fakeBinary(t, "sleep 30"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Execute(ctx, spec())
	elapsed := time.Since(start)

	if !errors.Is(err, model.NewError(model.KindTimeout, "")) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if elapsed > 5*time.Second {
		t.Errorf("child outlived its deadline by %v", elapsed)
	}
}

func TestExecuteAbortOnCancel(t *testing.T) {
	r := newTestRunner(t, fakeBinary(t, "sleep 30"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := r.Execute(ctx, spec())
	if !errors.Is(err, model.NewError(model.KindAborted, "")) {
		t.Fatalf("err = %v, want aborted", err)
	}
}

func TestExecuteRemovesTempFileOnEveryPath(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"success", `echo '{"output":null,"logs":[],"execution_time_ms":1}'`},
		{"failure", "exit 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunner(t, fakeBinary(t, tt.script))

			sp := spec()
			_, _ = r.Execute(context.Background(), sp)

			leftover := filepath.Join(r.tempDir, fmt.Sprintf("vortex-%s.js", sp.ExecutionID))
			if _, err := os.Stat(leftover); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("temp source file %s not cleaned up", leftover)
			}
		})
	}
}

func TestStreamsOnlyWithBroker(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if New("bin", "", logger).Streams() {
		t.Error("runner without broker should not claim to stream")
	}
	if !New("bin", "localhost:6379", logger).Streams() {
		t.Error("runner with broker should stream")
	}
}

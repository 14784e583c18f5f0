// Package process is the out-of-process sandbox realization. Each
// invocation writes the source to a uniquely named temp file, spawns the
// runtime worker binary under the execution deadline, and parses the
// result envelope from its standard output. The child is killed with a
// forcible signal when the deadline elapses; cooperative shutdown of
// untrusted code is never relied upon.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/divitsinghall/Vortex/internal/model"
	"github.com/divitsinghall/Vortex/internal/runner"
	"github.com/divitsinghall/Vortex/internal/sandbox"
)

// stderrExcerptLen bounds how much child stderr is surfaced in error
// detail.
const stderrExcerptLen = 512

// Runner executes scripts through the vortex-runtime worker binary.
type Runner struct {
	binary    string
	redisAddr string
	tempDir   string
	logger    *slog.Logger
}

// New creates a process runner invoking the given binary. When redisAddr
// is non-empty the child streams its log events to that broker itself,
// mirroring the in-process sink path.
func New(binary, redisAddr string, logger *slog.Logger) *Runner {
	return &Runner{
		binary:    binary,
		redisAddr: redisAddr,
		tempDir:   os.TempDir(),
		logger:    logger,
	}
}

// Streams reports whether the child publishes log events live. Without a
// broker the logs surface only in the final envelope.
func (r *Runner) Streams() bool {
	return r.redisAddr != ""
}

// Execute runs one script in a child process. The temp source file is
// removed on every exit path.
func (r *Runner) Execute(ctx context.Context, spec runner.Spec) (*sandbox.Result, error) {
	path := filepath.Join(r.tempDir, fmt.Sprintf("vortex-%s.js", spec.ExecutionID))
	if err := os.WriteFile(path, []byte(spec.Source), 0o600); err != nil {
		return nil, model.Errorf(model.KindInternal, "write source file: %v", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			r.logger.Warn("remove source file", "path", path, "error", err)
		}
	}()

	args := make([]string, 0, 5)
	if r.redisAddr != "" {
		args = append(args, "-topic", spec.Topic, "-redis-addr", r.redisAddr)
	}
	args = append(args, path)

	// CommandContext delivers SIGKILL when ctx ends, so a hung or
	// malicious script cannot outlive its deadline as a zombie. WaitDelay
	// bounds how long Wait then blocks on output pipes that descendants
	// of the child may still hold open.
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return &sandbox.Result{Return: model.Empty(), Elapsed: elapsed},
				model.NewError(model.KindTimeout, "execution deadline elapsed")
		}
		return &sandbox.Result{Return: model.Empty(), Elapsed: elapsed},
			model.NewError(model.KindAborted, "execution aborted")
	}

	var env model.Envelope
	if err := json.Unmarshal(stdout.Bytes(), &env); err != nil {
		if runErr != nil {
			return nil, model.Errorf(model.KindRuntimeError,
				"runtime exited: %v: %s", runErr, excerpt(stderr.String()))
		}
		return nil, model.NewError(model.KindRuntimeError, "malformed runtime output envelope")
	}

	res := &sandbox.Result{
		Return:  returnFromOutput(env.Output),
		Logs:    sequenced(env.Logs),
		Elapsed: time.Duration(env.ExecutionTimeMs) * time.Millisecond,
	}

	if env.Error != nil {
		return res, model.NewError(envelopeErrorKind(env.Error.Kind), env.Error.Detail)
	}
	if runErr != nil {
		// Non-zero exit without an error envelope.
		return res, model.Errorf(model.KindRuntimeError,
			"runtime exited: %v: %s", runErr, excerpt(stderr.String()))
	}
	return res, nil
}

// returnFromOutput converts an envelope output field to a ReturnValue.
func returnFromOutput(out json.RawMessage) model.ReturnValue {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" || trimmed == "null" {
		return model.Empty()
	}
	return model.Value(out)
}

// sequenced restores sequence numbers dropped by the wire format.
func sequenced(events []model.LogEvent) []model.LogEvent {
	for i := range events {
		events[i].Seq = i + 1
	}
	return events
}

// envelopeErrorKind constrains child-reported kinds to the script failure
// classes; anything else is treated as a runtime error.
func envelopeErrorKind(k model.ErrorKind) model.ErrorKind {
	switch k {
	case model.KindCompileError, model.KindRuntimeError, model.KindTimeout, model.KindAborted:
		return k
	default:
		return model.KindRuntimeError
	}
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrExcerptLen {
		return s[:stderrExcerptLen] + "..."
	}
	return s
}

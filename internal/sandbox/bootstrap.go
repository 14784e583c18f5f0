package sandbox

import (
	"math"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/divitsinghall/Vortex/internal/model"
)

// Informational fields on the vortex global.
const (
	runtimeVersion  = "0.1.0"
	runtimePlatform = "vortex-runtime"
)

// bootstrap installs the fixed capability surface on the fresh heap:
// console, timers, and the explicit return channel. goja exposes only ECMA
// built-ins, so unlike engine embeddings with ambient host objects there
// is no escape hatch left to remove afterwards.
func (r *Runtime) bootstrap() {
	vm := r.vm

	jsonObj := vm.Get("JSON").ToObject(vm)
	stringify, ok := goja.AssertFunction(jsonObj.Get("stringify"))
	if !ok {
		panic("sandbox: JSON.stringify missing from fresh heap")
	}
	r.stringify = stringify

	console := vm.NewObject()
	for _, level := range []string{
		model.LevelLog, model.LevelInfo, model.LevelWarn, model.LevelError, model.LevelDebug,
	} {
		_ = console.Set(level, r.consoleFunc(level))
	}
	_ = vm.Set("console", console)

	_ = vm.Set("setTimeout", r.setTimer(false))
	_ = vm.Set("setInterval", r.setTimer(true))
	_ = vm.Set("clearTimeout", r.clearTimer)
	_ = vm.Set("clearInterval", r.clearTimer)

	vortex := vm.NewObject()
	_ = vortex.Set("version", runtimeVersion)
	_ = vortex.Set("platform", runtimePlatform)
	_ = vortex.Set("return", r.capture)
	_ = vm.Set("vortex", vortex)

	// Internal settle hook used by the source wrapper to record the async
	// IIFE's value through the same last-write-wins slot as vortex.return.
	_ = vm.Set("__vortex_capture", r.capture)
}

// consoleFunc builds one console method. All severities flow through the
// single log channel; non-log levels prefix the message with a bracketed
// tag and the event keeps the original severity.
func (r *Runtime) consoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, r.formatValue(arg))
		}
		msg := strings.Join(parts, " ")
		if level != model.LevelLog {
			msg = "[" + strings.ToUpper(level) + "] " + msg
		}
		r.appendLog(level, msg)
		return goja.Undefined()
	}
}

// formatValue stringifies one console argument: null and undefined render
// literally, objects go through the VM's JSON.stringify, and anything that
// cannot be represented falls back to its string conversion.
func (r *Runtime) formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if _, isObj := v.(*goja.Object); isObj {
		if s, err := r.stringify(goja.Undefined(), v); err == nil && !goja.IsUndefined(s) {
			return s.String()
		}
	}
	return v.String()
}

// appendLog records one log event and fires the sink synchronously so
// stream order matches evaluation order.
func (r *Runtime) appendLog(level, msg string) {
	r.seq++
	ev := model.LogEvent{
		Seq:       r.seq,
		Level:     level,
		Message:   msg,
		Timestamp: r.now().UTC(),
	}
	r.logs = append(r.logs, ev)
	if r.sink != nil {
		r.sink.Append(ev)
	}
}

// setTimer builds setTimeout or setInterval. The callback is invoked on
// the loop goroutine; a non-function first argument yields a timer that
// fires and does nothing, matching engine behavior.
func (r *Runtime) setTimer(interval bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		fn, _ := goja.AssertFunction(call.Argument(0))
		delay := coerceDelay(call.Argument(1))
		id := r.loop.schedule(delay, interval, func() error {
			if fn == nil {
				return nil
			}
			_, err := fn(goja.Undefined())
			return err
		})
		return r.vm.ToValue(id)
	}
}

// clearTimer cancels a timer or interval by id.
func (r *Runtime) clearTimer(call goja.FunctionCall) goja.Value {
	r.loop.clear(call.Argument(0).ToInteger())
	return goja.Undefined()
}

// coerceDelay clamps a script-provided delay to a non-negative integer
// millisecond count. NaN and negative values coerce to zero.
func coerceDelay(v goja.Value) time.Duration {
	ms := v.ToFloat()
	if math.IsNaN(ms) || ms < 0 {
		ms = 0
	}
	return time.Duration(math.Trunc(ms)) * time.Millisecond
}

// capture records the script's final value. Last write wins, including
// writes from timer callbacks that run after the script body returned.
func (r *Runtime) capture(call goja.FunctionCall) goja.Value {
	r.retSet = true
	r.retVal = call.Argument(0)
	return goja.Undefined()
}

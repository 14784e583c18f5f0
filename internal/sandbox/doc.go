// Package sandbox provides the isolated JavaScript runtime for function
// execution. Each Runtime wraps a fresh goja VM behind a cooperative
// single-goroutine event loop: user code, timer callbacks, and promise
// reactions all run on the loop, while native timers are scheduled on the
// Go runtime and feed completed work back through the loop's job queue.
// The capability surface exposed to scripts is fixed at bootstrap; there is
// no filesystem, network, or subprocess access.
package sandbox

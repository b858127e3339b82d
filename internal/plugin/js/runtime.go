// Package js wraps the embedded ECMAScript engine with the bounds and the
// error containment the plugin runtime requires.
package js

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
)

// Default bounds for a runtime.
const (
	DefaultExecutionTimeout = 5 * time.Second
	DefaultMaxCallStackSize = 256
	DefaultMemoryLimit      = 16 * 1024 * 1024 // advisory, not enforced by goja
)

// Runtime wraps one goja VM with execution bounding.
//
// A goja.Runtime is not goroutine-safe. The plugin runtime guarantees one
// logical caller per Runtime; the mutex here protects against accidental
// concurrent use from Go code, not against concurrent script execution.
//
// The memory limit is advisory only: goja offers no hard heap cap. Timeout
// is enforced with an interrupt watchdog armed around every invocation, and
// call-stack depth is enforced by the engine itself.
type Runtime struct {
	mu sync.Mutex
	vm *goja.Runtime

	executionTimeout time.Duration
	maxCallStackSize int
	memoryLimit      int64

	// owner holds the id of the goroutine whose invocation is in flight,
	// 0 when idle. Native callbacks use it to recognize re-entrant
	// dispatch on the same goroutine; any other goroutine must queue on
	// the mutex.
	owner atomic.Uint64

	closed bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithExecutionTimeout sets the wall-clock bound per invocation.
func WithExecutionTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.executionTimeout = d
		}
	}
}

// WithMaxCallStackSize sets the maximum script call-stack depth.
func WithMaxCallStackSize(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxCallStackSize = n
		}
	}
}

// WithMemoryLimit sets the advisory heap budget in bytes.
func WithMemoryLimit(bytes int64) Option {
	return func(r *Runtime) {
		if bytes > 0 {
			r.memoryLimit = bytes
		}
	}
}

// NewRuntime creates a bounded engine instance.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		executionTimeout: DefaultExecutionTimeout,
		maxCallStackSize: DefaultMaxCallStackSize,
		memoryLimit:      DefaultMemoryLimit,
	}
	for _, opt := range opts {
		opt(r)
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(r.maxCallStackSize)
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	r.vm = vm
	return r
}

// RunScript executes source text. The name appears in stack traces.
func (r *Runtime) RunScript(name, src string) (goja.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRuntimeClosed
	}
	return r.bounded(func() (goja.Value, error) {
		return r.vm.RunScript(name, src)
	})
}

// RunFile reads and executes a script file.
func (r *Runtime) RunFile(path string) (goja.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return r.RunScript(path, string(src))
}

// HasGlobal reports whether a top-level function with the given name exists.
func (r *Runtime) HasGlobal(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	v := r.vm.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return false
	}
	_, ok := goja.AssertFunction(v)
	return ok
}

// CallGlobal invokes a top-level function by name. The found result is false
// when no such global exists, which callers treat as a no-op; any script
// exception, bound violation, or panic is returned as err and never
// propagates as a fault.
func (r *Runtime) CallGlobal(name string, args ...any) (v goja.Value, found bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, false, ErrRuntimeClosed
	}

	fnVal := r.vm.Get(name)
	if fnVal == nil || goja.IsUndefined(fnVal) || goja.IsNull(fnVal) {
		return nil, false, nil
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, true, fmt.Errorf("%w: %s", ErrNotAFunction, name)
	}

	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = r.vm.ToValue(a)
	}

	v, err = r.bounded(func() (goja.Value, error) {
		return fn(goja.Undefined(), jsArgs...)
	})
	return v, true, err
}

// CallFunction invokes a script function value. When called from the
// goroutine whose invocation is already in flight (a native callback
// dispatching back into script, e.g. an event listener fired by an emit
// from script code) the call runs directly under the already-armed
// watchdog. Any other caller, including one arriving while an invocation
// is in flight on a different goroutine, queues on the mutex and runs
// bounded like a top-level invocation; the engine is never entered
// concurrently.
func (r *Runtime) CallFunction(fn goja.Callable, args ...any) (v goja.Value, err error) {
	if fn == nil {
		return nil, ErrNotAFunction
	}

	if gid := goroutineID(); gid != 0 && r.owner.Load() == gid {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("script panic: %v", rec)
			}
		}()
		return fn(goja.Undefined(), r.toValues(args)...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRuntimeClosed
	}
	jsArgs := r.toValues(args)
	return r.bounded(func() (goja.Value, error) {
		return fn(goja.Undefined(), jsArgs...)
	})
}

func (r *Runtime) toValues(args []any) []goja.Value {
	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = r.vm.ToValue(a)
	}
	return jsArgs
}

// SetGlobal sets a global value in the script scope.
func (r *Runtime) SetGlobal(name string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRuntimeClosed
	}
	return r.vm.Set(name, value)
}

// DeleteGlobal removes a global from the script scope.
func (r *Runtime) DeleteGlobal(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.vm.GlobalObject().Delete(name)
}

// VM exposes the underlying engine for capability modules that need to build
// native objects. Callers must hold to the single-caller discipline.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// MemoryLimit returns the advisory heap budget.
func (r *Runtime) MemoryLimit() int64 {
	return r.memoryLimit
}

// IsClosed reports whether Close has been called.
func (r *Runtime) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close releases the engine reference. Safe to call more than once.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.vm.Interrupt(ErrRuntimeClosed)
	r.closed = true
	r.vm = nil
}

// goroutineID extracts the current goroutine's id from its stack header
// ("goroutine N [running]: ..."). Ids start at 1, so 0 is free to mean
// "no owner".
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// timeoutSentinel marks watchdog interrupts so they can be told apart from
// other interrupt causes.
type timeoutSentinel struct{}

// bounded runs fn under the watchdog with panic recovery. Must be called
// with the mutex held.
func (r *Runtime) bounded(fn func() (goja.Value, error)) (v goja.Value, err error) {
	vm := r.vm
	timer := time.AfterFunc(r.executionTimeout, func() {
		vm.Interrupt(timeoutSentinel{})
	})
	r.owner.Store(goroutineID())

	defer func() {
		r.owner.Store(0)
		timer.Stop()
		vm.ClearInterrupt()
		if rec := recover(); rec != nil {
			err = fmt.Errorf("script panic: %v", rec)
		}
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if _, ok := interrupted.Value().(timeoutSentinel); ok {
				err = fmt.Errorf("%w after %s", ErrExecutionTimeout, r.executionTimeout)
			}
		}
	}()

	return fn()
}

// ExceptionMessage extracts the thrown value's message from a script error,
// falling back to the error text.
func ExceptionMessage(err error) string {
	if err == nil {
		return ""
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.Value().String()
	}
	return err.Error()
}

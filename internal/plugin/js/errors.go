package js

import "errors"

// Errors for engine operations.
var (
	// ErrRuntimeClosed is returned when operating on a closed runtime.
	ErrRuntimeClosed = errors.New("js runtime is closed")

	// ErrExecutionTimeout is returned when a script invocation exceeds its
	// wall-clock bound.
	ErrExecutionTimeout = errors.New("js execution timeout")

	// ErrNotAFunction is returned when a named global exists but is not
	// callable.
	ErrNotAFunction = errors.New("global is not a function")
)

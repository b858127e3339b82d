package plugin

// State represents the lifecycle state of a plugin context.
type State int

// Context states.
const (
	// StateCreated - Engine instantiated with its bounds, no script run.
	StateCreated State = iota

	// StateScriptLoaded - Entry file executed, top-level declarations
	// registered, onLoad not yet invoked.
	StateScriptLoaded

	// StateLoaded - onLoad completed successfully.
	StateLoaded

	// StateUnloaded - onUnload invoked; the context can be disposed.
	StateUnloaded

	// StateDisposed - Engine reference released.
	StateDisposed

	// StateFailed - Script load or lifecycle hook failed; the context is
	// discarded without blocking other plugins.
	StateFailed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateScriptLoaded:
		return "script-loaded"
	case StateLoaded:
		return "loaded"
	case StateUnloaded:
		return "unloaded"
	case StateDisposed:
		return "disposed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsLive returns true if the context still owns an engine instance.
func (s State) IsLive() bool {
	return s != StateDisposed
}

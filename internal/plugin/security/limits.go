package security

import "time"

// ResourceLimits bounds a single plugin's script engine. The memory limit is
// advisory: goja provides no hard heap cap, so the host samples usage and
// treats the value as a budget rather than a fence. Timeout and stack depth
// are enforced by the engine per invocation.
type ResourceLimits struct {
	// MemoryLimit is the advisory heap budget in bytes.
	MemoryLimit int64

	// ExecutionTimeout is the wall-clock bound per script invocation.
	ExecutionTimeout time.Duration

	// MaxCallStackSize is the maximum script call-stack depth.
	MaxCallStackSize int

	// NetworkTimeout is the default timeout for network capability calls.
	NetworkTimeout time.Duration
}

// DefaultResourceLimits returns the limits applied to ordinary plugins.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MemoryLimit:      16 * 1024 * 1024,
		ExecutionTimeout: 5 * time.Second,
		MaxCallStackSize: 256,
		NetworkTimeout:   30 * time.Second,
	}
}

// StrictResourceLimits returns tighter limits for untrusted plugins.
func StrictResourceLimits() ResourceLimits {
	return ResourceLimits{
		MemoryLimit:      4 * 1024 * 1024,
		ExecutionTimeout: 1 * time.Second,
		MaxCallStackSize: 64,
		NetworkTimeout:   5 * time.Second,
	}
}

// RelaxedResourceLimits returns looser limits for trusted plugins.
func RelaxedResourceLimits() ResourceLimits {
	return ResourceLimits{
		MemoryLimit:      64 * 1024 * 1024,
		ExecutionTimeout: 30 * time.Second,
		MaxCallStackSize: 1024,
		NetworkTimeout:   120 * time.Second,
	}
}

// LimitsByName maps a preset name from the app config to limits.
// Unknown names fall back to the default preset.
func LimitsByName(name string) ResourceLimits {
	switch name {
	case "strict":
		return StrictResourceLimits()
	case "relaxed":
		return RelaxedResourceLimits()
	default:
		return DefaultResourceLimits()
	}
}

package plugin

import (
	"fmt"
	"sync"

	"github.com/overglass/overglass/internal/logging"
	"github.com/overglass/overglass/internal/plugin/api"
	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// Hook names looked up in a plugin's global scope.
const (
	HookOnLoad   = "onLoad"
	HookOnUnload = "onUnload"
)

// Context owns one plugin instance: its engine, its config store, its
// capability surface and its lifecycle state. A Context is driven only by
// the Host; script failures are recorded on the Context and surfaced as
// boolean results, never as panics or host errors.
type Context struct {
	mu sync.Mutex

	manifest  *Manifest
	sourceDir string
	configDir string

	config  *Config
	runtime *js.Runtime
	surface *api.Surface

	state    State
	loaded   bool
	lastErr  string
	disposed bool

	log *logging.Logger
}

// NewContext builds a Context in the Created state with a fresh bounded
// engine. The manifest must already be validated.
func NewContext(manifest *Manifest, sourceDir, configDir string, cfg *Config, limits security.ResourceLimits, log *logging.Logger) *Context {
	if log == nil {
		log = logging.Nop()
	}
	rt := js.NewRuntime(
		js.WithExecutionTimeout(limits.ExecutionTimeout),
		js.WithMaxCallStackSize(limits.MaxCallStackSize),
		js.WithMemoryLimit(limits.MemoryLimit),
	)
	return &Context{
		manifest:  manifest,
		sourceDir: sourceDir,
		configDir: configDir,
		config:    cfg,
		runtime:   rt,
		state:     StateCreated,
		log:       log.Plugin(manifest.ID),
	}
}

// ID returns the plugin identifier.
func (c *Context) ID() string { return c.manifest.ID }

// Manifest returns the plugin's manifest.
func (c *Context) Manifest() *Manifest { return c.manifest }

// SourceDir returns the read-only plugin source directory.
func (c *Context) SourceDir() string { return c.sourceDir }

// ConfigDir returns the writable per-profile config directory.
func (c *Context) ConfigDir() string { return c.configDir }

// Config returns the plugin's settings store.
func (c *Context) Config() *Config { return c.config }

// Runtime exposes the engine, for tests and the Host.
func (c *Context) Runtime() *js.Runtime { return c.runtime }

// Surface returns the capability surface, nil before CallOnLoad.
func (c *Context) Surface() *api.Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface
}

// State returns the lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsLoaded reports whether onLoad has completed successfully.
func (c *Context) IsLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// LastError returns the most recent recorded script error, "" when none.
func (c *Context) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Context) recordError(err error) {
	c.mu.Lock()
	c.lastErr = js.ExceptionMessage(err)
	c.mu.Unlock()
}

// LoadScript executes the manifest's entry file. Missing file, parse error
// and runtime error all return false with LastError set.
func (c *Context) LoadScript() bool {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	path := c.manifest.MainPath(c.sourceDir)
	if _, err := c.runtime.RunFile(path); err != nil {
		c.recordError(err)
		c.mu.Lock()
		c.state = StateFailed
		c.mu.Unlock()
		c.log.Error().Str("script", path).Str("error", js.ExceptionMessage(err)).Msg("entry script failed")
		return false
	}

	c.mu.Lock()
	c.state = StateScriptLoaded
	c.mu.Unlock()
	return true
}

// InvokeFunction calls a global script function if it exists. An absent
// global is a no-op success; a script exception is recorded and returned as
// false.
func (c *Context) InvokeFunction(name string, args ...any) bool {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	_, found, err := c.runtime.CallGlobal(name, args...)
	if !found {
		return true
	}
	if err != nil {
		c.recordError(err)
		c.log.Warn().Str("function", name).Str("error", js.ExceptionMessage(err)).Msg("script function failed")
		return false
	}
	return true
}

// CallOnLoad injects the capability surface into the sandbox's global scope
// and invokes the onLoad hook. Loaded is set only when both steps succeed.
func (c *Context) CallOnLoad(surface *api.Surface) bool {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	c.surface = surface
	c.mu.Unlock()

	if err := surface.Inject(c.runtime); err != nil {
		c.recordError(fmt.Errorf("inject api: %w", err))
		c.log.Error().Err(err).Msg("capability surface injection failed")
		return false
	}

	if !c.InvokeFunction(HookOnLoad) {
		return false
	}

	c.mu.Lock()
	c.loaded = true
	c.state = StateLoaded
	c.mu.Unlock()
	return true
}

// CallOnUnload invokes the onUnload hook and detaches the capability
// surface. Loaded is cleared unconditionally so a failing hook cannot leave
// the Context stuck loaded.
func (c *Context) CallOnUnload() bool {
	ok := c.InvokeFunction(HookOnUnload)

	c.mu.Lock()
	c.loaded = false
	c.state = StateUnloaded
	surface := c.surface
	c.mu.Unlock()

	if surface != nil {
		surface.Remove(c.runtime)
	}
	return ok
}

// Dispose unloads if still loaded and releases the engine. Safe to call
// more than once.
func (c *Context) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	loaded := c.loaded
	c.mu.Unlock()

	if loaded {
		c.CallOnUnload()
	}

	c.mu.Lock()
	c.disposed = true
	c.state = StateDisposed
	c.mu.Unlock()

	c.runtime.Close()
}

package api

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"

	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

const storageExt = ".json"

// StorageModule gives a plugin a private key/value file store under its
// config directory. Every operation is independently fail-soft: a bad key
// or an I/O failure yields false/null/empty, never a script exception.
type StorageModule struct {
	deps *Deps
}

// NewStorageModule creates the storage capability.
func NewStorageModule(deps *Deps) *StorageModule {
	return &StorageModule{deps: deps}
}

// Name returns the capability name.
func (m *StorageModule) Name() string { return "storage" }

// RequiredPermission returns the gating permission.
func (m *StorageModule) RequiredPermission() security.Permission {
	return security.PermissionStorage
}

// validStorageKey rejects blank keys and anything that could escape the
// storage directory or produce an invalid file name.
func validStorageKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, `/\:*?"<>|`)
}

func (m *StorageModule) keyPath(key string) string {
	return filepath.Join(m.deps.StorageDir, key+storageExt)
}

// Register attaches the storage object to the api root.
func (m *StorageModule) Register(rt *js.Runtime, root *goja.Object) error {
	vm := rt.VM()
	obj := vm.NewObject()
	log := m.deps.Log.Plugin(m.deps.PluginID)

	if err := obj.Set("save", func(call goja.FunctionCall) goja.Value {
		key := strings.TrimSpace(call.Argument(0).String())
		if !validStorageKey(key) {
			return vm.ToValue(false)
		}
		data, err := json.Marshal(call.Argument(1).Export())
		if err != nil {
			log.Warn().Str("key", key).Err(err).Msg("storage value not serializable")
			return vm.ToValue(false)
		}
		if err := os.MkdirAll(m.deps.StorageDir, 0o755); err != nil {
			log.Warn().Err(err).Msg("storage dir create failed")
			return vm.ToValue(false)
		}
		if err := os.WriteFile(m.keyPath(key), data, 0o644); err != nil {
			log.Warn().Str("key", key).Err(err).Msg("storage write failed")
			return vm.ToValue(false)
		}
		return vm.ToValue(true)
	}); err != nil {
		return err
	}
	if err := obj.Set("load", func(call goja.FunctionCall) goja.Value {
		key := strings.TrimSpace(call.Argument(0).String())
		if !validStorageKey(key) {
			return goja.Null()
		}
		data, err := os.ReadFile(m.keyPath(key))
		if err != nil {
			return goja.Null()
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			log.Warn().Str("key", key).Err(err).Msg("storage entry corrupt")
			return goja.Null()
		}
		return vm.ToValue(v)
	}); err != nil {
		return err
	}
	if err := obj.Set("delete", func(call goja.FunctionCall) goja.Value {
		key := strings.TrimSpace(call.Argument(0).String())
		if !validStorageKey(key) {
			return vm.ToValue(false)
		}
		if err := os.Remove(m.keyPath(key)); err != nil {
			return vm.ToValue(false)
		}
		return vm.ToValue(true)
	}); err != nil {
		return err
	}
	if err := obj.Set("exists", func(call goja.FunctionCall) goja.Value {
		key := strings.TrimSpace(call.Argument(0).String())
		if !validStorageKey(key) {
			return vm.ToValue(false)
		}
		_, err := os.Stat(m.keyPath(key))
		return vm.ToValue(err == nil)
	}); err != nil {
		return err
	}
	if err := obj.Set("list", func(call goja.FunctionCall) goja.Value {
		entries, err := os.ReadDir(m.deps.StorageDir)
		if err != nil {
			return vm.ToValue([]string{})
		}
		keys := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), storageExt) {
				continue
			}
			keys = append(keys, strings.TrimSuffix(e.Name(), storageExt))
		}
		return vm.ToValue(keys)
	}); err != nil {
		return err
	}

	return root.Set(m.Name(), obj)
}

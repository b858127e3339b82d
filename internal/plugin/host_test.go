package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overglass/overglass/internal/player"
	"github.com/overglass/overglass/internal/window"
)

// dirResolver is a test ProfileResolver over plain directory maps.
type dirResolver struct {
	names   map[string]string
	plugins map[string][]string
	sources map[string]string
	configs map[string]string
}

func newDirResolver() *dirResolver {
	return &dirResolver{
		names:   make(map[string]string),
		plugins: make(map[string][]string),
		sources: make(map[string]string),
		configs: make(map[string]string),
	}
}

func (r *dirResolver) ProfileName(profileID string) (string, bool) {
	name, ok := r.names[profileID]
	return name, ok
}

func (r *dirResolver) SubscribedPlugins(profileID string) []string {
	return r.plugins[profileID]
}

func (r *dirResolver) SourceDir(profileID, pluginID string) (string, error) {
	if dir, ok := r.sources[pluginID]; ok {
		return dir, nil
	}
	return "", ErrPluginNotFound
}

func (r *dirResolver) ConfigDir(profileID, pluginID string) string {
	return r.configs[profileID+"/"+pluginID]
}

// installPlugin writes a plugin source dir and registers it with the
// resolver under the given profile.
func installPlugin(t *testing.T, r *dirResolver, profileID, pluginID, script string, manifest map[string]any) {
	t.Helper()

	if manifest == nil {
		manifest = map[string]any{}
	}
	for k, v := range map[string]any{"id": pluginID, "name": pluginID, "version": "1.0.0", "main": "main.js"} {
		if _, ok := manifest[k]; !ok {
			manifest[k] = v
		}
	}

	sourceDir := t.TempDir()
	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, ManifestFileName), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "main.js"), []byte(script), 0o644))

	r.names[profileID] = profileID
	r.plugins[profileID] = append(r.plugins[profileID], pluginID)
	r.sources[pluginID] = sourceDir
	r.configs[profileID+"/"+pluginID] = t.TempDir()
}

func TestHostLoadPluginsForProfile(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "a", `function onLoad() {}`, nil)
	installPlugin(t, r, "g1", "b", `var ready = true;`, nil)

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	report, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, report.Loaded)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []string{"a", "b"}, host.PluginIDs())
	assert.Equal(t, "g1", host.CurrentProfile())
}

func TestHostUnknownProfile(t *testing.T) {
	host := NewHost(newDirResolver())
	_, err := host.LoadPluginsForProfile("nope")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestHostProfileSwitchDrainsPrevious(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "a", `
		function onUnload() { og.config.set("unloaded", true); }
	`, map[string]any{"permissions": []string{}})
	installPlugin(t, r, "g1", "b", ``, nil)
	installPlugin(t, r, "g2", "c", ``, nil)

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	_, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, host.PluginIDs())

	aCfg := LoadConfig("a", r.configs["g1/a"], nil)
	require.False(t, aCfg.GetBool("unloaded", false))

	report, err := host.LoadPluginsForProfile("g2")
	require.NoError(t, err)

	// The live set is exactly profile g2's plugins; g1's hooks ran.
	assert.Equal(t, []string{"c"}, report.Loaded)
	assert.Equal(t, []string{"c"}, host.PluginIDs())
	assert.Equal(t, "g2", host.CurrentProfile())

	aCfg = LoadConfig("a", r.configs["g1/a"], nil)
	assert.True(t, aCfg.GetBool("unloaded", false), "onUnload persisted through config")
}

func TestHostSkipsInvalidManifest(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "good", ``, nil)
	installPlugin(t, r, "g1", "bad", ``, map[string]any{"version": "  "})

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	report, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	assert.Equal(t, []string{"good"}, report.Loaded)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "bad", report.Skipped[0].PluginID)
	assert.Empty(t, report.Failed)
}

func TestHostSkipsDisabledPlugin(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "off", ``, nil)

	cfg := LoadConfig("off", r.configs["g1/off"], nil)
	cfg.SetEnabled(false)

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	report, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	assert.Empty(t, report.Loaded)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, ErrPluginDisabled.Error(), report.Skipped[0].Reason)
}

func TestHostScriptFailureDoesNotAbortLoop(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "boom", `throw new Error("dead on arrival");`, nil)
	installPlugin(t, r, "g1", "alive", ``, nil)

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	report, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	assert.Equal(t, []string{"alive"}, report.Loaded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "boom", report.Failed[0].PluginID)
	assert.Contains(t, report.Failed[0].Reason, "dead on arrival")
}

func TestHostDuplicatePluginID(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "twin", ``, nil)
	installPlugin(t, r, "g1", "twin-again", ``, map[string]any{"id": "twin"})

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	report, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	assert.Equal(t, []string{"twin"}, report.Loaded)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, ErrDuplicatePlugin.Error(), report.Skipped[0].Reason)
}

func TestHostUnsubscribePlugin(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "going", ``, nil)
	installPlugin(t, r, "g1", "staying", ``, nil)

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	_, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	goingCfg := r.configs["g1/going"]
	stayingCfg := r.configs["g1/staying"]
	require.DirExists(t, goingCfg)

	require.NoError(t, host.UnsubscribePlugin("going"))

	// Exactly the unsubscribed plugin's config dir is deleted; its
	// source dir and siblings are untouched.
	assert.NoDirExists(t, goingCfg)
	assert.DirExists(t, stayingCfg)
	assert.DirExists(t, r.sources["going"])
	assert.Equal(t, []string{"staying"}, host.PluginIDs())

	// Unsubscribing an absent plugin is an idempotent success.
	require.NoError(t, host.UnsubscribePlugin("going"))
	require.NoError(t, host.UnsubscribePlugin("never-existed"))
}

func TestHostBroadcast(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "listener", `
		function onLoad() {
			og.events.on("profileChanged", function (data) {
				og.config.set("sawProfile", data.profileId);
			});
		}
	`, map[string]any{"permissions": []string{"events"}})

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	_, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	host.Broadcast("profileChanged", map[string]any{"profileId": "g2"})

	cfg := LoadConfig("listener", r.configs["g1/listener"], nil)
	assert.Equal(t, "g2", cfg.GetString("sawProfile", ""))
}

func TestHostEnableDisable(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "toggled", ``, nil)

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	_, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)
	require.Equal(t, 1, host.Count())

	require.NoError(t, host.DisablePlugin("toggled"))
	assert.Zero(t, host.Count())

	cfg := LoadConfig("toggled", r.configs["g1/toggled"], nil)
	assert.False(t, cfg.Enabled())

	require.NoError(t, host.EnablePlugin("toggled"))
	assert.Equal(t, 1, host.Count())
}

func TestHostDefaultConfigApplied(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "defaulted", ``, map[string]any{
		"defaultConfig": map[string]any{"display": map[string]any{"mode": "bottom"}},
	})

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	_, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	ctx, err := host.Plugin("defaulted")
	require.NoError(t, err)
	assert.Equal(t, "bottom", ctx.Config().GetString("display.mode", ""))
}

func TestHostPermissionGatingEndToEnd(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "gated", `
		function onLoad() {
			og.config.set("overlayType", typeof og.overlay);
			og.config.set("networkType", typeof og.network);
		}
	`, map[string]any{"permissions": []string{"overlay"}})

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	_, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	ctx, err := host.Plugin("gated")
	require.NoError(t, err)
	// No overlay provider is wired, so the module is absent even with
	// the permission granted; network lacks the permission entirely.
	assert.Equal(t, "undefined", ctx.Config().GetString("overlayType", ""))
	assert.Equal(t, "undefined", ctx.Config().GetString("networkType", ""))
}

func TestHostEnableRejectsUnsubscribedPlugin(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "a", ``, nil)
	installPlugin(t, r, "g2", "outsider", ``, nil)

	host := NewHost(r)
	defer host.UnloadAllPlugins()

	_, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	// A plugin subscribed to a different profile must not join the live
	// set, even though the resolver can locate its source.
	err = host.EnablePlugin("outsider")
	require.ErrorIs(t, err, ErrPluginNotSubscribed)
	assert.Equal(t, []string{"a"}, host.PluginIDs())
	assert.Equal(t, "g1", host.CurrentProfile())

	require.ErrorIs(t, host.DisablePlugin("outsider"), ErrPluginNotSubscribed)
}

func TestHostPlayerEventDeliveredOnce(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "deck", `
		function onLoad() {
			og.events.on("playStateChanged", function () {
				og.config.set("plays", og.config.get("plays", 0) + 1);
			});
			og.events.on("start", function () { og.player.play(); });
		}
	`, map[string]any{"permissions": []string{"player", "events"}})

	var host *Host
	p := player.New(nil, player.WithNotifier(func(event string, data map[string]any) {
		host.Broadcast(event, data)
	}))
	host = NewHost(r, WithPlayerProvider(p))
	defer host.UnloadAllPlugins()

	report, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)
	require.Equal(t, []string{"deck"}, report.Loaded)

	// The initiating plugin sees its own play() exactly once, through the
	// model's notifier; a repeated play() is not a transition at all.
	host.Broadcast("start", nil)
	host.Broadcast("start", nil)

	ctx, err := host.Plugin("deck")
	require.NoError(t, err)
	assert.Equal(t, 1.0, ctx.Config().GetFloat("plays", 0))
}

func TestHostWindowEventDeliveredOnce(t *testing.T) {
	r := newDirResolver()
	installPlugin(t, r, "g1", "dimmer", `
		function onLoad() {
			og.events.on("opacityChanged", function () {
				og.config.set("changes", og.config.get("changes", 0) + 1);
			});
			og.events.on("dim", function () { og.window.setOpacity(0.5); });
		}
	`, map[string]any{"permissions": []string{"window", "events"}})

	var host *Host
	w := window.New(nil, func(event string, data map[string]any) {
		host.Broadcast(event, data)
	})
	host = NewHost(r, WithWindowProvider(w))
	defer host.UnloadAllPlugins()

	_, err := host.LoadPluginsForProfile("g1")
	require.NoError(t, err)

	host.Broadcast("dim", nil)
	host.Broadcast("dim", nil)

	ctx, err := host.Plugin("dimmer")
	require.NoError(t, err)
	assert.Equal(t, 1.0, ctx.Config().GetFloat("changes", 0), "second identical setOpacity is not a transition")
}

package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SettingsFileName is the optional settings UI descriptor in a plugin's
// source directory.
const SettingsFileName = "settings.json"

// Item types the settings UI can render.
var settingsItemTypes = map[string]struct{}{
	"toggle": {},
	"number": {},
	"slider": {},
	"text":   {},
	"select": {},
	"color":  {},
}

// SettingsItem is one control in the settings UI, bound to a dotted config
// key.
type SettingsItem struct {
	Type    string   `json:"type"`
	Key     string   `json:"key"`
	Label   string   `json:"label,omitempty"`
	Default any      `json:"default,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Options []string `json:"options,omitempty"`
}

// SettingsSection groups items under a heading.
type SettingsSection struct {
	Title string         `json:"title,omitempty"`
	Items []SettingsItem `json:"items"`
}

// SettingsDescriptor is the declarative description of a plugin's settings
// UI. A renderer walks sections and items; nothing here is executable.
type SettingsDescriptor struct {
	Sections []SettingsSection `json:"sections"`
}

// LoadSettingsDescriptor reads a plugin's settings.json. A missing file is
// (nil, nil); a malformed or invalid one is an error.
func LoadSettingsDescriptor(sourceDir string) (*SettingsDescriptor, error) {
	data, err := os.ReadFile(filepath.Join(sourceDir, SettingsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read settings descriptor: %w", err)
	}

	var d SettingsDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse settings descriptor: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *SettingsDescriptor) validate() error {
	for si, sec := range d.Sections {
		for ii, item := range sec.Items {
			if strings.TrimSpace(item.Key) == "" {
				return fmt.Errorf("settings descriptor: section %d item %d has no key", si, ii)
			}
			if _, ok := settingsItemTypes[item.Type]; !ok {
				return fmt.Errorf("settings descriptor: item %q has unknown type %q", item.Key, item.Type)
			}
		}
	}
	return nil
}

// Defaults flattens the descriptor's per-item defaults into a dotted-key
// map, usable with the config store's defaults merge.
func (d *SettingsDescriptor) Defaults() map[string]any {
	out := make(map[string]any)
	for _, sec := range d.Sections {
		for _, item := range sec.Items {
			if item.Default != nil {
				out[item.Key] = item.Default
			}
		}
	}
	return out
}

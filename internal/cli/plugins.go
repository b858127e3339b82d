package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/overglass/overglass/internal/plugin"
)

func newPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect the plugin library",
	}

	cmd.AddCommand(newPluginsListCmd())
	cmd.AddCommand(newPluginsInfoCmd())
	return cmd
}

func newPluginsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List plugins in the shared library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entries, err := os.ReadDir(cfg.LibraryDir)
			if err != nil {
				return fmt.Errorf("read library: %w", err)
			}
			found := false
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				m, err := plugin.LoadManifestFromDir(filepath.Join(cfg.LibraryDir, e.Name()))
				if err != nil {
					log.Warn().Str("dir", e.Name()).Err(err).Msg("invalid plugin skipped")
					continue
				}
				found = true
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.ID, m.Version, m.Name)
			}
			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "no plugins in library")
			}
			return nil
		},
	}
}

func newPluginsInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show a plugin's manifest details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			m, err := plugin.LoadManifestFromDir(filepath.Join(cfg.LibraryDir, args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:          %s\n", m.ID)
			fmt.Fprintf(out, "name:        %s\n", m.Name)
			fmt.Fprintf(out, "version:     %s\n", m.Version)
			fmt.Fprintf(out, "main:        %s\n", m.Main)
			if m.Description != "" {
				fmt.Fprintf(out, "description: %s\n", m.Description)
			}
			if m.Author != "" {
				fmt.Fprintf(out, "author:      %s\n", m.Author)
			}
			if len(m.Permissions) > 0 {
				fmt.Fprintf(out, "permissions: %s\n", strings.Join(m.Permissions, ", "))
			}
			if len(m.HTTPAllowedURLs) > 0 {
				fmt.Fprintf(out, "network:     %s\n", strings.Join(m.HTTPAllowedURLs, ", "))
			}
			return nil
		},
	}
}

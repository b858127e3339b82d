// Package cli implements the overglass command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/overglass/overglass/internal/config"
	"github.com/overglass/overglass/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overglass",
		Short: "Overglass, a floating video overlay with an ECMAScript plugin runtime",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.overglass/overglass.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, silent)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newProfilesCmd())
	cmd.AddCommand(newPluginsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	cfg.Resolve(paths)
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, paths.EnsureDirs()
}

package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/overglass/overglass/internal/app"
)

func newRunCmd() *cobra.Command {
	var profileID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the Overglass host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a := app.New(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.Log.Info().Str("profile", profileID).Str("version", app.Version).Msg("overglass starting")
			return a.Run(ctx, profileID)
		},
	}

	cmd.Flags().StringVarP(&profileID, "profile", "p", "", "profile to load at startup")
	return cmd
}

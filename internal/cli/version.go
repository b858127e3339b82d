package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overglass/overglass/internal/app"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the Overglass version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "overglass", app.Version)
		},
	}
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/overglass/overglass/internal/profile"
)

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage profiles and their plugin subscriptions",
	}

	cmd.AddCommand(newProfilesListCmd())
	cmd.AddCommand(newProfilesCreateCmd())
	cmd.AddCommand(newProfilesDeleteCmd())
	cmd.AddCommand(newProfilesSubscribeCmd())
	cmd.AddCommand(newProfilesUnsubscribeCmd())
	return cmd
}

func openProfiles() (*profile.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return profile.NewManager(cfg.LibraryDir, cfg.ProfilesDir, log), nil
}

func newProfilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openProfiles()
			if err != nil {
				return err
			}
			profiles := m.List()
			if len(profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no profiles")
				return nil
			}
			for _, p := range profiles {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t[%s]\n", p.ID, p.Name, strings.Join(p.Plugins, ", "))
			}
			return nil
		},
	}
}

func newProfilesCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openProfiles()
			if err != nil {
				return err
			}
			return m.Create(args[0], name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the id)")
	return cmd
}

func newProfilesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openProfiles()
			if err != nil {
				return err
			}
			return m.Delete(args[0])
		},
	}
}

func newProfilesSubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <profile> <plugin>",
		Short: "Subscribe a plugin to a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openProfiles()
			if err != nil {
				return err
			}
			if _, err := m.SourceDir(args[0], args[1]); err != nil {
				return err
			}
			return m.Subscribe(args[0], args[1])
		},
	}
}

func newProfilesUnsubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe <profile> <plugin>",
		Short: "Unsubscribe a plugin from a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openProfiles()
			if err != nil {
				return err
			}
			return m.Unsubscribe(args[0], args[1])
		},
	}
}

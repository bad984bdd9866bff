package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tagtidy/tagtidy/internal/config"
)

// NewUndesiredCommand creates the undesired command group.
func NewUndesiredCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undesired",
		Short: "Manage the undesired-tags list",
		Long: `The undesired-tags list holds tags the project wants flushed out of its
datasets. Evaluate flags any item still carrying one.`,
	}
	cmd.AddCommand(newUndesiredListCommand())
	cmd.AddCommand(newUndesiredAddCommand())
	cmd.AddCommand(newUndesiredRemoveCommand())
	return cmd
}

func openStore() (*config.UndesiredStore, error) {
	cfg := config.Current()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return config.OpenUndesiredStore(cfg.UndesiredPath)
}

func newUndesiredListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List undesired tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			tags := store.Tags()
			if config.Current().Output == "json" {
				return writeJSON(cmd.OutOrStdout(), tags)
			}
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no undesired tags")
				return nil
			}
			for _, tag := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	}
}

func newUndesiredAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <tag>...",
		Short: "Add tags to the undesired list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			changed, err := store.Add(args...)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "already listed")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tags listed\n", len(store.Tags()))
			return nil
		},
	}
}

func newUndesiredRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <tag>...",
		Short: "Remove tags from the undesired list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			changed, err := store.Remove(args...)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing removed")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tags listed\n", len(store.Tags()))
			return nil
		},
	}
}

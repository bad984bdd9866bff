package commands

import (
	"github.com/spf13/cobra"
)

// NewOptionsCommand creates the options command.
func NewOptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "options [category]",
		Short: "Show the value options for a category",
		Long: `Options lists the values a category accepts, preferred values first.
Without an argument it lists every category.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := loadEngine(cmd)
			if err != nil {
				return err
			}

			ids := eng.Taxonomy().CategoryIDs()
			if len(args) == 1 {
				ids = []string{args[0]}
			}

			if cfg.Output == "json" {
				if len(args) == 1 {
					return writeJSON(cmd.OutOrStdout(), eng.HintOptions(args[0]))
				}
				out := make([]interface{}, 0, len(ids))
				for _, id := range ids {
					out = append(out, eng.HintOptions(id))
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(tableRow("CATEGORY", "OPTIONS", "FREEFORM"))
			for _, id := range ids {
				opts := eng.HintOptions(id)
				freeform := "no"
				if opts.AllowsFreeform {
					freeform = "yes"
				}
				t.AppendRow(tableRow(id, joinOrDash(opts.Options), freeform))
			}
			t.Render()
			return nil
		},
	}
}

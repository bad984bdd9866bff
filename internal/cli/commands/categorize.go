package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tagtidy/tagtidy/internal/canon"
)

// NewCategorizeCommand creates the categorize command.
func NewCategorizeCommand() *cobra.Command {
	var tagsFlag []string

	cmd := &cobra.Command{
		Use:   "categorize [tag-file]",
		Short: "Assign tags to taxonomy categories",
		Long: `Categorize canonicalizes a tag list and shows which category each tag
belongs to. Tier-3 allowlisted tags and unrecognized free text are
accepted silently and do not appear in the mapping.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(tagsFlag) == 0 {
				return fmt.Errorf("provide a tag file or --tags")
			}

			eng, cfg, err := loadEngine(cmd)
			if err != nil {
				return err
			}

			tags := splitTagArgs(tagsFlag)
			if len(args) == 1 {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				tags = append(tags, canon.SplitList(strings.TrimSpace(string(data)))...)
			}

			byCategory := eng.Categorize(tags)

			if cfg.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), byCategory)
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(tableRow("CATEGORY", "TAGS"))
			for _, id := range eng.Taxonomy().CategoryIDs() {
				if values, ok := byCategory[id]; ok {
					t.AppendRow(tableRow(id, strings.Join(values, ", ")))
				}
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tagsFlag, "tags", nil, "Ad-hoc comma-separated tag list")
	return cmd
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tagtidy/tagtidy/internal/signal"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the loaded rule documents",
		Long: `Inspect summarizes the active rule set: document versions, category
cardinalities, declared signals, and constraint counts. Useful for
verifying which documents a project actually resolves to.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			source := cfg.RulesDir
			if source == "" {
				source = "(embedded)"
			}
			fmt.Fprintf(out, "Rules:    %s\n", source)
			fmt.Fprintf(out, "Taxonomy: %s\n", eng.Taxonomy().Version)
			fmt.Fprintf(out, "Graph:    %s\n", eng.Graph().Version)
			if eng.HasPolicy() {
				fmt.Fprintf(out, "Policy:   %s\n", eng.PolicyVersion())
			} else {
				fmt.Fprintln(out, "Policy:   (none, defaults apply)")
			}
			fmt.Fprintln(out)

			ct := newTable(out)
			ct.AppendHeader(tableRow("CATEGORY", "TIER", "MIN", "MAX", "VALUES", "FREEFORM", "SINGLETON"))
			for _, cat := range eng.Taxonomy().Categories() {
				freeform := "no"
				if cat.AllowsFreeform() {
					freeform = "yes"
				}
				singleton := "no"
				if eng.Graph().Singleton(cat.ID) || cat.Max == 1 {
					singleton = "yes"
				}
				ct.AppendRow(tableRow(cat.ID, cat.Tier, cat.Min, cat.Max, len(cat.Values), freeform, singleton))
			}
			ct.Render()
			fmt.Fprintln(out)

			st := newTable(out)
			st.AppendHeader(tableRow("SIGNAL", "KIND"))
			for _, name := range eng.Graph().Names() {
				def, _ := eng.Graph().Definition(name)
				kind := "external"
				if def.Kind == signal.KindDerived {
					kind = "derived"
				}
				st.AppendRow(tableRow(name, kind))
			}
			st.Render()
			fmt.Fprintln(out)

			require, forbid, relax := 0, 0, 0
			for _, c := range eng.Graph().Constraints() {
				switch {
				case len(c.Require) > 0:
					require++
				case len(c.ForbidTags) > 0:
					forbid++
				case len(c.Relax) > 0:
					relax++
				}
			}
			fmt.Fprintf(out, "Constraints: %d require, %d forbid, %d relax\n", require, forbid, relax)
			fmt.Fprintf(out, "Tier-3 tags: %d\n", len(eng.Taxonomy().Tier3Tags()))
			return nil
		},
	}
}

// Package commands implements the tagtidy subcommands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tagtidy/tagtidy/internal/config"
	"github.com/tagtidy/tagtidy/internal/engine"
)

// loadEngine builds an engine from the active configuration.
func loadEngine(cmd *cobra.Command) (*engine.Engine, *config.Config, error) {
	cfg := config.Current()
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}
	eng, err := engine.Load(cfg.RulesDir, config.GetLogger(cmd.Context()))
	if err != nil {
		return nil, nil, fmt.Errorf("loading rules: %w", err)
	}
	return eng, cfg, nil
}

// parseSignals parses repeated name=true|false flag values.
func parseSignals(pairs []string) (map[string]bool, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	signals := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid signal %q (want name=true|false)", pair)
		}
		switch strings.ToLower(value) {
		case "true":
			signals[name] = true
		case "false":
			signals[name] = false
		default:
			return nil, fmt.Errorf("invalid signal value %q for %s (want true or false)", value, name)
		}
	}
	return signals, nil
}

// newTable returns a table writer in the house style.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// tableRow builds a row from cells.
func tableRow(cells ...interface{}) table.Row {
	return table.Row(cells)
}

// writeJSON renders v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// joinOrDash renders a string list for a table cell.
func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

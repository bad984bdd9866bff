package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tagtidy/tagtidy/internal/canon"
	"github.com/tagtidy/tagtidy/internal/config"
	"github.com/tagtidy/tagtidy/internal/engine"
	"github.com/tagtidy/tagtidy/pkg/core"
)

// evaluation is one evaluated item, shaped for JSON output.
type evaluation struct {
	Item      string     `json:"item"`
	Tags      []string   `json:"tags"`
	Hints     core.Hints `json:"hints"`
	Undesired []string   `json:"undesired,omitempty"`
	Err       string     `json:"error,omitempty"`
}

// blocking reports whether the item should fail the run.
func (e *evaluation) blocking() bool {
	return e.Err != "" ||
		len(e.Hints.MissingRequired) > 0 ||
		len(e.Hints.Forbidden) > 0 ||
		len(e.Hints.Invalid) > 0
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand() *cobra.Command {
	var (
		tagsFlag    []string
		signalPairs []string
		watchFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate [tag-file...]",
		Short: "Evaluate tag sets against the rule documents",
		Long: `Evaluate classifies each tag set and reports which categories are
missing, possibly missing, not required, forbidden, or invalid.

Tag files are plain text sidecars holding one comma-separated tag list.
Alternatively pass a single ad-hoc tag set with --tags. External signals
are supplied as repeated --signal name=true|false flags; omitted signals
stay unknown and never fire their constraints.

The command exits non-zero when any item carries a missing-required,
forbidden, or invalid finding.`,
		Example: `  tagtidy evaluate dataset/*.txt
  tagtidy evaluate --tags "front view, smile" --signal lower_body_and_ground_contact_visible=true`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(tagsFlag) == 0 {
				return fmt.Errorf("provide tag files or --tags")
			}

			eng, cfg, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			signals, err := parseSignals(signalPairs)
			if err != nil {
				return err
			}
			store, err := config.OpenUndesiredStore(cfg.UndesiredPath)
			if err != nil {
				return err
			}

			runOnce := func(eng *engine.Engine) error {
				var results []*evaluation
				if len(tagsFlag) > 0 {
					tags := splitTagArgs(tagsFlag)
					results = append(results, &evaluation{
						Item:  "(tags)",
						Tags:  tags,
						Hints: eng.Evaluate(tags, signals),
					})
				}

				fileResults := make([]*evaluation, len(args))
				g, _ := errgroup.WithContext(cmd.Context())
				g.SetLimit(runtime.NumCPU())
				for i, path := range args {
					g.Go(func() error {
						res := &evaluation{Item: filepath.Base(path)}
						data, err := os.ReadFile(path)
						if err != nil {
							res.Err = err.Error()
						} else {
							res.Tags = canon.SplitList(strings.TrimSpace(string(data)))
							res.Hints = eng.Evaluate(res.Tags, signals)
						}
						fileResults[i] = res
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					return err
				}
				results = append(results, fileResults...)

				for _, res := range results {
					for _, tag := range canon.CanonicalizeAll(res.Tags) {
						if store.Contains(tag) {
							res.Undesired = append(res.Undesired, tag)
						}
					}
					res.Undesired = canon.Dedupe(res.Undesired)
				}

				if cfg.Output == "json" {
					if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
						return err
					}
				} else {
					renderEvaluations(cmd, results)
				}

				failed := 0
				for _, res := range results {
					if res.blocking() {
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d items have blocking findings", failed, len(results))
				}
				return nil
			}

			if !watchFlag && !cfg.Watch {
				return runOnce(eng)
			}
			return watchAndRerun(cmd, cfg, runOnce)
		},
	}

	cmd.Flags().StringSliceVar(&tagsFlag, "tags", nil, "Ad-hoc comma-separated tag list")
	cmd.Flags().StringArrayVar(&signalPairs, "signal", nil, "External signal as name=true|false (repeatable)")
	cmd.Flags().BoolVar(&watchFlag, "watch", false, "Re-evaluate whenever the rules directory changes")
	return cmd
}

// watchAndRerun evaluates once, then re-evaluates every time the rules
// directory produces a successfully loadable rule set, until the context is
// canceled. Blocking findings are reported but do not stop the loop.
func watchAndRerun(cmd *cobra.Command, cfg *config.Config, runOnce func(*engine.Engine) error) error {
	if cfg.RulesDir == "" {
		return fmt.Errorf("--watch needs a rules directory (embedded rules never change)")
	}
	logger := config.GetLogger(cmd.Context())

	swapped := make(chan *engine.Engine, 1)
	reloader, err := engine.NewReloader(cfg.RulesDir, logger, func(e *engine.Engine) {
		select {
		case swapped <- e:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer reloader.Close()

	report := func(eng *engine.Engine) {
		if err := runOnce(eng); err != nil {
			logger.Warn("evaluation finished with findings", "error", err)
		}
	}
	report(reloader.Engine())

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case eng := <-swapped:
			report(eng)
		}
	}
}

// splitTagArgs flattens --tags values, each possibly comma-separated.
func splitTagArgs(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, canon.SplitList(v)...)
	}
	return out
}

func renderEvaluations(cmd *cobra.Command, results []*evaluation) {
	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(tableRow("ITEM", "MISSING", "POSSIBLY MISSING", "NOT REQUIRED", "FORBIDDEN", "INVALID", "NOTES"))

	for _, res := range results {
		notes := make([]string, 0, 2)
		if res.Err != "" {
			notes = append(notes, res.Err)
		}
		if len(res.Undesired) > 0 {
			notes = append(notes, "undesired: "+strings.Join(res.Undesired, ", "))
		}
		if len(res.Hints.Info) > 0 {
			notes = append(notes, "info: "+strings.Join(res.Hints.Info, ", "))
		}
		t.AppendRow(tableRow(
			res.Item,
			joinOrDash(res.Hints.MissingRequired),
			joinOrDash(res.Hints.PossiblyMissing),
			joinOrDash(res.Hints.NotRequired),
			joinOrDash(res.Hints.Forbidden),
			joinOrDash(res.Hints.Invalid),
			joinOrDash(notes),
		))
	}
	t.Render()
}

// Package cli provides the tagtidy command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tagtidy/tagtidy/internal/cli/commands"
	"github.com/tagtidy/tagtidy/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tagtidy",
		Short: "tagtidy - tag dataset curation assistant",
		Long: `tagtidy checks image/tag datasets against declarative rule documents.

Tags are canonicalized and categorized against a taxonomy, tri-state
signals gate conditional requirements, and a severity policy decides
which gaps block and which merely warn.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))

			ctx := context.WithValue(cmd.Context(), config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if file := config.ConfigFileUsed(); file != "" {
					logger.Debug("using config file", "path", file)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tagtidy.yaml)")
	rootCmd.PersistentFlags().String("project-dir", "", "Project root (default: searched upward for tagtidy.yaml)")
	rootCmd.PersistentFlags().String("rules", "", "Rules directory (default: embedded rule documents)")
	rootCmd.PersistentFlags().String("undesired", "", "Undesired-tags list path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))
	rootCmd.AddCommand(commands.NewEvaluateCommand())
	rootCmd.AddCommand(commands.NewCategorizeCommand())
	rootCmd.AddCommand(commands.NewOptionsCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewUndesiredCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 "Generate shell completion scripts",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}

// Package config loads tagtidy configuration from file, environment, and
// flags, and manages the project-local undesired-tags list.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultOutput        = "table"
	DefaultUndesiredFile = "undesired_tags.json"
)

// maxUpwardSearchLevels limits how far up the directory tree the project
// root search goes.
const maxUpwardSearchLevels = 10

// Config is the resolved tagtidy configuration.
type Config struct {
	// ProjectRoot anchors relative paths. Not read from documents.
	ProjectRoot string `koanf:"-"`
	// RulesDir holds the rule documents; empty means the embedded defaults.
	RulesDir string `koanf:"rules_dir"`
	// UndesiredPath is the undesired-tags list location.
	UndesiredPath string `koanf:"undesired_tags_path"`
	// Output selects the CLI rendering: table or json.
	Output string `koanf:"output"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
	// Watch keeps the process running and reloads rules on change.
	Watch bool `koanf:"watch"`
}

type loggerKey struct{}

var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// Reset clears the loaded state. Used by tests.
func Reset() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

func configExistsIn(dir string) bool {
	for _, name := range []string{"tagtidy.yaml", "tagtidy.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a tagtidy config
// file, returning empty when none is found.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot picks the directory relative paths resolve against.
// Priority: explicit --project-dir flag, upward search from the working
// directory, then the working directory itself.
func inferProjectRoot(flags *pflag.FlagSet) string {
	if flags != nil && flags.Changed("project-dir") {
		if dir, _ := flags.GetString("project-dir"); dir != "" {
			if abs, err := filepath.Abs(dir); err == nil {
				return abs
			}
			return filepath.Clean(dir)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load layers configuration sources, highest priority last:
// defaults < config file < TAGTIDY_ environment < explicitly set flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	projectRoot := inferProjectRoot(flags)
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"rules_dir":           "",
		"undesired_tags_path": DefaultUndesiredFile,
		"output":              DefaultOutput,
		"verbose":             false,
		"watch":               false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		for _, name := range []string{"tagtidy.yaml", "tagtidy.yml"} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	if err := k.Load(env.Provider("TAGTIDY_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "TAGTIDY_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// --rules maps onto rules_dir; the flag stays short for typing.
			if key == "rules" {
				return "rules_dir", posflag.FlagVal(flags, f)
			}
			if key == "undesired" {
				return "undesired_tags_path", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	cfg.RulesDir = resolvePathRelativeTo(cfg.RulesDir, projectRoot)
	cfg.UndesiredPath = resolvePathRelativeTo(cfg.UndesiredPath, projectRoot)

	switch cfg.Output {
	case "table", "json":
	default:
		return nil, fmt.Errorf("invalid output format %q (want table or json)", cfg.Output)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func ConfigFileUsed() string {
	return configFileUsed
}

// Current returns the most recently loaded configuration.
func Current() *Config {
	return currentConfig
}

// LoggerKey returns the context key for the logger, shared between the cli
// and commands packages without an import cycle.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from a command context, falling back to a
// no-op logger.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

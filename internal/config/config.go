// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/confweave/confweave/internal/issue"
	"github.com/confweave/confweave/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "confweave"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFile is the settings file looked up in the working directory.
	LocalConfigFile = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment overrides, e.g. CONFWEAVE_KEEP_GOING.
	EnvPrefix = "CONFWEAVE"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the confweave configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DefaultConfigPath returns the settings file in the config directory.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	resolvedPath, err := findConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", settingsError(resolvedPath, err,
				"Check that the file contains valid CUE syntax",
				"Verify the settings match the schema shown by 'confweave config dump'",
			)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", settingsError(resolvedPath, fmt.Errorf("failed to parse config: %w", err),
			"Check CONFWEAVE_* environment variables for malformed values",
		)
	}
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", settingsError(resolvedPath, errs[0],
			"Run 'confweave config show' to see the effective settings",
		)
	}

	return &cfg, resolvedPath, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("manifest", defaults.Manifest)
	v.SetDefault("banner", defaults.Banner)
	v.SetDefault("keep_going", defaults.KeepGoing)
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("regex_cache_size", defaults.RegexCacheSize)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce.String())
	v.SetDefault("watch.patterns", defaults.Watch.Patterns)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("watch.clear_screen", defaults.Watch.ClearScreen)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// findConfigFile picks the settings file: the explicit path, then the
// config directory, then the working directory. An empty result means
// defaults only.
func findConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", settingsError(opts.ConfigFilePath,
				fmt.Errorf("config file not found: %s", opts.ConfigFilePath),
				"Verify the file path is correct",
				"Use 'confweave config init' to create one",
			)
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	if cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(cuePath) {
		return cuePath, nil
	}
	if fileExists(LocalConfigFile) {
		return LocalConfigFile, nil
	}
	return "", nil
}

func settingsError(path string, err error, suggestions ...string) error {
	return issue.NewErrorContext().
		WithOperation("load settings").
		WithResource(path).
		WithSuggestions(suggestions...).
		WithIssue(issue.SettingsLoadFailedId).
		Wrap(err).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// This does not use cueutil.ParseAndDecode: settings decode to a map for
// Viper, every field is optional, and the result is merged rather than
// returned.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FromCUE(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FromCUE(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FromCUE(err, path)
	}
	if watch, ok := configMap["watch"].(map[string]any); ok {
		if d, ok := watch["debounce"].(string); ok {
			if _, err := time.ParseDuration(d); err != nil {
				return cueutil.Invalid(path, "watch.debounce", "%v", err)
			}
		}
	}

	// Merging keeps defaults and env overrides in effect.
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default settings to path unless a file is
// already there. It reports whether a file was written.
func CreateDefaultConfig(path string) (bool, error) {
	if fileExists(path) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}

// Schema returns the embedded CUE schema.
func Schema() string {
	return configSchema
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// confweave settings\n\n")

	fmt.Fprintf(&sb, "manifest: %q\n", cfg.Manifest)
	fmt.Fprintf(&sb, "banner: %q\n", cfg.Banner)
	fmt.Fprintf(&sb, "keep_going: %v\n", cfg.KeepGoing)
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)
	fmt.Fprintf(&sb, "regex_cache_size: %d\n", cfg.RegexCacheSize)

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	fmt.Fprintf(&sb, "\tpatterns: %s\n", cueStringList(cfg.Watch.Patterns))
	fmt.Fprintf(&sb, "\tignore: %s\n", cueStringList(cfg.Watch.Ignore))
	fmt.Fprintf(&sb, "\tclear_screen: %v\n", cfg.Watch.ClearScreen)
	sb.WriteString("}\n")

	return sb.String()
}

func cueStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = fmt.Sprintf("%q", it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// LogLevelDebug logs every loaded fragment and skipped write.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs one line per generated target.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs problems that do not stop a run.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"

	// DefaultManifest is the manifest read when none is configured.
	DefaultManifest = ".template-config.yaml"
	// DefaultBanner is the first line of every generated file.
	DefaultBanner = "# generated file. do not edit directly"
	// DefaultRegexCacheSize bounds the compiled template filter cache.
	DefaultRegexCacheSize = 128
	// DefaultDebounce is how long the watcher waits for changes to settle.
	DefaultDebounce = 500 * time.Millisecond
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
	ErrInvalidWatchConfig = errors.New("invalid watch config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of log records written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// WatchConfig configures 'confweave watch'.
	WatchConfig struct {
		// Debounce is how long to wait after the last change before regenerating.
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Patterns are extra doublestar globs to watch besides manifest inputs.
		Patterns []string `json:"patterns" mapstructure:"patterns"`
		// Ignore are doublestar globs whose changes are ignored.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
		// ClearScreen clears the terminal before each regeneration.
		ClearScreen bool `json:"clear_screen" mapstructure:"clear_screen"`
	}

	// InvalidWatchConfigError is returned when WatchConfig has invalid fields.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// Config holds confweave's settings.
	Config struct {
		// Manifest is the default generation manifest path.
		Manifest string `json:"manifest" mapstructure:"manifest"`
		// Banner is the first line written to every output. Empty disables it.
		Banner string `json:"banner" mapstructure:"banner"`
		// KeepGoing continues with the remaining targets after a failure.
		KeepGoing bool `json:"keep_going" mapstructure:"keep_going"`
		// LogLevel is the minimum level logged.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// RegexCacheSize bounds the compiled template filter cache.
		RegexCacheSize int `json:"regex_cache_size" mapstructure:"regex_cache_size"`
		// Watch configures the watch command.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
	}

	// InvalidConfigError is returned when Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error {
	return ErrInvalidLogLevel
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Slog returns the matching slog level. Unknown levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsValid returns whether the WatchConfig has a non-negative debounce and
// well-formed globs.
func (c WatchConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative, got %s", c.Debounce))
	}
	for _, p := range c.Patterns {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("watch.patterns: invalid glob %q", p))
		}
	}
	for _, p := range c.Ignore {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("watch.ignore: invalid glob %q", p))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidWatchConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidWatchConfigError.
func (e *InvalidWatchConfigError) Error() string {
	return fmt.Sprintf("invalid watch config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.Manifest) == "" {
		errs = append(errs, errors.New("manifest must not be empty"))
	}
	if strings.Contains(c.Banner, "\n") {
		errs = append(errs, errors.New("banner must be a single line"))
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.RegexCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("regex_cache_size must be positive, got %d", c.RegexCacheSize))
	}
	if valid, fieldErrs := c.Watch.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Manifest:       DefaultManifest,
		Banner:         DefaultBanner,
		KeepGoing:      false,
		LogLevel:       LogLevelInfo,
		RegexCacheSize: DefaultRegexCacheSize,
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Patterns: []string{},
			Ignore:   []string{},
		},
	}
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

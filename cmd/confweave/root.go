// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/confweave/confweave/internal/config"
	"github.com/confweave/confweave/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// dotEnvFile is loaded from the working directory before settings are read.
const dotEnvFile = ".env"

// settingsOptionalAnnotation marks commands that run with default settings
// when the settings file cannot be loaded.
const settingsOptionalAnnotation = "confweave/settings-optional"

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand builds the command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	root, _ := newRootCommand(app)
	return root
}

func newRootCommand(app *App) (*cobra.Command, *cli) {
	c := &cli{app: app}

	root := &cobra.Command{
		Use:   "confweave [files...]",
		Short: "Generate configuration files from merged fragments",
		Long: TitleStyle.Render("confweave") + SubtitleStyle.Render(" - generate configuration files from merged fragments") + `

Every target in the manifest merges its fragments in order, sorts the
sequences marked for ordering and expands templates from a component
catalogue before the result is written with a "do not edit" banner.

Files named on the command line limit generation to the targets that
read them, plus every target downstream of those.

` + SubtitleStyle.Render("Examples:") + `
  confweave                       Regenerate every target
  confweave base.yaml             Regenerate targets reading base.yaml
  confweave check                 Fail when an output is stale
  confweave render out/app.yaml   Print one target
  confweave watch                 Regenerate on change`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), args)
		},
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.flags.manifestPath, "config", "c", "", "generation manifest (default "+config.DefaultManifest+")")
	flags.BoolVarP(&c.flags.only, "only", "o", false, "treat the listed files as the complete change set, even when empty")
	flags.BoolVar(&c.flags.keepGoing, "keep-going", false, "continue with remaining targets after a failure")
	flags.StringVar(&c.flags.settingsPath, "settings", "", "settings file (default is the user config dir, then ./"+config.LocalConfigFile+")")
	flags.BoolVarP(&c.flags.verbose, "verbose", "v", false, "debug logging and full error chains")

	root.AddCommand(
		c.newCheckCommand(),
		c.newRenderCommand(),
		c.newTargetsCommand(),
		c.newWatchCommand(),
		c.newConfigCommand(),
		c.newExplainCommand(),
	)
	return root, c
}

// init loads settings and installs the process logger.
func (c *cli) init(cmd *cobra.Command) error {
	cfg, path, err := c.app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: c.flags.settingsPath})
	if err != nil {
		if _, optional := cmd.Annotations[settingsOptionalAnnotation]; !optional {
			return err
		}
		fmt.Fprintln(c.app.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, c.flags.verbose))
		cfg, path = config.DefaultConfig(), ""
	}
	c.settings, c.settingsPath = cfg, path

	level := cfg.LogLevel.Slog()
	if c.flags.verbose {
		level = slog.LevelDebug
	}
	c.app.SetLogger(newLogger(c.app.stderr, level))
	return nil
}

// newLogger returns a slog logger backed by a charm log handler.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  log.Level(level),
	})
	return slog.New(handler)
}

// Execute runs the command line against the real environment and exits
// with the status of the failed command, if any.
func Execute() {
	if err := loadDotEnv(dotEnvFile); err != nil {
		renderError(os.Stderr, err, false)
		os.Exit(1)
	}

	app := NewApp(Dependencies{})
	root, c := newRootCommand(app)

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, c.flags.verbose)
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadDotEnv exports the variables of an env file that are not already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return issue.NewErrorContext().
		WithOperation("load environment file").
		WithResource(path).
		WithSuggestion("Fix or remove the file; each line must be KEY=value").
		WithIssue(issue.SettingsLoadFailedId).
		Wrap(err).
		BuildError()
}

// formatErrorForDisplay uses the actionable format when available and the
// plain message otherwise.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

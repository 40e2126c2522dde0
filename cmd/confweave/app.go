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
	"github.com/confweave/confweave/internal/generate"
	"github.com/confweave/confweave/internal/issue"
	"github.com/confweave/confweave/internal/manifest"
	"github.com/confweave/confweave/internal/source"
	"github.com/confweave/confweave/pkg/cueutil"

	"github.com/spf13/afero"
)

type (
	// App wires the services the commands share. Tests substitute an
	// in-memory filesystem and a fixed settings provider.
	App struct {
		Config    config.Provider
		Fs        afero.Fs
		Getenv    func(string) string
		// SetLogger installs the process logger once settings are known.
		SetLogger func(*slog.Logger)
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config    config.Provider
		Fs        afero.Fs
		Getenv    func(string) string
		SetLogger func(*slog.Logger)
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// rootFlagValues holds the persistent flags.
	rootFlagValues struct {
		manifestPath string
		settingsPath string
		only         bool
		keepGoing    bool
		verbose      bool
	}

	// cli is the state shared by one command invocation.
	cli struct {
		app          *App
		flags        rootFlagValues
		settings     *config.Config
		settingsPath string
	}

	// session is a loaded manifest plus a generator configured from the
	// settings.
	session struct {
		manifest  *manifest.Manifest
		loader    *source.Loader
		generator *generate.Generator
	}
)

// NewApp builds an App, filling unset dependencies with the OS defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:    deps.Config,
		Fs:        deps.Fs,
		Getenv:    deps.Getenv,
		SetLogger: deps.SetLogger,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Fs == nil {
		app.Fs = afero.NewOsFs()
	}
	if app.Getenv == nil {
		app.Getenv = os.Getenv
	}
	if app.SetLogger == nil {
		app.SetLogger = slog.SetDefault
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// manifestPath returns the flag value, falling back to the settings.
func (c *cli) manifestPath() string {
	if c.flags.manifestPath != "" {
		return c.flags.manifestPath
	}
	if c.settings != nil && c.settings.Manifest != "" {
		return c.settings.Manifest
	}
	return config.DefaultManifest
}

func (c *cli) keepGoing() bool {
	return c.flags.keepGoing || (c.settings != nil && c.settings.KeepGoing)
}

// changedFiles turns positional arguments into the changed-file set given to
// manifest selection. Without --only an empty list selects every target.
func (c *cli) changedFiles(args []string) []string {
	if len(args) == 0 && !c.flags.only {
		return nil
	}
	return append([]string{}, args...)
}

// openSession loads the manifest and prepares a generator.
func (c *cli) openSession(_ context.Context, progress func(generate.Result)) (*session, error) {
	path := c.manifestPath()
	m, err := manifest.Load(c.app.Fs, path, manifest.WithEnv(c.app.Getenv))
	if err != nil {
		return nil, manifestError(path, err)
	}

	loader := source.NewLoader(source.WithFs(c.app.Fs))
	opts := []generate.Option{generate.WithKeepGoing(c.keepGoing())}
	if c.settings != nil {
		opts = append(opts,
			generate.WithBanner(c.settings.Banner),
			generate.WithRegexCacheSize(c.settings.RegexCacheSize),
		)
	}
	if progress != nil {
		opts = append(opts, generate.WithProgress(progress))
	}
	return &session{
		manifest:  m,
		loader:    loader,
		generator: generate.New(loader, opts...),
	}, nil
}

// manifestError attaches the matching issue and hints to a manifest
// loading failure.
func manifestError(path string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("load manifest").
		WithResource(path).
		Wrap(err)
	if errors.Is(err, fs.ErrNotExist) {
		return ctx.WithIssue(issue.ManifestNotFoundId).
			WithSuggestions(
				fmt.Sprintf("create %s in the working directory", config.DefaultManifest),
				"or point at an existing manifest with --config",
			).
			BuildError()
	}
	ctx.WithIssue(issue.ManifestInvalidId)
	var ve *cueutil.ValidationError
	if errors.As(err, &ve) {
		if i, ok := ve.Index(); ok {
			ctx.WithSuggestion(fmt.Sprintf("fix target #%d (counting from 1)", i+1))
		}
		if ve.Hint != "" {
			ctx.WithSuggestion(ve.Hint)
		}
	}
	return ctx.WithSuggestion("every target needs output, components and from").
		BuildError()
}

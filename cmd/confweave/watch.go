// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/confweave/confweave/internal/generate"
	"github.com/confweave/confweave/internal/watch"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

// watchState is the session in use by a watch loop and the absolute paths
// that feed it.
type watchState struct {
	session *session
	inputs  map[string]struct{}
}

func (c *cli) newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [files...]",
		Short: "Regenerate affected targets whenever an input changes",
		Long: `Generate once, then watch the manifest and every file it reads.
Each batch of changes regenerates the targets reading the changed files.
A change to the manifest reloads it and regenerates everything.

Debounce, extra globs and screen clearing come from the watch settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args)
		},
	}
}

func (c *cli) runWatch(ctx context.Context, args []string) error {
	s, err := c.openSession(ctx, c.progressPrinter())
	if err != nil {
		return err
	}
	var state atomic.Pointer[watchState]
	state.Store(newWatchState(s))

	c.regenerate(ctx, s, c.changedFiles(args))

	wcfg := c.settings.Watch
	root := watchRoot(state.Load())
	extra := func(path string) bool {
		return matchesExtra(wcfg.Patterns, root, path)
	}
	w, err := watch.New(watch.Config{
		BaseDir:     root,
		Ignore:      wcfg.Ignore,
		Debounce:    wcfg.Debounce,
		ClearScreen: wcfg.ClearScreen,
		Stdout:      c.app.stdout,
		Stderr:      c.app.stderr,
		Filter: func(path string) bool {
			_, ok := state.Load().inputs[path]
			return ok || extra(path)
		},
		OnChange: func(ctx context.Context, changed []string) error {
			current := state.Load()
			if slices.Contains(changed, absPath(current.session.manifest.Path)) {
				reloaded, err := c.openSession(ctx, c.progressPrinter())
				if err != nil {
					renderError(c.app.stderr, err, c.flags.verbose)
					return nil
				}
				current = newWatchState(reloaded)
				state.Store(current)
				changed = nil
			}
			if slices.ContainsFunc(changed, extra) {
				changed = nil
			}
			c.regenerate(ctx, current.session, changed)
			return nil
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.app.stdout, "%s %s\n", TitleStyle.Render("watching"), PathStyle.Render(w.BaseDir()))
	return w.Run(ctx)
}

// regenerate runs one selection and reports failures without stopping the
// caller.
func (c *cli) regenerate(ctx context.Context, s *session, changed []string) {
	targets, err := s.manifest.Select(changed)
	if err != nil {
		renderError(c.app.stderr, err, c.flags.verbose)
		return
	}
	slog.Debug("regenerating", "changed", len(changed), "targets", len(targets))
	report, err := s.generator.Run(ctx, targets, generate.NewFileSink(c.app.Fs))
	c.printSummary(report)
	if err != nil && ctx.Err() == nil {
		renderError(c.app.stderr, err, c.flags.verbose)
	}
}

// matchesExtra reports whether path matches one of the extra watch globs,
// which are relative to root. A match regenerates every target.
func matchesExtra(patterns []string, root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func newWatchState(s *session) *watchState {
	inputs := map[string]struct{}{absPath(s.manifest.Path): {}}
	for _, t := range s.manifest.Targets {
		for in := range t.Inputs() {
			inputs[absPath(in)] = struct{}{}
		}
	}
	return &watchState{session: s, inputs: inputs}
}

// watchRoot is the deepest directory containing the manifest and every input.
func watchRoot(state *watchState) string {
	var root string
	for in := range state.inputs {
		dir := filepath.Dir(in)
		if root == "" {
			root = dir
			continue
		}
		root = commonDir(root, dir)
	}
	return root
}

func commonDir(a, b string) string {
	for !isWithin(b, a) {
		parent := filepath.Dir(a)
		if parent == a {
			return a
		}
		a = parent
	}
	return a
}

func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}


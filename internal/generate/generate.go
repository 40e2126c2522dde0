// SPDX-License-Identifier: MPL-2.0

package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/confweave/confweave/internal/manifest"
	"github.com/confweave/confweave/internal/source"
	"github.com/confweave/confweave/pkg/merge"
	"github.com/confweave/confweave/pkg/template"
	"github.com/confweave/confweave/pkg/toposort"
	"github.com/confweave/confweave/pkg/tree"
)

// DefaultBanner is the first line of every generated file.
const DefaultBanner = "# generated file. do not edit directly"

type (
	// Generator renders manifest targets.
	Generator struct {
		loader         *source.Loader
		banner         string
		regexCacheSize int
		keepGoing      bool
		progress       func(Result)
	}

	// Option configures a Generator.
	Option func(*Generator)

	// Result is the outcome of one target.
	Result struct {
		Output string
		Status Status
		// Digest is the digest of the rendered content; zero on failure.
		Digest Digest
		Err    error
	}

	// Report collects the results of a run in generation order.
	Report struct {
		Results []Result
	}

	// TargetError wraps the failure of one target.
	TargetError struct {
		Output string
		Err    error
	}
)

// Error implements the error interface.
func (e *TargetError) Error() string {
	return fmt.Sprintf("generating %s: %v", e.Output, e.Err)
}

// Unwrap returns the underlying error.
func (e *TargetError) Unwrap() error {
	return e.Err
}

// WithBanner replaces DefaultBanner. An empty banner writes no banner line.
func WithBanner(banner string) Option {
	return func(g *Generator) {
		g.banner = banner
	}
}

// WithRegexCacheSize bounds the compiled template filter cache.
func WithRegexCacheSize(n int) Option {
	return func(g *Generator) {
		g.regexCacheSize = n
	}
}

// WithKeepGoing makes Run continue with the remaining targets after one
// fails.
func WithKeepGoing(keepGoing bool) Option {
	return func(g *Generator) {
		g.keepGoing = keepGoing
	}
}

// WithProgress registers a callback invoked after each target.
func WithProgress(fn func(Result)) Option {
	return func(g *Generator) {
		g.progress = fn
	}
}

// New returns a generator loading sources with loader.
func New(loader *source.Loader, opts ...Option) *Generator {
	g := &Generator{
		loader:         loader,
		banner:         DefaultBanner,
		regexCacheSize: template.DefaultRegexCacheSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Build produces the final tree of a target: the fragments merged in order,
// toposort directives resolved and templates expanded.
func (g *Generator) Build(ctx context.Context, t manifest.Target) (tree.Value, error) {
	fragments, err := g.loader.LoadAll(ctx, t.From)
	if err != nil {
		return nil, err
	}
	catalogue, err := g.catalogue(ctx, t.Components)
	if err != nil {
		return nil, err
	}
	engine, err := template.NewEngine(catalogue, template.WithRegexCacheSize(g.regexCacheSize))
	if err != nil {
		return nil, fmt.Errorf("components %s: %w", t.Components, err)
	}

	merged, err := merge.All(fragments)
	if err != nil {
		return nil, fmt.Errorf("merging fragments: %w", err)
	}
	sorted, err := toposort.Resolve(merged)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", toposort.DirectiveKey, err)
	}
	return engine.Expand(sorted)
}

// Render builds a target and serializes it with the banner line.
func (g *Generator) Render(ctx context.Context, t manifest.Target) ([]byte, error) {
	v, err := g.Build(ctx, t)
	if err != nil {
		return nil, err
	}
	body, err := g.loader.Codec().EncodeYAML(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if g.banner != "" {
		buf.WriteString(g.banner)
		buf.WriteByte('\n')
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// Run renders each target in order and hands the content to sink. Unless
// keep-going is set, the first failure stops the run. The returned error
// joins every *TargetError.
func (g *Generator) Run(ctx context.Context, targets []manifest.Target, sink Sink) (*Report, error) {
	report := &Report{Results: make([]Result, 0, len(targets))}
	var errs []error
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		slog.Info("generating", "output", t.Output)

		res := g.runOne(ctx, t, sink)
		report.Results = append(report.Results, res)
		if g.progress != nil {
			g.progress(res)
		}
		if res.Err != nil {
			errs = append(errs, &TargetError{Output: t.Output, Err: res.Err})
			if !g.keepGoing {
				break
			}
		}
	}
	return report, errors.Join(errs...)
}

func (g *Generator) runOne(ctx context.Context, t manifest.Target, sink Sink) Result {
	content, err := g.Render(ctx, t)
	if err != nil {
		return Result{Output: t.Output, Status: StatusFailed, Err: err}
	}
	status, err := sink.Put(ctx, t.Output, content)
	if err != nil {
		return Result{Output: t.Output, Status: StatusFailed, Err: err}
	}
	return Result{Output: t.Output, Status: status, Digest: DigestOf(content)}
}

func (g *Generator) catalogue(ctx context.Context, spec source.Spec) (tree.Sequence, error) {
	raw, err := g.loader.Load(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("loading components: %w", err)
	}
	plain, err := g.loader.Codec().Plain(raw)
	if err != nil {
		return nil, fmt.Errorf("components %s: %w", spec, err)
	}
	if tree.IsNull(plain) {
		return tree.Sequence{}, nil
	}
	seq, ok := tree.AsSequence(plain)
	if !ok {
		return nil, fmt.Errorf("components %s: expected a sequence of entries, got %s", spec, tree.KindOf(plain))
	}
	return seq, nil
}

// Count returns how many results have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Failed returns the failed results.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// NeedsAttention reports whether any result is stale, missing or failed.
func (r *Report) NeedsAttention() bool {
	for _, res := range r.Results {
		if res.Status.NeedsAttention() {
			return true
		}
	}
	return false
}

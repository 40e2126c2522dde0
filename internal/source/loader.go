// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/confweave/confweave/pkg/markup"
	"github.com/confweave/confweave/pkg/tree"
)

type (
	// Loader turns source specs into trees.
	Loader struct {
		fs    afero.Fs
		codec *markup.Codec
	}

	// LoaderOption configures a Loader.
	LoaderOption func(*Loader)
)

// WithFs sets the filesystem paths are read from.
func WithFs(fs afero.Fs) LoaderOption {
	return func(l *Loader) {
		l.fs = fs
	}
}

// WithCodec sets the codec used to parse files and inline text.
func WithCodec(c *markup.Codec) LoaderOption {
	return func(l *Loader) {
		l.codec = c
	}
}

// NewLoader returns a loader reading from the OS filesystem with the
// default tag registry unless overridden.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.fs == nil {
		l.fs = afero.NewOsFs()
	}
	if l.codec == nil {
		l.codec = markup.NewCodec(nil)
	}
	return l
}

// Fs returns the loader's filesystem.
func (l *Loader) Fs() afero.Fs {
	return l.fs
}

// Codec returns the loader's codec.
func (l *Loader) Codec() *markup.Codec {
	return l.codec
}

// Load produces the tree described by spec: it reads, parses or takes the
// literal value, then applies ExtractFrom and PrefixAt.
func (l *Loader) Load(ctx context.Context, spec Spec) (tree.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		v   tree.Value
		err error
	)
	switch spec.Origin {
	case FromPath:
		v, err = l.loadFile(spec)
	case FromValue:
		v = spec.Value
		if v == nil {
			v = tree.Null()
		}
	case FromText:
		format := spec.Format
		if format == "" {
			format = markup.FormatYAML
		}
		v, err = l.codec.Decode("<text>", format, []byte(spec.Text))
	default:
		err = &SpecError{Reason: "one of path, value or text is required"}
	}
	if err != nil {
		return nil, err
	}

	if spec.ExtractFrom != "" {
		if v, err = Extract(v, spec.ExtractFrom); err != nil {
			return nil, fmt.Errorf("%s: %w", spec, err)
		}
	}
	if spec.PrefixAt != "" {
		v = Prefix(v, spec.PrefixAt)
	}
	return v, nil
}

// LoadAll loads every spec in order.
func (l *Loader) LoadAll(ctx context.Context, specs []Spec) ([]tree.Value, error) {
	out := make([]tree.Value, 0, len(specs))
	for _, s := range specs {
		v, err := l.Load(ctx, s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (l *Loader) loadFile(spec Spec) (tree.Value, error) {
	slog.Debug("loading fragment", "path", spec.Path)
	data, err := afero.ReadFile(l.fs, spec.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", spec.Path, err)
	}
	format := spec.Format
	if format == "" {
		format = markup.FormatFromPath(spec.Path)
	}
	return l.codec.Decode(spec.Path, format, data)
}

// Extract returns the value found by following the slash-separated key path
// through nested mappings.
func Extract(v tree.Value, keyPath string) (tree.Value, error) {
	cur := v
	for i, key := range splitKeyPath(keyPath) {
		m, ok := tree.AsMapping(cur)
		if !ok {
			return nil, fmt.Errorf("extract_from %q: segment %d (%q) reached a %s, not a mapping", keyPath, i, key, tree.KindOf(cur))
		}
		next, ok := m.Get(key)
		if !ok {
			return nil, fmt.Errorf("extract_from %q: key %q not found", keyPath, key)
		}
		cur = next
	}
	return cur, nil
}

// Prefix nests v under the slash-separated key path, so that "a/b" yields
// {a: {b: v}}.
func Prefix(v tree.Value, keyPath string) tree.Value {
	keys := splitKeyPath(keyPath)
	for i := len(keys) - 1; i >= 0; i-- {
		v = tree.MappingOf(tree.Pair{Key: keys[i], Value: v})
	}
	return v
}

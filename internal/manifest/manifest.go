// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/confweave/confweave/internal/source"
	"github.com/confweave/confweave/pkg/cueutil"
	"github.com/confweave/confweave/pkg/markup"
	"github.com/confweave/confweave/pkg/tree"
)

// DefaultPath is the manifest read when none is given.
const DefaultPath = ".template-config.yaml"

//go:embed manifest_schema.cue
var schema []byte

type (
	// Target is one generation target.
	Target struct {
		// Output is the path of the generated file.
		Output string
		// Components is the template catalogue source.
		Components source.Spec
		// From lists the fragments merged into the output, in merge order.
		From []source.Spec
	}

	// Manifest is a parsed generation manifest.
	Manifest struct {
		// Path is the manifest file, or empty when parsed from memory.
		Path    string
		Targets []Target
	}

	// Option configures Load and Parse.
	Option func(*options)

	options struct {
		env     func(string) string
		baseDir string
	}

	rawTarget struct {
		Output string `json:"output"`
	}
)

// WithEnv sets the lookup used to expand $VAR references in paths.
func WithEnv(env func(string) string) Option {
	return func(o *options) {
		o.env = env
	}
}

// WithBaseDir overrides the directory relative paths are resolved against.
// By default it is the manifest's directory.
func WithBaseDir(dir string) Option {
	return func(o *options) {
		o.baseDir = dir
	}
}

// Load reads and parses the manifest at path.
func Load(fs afero.Fs, path string, opts ...Option) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(data, path, opts...)
	if err != nil {
		return nil, err
	}
	slog.Debug("manifest loaded", "path", path, "targets", len(m.Targets))
	return m, nil
}

// Parse validates data against the manifest schema and builds the targets.
// Paths in the manifest are resolved against the directory of path. JSON
// and CUE manifests are accepted when path has the matching extension.
func Parse(data []byte, path string, opts ...Option) (*Manifest, error) {
	o := options{baseDir: filepath.Dir(path)}
	for _, opt := range opts {
		opt(&o)
	}

	inputFormat := cueutil.InputYAML
	if markup.FormatFromPath(path) == markup.FormatCUE {
		inputFormat = cueutil.InputCUE
	}
	res, err := cueutil.ParseAndDecode[[]rawTarget](schema, data, "#Manifest",
		cueutil.WithFilename(path),
		cueutil.WithInputFormat(inputFormat),
	)
	if err != nil {
		return nil, err
	}
	raw, err := cueutil.ToTree(res.Unified)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	entries, _ := tree.AsSequence(raw)

	m := &Manifest{Path: filepath.Clean(path)}
	if path == "" {
		m.Path = ""
	}
	seen := make(map[string]int, len(entries))
	for i, entry := range entries {
		t, err := buildTarget(entry, *res.Value, i, o)
		if err != nil {
			return nil, cueutil.Invalid(path, fmt.Sprintf("[%d]", i), "%v", err)
		}
		if prev, dup := seen[t.Output]; dup {
			ve := cueutil.Invalid(path, fmt.Sprintf("[%d].output", i), "output %s is already produced by target %d", t.Output, prev)
			ve.Hint = "each output may be generated by one target only"
			return nil, ve
		}
		seen[t.Output] = i
		m.Targets = append(m.Targets, t)
	}
	return m, nil
}

func buildTarget(entry tree.Value, raw []rawTarget, i int, o options) (Target, error) {
	fields, _ := tree.AsMapping(entry)

	output, err := source.ResolvePath(raw[i].Output, o.baseDir, o.env)
	if err != nil {
		return Target{}, fmt.Errorf("output: %w", err)
	}

	compVal, _ := fields.Get("components")
	components, err := source.ParseSpec(compVal)
	if err != nil {
		return Target{}, fmt.Errorf("components: %w", err)
	}
	if components, err = components.Resolve(o.baseDir, o.env); err != nil {
		return Target{}, fmt.Errorf("components: %w", err)
	}

	fromVal, _ := fields.Get("from")
	from, err := source.ParseSpecs(fromVal)
	if err != nil {
		return Target{}, fmt.Errorf("from: %w", err)
	}
	for j := range from {
		if from[j], err = from[j].Resolve(o.baseDir, o.env); err != nil {
			return Target{}, fmt.Errorf("from[%d]: %w", j, err)
		}
	}

	return Target{Output: output, Components: components, From: from}, nil
}

// Inputs returns every file the target reads: its component catalogue and
// its fragments.
func (t Target) Inputs() map[string]struct{} {
	specs := make([]source.Spec, 0, len(t.From)+1)
	specs = append(specs, t.Components)
	specs = append(specs, t.From...)
	return source.AllReferencedPaths(specs...)
}

// Target returns the target producing output.
func (m *Manifest) Target(output string) (Target, bool) {
	want := normalize(output)
	for _, t := range m.Targets {
		if normalize(t.Output) == want {
			return t, true
		}
	}
	return Target{}, false
}

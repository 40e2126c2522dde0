// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/confweave/confweave/internal/generate"
	"github.com/confweave/confweave/internal/manifest"
	"github.com/confweave/confweave/internal/source"
	"github.com/confweave/confweave/internal/testutil"
	"github.com/confweave/confweave/pkg/markup"
	"github.com/confweave/confweave/pkg/merge"
	"github.com/confweave/confweave/pkg/template"
	"github.com/confweave/confweave/pkg/tree"

	"github.com/spf13/afero"
)

const fragmentCount = 8

// fragment returns a YAML fragment exercising every tagged kind. Fragments
// with different seeds merge without conflict.
func fragment(seed int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "service%d:\n  replicas: %d\n  labels: !set [tier-%d, shared]\n", seed, seed+1, seed%3)
	sb.WriteString("hosts: !stringset |-\n")
	for i := range 20 {
		fmt.Fprintf(&sb, "  h%d-%d.example\n", seed, i)
	}
	sb.WriteString("steps: !assocbyname\n")
	for i := range 30 {
		fmt.Fprintf(&sb, "  - name: step%d\n", i*fragmentCount+seed)
	}
	sb.WriteString("env: !mergemap\n")
	for i := range 5 {
		fmt.Fprintf(&sb, "  - {k%d_%d: v, shared: s%d}\n", seed, i, i)
	}
	return sb.String()
}

func catalogue(n int) string {
	var sb strings.Builder
	for i := range n {
		fmt.Fprintf(&sb, "- {name: svc%d, port: %d, meta: %s}\n", i, 8000+i, []string{"yes", "no"}[i%2])
	}
	return sb.String()
}

const templated = `
ports:
  - __template_repeat:
      filter: {key: meta, match: "^y"}
    name: "%(name)s"
    port: "%(port)d"
names:
  __template_list:
    insert_key: all
    insert_val: "%(name)s"
`

func decodeFragments(b *testing.B) []tree.Value {
	b.Helper()
	codec := markup.NewCodec(nil)
	values := make([]tree.Value, fragmentCount)
	for i := range values {
		v, err := codec.Decode(fmt.Sprintf("f%d.yaml", i), markup.FormatYAML, []byte(fragment(i)))
		if err != nil {
			b.Fatal(err)
		}
		values[i] = v
	}
	return values
}

func BenchmarkDecodeYAML(b *testing.B) {
	codec := markup.NewCodec(nil)
	data := []byte(fragment(1))

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := codec.Decode("f.yaml", markup.FormatYAML, data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMergeAll(b *testing.B) {
	values := decodeFragments(b)

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := merge.All(values); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMergeAndEncode(b *testing.B) {
	values := decodeFragments(b)
	codec := markup.NewCodec(nil)

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		merged, err := merge.All(values)
		if err != nil {
			b.Fatal(err)
		}
		// Encoding finalizes the ordered collections.
		if _, err := codec.EncodeYAML(merged); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTemplateExpand(b *testing.B) {
	codec := markup.NewCodec(nil)
	rawCatalogue, err := codec.Decode("components.yaml", markup.FormatYAML, []byte(catalogue(200)))
	if err != nil {
		b.Fatal(err)
	}
	entries, _ := tree.AsSequence(rawCatalogue)
	doc, err := codec.Decode("t.yaml", markup.FormatYAML, []byte(templated))
	if err != nil {
		b.Fatal(err)
	}
	engine, err := template.NewEngine(entries)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := engine.Expand(doc); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRenderTarget(b *testing.B) {
	files := map[string]string{
		"components.yaml": catalogue(50),
		"t.yaml":          templated,
	}
	var from []string
	for i := range fragmentCount {
		name := fmt.Sprintf("f%d.yaml", i)
		from = append(from, name)
		files[name] = fragment(i)
	}
	files[manifest.DefaultPath] = fmt.Sprintf("- output: out.yaml\n  components: components.yaml\n  from: [%s, t.yaml]\n",
		strings.Join(from, ", "))
	fs := afero.NewMemMapFs()
	testutil.MustWriteFiles(b, fs, "/repo", files)
	m, err := manifest.Load(fs, "/repo/"+manifest.DefaultPath)
	if err != nil {
		b.Fatal(err)
	}
	g := generate.New(source.NewLoader(source.WithFs(fs)))
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := g.Render(ctx, m.Targets[0]); err != nil {
			b.Fatal(err)
		}
	}
}

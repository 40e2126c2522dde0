// SPDX-License-Identifier: MPL-2.0

package markup

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/confweave/confweave/pkg/assoc"
	"github.com/confweave/confweave/pkg/merge"
	"github.com/confweave/confweave/pkg/tree"
)

func decodeYAML(t *testing.T, src string) tree.Value {
	t.Helper()
	v, err := NewCodec(nil).Decode("test.yaml", FormatYAML, []byte(src))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return v
}

func encodeYAML(t *testing.T, v tree.Value) string {
	t.Helper()
	out, err := NewCodec(nil).EncodeYAML(v)
	if err != nil {
		t.Fatalf("EncodeYAML() error = %v", err)
	}
	return string(out)
}

func get(t *testing.T, v tree.Value, key string) tree.Value {
	t.Helper()
	m, ok := tree.AsMapping(v)
	if !ok {
		t.Fatalf("value is a %s, want mapping", tree.KindOf(v))
	}
	out, ok := m.Get(key)
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	return out
}

func TestSetMergeAndOutput(t *testing.T) {
	t.Parallel()

	left := decodeYAML(t, "foo: !set\n- a\n")
	right := decodeYAML(t, "foo: !set\n- b\n")
	if _, ok := get(t, left, "foo").(*tree.Set); !ok {
		t.Fatalf("foo decoded as %s, want set", tree.KindOf(get(t, left, "foo")))
	}

	merged, err := merge.Merge(left, right)
	if err != nil {
		t.Fatal(err)
	}
	if want := tree.NewSet(tree.String("a"), tree.String("b")); !tree.Equal(get(t, merged, "foo"), want) {
		t.Errorf("merged foo = %#v", get(t, merged, "foo"))
	}

	reparsed := decodeYAML(t, encodeYAML(t, merged))
	if want := (tree.Sequence{tree.String("a"), tree.String("b")}); !tree.Equal(get(t, reparsed, "foo"), want) {
		t.Errorf("reparsed foo = %#v, want plain [a, b]", get(t, reparsed, "foo"))
	}
}

func TestMergeMapCollapse(t *testing.T) {
	t.Parallel()

	v := decodeYAML(t, `
m: !mergemap
  - {a: 1, b: 2, c: 3}
  - {a: 2, b: 3, d: 4}
`)
	collapsed := get(t, v, "m")
	want := tree.MappingOf(
		tree.Pair{Key: "a", Value: tree.Int(2)},
		tree.Pair{Key: "b", Value: tree.Int(3)},
		tree.Pair{Key: "c", Value: tree.Int(3)},
		tree.Pair{Key: "d", Value: tree.Int(4)},
	)
	if !tree.Equal(collapsed, want) {
		t.Fatalf("collapsed = %#v", collapsed)
	}

	other := decodeYAML(t, "m: {a: 2, e: 0}\n")
	merged, err := merge.Merge(v, other)
	if err != nil {
		t.Fatal(err)
	}
	got := get(t, merged, "m").(*tree.Mapping)
	if keys := got.Keys(); !slices.Equal(keys, []string{"a", "b", "c", "d", "e"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestAssocDeserialization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		keyField string
	}{
		{"by name", "!assocbyname\n- name: 1\n- name: 2\n- name: 3\n", assoc.KeyByName},
		{"by id", "!assocbyid\n- id: 1\n- id: 2\n- id: 3\n", assoc.KeyByID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := decodeYAML(t, tt.src)
			c, ok := v.(*assoc.Collection)
			if !ok {
				t.Fatalf("decoded %s, want collection", tree.KindOf(v))
			}
			if c.KeyField() != tt.keyField {
				t.Errorf("KeyField() = %q, want %q", c.KeyField(), tt.keyField)
			}
			got, err := c.FinalizeToList(nil)
			if err != nil {
				t.Fatal(err)
			}
			want := tree.Sequence{}
			for i := int64(1); i <= 3; i++ {
				want = append(want, tree.MappingOf(tree.Pair{Key: tt.keyField, Value: tree.Int(i)}))
			}
			if !tree.Equal(got, want) {
				t.Errorf("FinalizeToList() = %#v", got)
			}
		})
	}
}

func TestAssocSerializationIsStable(t *testing.T) {
	t.Parallel()

	a := decodeYAML(t, "!assocbyname\n- name: 1\n- name: 2\n- name: 3\n- name: 4\n")
	b := decodeYAML(t, "!assocbyname\n- name: 1\n- name: 4\n- name: 5\n")
	c := decodeYAML(t, "!assocbyname\n- name: 0\n- name: 3\n- name: 5\n- name: 9\n")

	var outputs []string
	for _, order := range [][]tree.Value{{a, b, c}, {b, a, c}, {c, a, b}} {
		merged, err := merge.All(order)
		if err != nil {
			t.Fatal(err)
		}
		outputs = append(outputs, encodeYAML(t, merged))
	}
	if outputs[0] != outputs[1] || outputs[1] != outputs[2] {
		t.Fatalf("serialization depends on merge order:\n%s\n%s\n%s", outputs[0], outputs[1], outputs[2])
	}
	want := "- name: 0\n- name: 1\n- name: 2\n- name: 3\n- name: 4\n- name: 5\n- name: 9\n"
	if outputs[0] != want {
		t.Errorf("output =\n%s\nwant\n%s", outputs[0], want)
	}
}

func TestAssocMappingForm(t *testing.T) {
	t.Parallel()

	v := decodeYAML(t, `
steps: !assocbyname
  items:
    - {name: fetch}
    - {name: build}
    - {name: lint}
  required: []
  prune_unreachable: true
`)
	wanted := decodeYAML(t, "steps: !assocbyname\n- name: build\n")
	merged, err := merge.Merge(v, wanted)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := encodeYAML(t, merged), "steps:\n  - name: fetch\n  - name: build\n"; got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestStringSetRoundTrip(t *testing.T) {
	t.Parallel()

	left := decodeYAML(t, "hosts: !stringset [b.example, a.example]\n")
	right := decodeYAML(t, "hosts: !stringset |\n  c.example\n")
	merged, err := merge.Merge(left, right)
	if err != nil {
		t.Fatal(err)
	}

	out := encodeYAML(t, merged)
	if want := "hosts: |-\n  a.example\n  b.example\n  c.example\n"; out != want {
		t.Fatalf("output =\n%q\nwant\n%q", out, want)
	}

	// Reloaded without a tag the block is only a string.
	plain := decodeYAML(t, out)
	if _, ok := get(t, plain, "hosts").(tree.Scalar); !ok {
		t.Errorf("untagged reload = %s, want string", tree.KindOf(get(t, plain, "hosts")))
	}

	// Re-tagging restores set semantics.
	retagged := decodeYAML(t, strings.Replace(out, "hosts: |-", "hosts: !stringset |-", 1))
	again, err := merge.Merge(retagged, decodeYAML(t, "hosts: !stringset [d.example]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if n := get(t, again, "hosts").(*tree.StringSet).Len(); n != 4 {
		t.Errorf("re-tagged merge has %d members, want 4", n)
	}
}

func TestYAMLMergeKeysAndAliases(t *testing.T) {
	t.Parallel()

	v := decodeYAML(t, `
base: &base
  image: alpine
  restart: always
extra: &extra
  restart: never
  user: root
svc:
  <<: [*base, *extra]
  image: debian
copy: *base
`)
	want := tree.MappingOf(
		tree.Pair{Key: "image", Value: tree.String("debian")},
		tree.Pair{Key: "restart", Value: tree.String("always")},
		tree.Pair{Key: "user", Value: tree.String("root")},
	)
	if got := get(t, v, "svc"); !tree.Equal(got, want) {
		t.Errorf("svc = %#v", got)
	}
	if !tree.Equal(get(t, v, "copy"), get(t, v, "base")) {
		t.Error("alias does not resolve to its anchor")
	}
}

func TestYAMLScalars(t *testing.T) {
	t.Parallel()

	v := decodeYAML(t, `
i: 42
f: 1.5
b: true
n: ~
s: "42"
hex: 0x10
`)
	checks := map[string]tree.Value{
		"i":   tree.Int(42),
		"f":   tree.Float(1.5),
		"b":   tree.Bool(true),
		"n":   tree.Null(),
		"s":   tree.String("42"),
		"hex": tree.Int(16),
	}
	for key, want := range checks {
		got := get(t, v, key)
		if !tree.Equal(got, want) || got.Kind() != want.Kind() {
			t.Errorf("%s = %#v, want %#v", key, got, want)
		}
	}

	out := encodeYAML(t, tree.MappingOf(
		tree.Pair{Key: "s", Value: tree.String("true")},
		tree.Pair{Key: "f", Value: tree.Float(2)},
	))
	if want := "s: \"true\"\nf: 2.0\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestYAMLErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"unknown tag", "x: !nope [1]\n"},
		{"duplicate key", "a: 1\na: 2\n"},
		{"two documents", "a: 1\n---\nb: 2\n"},
		{"bad set payload", "x: !set {a: 1}\n"},
		{"syntax", "a: [1, 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewCodec(nil).Decode("bad.yaml", FormatYAML, []byte(tt.src))
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if de.Source != "bad.yaml" {
				t.Errorf("Source = %q", de.Source)
			}
		})
	}
}

func TestDecodeOtherFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format Format
		src    string
		keys   []string
	}{
		{"jsonc keeps order", FormatJSON, "{\n  // comment\n  \"z\": 1,\n  \"a\": [true, null, 2.5],\n}\n", []string{"z", "a"}},
		{"toml sorts keys", FormatTOML, "z = 1\na = [true]\n[b]\nc = \"x\"\n", []string{"a", "b", "z"}},
		{"cue keeps order", FormatCUE, "z: 1\na: [true]\n", []string{"z", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := NewCodec(nil).Decode("frag", tt.format, []byte(tt.src))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			m, ok := tree.AsMapping(v)
			if !ok {
				t.Fatalf("decoded %s", tree.KindOf(v))
			}
			if !slices.Equal(m.Keys(), tt.keys) {
				t.Errorf("keys = %v, want %v", m.Keys(), tt.keys)
			}
		})
	}

	v, err := NewCodec(nil).Decode("a.json", FormatJSON, []byte(`{"a": [true, null, 2.5, 3]}`))
	if err != nil {
		t.Fatal(err)
	}
	want := tree.Sequence{tree.Bool(true), tree.Null(), tree.Float(2.5), tree.Int(3)}
	if !tree.Equal(get(t, v, "a"), want) {
		t.Errorf("a = %#v", get(t, v, "a"))
	}

	if _, err := NewCodec(nil).Decode("dup.json", FormatJSON, []byte(`{"a": 1, "a": 2}`)); err == nil {
		t.Error("expected an error for a duplicate JSON key")
	}
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"a.yaml":               FormatYAML,
		"a.YML":                FormatYAML,
		".template-config":     FormatYAML,
		"a.json":               FormatJSON,
		"a.jsonc":              FormatJSON,
		"dir/settings.toml":    FormatTOML,
		"components/index.cue": FormatCUE,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	t.Parallel()

	noop := func(v tree.Value) (tree.Value, error) { return v, nil }
	bad := [][]Tag{
		{{Name: "set", Decode: noop}},
		{{Name: "!!str", Decode: noop}},
		{{Name: "!x"}},
		{{Name: "!x", Decode: noop}, {Name: "!x", Decode: noop}},
	}
	for _, tags := range bad {
		if _, err := NewRegistry(tags...); err == nil {
			t.Errorf("NewRegistry(%v) should fail", tags[0].Name)
		}
	}
	if names := DefaultRegistry().Names(); len(names) != 5 {
		t.Errorf("default tags = %v", names)
	}
}

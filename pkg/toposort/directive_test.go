// SPDX-License-Identifier: MPL-2.0

package toposort

import (
	"errors"
	"slices"
	"testing"

	"github.com/confweave/confweave/pkg/tree"
)

func rec(pairs ...tree.Pair) *tree.Mapping { return tree.MappingOf(pairs...) }

func kv(k string, v tree.Value) tree.Pair { return tree.Pair{Key: k, Value: v} }

func strs(items ...string) tree.Sequence {
	out := make(tree.Sequence, len(items))
	for i, s := range items {
		out[i] = tree.String(s)
	}
	return out
}

func needsGraph() *tree.Mapping {
	return rec(
		kv("a", rec(kv("__needs", tree.String("b")))),
		kv("b", rec(kv("__needs", strs("c", "d")))),
		kv("c", rec()),
		kv("d", rec(kv("__needs", strs("c")))),
		kv("e", rec(kv("__needs", strs("b")))),
		kv("f", rec()),
	)
}

func ids(t *testing.T, seq tree.Sequence, field string) []string {
	t.Helper()
	out := make([]string, 0, len(seq))
	for _, item := range seq {
		m, ok := tree.AsMapping(item)
		if !ok {
			t.Fatalf("record is a %s", tree.KindOf(item))
		}
		id, _ := m.GetString(field)
		out = append(out, id)
	}
	return out
}

func TestSortRecords_StripUnreachable(t *testing.T) {
	t.Parallel()

	cfg := DirectiveConfig{DepsKey: "__needs", StripUnreachable: true, Required: []string{"a"}, IDField: "id"}
	got, err := SortRecords(needsGraph(), cfg)
	if err != nil {
		t.Fatalf("SortRecords() error = %v", err)
	}
	if want := []string{"c", "d", "b", "a"}; !slices.Equal(ids(t, got, "id"), want) {
		t.Errorf("ids = %v, want %v", ids(t, got, "id"), want)
	}
	for _, item := range got {
		if item.(*tree.Mapping).Has("__needs") {
			t.Error("deps key was not removed")
		}
	}
}

func TestSortRecords_KeepAll(t *testing.T) {
	t.Parallel()

	cfg := DirectiveConfig{DepsKey: "__needs", IDField: "name"}
	got, err := SortRecords(needsGraph(), cfg)
	if err != nil {
		t.Fatalf("SortRecords() error = %v", err)
	}
	if want := []string{"c", "d", "b", "a", "e", "f"}; !slices.Equal(ids(t, got, "name"), want) {
		t.Errorf("ids = %v, want %v", ids(t, got, "name"), want)
	}
}

func TestSortRecords_ExistingIDIsKept(t *testing.T) {
	t.Parallel()

	in := rec(kv("svc", rec(kv("id", tree.String("custom")))))
	got, err := SortRecords(in, DirectiveConfig{DepsKey: "needs", IDField: "id"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"custom"}; !slices.Equal(ids(t, got, "id"), want) {
		t.Errorf("ids = %v, want %v", ids(t, got, "id"), want)
	}
}

func TestSortRecords_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     *tree.Mapping
		cfg    DirectiveConfig
		target error
	}{
		{
			"unknown dependency",
			rec(kv("a", rec(kv("needs", tree.String("ghost"))))),
			DirectiveConfig{DepsKey: "needs", IDField: "id"},
			tree.ErrDirectiveConfig,
		},
		{
			"record is not a mapping",
			rec(kv("a", tree.Int(1))),
			DirectiveConfig{DepsKey: "needs", IDField: "id"},
			tree.ErrDirectiveConfig,
		},
		{
			"unknown required record",
			rec(kv("a", rec())),
			DirectiveConfig{DepsKey: "needs", IDField: "id", StripUnreachable: true, Required: []string{"zz"}},
			tree.ErrDirectiveConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := SortRecords(tt.in, tt.cfg); !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
		})
	}

	cyclic := rec(
		kv("a", rec(kv("needs", tree.String("b")))),
		kv("b", rec(kv("needs", tree.String("a")))),
	)
	_, err := SortRecords(cyclic, DirectiveConfig{DepsKey: "needs", IDField: "id"})
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Errorf("expected CycleError, got %v", err)
	}
}

func TestParseDirectiveConfig(t *testing.T) {
	t.Parallel()

	cfg, err := ParseDirectiveConfig(rec(
		kv("deps_key", tree.String("__needs")),
		kv("strip_unreachable", tree.Bool(true)),
		kv("required", tree.String("a")),
	))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DepsKey != "__needs" || !cfg.StripUnreachable || cfg.IDField != "id" || !slices.Equal(cfg.Required, []string{"a"}) {
		t.Errorf("ParseDirectiveConfig() = %+v", cfg)
	}

	bad := []tree.Value{
		tree.String("nope"),
		rec(),
		rec(kv("deps_key", tree.Int(3))),
		rec(kv("deps_key", tree.String("x")), kv("strip_unreachable", tree.String("yes"))),
		rec(kv("deps_key", tree.String("x")), kv("required", tree.Sequence{tree.Int(1)})),
	}
	for _, v := range bad {
		if _, err := ParseDirectiveConfig(v); !errors.Is(err, tree.ErrDirectiveConfig) {
			t.Errorf("ParseDirectiveConfig(%v) error = %v, want ErrDirectiveConfig", v, err)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	services := needsGraph()
	services.Set(DirectiveKey, rec(
		kv("deps_key", tree.String("__needs")),
		kv("strip_unreachable", tree.Bool(true)),
		kv("required", strs("a")),
		kv("id_to_key", tree.String("id")),
	))
	doc := rec(
		kv("version", tree.Int(2)),
		kv("services", services),
		kv("untouched", rec(kv(DirectiveKey, tree.Bool(false)), kv("x", tree.Int(1)))),
	)

	out, err := Resolve(doc)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	root := out.(*tree.Mapping)

	raw, _ := root.Get("services")
	seq, ok := tree.AsSequence(raw)
	if !ok {
		t.Fatalf("services is a %s, want sequence", tree.KindOf(raw))
	}
	if want := []string{"c", "d", "b", "a"}; !slices.Equal(ids(t, seq, "id"), want) {
		t.Errorf("ids = %v, want %v", ids(t, seq, "id"), want)
	}

	raw, _ = root.Get("untouched")
	if want := rec(kv("x", tree.Int(1))); !tree.Equal(raw, want) {
		t.Errorf("falsy directive was not dropped: %v", raw)
	}
	if !services.Has(DirectiveKey) {
		t.Error("Resolve() modified its input")
	}
}

func TestResolve_NestedInRecords(t *testing.T) {
	t.Parallel()

	inner := rec(
		kv("x", rec()),
		kv(DirectiveKey, rec(kv("deps_key", tree.String("needs")))),
	)
	doc := rec(
		kv("outer", rec(kv("children", inner))),
		kv(DirectiveKey, rec(kv("deps_key", tree.String("needs")))),
	)

	out, err := Resolve(doc)
	if err != nil {
		t.Fatal(err)
	}
	seq := out.(tree.Sequence)
	if len(seq) != 1 {
		t.Fatalf("got %d records", len(seq))
	}
	children, _ := seq[0].(*tree.Mapping).Get("children")
	if _, ok := tree.AsSequence(children); !ok {
		t.Errorf("nested directive was not resolved: %v", children)
	}
}

// SPDX-License-Identifier: MPL-2.0

package template

import (
	"errors"
	"testing"

	"github.com/confweave/confweave/pkg/tree"
)

func m(pairs ...tree.Pair) *tree.Mapping { return tree.MappingOf(pairs...) }

func p(k string, v tree.Value) tree.Pair { return tree.Pair{Key: k, Value: v} }

func s(v string) tree.Scalar { return tree.String(v) }

func newEngine(t *testing.T, entries ...*tree.Mapping) *Engine {
	t.Helper()
	seq := make(tree.Sequence, len(entries))
	for i, e := range entries {
		seq[i] = e
	}
	e, err := NewEngine(seq)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func assertEqual(t *testing.T, got, want tree.Value) {
	t.Helper()
	if !tree.Equal(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry *tree.Mapping
		in    tree.Value
		want  tree.Value
	}{
		{"string", m(p("hello", s("world"))), s("hello, %(hello)s!"), s("hello, world!")},
		{
			"mapping keys and values",
			m(p("hello", s("world"))),
			m(p("message to %(hello)s", s("hello, %(hello)s!"))),
			m(p("message to world", s("hello, world!"))),
		},
		{
			"nested sequences",
			m(p("ex", s("ABC"))),
			tree.Sequence{s("(%(ex)s)"), m(p("foo", s("%(ex)s"))), tree.Sequence{s("%(ex)s")}},
			tree.Sequence{s("(ABC)"), m(p("foo", s("ABC"))), tree.Sequence{s("ABC")}},
		},
		{"other scalars pass through", m(), tree.Int(3), tree.Int(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Apply(tt.entry, tt.in)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			assertEqual(t, got, tt.want)
		})
	}
}

func repeatCatalogue(t *testing.T) *Engine {
	return newEngine(t,
		m(p("item", s("a")), p("val", s("A")), p("meta", s("yes, sir"))),
		m(p("item", s("b")), p("val", s("B")), p("meta", s("no"))),
		m(p("item", s("c")), p("val", s("C")), p("meta", s("yes"))),
	)
}

func filterOn(match string) *tree.Mapping {
	return m(p("filter", m(p("key", s("meta")), p("match", s(match)))))
}

func TestRepeat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     tree.Value
		include []string
	}{
		{"all", tree.Bool(true), []string{"a", "b", "c"}},
		{"prefix y", filterOn("^y"), []string{"a", "c"}},
		{"prefix n", filterOn("^n"), []string{"b"}},
		{"unanchored pattern still anchors at start", filterOn("es"), nil},
		{"no match", filterOn("^NOMATCH$"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := tree.Sequence{
				m(p("id", s("foo"))),
				m(
					p(RepeatKey, tt.cfg),
					p("id", s("test_%(item)s")),
					p("inner", m(p("vals", tree.Sequence{s("%(val)s")}))),
				),
				m(p("id", s("bar"))),
			}
			want := tree.Sequence{m(p("id", s("foo")))}
			vals := map[string]string{"a": "A", "b": "B", "c": "C"}
			for _, item := range tt.include {
				want = append(want, m(
					p("id", s("test_"+item)),
					p("inner", m(p("vals", tree.Sequence{s(vals[item])}))),
				))
			}
			want = append(want, m(p("id", s("bar"))))

			got, err := repeatCatalogue(t).Repeat(in)
			if err != nil {
				t.Fatalf("Repeat() error = %v", err)
			}
			assertEqual(t, got, want)
		})
	}
}

func TestRepeat_FalsyDirectiveKeepsElement(t *testing.T) {
	t.Parallel()

	in := tree.Sequence{m(p(RepeatKey, tree.Bool(false)), p("id", s("%(item)s")))}
	got, err := repeatCatalogue(t).Repeat(in)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, got, tree.Sequence{m(p("id", s("%(item)s")))})
}

func TestRepeat_CopiesAreNotRescanned(t *testing.T) {
	t.Parallel()

	e := newEngine(t, m(p("n", s("1"))), m(p("n", s("2"))))
	in := tree.Sequence{m(
		p(RepeatKey, tree.Bool(true)),
		p("children", tree.Sequence{m(p(RepeatKey, tree.Bool(true)), p("v", s("x")))}),
	)}
	got, err := e.Repeat(in)
	if err != nil {
		t.Fatal(err)
	}
	seq := got.(tree.Sequence)
	if len(seq) != 2 {
		t.Fatalf("got %d copies, want 2", len(seq))
	}
	children, _ := seq[0].(*tree.Mapping).Get("children")
	inner := children.(tree.Sequence)[0].(*tree.Mapping)
	if !inner.Has(RepeatKey) {
		t.Error("nested directive inside a copy was expanded in the same pass")
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		insertVal tree.Value
		want      tree.Value
	}{
		{"strings", s("%(id)s"), tree.Sequence{s("a"), s("b"), s("c")}},
		{
			"mappings",
			m(p("v", s("%(id)s"))),
			tree.Sequence{m(p("v", s("a"))), m(p("v", s("b"))), m(p("v", s("c")))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEngine(t, m(p("id", s("a"))), m(p("id", s("b"))), m(p("id", s("c"))))
			in := m(
				p(ListKey, m(p("insert_key", s("foo")), p("insert_val", tt.insertVal))),
				p("bar", s("hello")),
			)
			got, err := e.List(in)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			assertEqual(t, got, m(p("foo", tt.want), p("bar", s("hello"))))
		})
	}
}

func TestList_Nested(t *testing.T) {
	t.Parallel()

	e := newEngine(t, m(p("id", s("a"))))
	in := m(p("outer", tree.Sequence{m(
		p(ListKey, m(p("insert_key", s("ids")), p("insert_val", s("%(id)s")))),
		p("ids", s("replaced")),
	)}))
	got, err := e.List(in)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, got, m(p("outer", tree.Sequence{m(p("ids", tree.Sequence{s("a")}))})))
}

func TestProps(t *testing.T) {
	t.Parallel()

	e := newEngine(t,
		m(p("key", s("a")), p("val", s("A"))),
		m(p("key", s("b")), p("val", s("B"))),
		m(p("key", s("c")), p("val", s("C"))),
	)
	in := m(
		p(PropsKey, m(p("insert_key", s("test_%(key)s")), p("insert_val", s("%(val)s")))),
		p("foo", tree.Int(1)),
		p("bar", tree.Int(2)),
	)
	got, err := e.Props(in)
	if err != nil {
		t.Fatalf("Props() error = %v", err)
	}
	want := m(
		p("foo", tree.Int(1)), p("bar", tree.Int(2)),
		p("test_a", s("A")), p("test_b", s("B")), p("test_c", s("C")),
	)
	assertEqual(t, got, want)
}

func TestProps_ListOfSpecsLastWins(t *testing.T) {
	t.Parallel()

	e := newEngine(t, m(p("k", s("x")), p("v", s("1"))))
	in := m(p(PropsKey, tree.Sequence{
		m(p("insert_key", s("%(k)s")), p("insert_val", s("first %(v)s"))),
		m(p("insert_key", s("%(k)s")), p("insert_val", s("second %(v)s"))),
	}))
	got, err := e.Props(in)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, got, m(p("x", s("second 1"))))
}

func TestExpand_PassesSeeEarlierOutput(t *testing.T) {
	t.Parallel()

	e := newEngine(t, m(p("id", s("a"))), m(p("id", s("b"))))
	// The repeat pass emits mappings whose list directive runs in the
	// following pass. The escaped placeholder survives the first pass.
	in := m(p("groups", tree.Sequence{m(
		p(RepeatKey, tree.Bool(true)),
		p("name", s("group-%(id)s")),
		p(ListKey, m(p("insert_key", s("members")), p("insert_val", s("%%(id)s")))),
	)}))
	got, err := e.Expand(in)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	members := tree.Sequence{s("a"), s("b")}
	want := m(p("groups", tree.Sequence{
		m(p("name", s("group-a")), p("members", members)),
		m(p("name", s("group-b")), p("members", members)),
	}))
	assertEqual(t, got, want)
}

func TestFilter_Errors(t *testing.T) {
	t.Parallel()

	e := newEngine(t, m(p("meta", s("x"))), m(p("other", s("y"))))

	configErrs := []tree.Value{
		s("yes"),
		tree.Sequence{},
		m(p("filter", s("meta"))),
		m(p("filter", m(p("key", s("meta"))))),
		m(p("filter", m(p("key", s("meta")), p("match", s("(")))))),
	}
	for _, cfg := range configErrs {
		if _, err := e.Filter(RepeatKey, cfg); !errors.Is(err, tree.ErrDirectiveConfig) {
			t.Errorf("Filter(%#v) error = %v, want ErrDirectiveConfig", cfg, err)
		}
	}

	if _, err := e.Filter(RepeatKey, filterOn("x")); !errors.Is(err, ErrTemplateField) {
		t.Errorf("entry without filter key: error = %v, want ErrTemplateField", err)
	}
}

func TestList_Errors(t *testing.T) {
	t.Parallel()

	e := newEngine(t, m(p("id", s("a"))))
	bad := []tree.Value{
		m(p(ListKey, m(p("insert_key", s("k"))))),
		m(p(ListKey, m(p("insert_key", tree.Int(1)), p("insert_val", s("v"))))),
		m(p(ListKey, tree.Sequence{s("x")})),
	}
	for _, in := range bad {
		if _, err := e.List(in); !errors.Is(err, tree.ErrDirectiveConfig) {
			t.Errorf("List() error = %v, want ErrDirectiveConfig", err)
		}
	}

	missingField := m(p(ListKey, m(p("insert_key", s("k")), p("insert_val", s("%(nope)s")))))
	if _, err := e.List(missingField); !errors.Is(err, ErrTemplateField) {
		t.Errorf("List() error = %v, want ErrTemplateField", err)
	}
}

func TestNewEngine_RejectsNonMappingEntries(t *testing.T) {
	t.Parallel()
	if _, err := NewEngine(tree.Sequence{s("x")}); err == nil {
		t.Error("expected an error for a string catalogue entry")
	}
}

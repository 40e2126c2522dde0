// SPDX-License-Identifier: MPL-2.0

package tree

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// KindNull is the kind of the null scalar.
	KindNull Kind = iota
	// KindBool is the kind of boolean scalars.
	KindBool
	// KindInt is the kind of integer scalars.
	KindInt
	// KindFloat is the kind of floating point scalars.
	KindFloat
	// KindString is the kind of string scalars.
	KindString
	// KindSequence is the kind of order-significant lists.
	KindSequence
	// KindMapping is the kind of insertion-ordered string-keyed maps.
	KindMapping
	// KindSet is the kind of unordered scalar sets.
	KindSet
	// KindStringSet is the kind of unordered string sets serialized as a block.
	KindStringSet
	// KindCollection is the kind of keyed, partially ordered record collections.
	KindCollection
)

type (
	// Kind identifies which variant of the value model a Value is.
	Kind int

	// Value is a node of a configuration tree.
	Value interface {
		Kind() Kind
	}

	// Scalar is an immutable leaf value: null, bool, int, float or string.
	Scalar struct {
		kind Kind
		b    bool
		i    int64
		f    float64
		s    string
	}

	// Sequence is an order-significant list of values.
	Sequence []Value
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindSet:
		return "set"
	case KindStringSet:
		return "stringset"
	case KindCollection:
		return "collection"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsScalar reports whether the kind is one of the scalar kinds.
func (k Kind) IsScalar() bool {
	return k <= KindString
}

// Null returns the null scalar.
func Null() Scalar { return Scalar{kind: KindNull} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{kind: KindBool, b: b} }

// Int returns an integer scalar.
func Int(i int64) Scalar { return Scalar{kind: KindInt, i: i} }

// Float returns a floating point scalar.
func Float(f float64) Scalar { return Scalar{kind: KindFloat, f: f} }

// String returns a string scalar.
func String(s string) Scalar { return Scalar{kind: KindString, s: s} }

// Kind implements Value.
func (s Scalar) Kind() Kind { return s.kind }

// IsNull reports whether s is the null scalar.
func (s Scalar) IsNull() bool { return s.kind == KindNull }

// AsBool returns the boolean payload of a bool scalar.
func (s Scalar) AsBool() (bool, bool) {
	return s.b, s.kind == KindBool
}

// AsInt returns the integer payload of an int scalar.
func (s Scalar) AsInt() (int64, bool) {
	return s.i, s.kind == KindInt
}

// AsFloat returns the numeric payload of an int or float scalar as a float64.
func (s Scalar) AsFloat() (float64, bool) {
	switch s.kind {
	case KindInt:
		return float64(s.i), true
	case KindFloat:
		return s.f, true
	default:
		return 0, false
	}
}

// AsString returns the payload of a string scalar.
func (s Scalar) AsString() (string, bool) {
	return s.s, s.kind == KindString
}

// Text returns the display form of the scalar, used for string
// interpolation and for deterministic ordering of keys.
func (s Scalar) Text() string {
	switch s.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(s.b)
	case KindInt:
		return strconv.FormatInt(s.i, 10)
	case KindFloat:
		return formatFloat(s.f)
	default:
		return s.s
	}
}

// Key returns a canonical identity for the scalar. Two scalars with equal
// keys are Equal; integral floats share their key with the matching int.
func (s Scalar) Key() string {
	switch s.kind {
	case KindNull:
		return "null"
	case KindBool:
		return "b:" + strconv.FormatBool(s.b)
	case KindInt:
		return "n:" + strconv.FormatInt(s.i, 10)
	case KindFloat:
		if s.f == math.Trunc(s.f) && math.Abs(s.f) < 1<<53 {
			return "n:" + strconv.FormatInt(int64(s.f), 10)
		}
		return "n:" + strconv.FormatFloat(s.f, 'g', -1, 64)
	default:
		return "s:" + s.s
	}
}

// GoString renders the scalar for diagnostics.
func (s Scalar) GoString() string {
	if s.kind == KindString {
		return strconv.Quote(s.s)
	}
	return s.Text()
}

// CompareScalars orders scalars: null first, then bools, then numbers by
// value, then strings lexicographically.
func CompareScalars(a, b Scalar) int {
	ra, rb := scalarRank(a), scalarRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case 1:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case 2:
		if a.kind == KindInt && b.kind == KindInt {
			return cmp.Compare(a.i, b.i)
		}
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		return cmp.Compare(af, bf)
	case 3:
		return strings.Compare(a.s, b.s)
	default:
		return 0
	}
}

func scalarRank(s Scalar) int {
	switch s.kind {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	default:
		return 3
	}
}

// Kind implements Value.
func (Sequence) Kind() Kind { return KindSequence }

// KindOf returns the kind of v, treating a nil Value as null.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// AsScalar returns v as a Scalar when it is one.
func AsScalar(v Value) (Scalar, bool) {
	s, ok := v.(Scalar)
	return s, ok
}

// AsMapping returns v as a *Mapping when it is one.
func AsMapping(v Value) (*Mapping, bool) {
	m, ok := v.(*Mapping)
	return m, ok && m != nil
}

// AsSequence returns v as a Sequence when it is one.
func AsSequence(v Value) (Sequence, bool) {
	s, ok := v.(Sequence)
	return s, ok
}

// IsNull reports whether v is absent or the null scalar.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	s, ok := v.(Scalar)
	return ok && s.IsNull()
}

// Truthy mirrors the falsiness rules of authored directive values: null,
// false, zero numbers, empty strings and empty containers are false.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case Scalar:
		switch t.kind {
		case KindNull:
			return false
		case KindBool:
			return t.b
		case KindInt:
			return t.i != 0
		case KindFloat:
			return t.f != 0
		default:
			return t.s != ""
		}
	case Sequence:
		return len(t) > 0
	case *Mapping:
		return t.Len() > 0
	default:
		return true
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	out := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(out, ".eE") {
		out += ".0"
	}
	return out
}

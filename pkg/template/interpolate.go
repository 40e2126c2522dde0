// SPDX-License-Identifier: MPL-2.0

package template

import (
	"fmt"
	"math"
	"strings"

	"github.com/confweave/confweave/pkg/tree"
)

// placeholder is one parsed %(name)<flags><width><.precision><conversion>.
type placeholder struct {
	name      string
	flags     string
	width     string
	precision string
	hasPrec   bool
	conv      byte
}

// Interpolate replaces every %(name)... placeholder in s with the matching
// field of fields, and every %% with a single percent sign. Any other use of
// % is an error.
//
// Supported conversions are s and r (text), d and i (integers), x, X and o
// (integers in other bases), and e, E, f, F, g and G (floats). Flags, width
// and precision follow printf conventions.
func Interpolate(s string, fields *tree.Mapping) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			b.WriteByte('%')
			i += 2
			continue
		}
		ph, next, err := parsePlaceholder(s, i)
		if err != nil {
			return "", err
		}
		text, err := ph.render(s, fields)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		i = next
	}
	return b.String(), nil
}

func parsePlaceholder(s string, start int) (placeholder, int, error) {
	malformed := func(format string, args ...any) error {
		return &TemplateFieldError{Template: s, Reason: fmt.Sprintf(format, args...)}
	}

	i := start + 1
	if i >= len(s) || s[i] != '(' {
		return placeholder{}, 0, malformed("unsupported placeholder at offset %d, expected %%(name)", start)
	}
	end := strings.IndexByte(s[i:], ')')
	if end < 0 {
		return placeholder{}, 0, malformed("unterminated placeholder at offset %d", start)
	}
	ph := placeholder{name: s[i+1 : i+end]}
	i += end + 1

	flagStart := i
	for i < len(s) && strings.IndexByte("-+ 0#", s[i]) >= 0 {
		i++
	}
	ph.flags = s[flagStart:i]

	widthStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	ph.width = s[widthStart:i]

	if i < len(s) && s[i] == '.' {
		i++
		precStart := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		ph.precision = s[precStart:i]
		ph.hasPrec = true
	}

	// Length modifiers are accepted and ignored.
	for i < len(s) && strings.IndexByte("hlL", s[i]) >= 0 {
		i++
	}

	if i >= len(s) {
		return placeholder{}, 0, malformed("placeholder %%(%s) has no conversion", ph.name)
	}
	ph.conv = s[i]
	if strings.IndexByte("srdixXoeEfFgG", ph.conv) < 0 {
		return placeholder{}, 0, malformed("unsupported conversion %q for %%(%s)", ph.conv, ph.name)
	}
	return ph, i + 1, nil
}

func (ph placeholder) render(template string, fields *tree.Mapping) (string, error) {
	fail := func(format string, args ...any) error {
		return &TemplateFieldError{Template: template, Field: ph.name, Reason: fmt.Sprintf(format, args...)}
	}

	raw, ok := fields.Get(ph.name)
	if !ok {
		return "", fail("not defined by the component")
	}
	if raw == nil {
		raw = tree.Null()
	}
	val, ok := tree.AsScalar(raw)
	if !ok {
		return "", fail("is a %s, not a scalar", raw.Kind())
	}

	verb := ph.conv
	flags := ph.flags
	var arg any
	switch ph.conv {
	case 's':
		arg = val.Text()
	case 'r':
		verb = 's'
		arg = val.GoString()
	case 'd', 'i', 'x', 'X', 'o':
		n, ok := integerOf(val, ph.conv == 'd' || ph.conv == 'i')
		if !ok {
			return "", fail("%%%c needs a number, got %s", ph.conv, val.Kind())
		}
		arg = n
		switch {
		case ph.conv == 'i':
			verb = 'd'
		case ph.conv == 'o' && strings.Contains(flags, "#"):
			verb = 'O'
			flags = strings.ReplaceAll(flags, "#", "")
		}
	default:
		f, ok := floatOf(val)
		if !ok {
			return "", fail("%%%c needs a number, got %s", ph.conv, val.Kind())
		}
		arg = f
	}

	precision := ph.precision
	hasPrec := ph.hasPrec
	if (verb == 'g' || verb == 'G') && !hasPrec {
		precision, hasPrec = "6", true
	}

	var spec strings.Builder
	spec.WriteByte('%')
	spec.WriteString(flags)
	spec.WriteString(ph.width)
	if hasPrec {
		spec.WriteByte('.')
		spec.WriteString(precision)
	}
	spec.WriteByte(verb)
	return fmt.Sprintf(spec.String(), arg), nil
}

// integerOf converts bools and ints, and floats when truncate is set.
func integerOf(v tree.Scalar, truncate bool) (int64, bool) {
	if b, ok := v.AsBool(); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	if n, ok := v.AsInt(); ok {
		return n, true
	}
	if f, ok := v.AsFloat(); ok && truncate && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f), true
	}
	return 0, false
}

func floatOf(v tree.Scalar) (float64, bool) {
	if b, ok := v.AsBool(); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return v.AsFloat()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

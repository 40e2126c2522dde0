// SPDX-License-Identifier: MPL-2.0

package template

import (
	"errors"
	"testing"

	"github.com/confweave/confweave/pkg/tree"
)

func TestInterpolate(t *testing.T) {
	t.Parallel()

	fields := tree.MappingOf(
		tree.Pair{Key: "hello", Value: tree.String("world")},
		tree.Pair{Key: "port", Value: tree.Int(8080)},
		tree.Pair{Key: "ratio", Value: tree.Float(0.1234567)},
		tree.Pair{Key: "on", Value: tree.Bool(true)},
		tree.Pair{Key: "none", Value: tree.Null()},
	)

	tests := []struct {
		in   string
		want string
	}{
		{"hello, %(hello)s!", "hello, world!"},
		{"no placeholders", "no placeholders"},
		{"100%% of %(hello)s", "100% of world"},
		{"%(port)d", "8080"},
		{"%(port)i", "8080"},
		{"%(port)s", "8080"},
		{"%(port)06d", "008080"},
		{"%(port)-6d|", "8080  |"},
		{"%(port)x", "1f90"},
		{"%(port)#x", "0x1f90"},
		{"%(port)#o", "0o17620"},
		{"%(ratio).2f", "0.12"},
		{"%(ratio)g", "0.123457"},
		{"%(ratio)d", "0"},
		{"%(hello)r", `"world"`},
		{"%(hello).3s", "wor"},
		{"%(hello)8s", "   world"},
		{"%(on)s/%(on)d", "true/1"},
		{"%(none)s", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := Interpolate(tt.in, fields)
			if err != nil {
				t.Fatalf("Interpolate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Interpolate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInterpolate_Errors(t *testing.T) {
	t.Parallel()

	fields := tree.MappingOf(
		tree.Pair{Key: "name", Value: tree.String("x")},
		tree.Pair{Key: "nested", Value: tree.MappingOf()},
	)

	tests := []struct {
		in        string
		wantField string
	}{
		{"%(missing)s", "missing"},
		{"%(name)d", "name"},
		{"%(nested)s", "nested"},
		{"%s", ""},
		{"50%", ""},
		{"%(name", ""},
		{"%(name)", ""},
		{"%(name)q", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			_, err := Interpolate(tt.in, fields)
			var fieldErr *TemplateFieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected TemplateFieldError, got %v", err)
			}
			if fieldErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", fieldErr.Field, tt.wantField)
			}
			if !errors.Is(err, ErrTemplateField) {
				t.Error("errors.Is(err, ErrTemplateField) = false")
			}
		})
	}
}

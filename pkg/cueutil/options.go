// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize caps the size of files accepted by ParseAndDecode and
// CompileTree.
const DefaultMaxFileSize int64 = 8 << 20

const (
	// InputCUE compiles the data as CUE source.
	InputCUE InputFormat = iota
	// InputYAML extracts the data as YAML (which includes JSON) first.
	InputYAML
)

type (
	// InputFormat selects how user data is read.
	InputFormat int

	// Option configures ParseAndDecode and CompileTree.
	Option func(*options)

	options struct {
		filename    string
		maxFileSize int64
		concrete    bool
		format      InputFormat
	}
)

func defaultOptions() options {
	return options{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
		format:      InputCUE,
	}
}

// WithFilename sets the filename used in error messages.
func WithFilename(name string) Option {
	return func(o *options) {
		o.filename = name
	}
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(o *options) {
		o.maxFileSize = n
	}
}

// WithConcrete controls whether validation requires every value to be
// concrete. It is on by default.
func WithConcrete(concrete bool) Option {
	return func(o *options) {
		o.concrete = concrete
	}
}

// WithInputFormat selects how the user data is read.
func WithInputFormat(f InputFormat) Option {
	return func(o *options) {
		o.format = f
	}
}

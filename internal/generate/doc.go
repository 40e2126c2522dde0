// SPDX-License-Identifier: MPL-2.0

// Package generate runs the generation pipeline for manifest targets:
// load the fragments, merge them, resolve __toposort directives, expand
// templates against the component catalogue and hand the rendered YAML to a
// sink.
package generate

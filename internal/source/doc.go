// SPDX-License-Identifier: MPL-2.0

// Package source describes where a configuration fragment comes from and
// loads it into a tree. A source is either a path string or a descriptor
// mapping with one of path, value or text, plus optional extract_from and
// prefix_at transforms.
package source

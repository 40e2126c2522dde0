// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers that fail the test on error instead of
// returning it: writing fixture trees (MustWriteFiles), reading outputs
// (MustReadFile) and creating directories (MustMkdirAll).
package testutil

// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the generation hot paths, used to
// collect PGO profiles:
//   - fragment decoding
//   - deep merges of tagged values
//   - ordered-collection finalization
//   - template expansion
//   - rendering a full target
//
// Run them with:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark

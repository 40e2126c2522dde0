// SPDX-License-Identifier: MPL-2.0

// Package watch reruns generation when the files feeding it change.
//
// Events below a base directory pass through the ignore globs, the watch
// globs and an optional caller filter, then collect in a batch that is handed
// to OnChange once the debounce window closes.
package watch

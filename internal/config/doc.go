// SPDX-License-Identifier: MPL-2.0

// Package config handles confweave's own settings using Viper with CUE as the
// file format.
//
// Settings are loaded from the file given with --settings, otherwise from
// config.cue in the user configuration directory (~/.config/confweave on
// Linux, ~/Library/Application Support/confweave on macOS,
// %APPDATA%\confweave on Windows), otherwise from ./confweave.cue. Every key
// can be overridden with a CONFWEAVE_ environment variable.
//
// Files are validated against an embedded CUE schema (config_schema.cue).
package config

// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the confweave command line.
//
// The root command regenerates the manifest's targets, optionally limited to
// the targets affected by the files named on the command line. Subcommands
// check outputs for staleness, render one target to stdout, list targets,
// watch inputs, inspect settings and explain error codes.
package cmd

// SPDX-License-Identifier: MPL-2.0

package markup

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format names a fragment syntax.
type Format string

const (
	// FormatYAML is YAML 1.2 with custom tags, anchors and merge keys.
	FormatYAML Format = "yaml"
	// FormatJSON is JSON, with comments and trailing commas tolerated.
	FormatJSON Format = "json"
	// FormatTOML is TOML. Table keys are emitted in sorted order.
	FormatTOML Format = "toml"
	// FormatCUE is concrete CUE.
	FormatCUE Format = "cue"
)

// ParseFormat validates a format name. The empty string means YAML.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", "yml":
		return FormatYAML, nil
	case "jsonc":
		return FormatJSON, nil
	case FormatYAML, FormatJSON, FormatTOML, FormatCUE:
		return f, nil
	default:
		return "", fmt.Errorf("unknown fragment format %q (expected yaml, json, toml or cue)", name)
	}
}

// FormatFromPath picks a format from the file extension. Unknown and missing
// extensions are read as YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSON
	case ".toml":
		return FormatTOML
	case ".cue":
		return FormatCUE
	default:
		return FormatYAML
	}
}

package profile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chambrid/xtream-desk/pkg/xtream"
)

const (
	// StoreName is the document store holding the profile collection
	StoreName = "profiles.json"
	// CollectionKey is the key of the profile array inside StoreName
	CollectionKey = "profiles"

	// ExportVersion tags export documents
	ExportVersion = "v1"
)

// Format selects the encoding used by Export and Import
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat maps a user-supplied name to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", NewFormatError(fmt.Sprintf("unsupported format '%s' (use yaml or json)", s), nil)
	}
}

// FormatFromPath picks JSON for .json files and YAML otherwise
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// ExportDocument is the file layout written by Export and read by Import
type ExportDocument struct {
	Version    string                  `json:"version" yaml:"version"`
	ExportedAt string                  `json:"exportedAt" yaml:"exportedAt"`
	Profiles   []xtream.ProfileAccount `json:"profiles" yaml:"profiles"`
}

// ImportResult summarises an Import
type ImportResult struct {
	Imported int      `json:"imported" yaml:"imported"`
	Replaced int      `json:"replaced" yaml:"replaced"`
	Skipped  []string `json:"skipped" yaml:"skipped"`
}

// ValidationResult contains advisory validation results for a profile
type ValidationResult struct {
	Valid    bool     `json:"valid" yaml:"valid"`
	Errors   []string `json:"errors" yaml:"errors"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

package dataset

import (
	"path/filepath"
	"strings"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatFromName infers the payload format from a file name or object key,
// falling back to the content type and finally to JSON.
func FormatFromName(name, contentType string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") {
		return FormatYAML
	}
	return FormatJSON
}

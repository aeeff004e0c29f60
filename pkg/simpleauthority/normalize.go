package simpleauthority

import "strings"

// NormalizeField converts a metadata field name to its dotted form.
// Legacy records store the field with underscores (dc_contributor_author).
func NormalizeField(field string) string {
	return strings.ReplaceAll(strings.TrimSpace(field), "_", ".")
}

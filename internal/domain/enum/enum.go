// Package enum holds the storage-read normalization shared by the status
// types of every domain package.
package enum

import (
	"fmt"
	"strings"
)

// Normalize canonicalizes a stored status value: trimmed, lower case, with
// spaces and dashes folded to underscores ("Written Off" -> "written_off").
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// ScanString extracts a normalized string from a database/sql scan source.
func ScanString(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return Normalize(v), nil
	case []byte:
		return Normalize(string(v)), nil
	default:
		return "", fmt.Errorf("enum: cannot scan %T", src)
	}
}

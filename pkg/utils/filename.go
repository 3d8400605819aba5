package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ReplaceExtension swaps the extension of name for ext (which includes the dot).
// Directory components are dropped.
func ReplaceExtension(name, ext string) string {
	base := SanitizeFilename(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

// SanitizeFilename reduces a client-supplied name to a safe base name.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == 0x7f {
			return -1
		}
		return r
	}, base)

	if base == "" || base == "." || base == "/" || base == ".." {
		return "file"
	}
	return base
}

// GenerateFilename builds a unique name from prefix, e.g. for outputs that must not collide.
func GenerateFilename(prefix, ext string) string {
	return fmt.Sprintf("%s_%d%s", prefix, time.Now().UnixNano(), ext)
}

// Package utils provides small helpers shared across the pipeline: binary
// content detection for MIME sniffing and bounded string truncation for
// previews and prompts.
package utils

import (
	"os"
	"strings"
	"unicode/utf8"
)

// IsBinaryFile checks if a file is binary by reading the first 512 bytes
// and looking for NULL bytes which indicate binary content
func IsBinaryFile(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil {
		return false
	}
	buf = buf[:n]

	for _, b := range buf {
		if b == 0 {
			return true
		}
	}

	return false
}

// ExtractJSONObject returns the outermost {...} span of s, or "". Local
// models wrap JSON in prose and markdown fences often enough that every
// response parser needs this.
func ExtractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// Truncate trims s to at most max bytes without splitting a UTF-8 rune,
// appending an ellipsis marker when content was dropped.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for !utf8.ValidString(cut) && len(cut) > 0 {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimRight(cut, " \t\n") + "..."
}

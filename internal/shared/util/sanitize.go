package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
)

// ErrInvalidFileName is returned when nothing usable is left of a file name.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName reduces a client-supplied name to its base name, drops
// control characters and rejects names that are empty or pure dots.
func SanitizeFileName(name string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	s = path.Base(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" || strings.Trim(s, ".") == "" || s == "/" {
		return "", ErrInvalidFileName
	}
	return s, nil
}

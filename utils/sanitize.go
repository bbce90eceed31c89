package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// SanitizeText strips all markup from a short text field such as a username.
func SanitizeText(input string) string {
	return strings.TrimSpace(strict.Sanitize(input))
}

// NormalizeEmail strips markup and lowercases an email address.
func NormalizeEmail(input string) string {
	return strings.ToLower(SanitizeText(input))
}

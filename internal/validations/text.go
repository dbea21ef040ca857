package validations

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

var spacesRegex *regexp.Regexp = regexp.MustCompile(`\s+`)

var sanitization = bluemonday.StrictPolicy()

// CleanUpText strips markup and collapses whitespace.
func CleanUpText(text string) string {
	return strings.TrimSpace(html.UnescapeString(
		sanitization.Sanitize(
			spacesRegex.ReplaceAllLiteralString(text, " "),
		)))
}

// GetSkipLimit parses skip/limit query values, falling back to 0 and DefaultLimit.
func GetSkipLimit(skipStr, limitStr string) (int, int) {
	skip, err := strconv.Atoi(skipStr)
	if err != nil || skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return skip, limit
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

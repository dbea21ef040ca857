package pipeline

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ScoreExact           = 1.0
	ScoreCaseInsensitive = 0.9
	ScoreContainment     = 0.75

	// minContainmentLength guards substring matching against tiny names.
	minContainmentLength = 3
	maxFolderWords       = 3
)

// FallbackFolder is used when no usable folder name can be produced.
const FallbackFolder = "Uncategorized"

// NameSimilarity scores how strongly two folder names refer to the same folder:
// ScoreExact for identical names, ScoreCaseInsensitive for names equal ignoring
// case, ScoreContainment when one contains the other ignoring case and both
// have at least three runes, zero otherwise.
func NameSimilarity(a, b string) float64 {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return ScoreExact
	}
	if strings.EqualFold(a, b) {
		return ScoreCaseInsensitive
	}
	if utf8.RuneCountInString(a) < minContainmentLength || utf8.RuneCountInString(b) < minContainmentLength {
		return 0
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return ScoreContainment
	}
	return 0
}

// Equivalent reports whether a and b should be treated as the same folder.
func Equivalent(a, b string) bool {
	return NameSimilarity(a, b) >= ScoreContainment
}

// Reconcile maps a free-form folder name onto the most similar existing
// folder and reports whether one was found. The first folder wins ties; name
// is returned unchanged when nothing is equivalent.
func Reconcile(name string, existing []string) (string, bool) {
	best, bestScore := name, 0.0
	for _, folder := range existing {
		if score := NameSimilarity(name, folder); score >= ScoreContainment && score > bestScore {
			best, bestScore = folder, score
		}
	}
	return best, bestScore > 0
}

// ResolveFolder finds the stored spelling of name: exact match first, then a
// case-insensitive one.
func ResolveFolder(name string, existing []string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, folder := range existing {
		if folder == name {
			return folder, true
		}
	}
	for _, folder := range existing {
		if strings.EqualFold(folder, name) {
			return folder, true
		}
	}
	return "", false
}

// NormalizeFolderName post-processes a generated folder name: wrapping quotes
// removed, first three words kept, title-cased, cut to maxLength runes. Results of two
// runes or fewer become FallbackFolder.
func NormalizeFolderName(raw string, maxLength int) string {
	raw = strings.Trim(strings.TrimSpace(raw), "\"'`")
	words := strings.Fields(raw)
	if len(words) > maxFolderWords {
		words = words[:maxFolderWords]
	}
	// A Caser holds state; it cannot be shared between goroutines.
	name := cases.Title(language.English, cases.NoLower).String(strings.Join(words, " "))
	if maxLength > 0 && utf8.RuneCountInString(name) > maxLength {
		name = strings.TrimSpace(string([]rune(name)[:maxLength]))
	}
	if utf8.RuneCountInString(name) <= 2 {
		return FallbackFolder
	}
	return name
}

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/arashthr/shelfmark/internal/ai"
	"github.com/arashthr/shelfmark/internal/logging/loggercontext"
	"github.com/arashthr/shelfmark/internal/metrics"
)

// CreateNew is the matcher's answer when no existing folder fits.
const CreateNew = "create_new"

// FolderMatchResult is the model's folder decision.
type FolderMatchResult struct {
	MatchingFolder  string  `json:"matching_folder"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reasoning       string  `json:"reasoning"`
}

var folderMatchSchema = ai.Schema{
	Properties: map[string]ai.Property{
		"matching_folder":  {Type: "string", Description: "Exact name of an existing folder, or create_new"},
		"confidence_score": {Type: "number", Description: "Confidence between 0.0 and 1.0"},
		"reasoning":        {Type: "string", Description: "Short explanation"},
	},
	Required: []string{"matching_folder", "confidence_score", "reasoning"},
}

// FolderMatcher decides between filing into an existing folder and minting a
// new one.
type FolderMatcher struct {
	Client ai.Client
	// Threshold is the minimum confidence for accepting a match.
	Threshold     float64
	MaxNameLength int
}

// Accepted applies the acceptance rule to a model answer.
func (m *FolderMatcher) Accepted(result FolderMatchResult) bool {
	folder := strings.TrimSpace(result.MatchingFolder)
	return folder != "" && folder != CreateNew && result.ConfidenceScore >= m.Threshold
}

// Match returns the stored name of the existing folder that should absorb the
// bookmark. ok is false when existing is empty, the answer is rejected or
// unresolvable, or the call fails.
func (m *FolderMatcher) Match(ctx context.Context, suggestion CategorySuggestion, existing []string) (string, bool) {
	if len(existing) == 0 {
		return "", false
	}
	logger := loggercontext.Logger(ctx)

	var result FolderMatchResult
	if err := m.Client.GenerateStructured(ctx, matchPrompt(suggestion, existing), folderMatchSchema, &result); err != nil {
		logger.Warnw("matching folder", "error", err)
		metrics.Fallback(metrics.StageMatch)
		return "", false
	}
	if !m.Accepted(result) {
		logger.Debugw("folder match rejected", "folder", result.MatchingFolder, "confidence", result.ConfidenceScore, "reasoning", result.Reasoning)
		return "", false
	}
	folder, ok := ResolveFolder(result.MatchingFolder, existing)
	if !ok {
		logger.Debugw("matched folder does not exist", "folder", result.MatchingFolder)
		return "", false
	}
	return folder, true
}

// NewFolderName asks for a short folder name for suggestion. Failures yield
// FallbackFolder.
func (m *FolderMatcher) NewFolderName(ctx context.Context, suggestion CategorySuggestion) string {
	response, err := m.Client.Generate(ctx, namingPrompt(suggestion))
	if err != nil {
		loggercontext.Logger(ctx).Warnw("naming folder", "error", err)
		metrics.Fallback(metrics.StageNaming)
		return FallbackFolder
	}
	// Models sometimes add an explanation after the name.
	firstLine, _, _ := strings.Cut(strings.TrimSpace(response), "\n")
	return NormalizeFolderName(firstLine, m.MaxNameLength)
}

func matchPrompt(suggestion CategorySuggestion, existing []string) string {
	quoted := make([]string, len(existing))
	for i, f := range existing {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return fmt.Sprintf(`A bookmark was categorized as:
- Primary category: %s
- Subcategory: %s
- Rationale: %s

Existing folders: %s

Pick the existing folder this bookmark clearly belongs to and return its name
exactly as listed. If none fits clearly, return "%s" as matching_folder.
Include a confidence_score between 0.0 and 1.0 and a short reasoning.`,
		suggestion.PrimaryCategory, suggestion.Subcategory, suggestion.Rationale,
		strings.Join(quoted, ", "), CreateNew)
}

func namingPrompt(suggestion CategorySuggestion) string {
	return fmt.Sprintf(`Suggest a broad, generic folder name (2-3 words, Title Case) for bookmarks about:
Primary category: %s
Subcategory: %s

Examples of good folder names:
- "AI & Machine Learning"
- "Cooking Recipes"
- "Web Development"
- "Personal Finance"
- "Travel Destinations"
- "Health & Fitness"
- "Tech News"

Respond with ONLY the folder name, nothing else.`, suggestion.PrimaryCategory, suggestion.Subcategory)
}

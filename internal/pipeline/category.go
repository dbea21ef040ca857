package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/arashthr/shelfmark/internal/ai"
	"github.com/arashthr/shelfmark/internal/logging/loggercontext"
	"github.com/arashthr/shelfmark/internal/metrics"
)

const (
	FallbackCategory    = "Uncategorized"
	FallbackSubcategory = "General"
	FallbackConfidence  = 0.3
)

// CategorySuggestion is a structured category judgment for one bookmark.
type CategorySuggestion struct {
	PrimaryCategory string  `json:"primary_category"`
	Subcategory     string  `json:"subcategory"`
	ConfidenceScore float64 `json:"confidence_score"`
	Rationale       string  `json:"rationale"`
}

var categorySchema = ai.Schema{
	Properties: map[string]ai.Property{
		"primary_category": {Type: "string", Description: "Broad category, e.g. Technology, Cooking, Finance"},
		"subcategory":      {Type: "string", Description: "Narrower topic inside the primary category"},
		"confidence_score": {Type: "number", Description: "Confidence between 0.0 and 1.0"},
		"rationale":        {Type: "string", Description: "One sentence explaining the choice"},
	},
	Required: []string{"primary_category", "subcategory", "confidence_score", "rationale"},
}

type CategoryAnalyzer struct {
	Client ai.Client
}

// Analyze never fails; any error yields the Uncategorized/General suggestion.
func (a *CategoryAnalyzer) Analyze(ctx context.Context, link, note, title, description string) CategorySuggestion {
	var suggestion CategorySuggestion
	err := a.Client.GenerateStructured(ctx, categoryPrompt(link, note, title, description), categorySchema, &suggestion)
	if err == nil && strings.TrimSpace(suggestion.PrimaryCategory) == "" {
		err = fmt.Errorf("%w: empty primary_category", ai.ErrInvalidResponse)
	}
	if err != nil {
		loggercontext.Logger(ctx).Warnw("analyzing category", "link", link, "error", err)
		metrics.Fallback(metrics.StageCategory)
		return fallbackSuggestion(err)
	}

	suggestion.PrimaryCategory = strings.TrimSpace(suggestion.PrimaryCategory)
	suggestion.Subcategory = strings.TrimSpace(suggestion.Subcategory)
	suggestion.ConfidenceScore = clamp(suggestion.ConfidenceScore)
	return suggestion
}

func fallbackSuggestion(err error) CategorySuggestion {
	return CategorySuggestion{
		PrimaryCategory: FallbackCategory,
		Subcategory:     FallbackSubcategory,
		ConfidenceScore: FallbackConfidence,
		Rationale:       fmt.Sprintf("Category analysis failed: %v", err),
	}
}

func categoryPrompt(link, note, title, description string) string {
	var sb strings.Builder
	sb.WriteString("Categorize the following bookmark.\n\n")
	fmt.Fprintf(&sb, "URL: %s\nTitle: %s\nDescription: %s\n", link, title, description)
	if note = strings.TrimSpace(note); note != "" {
		fmt.Fprintf(&sb, "User note: %s\n", note)
	}
	sb.WriteString(`
Respond with a JSON object containing:
- primary_category: a broad, reusable category name
- subcategory: a more specific topic
- confidence_score: a number between 0.0 and 1.0
- rationale: one sentence explaining the choice
If a user note is present, weigh it as heavily as the page content.`)
	return sb.String()
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

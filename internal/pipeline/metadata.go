package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/arashthr/shelfmark/internal/ai"
	"github.com/arashthr/shelfmark/internal/extractor"
	"github.com/arashthr/shelfmark/internal/logging/loggercontext"
	"github.com/arashthr/shelfmark/internal/metrics"
	"github.com/arashthr/shelfmark/internal/validations"
)

const (
	// NoDescription replaces a missing or too short generated description.
	NoDescription = "No description available."
	// noDescriptionOnError is used when the generation call itself fails.
	noDescriptionOnError = "No description available"
)

// MetadataGenerator derives a bookmark title and description from page content.
type MetadataGenerator struct {
	Client               ai.Client
	MinTitleLength       int
	MinDescriptionLength int
	// InputLimit bounds the runes of page content and note sent to the model.
	InputLimit int
}

// Generate never fails. See fallbackTitle and fallbackDescription for the
// substitution rules.
func (g *MetadataGenerator) Generate(ctx context.Context, link string, summary extractor.ContentSummary, note string) (string, string) {
	logger := loggercontext.Logger(ctx)
	domain := summary.Domain
	if domain == "" {
		domain = validations.Domain(link)
	}

	response, err := g.Client.Generate(ctx, g.prompt(link, summary, note))
	if err != nil {
		logger.Warnw("generating title and description", "link", link, "error", err)
		metrics.Fallback(metrics.StageMetadata)
		return domain, noDescriptionOnError
	}

	title, description := parseMetadata(response)
	if utf8.RuneCountInString(title) < g.MinTitleLength {
		title = summary.Title
		if title == "" {
			title = domain
		}
		metrics.Fallback(metrics.StageMetadata)
	}
	if utf8.RuneCountInString(description) < g.MinDescriptionLength {
		description = summary.Description
		if description == "" {
			description = NoDescription
		}
		metrics.Fallback(metrics.StageMetadata)
	}
	return title, description
}

func (g *MetadataGenerator) prompt(link string, summary extractor.ContentSummary, note string) string {
	content, note := fitInput(summary.Render(link), strings.TrimSpace(note), g.InputLimit)

	var sb strings.Builder
	sb.WriteString(`Based on the following web page content, generate:
1. A concise, descriptive title (maximum 10 words)
2. A brief summary (1-2 sentences)
`)
	if note != "" {
		sb.WriteString(`
The user saved this page with a personal note. Give the note the same weight as
the page content when choosing the title and summary.
`)
	}
	sb.WriteString(`
Format your response exactly like this:
Title: [your generated title]
Description: [your generated description]

Web content:
`)
	sb.WriteString(content)
	if note != "" {
		fmt.Fprintf(&sb, "\n\nUser note:\n%s", note)
	}
	return sb.String()
}

// fitInput trims content and note so together they fit in limit runes.
// The note keeps at most half of the budget and is cut last.
func fitInput(content, note string, limit int) (string, string) {
	if limit <= 0 {
		return content, note
	}
	note = validations.Truncate(note, limit/2)
	content = validations.Truncate(content, limit-utf8.RuneCountInString(note))
	return content, note
}

// parseMetadata reads the first "Title:" and "Description:" lines.
func parseMetadata(response string) (string, string) {
	var title, description string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "*# ")
		switch {
		case title == "" && strings.HasPrefix(line, "Title:"):
			title = cleanValue(strings.TrimPrefix(line, "Title:"))
		case description == "" && strings.HasPrefix(line, "Description:"):
			description = cleanValue(strings.TrimPrefix(line, "Description:"))
		}
	}
	return title, description
}

func cleanValue(value string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*"))
}

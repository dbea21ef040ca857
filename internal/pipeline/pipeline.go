// Package pipeline turns a URL (and an optional user note) into a title, a
// description and a folder by chaining content extraction with model calls.
// Every stage degrades to a fallback value instead of failing.
package pipeline

import (
	"context"
	"time"

	"github.com/arashthr/shelfmark/internal/ai"
	"github.com/arashthr/shelfmark/internal/config"
	"github.com/arashthr/shelfmark/internal/extractor"
	"github.com/arashthr/shelfmark/internal/logging/loggercontext"
	"github.com/arashthr/shelfmark/internal/metrics"
)

type ContentExtractor interface {
	Extract(ctx context.Context, link string) extractor.ContentSummary
}

// Result is always fully populated.
type Result struct {
	Title           string
	Description     string
	FolderName      string
	Category        CategorySuggestion
	MatchedExisting bool
}

type Pipeline struct {
	Extractor ContentExtractor
	Metadata  *MetadataGenerator
	Analyzer  *CategoryAnalyzer
	Matcher   *FolderMatcher
}

func New(cfg config.PipelineConfig, client ai.Client) *Pipeline {
	return NewWithExtractor(cfg, client, extractor.New(extractor.Config{
		Timeout:       cfg.FetchTimeout,
		MainTextLimit: cfg.MainTextLimit,
	}))
}

func NewWithExtractor(cfg config.PipelineConfig, client ai.Client, ex ContentExtractor) *Pipeline {
	return &Pipeline{
		Extractor: ex,
		Metadata: &MetadataGenerator{
			Client:               client,
			MinTitleLength:       cfg.MinTitleLength,
			MinDescriptionLength: cfg.MinDescriptionLength,
			InputLimit:           cfg.PromptInputLimit,
		},
		Analyzer: &CategoryAnalyzer{Client: client},
		Matcher: &FolderMatcher{
			Client:        client,
			Threshold:     cfg.MatchThreshold,
			MaxNameLength: cfg.FolderNameMaxLength,
		},
	}
}

// Process runs extract, generate metadata, analyze category and folder
// selection in order. existing holds the current folder names.
func (p *Pipeline) Process(ctx context.Context, link, note string, existing []string) Result {
	start := time.Now()
	defer func() { metrics.PipelineDuration.Observe(time.Since(start).Seconds()) }()
	logger := loggercontext.Logger(ctx)

	summary := p.Extractor.Extract(ctx, link)
	if summary.Degraded() {
		metrics.Fallback(metrics.StageExtract)
	}

	title, description := p.Metadata.Generate(ctx, link, summary, note)
	suggestion := p.Analyzer.Analyze(ctx, link, note, title, description)
	folder, matched := p.SelectFolder(ctx, suggestion, existing)

	logger.Infow("bookmark processed",
		"link", link,
		"title", title,
		"category", suggestion.PrimaryCategory,
		"folder", folder,
		"matched", matched)
	return Result{
		Title:           title,
		Description:     description,
		FolderName:      folder,
		Category:        suggestion,
		MatchedExisting: matched,
	}
}

// SelectFolder prefers an accepted match; otherwise a freshly named folder is
// reconciled against the existing ones.
func (p *Pipeline) SelectFolder(ctx context.Context, suggestion CategorySuggestion, existing []string) (string, bool) {
	if folder, ok := p.Matcher.Match(ctx, suggestion, existing); ok {
		metrics.FolderDecisions.WithLabelValues("matched").Inc()
		return folder, true
	}
	name := p.Matcher.NewFolderName(ctx, suggestion)
	if reconciled, ok := Reconcile(name, existing); ok {
		metrics.FolderDecisions.WithLabelValues("reconciled").Inc()
		return reconciled, true
	}
	metrics.FolderDecisions.WithLabelValues("new").Inc()
	return name, false
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/arashthr/shelfmark/internal/errors"
	"github.com/arashthr/shelfmark/internal/logging/loggercontext"
	"github.com/arashthr/shelfmark/internal/models"
	"github.com/arashthr/shelfmark/internal/pipeline"
	"github.com/arashthr/shelfmark/internal/types"
	"github.com/arashthr/shelfmark/internal/validations"
)

// Bookmarks files new bookmarks: it runs the pipeline and persists the
// folder (when new) and the bookmark.
type Bookmarks struct {
	Folders   FolderStore
	Bookmarks BookmarkStore
	Pipeline  Processor
}

// Suggest runs the pipeline without writing anything. The pipeline is skipped
// when the request already carries a title, a description and a folder name.
func (b *Bookmarks) Suggest(ctx context.Context, req types.CreateBookmarkRequest) (types.Suggestion, error) {
	req.URL = strings.TrimSpace(req.URL)
	if !validations.IsURLValid(req.URL) {
		return types.Suggestion{}, errors.Public(errors.ErrInvalidUrl, fmt.Sprintf("Invalid URL: %v", req.URL))
	}

	names, err := b.Folders.Names(ctx)
	if err != nil {
		return types.Suggestion{}, fmt.Errorf("listing folder names: %w", err)
	}

	var suggestion types.Suggestion
	if !req.Complete() {
		result := b.Pipeline.Process(ctx, req.URL, req.Note(), names)
		suggestion = types.Suggestion{
			Title:       result.Title,
			Description: result.Description,
			FolderName:  result.FolderName,
		}
	}
	if v := trimmed(req.Title); v != "" {
		suggestion.Title = v
	}
	if v := trimmed(req.Description); v != "" {
		suggestion.Description = v
	}
	if v := trimmed(req.FolderName); v != "" {
		suggestion.FolderName, _ = pipeline.Reconcile(v, names)
	}
	return suggestion, nil
}

// Create files a bookmark and returns it with the name of its folder.
func (b *Bookmarks) Create(ctx context.Context, req types.CreateBookmarkRequest) (*models.Bookmark, *models.Folder, error) {
	logger := loggercontext.Logger(ctx)
	suggestion, err := b.Suggest(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	nb := models.NewBookmark{
		URL:         strings.TrimSpace(req.URL),
		Title:       suggestion.Title,
		Description: optional(suggestion.Description),
		UserNote:    optional(strings.TrimSpace(req.Note())),
	}
	// A folder deleted between lookup and insert is recreated once.
	for attempt := 0; ; attempt++ {
		folder, err := b.ensureFolder(ctx, suggestion.FolderName)
		if err != nil {
			return nil, nil, err
		}
		nb.FolderID = folder.ID
		bookmark, err := b.Bookmarks.Create(ctx, nb)
		if errors.Is(err, errors.ErrFolderMissing) && attempt == 0 {
			logger.Warnw("folder vanished before insert", "folder", folder.Name)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("create bookmark: %w", err)
		}
		logger.Infow("bookmark created", "bookmarkId", bookmark.ID, "folder", folder.Name)
		return bookmark, folder, nil
	}
}

// ensureFolder returns the folder called name, creating it when missing. A
// concurrent create of the same name is resolved by reusing the winner's row.
func (b *Bookmarks) ensureFolder(ctx context.Context, name string) (*models.Folder, error) {
	folder, err := b.Folders.ByName(ctx, name)
	if err == nil {
		return folder, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, fmt.Errorf("folder by name: %w", err)
	}

	folder, err = b.Folders.Create(ctx, name)
	if errors.Is(err, errors.ErrFolderExists) {
		loggercontext.Logger(ctx).Debugw("folder created concurrently", "folder", name)
		folder, err = b.Folders.ByName(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("ensure folder %q: %w", name, err)
	}
	return folder, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

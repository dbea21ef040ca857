package service

import (
	"context"

	"github.com/arashthr/shelfmark/internal/models"
	"github.com/arashthr/shelfmark/internal/pipeline"
)

// FolderStore is implemented by models.FolderModel and storage.FolderStore.
type FolderStore interface {
	ByName(ctx context.Context, name string) (*models.Folder, error)
	ByID(ctx context.Context, id int64) (*models.Folder, error)
	Create(ctx context.Context, name string) (*models.Folder, error)
	List(ctx context.Context, skip, limit int) ([]models.Folder, error)
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id int64) error
}

// BookmarkStore is implemented by models.BookmarkModel and storage.BookmarkStore.
type BookmarkStore interface {
	Create(ctx context.Context, nb models.NewBookmark) (*models.Bookmark, error)
	ByID(ctx context.Context, id int64) (*models.Bookmark, error)
	Update(ctx context.Context, id int64, update models.BookmarkUpdate) (*models.Bookmark, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, skip, limit int) ([]models.Bookmark, error)
	ListByFolder(ctx context.Context, folderID int64) ([]models.Bookmark, error)
}

type Processor interface {
	Process(ctx context.Context, link, note string, existing []string) pipeline.Result
}

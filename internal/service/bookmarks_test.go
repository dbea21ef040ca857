package service

import (
	"context"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/arashthr/shelfmark/internal/errors"
	"github.com/arashthr/shelfmark/internal/models"
	"github.com/arashthr/shelfmark/internal/storage"
)

// lateFolderStore hides folders from the first ByName call, as if another
// request created the folder right after the lookup.
type lateFolderStore struct {
	FolderStore
	lookups int
}

func (s *lateFolderStore) ByName(ctx context.Context, name string) (*models.Folder, error) {
	s.lookups++
	if s.lookups == 1 {
		return nil, errors.ErrNotFound
	}
	return s.FolderStore.ByName(ctx, name)
}

func openStore(t *testing.T) *storage.SQLite {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "bookmarks.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEnsureFolderReusesConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	existing, err := db.Folders.Create(ctx, "Reading")
	assert.NilError(t, err)

	folders := &lateFolderStore{FolderStore: db.Folders}
	b := &Bookmarks{Folders: folders, Bookmarks: db.Bookmarks}

	folder, err := b.ensureFolder(ctx, "Reading")
	assert.NilError(t, err)
	assert.Equal(t, folder.ID, existing.ID)
	assert.Equal(t, folders.lookups, 2)
}

func TestEnsureFolderCreatesMissing(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	b := &Bookmarks{Folders: db.Folders, Bookmarks: db.Bookmarks}

	folder, err := b.ensureFolder(ctx, "Travel Destinations")
	assert.NilError(t, err)
	assert.Equal(t, folder.Name, "Travel Destinations")

	again, err := b.ensureFolder(ctx, "Travel Destinations")
	assert.NilError(t, err)
	assert.Equal(t, again.ID, folder.ID)
}

func TestSearchFoldersRanksAndLimits(t *testing.T) {
	folders := []models.Folder{
		{ID: 1, Name: "Travel"},
		{ID: 2, Name: "Tech News"},
		{ID: 3, Name: "Tea"},
	}

	results := SearchFolders("tech", folders, 10)
	assert.Equal(t, len(results), 1)
	assert.Equal(t, results[0].ID, int64(2))

	results = SearchFolders("t", folders, 1)
	assert.Equal(t, len(results), 1)

	assert.Equal(t, len(SearchFolders("zzz", folders, 10)), 0)
}

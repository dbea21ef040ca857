package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/arashthr/shelfmark/internal/errors"
	"github.com/arashthr/shelfmark/internal/models"
	"github.com/arashthr/shelfmark/internal/storage"
)

func openTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "data", "bookmarks.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func TestFolderUniqueness(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	folder, err := s.Folders.Create(ctx, "Tech News")
	assert.NilError(t, err)
	assert.Assert(t, folder.ID > 0)

	_, err = s.Folders.Create(ctx, "Tech News")
	assert.ErrorIs(t, err, errors.ErrFolderExists)

	// Storage uniqueness is case-sensitive.
	_, err = s.Folders.Create(ctx, "tech news")
	assert.NilError(t, err)

	_, err = s.Folders.Create(ctx, "   ")
	assert.ErrorIs(t, err, errors.ErrEmptyName)

	names, err := s.Folders.Names(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, names, []string{"Tech News", "tech news"})
}

func TestFolderLookup(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	created, err := s.Folders.Create(ctx, "Cooking")
	assert.NilError(t, err)

	byName, err := s.Folders.ByName(ctx, "Cooking")
	assert.NilError(t, err)
	assert.Equal(t, byName.ID, created.ID)
	assert.Assert(t, !byName.CreatedAt.IsZero())

	byID, err := s.Folders.ByID(ctx, created.ID)
	assert.NilError(t, err)
	assert.Equal(t, byID.Name, "Cooking")

	_, err = s.Folders.ByName(ctx, "Missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, err = s.Folders.ByID(ctx, 999)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestFolderDeleteRequiresEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	full, err := s.Folders.Create(ctx, "Full")
	assert.NilError(t, err)
	empty, err := s.Folders.Create(ctx, "Empty")
	assert.NilError(t, err)
	_, err = s.Bookmarks.Create(ctx, models.NewBookmark{URL: "https://example.com", Title: "Example", FolderID: full.ID})
	assert.NilError(t, err)

	assert.ErrorIs(t, s.Folders.Delete(ctx, full.ID), errors.ErrFolderNotEmpty)
	assert.NilError(t, s.Folders.Delete(ctx, empty.ID))
	assert.ErrorIs(t, s.Folders.Delete(ctx, empty.ID), errors.ErrNotFound)

	_, err = s.Folders.ByID(ctx, full.ID)
	assert.NilError(t, err)
}

func TestBookmarkRequiresFolder(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	_, err := s.Bookmarks.Create(ctx, models.NewBookmark{URL: "https://example.com", Title: "Example", FolderID: 42})
	assert.ErrorIs(t, err, errors.ErrFolderMissing)
}

func TestBookmarkCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	reading, err := s.Folders.Create(ctx, "Reading")
	assert.NilError(t, err)
	archive, err := s.Folders.Create(ctx, "Archive")
	assert.NilError(t, err)

	created, err := s.Bookmarks.Create(ctx, models.NewBookmark{
		URL:         "https://example.com/article",
		Title:       "Example Summary",
		Description: ptr("A short piece about examples."),
		FolderID:    reading.ID,
	})
	assert.NilError(t, err)
	assert.Assert(t, created.UserNote == nil)

	got, err := s.Bookmarks.ByID(ctx, created.ID)
	assert.NilError(t, err)
	assert.Equal(t, got.Title, "Example Summary")
	assert.Equal(t, *got.Description, "A short piece about examples.")
	assert.Assert(t, got.UserNote == nil)
	assert.Equal(t, got.FolderID, reading.ID)

	updated, err := s.Bookmarks.Update(ctx, created.ID, models.BookmarkUpdate{
		UserNote: ptr("read later"),
		FolderID: &archive.ID,
	})
	assert.NilError(t, err)
	assert.Equal(t, updated.Title, "Example Summary")
	assert.Equal(t, *updated.UserNote, "read later")
	assert.Equal(t, updated.FolderID, archive.ID)

	_, err = s.Bookmarks.Update(ctx, created.ID, models.BookmarkUpdate{FolderID: ptr(int64(999))})
	assert.ErrorIs(t, err, errors.ErrFolderMissing)
	_, err = s.Bookmarks.Update(ctx, 999, models.BookmarkUpdate{Title: ptr("x")})
	assert.ErrorIs(t, err, errors.ErrNotFound)

	inArchive, err := s.Bookmarks.ListByFolder(ctx, archive.ID)
	assert.NilError(t, err)
	assert.Equal(t, len(inArchive), 1)

	assert.NilError(t, s.Bookmarks.Delete(ctx, created.ID))
	assert.ErrorIs(t, s.Bookmarks.Delete(ctx, created.ID), errors.ErrNotFound)
	_, err = s.Bookmarks.ByID(ctx, created.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	// The folder stays after its last bookmark goes.
	assert.NilError(t, s.Folders.Delete(ctx, archive.ID))
}

func TestPagination(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	folder, err := s.Folders.Create(ctx, "Links")
	assert.NilError(t, err)
	for i := 0; i < 5; i++ {
		_, err := s.Bookmarks.Create(ctx, models.NewBookmark{URL: "https://example.com", Title: "Link", FolderID: folder.ID})
		assert.NilError(t, err)
	}

	page, err := s.Bookmarks.List(ctx, 1, 2)
	assert.NilError(t, err)
	assert.Equal(t, len(page), 2)
	assert.Assert(t, page[0].ID < page[1].ID)

	all, err := s.Bookmarks.List(ctx, 0, 100)
	assert.NilError(t, err)
	assert.Equal(t, len(all), 5)
	assert.Equal(t, page[0].ID, all[1].ID)

	none, err := s.Bookmarks.List(ctx, 10, 100)
	assert.NilError(t, err)
	assert.Equal(t, len(none), 0)

	folders, err := s.Folders.List(ctx, 0, 100)
	assert.NilError(t, err)
	assert.Equal(t, len(folders), 1)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookmarks.db")

	s, err := storage.Open(ctx, path)
	assert.NilError(t, err)
	_, err = s.Folders.Create(ctx, "Persistent")
	assert.NilError(t, err)
	assert.NilError(t, s.Close())

	s, err = storage.Open(ctx, path)
	assert.NilError(t, err)
	defer s.Close()
	_, err = s.Folders.ByName(ctx, "Persistent")
	assert.NilError(t, err)
}

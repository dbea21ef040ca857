package models

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arashthr/shelfmark/internal/errors"
)

type Bookmark struct {
	ID          int64     `db:"id" json:"id"`
	URL         string    `db:"url" json:"url"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description"`
	UserNote    *string   `db:"user_note" json:"user_note"`
	FolderID    int64     `db:"folder_id" json:"folder_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// NewBookmark carries the fields needed to insert a bookmark.
type NewBookmark struct {
	URL         string
	Title       string
	Description *string
	UserNote    *string
	FolderID    int64
}

// BookmarkUpdate lists the mutable fields. Nil fields are left unchanged.
type BookmarkUpdate struct {
	Title       *string
	Description *string
	UserNote    *string
	FolderID    *int64
}

type BookmarkModel struct {
	Pool *pgxpool.Pool
}

const bookmarkColumns = `id, url, title, description, user_note, folder_id, created_at`

func (bm *BookmarkModel) Create(ctx context.Context, nb NewBookmark) (*Bookmark, error) {
	rows, err := bm.Pool.Query(ctx, `
		INSERT INTO bookmarks (url, title, description, user_note, folder_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+bookmarkColumns,
		nb.URL, nb.Title, nb.Description, nb.UserNote, nb.FolderID)
	if err != nil {
		return nil, fmt.Errorf("create bookmark: %w", err)
	}
	bookmark, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Bookmark])
	if err != nil {
		return nil, constraintError(err, "create bookmark", bookmarkViolations)
	}
	return &bookmark, nil
}

func (bm *BookmarkModel) ByID(ctx context.Context, id int64) (*Bookmark, error) {
	rows, err := bm.Pool.Query(ctx, `SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query bookmark: %w", err)
	}
	bookmark, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Bookmark])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("collect bookmark: %w", err)
	}
	return &bookmark, nil
}

func (bm *BookmarkModel) Update(ctx context.Context, id int64, update BookmarkUpdate) (*Bookmark, error) {
	rows, err := bm.Pool.Query(ctx, `
		UPDATE bookmarks SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			user_note = COALESCE($4, user_note),
			folder_id = COALESCE($5, folder_id)
		WHERE id = $1
		RETURNING `+bookmarkColumns,
		id, update.Title, update.Description, update.UserNote, update.FolderID)
	if err != nil {
		return nil, fmt.Errorf("update bookmark: %w", err)
	}
	bookmark, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Bookmark])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, constraintError(err, "update bookmark", bookmarkViolations)
	}
	return &bookmark, nil
}

func (bm *BookmarkModel) Delete(ctx context.Context, id int64) error {
	tag, err := bm.Pool.Exec(ctx, `DELETE FROM bookmarks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (bm *BookmarkModel) List(ctx context.Context, skip, limit int) ([]Bookmark, error) {
	rows, err := bm.Pool.Query(ctx, `
		SELECT `+bookmarkColumns+` FROM bookmarks
		ORDER BY id
		OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	bookmarks, err := pgx.CollectRows(rows, pgx.RowToStructByName[Bookmark])
	if err != nil {
		return nil, fmt.Errorf("collect bookmarks: %w", err)
	}
	return bookmarks, nil
}

func (bm *BookmarkModel) ListByFolder(ctx context.Context, folderID int64) ([]Bookmark, error) {
	rows, err := bm.Pool.Query(ctx, `
		SELECT `+bookmarkColumns+` FROM bookmarks
		WHERE folder_id = $1
		ORDER BY id`, folderID)
	if err != nil {
		return nil, fmt.Errorf("query folder bookmarks: %w", err)
	}
	bookmarks, err := pgx.CollectRows(rows, pgx.RowToStructByName[Bookmark])
	if err != nil {
		return nil, fmt.Errorf("collect folder bookmarks: %w", err)
	}
	return bookmarks, nil
}

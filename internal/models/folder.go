// Package models holds the folder and bookmark records and their PostgreSQL
// implementation.
package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arashthr/shelfmark/internal/errors"
)

type Folder struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type FolderModel struct {
	Pool *pgxpool.Pool
}

func (fm *FolderModel) Create(ctx context.Context, name string) (*Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.ErrEmptyName
	}
	rows, err := fm.Pool.Query(ctx, `
		INSERT INTO folders (name) VALUES ($1)
		RETURNING id, name, created_at`, name)
	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	folder, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Folder])
	if err != nil {
		return nil, constraintError(err, "create folder", folderCreateViolations)
	}
	return &folder, nil
}

func (fm *FolderModel) ByName(ctx context.Context, name string) (*Folder, error) {
	rows, err := fm.Pool.Query(ctx, `
		SELECT id, name, created_at FROM folders WHERE name = $1`, name)
	if err != nil {
		return nil, fmt.Errorf("query folder by name: %w", err)
	}
	return collectFolder(rows)
}

func (fm *FolderModel) ByID(ctx context.Context, id int64) (*Folder, error) {
	rows, err := fm.Pool.Query(ctx, `
		SELECT id, name, created_at FROM folders WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query folder by id: %w", err)
	}
	return collectFolder(rows)
}

func (fm *FolderModel) List(ctx context.Context, skip, limit int) ([]Folder, error) {
	rows, err := fm.Pool.Query(ctx, `
		SELECT id, name, created_at FROM folders
		ORDER BY id
		OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	folders, err := pgx.CollectRows(rows, pgx.RowToStructByName[Folder])
	if err != nil {
		return nil, fmt.Errorf("collect folders: %w", err)
	}
	return folders, nil
}

// Names returns every folder name in creation order.
func (fm *FolderModel) Names(ctx context.Context) ([]string, error) {
	rows, err := fm.Pool.Query(ctx, `SELECT name FROM folders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query folder names: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect folder names: %w", err)
	}
	return names, nil
}

// Delete removes an empty folder. The foreign key on bookmarks rejects the
// delete while any bookmark references the folder.
func (fm *FolderModel) Delete(ctx context.Context, id int64) error {
	tag, err := fm.Pool.Exec(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return constraintError(err, "delete folder", folderDeleteViolations)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func collectFolder(rows pgx.Rows) (*Folder, error) {
	folder, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Folder])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("collect folder: %w", err)
	}
	return &folder, nil
}

var (
	folderCreateViolations = map[string]error{pgerrcode.UniqueViolation: errors.ErrFolderExists}
	folderDeleteViolations = map[string]error{pgerrcode.ForeignKeyViolation: errors.ErrFolderNotEmpty}
	bookmarkViolations     = map[string]error{pgerrcode.ForeignKeyViolation: errors.ErrFolderMissing}
)

// constraintError maps a constraint violation listed in violations onto its
// sentinel. Anything else is wrapped with op.
func constraintError(err error, op string, violations map[string]error) error {
	if sentinel, ok := violations[sqlState(err)]; ok {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

// sqlState returns the PostgreSQL error code carried by err, if any.
func sqlState(err error) string {
	var pgErr interface {
		SQLState() string
	}
	if errors.As(err, &pgErr) {
		return pgErr.SQLState()
	}
	return ""
}

// Package storage implements the folder and bookmark stores on SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/arashthr/shelfmark/internal/errors"
	"github.com/arashthr/shelfmark/internal/models"
)

const currentSchemaVersion = 1

// SQLite stores folders and bookmarks in a single database file. Folders and
// Bookmarks expose the two stores over the same connection.
type SQLite struct {
	db   *sql.DB
	path string

	Folders   *FolderStore
	Bookmarks *BookmarkStore
}

type FolderStore struct{ db *sql.DB }

type BookmarkStore struct{ db *sql.DB }

// Open creates the database file and its directory if needed and migrates the
// schema.
func Open(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One writer at a time; uniqueness races are settled by the constraint.
	db.SetMaxOpenConns(1)

	s := &SQLite{
		db:        db,
		path:      path,
		Folders:   &FolderStore{db: db},
		Bookmarks: &BookmarkStore{db: db},
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}
	return s, nil
}

func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate(ctx context.Context) error {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Missing table means a fresh database.
		version = 0
	}

	if version < 1 {
		if _, err := s.db.ExecContext(ctx, schemaV1); err != nil {
			return err
		}
	}
	return nil
}

var schemaV1 = fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS folders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE CHECK (name <> ''),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bookmarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		user_note TEXT,
		folder_id INTEGER NOT NULL REFERENCES folders(id) ON DELETE RESTRICT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_folder_id ON bookmarks(folder_id);

	INSERT OR REPLACE INTO schema_version (version) VALUES (%d);
`, currentSchemaVersion)

func (fs *FolderStore) Create(ctx context.Context, name string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.ErrEmptyName
	}
	now := time.Now().UTC()
	res, err := fs.db.ExecContext(ctx,
		`INSERT INTO folders (name, created_at) VALUES (?, ?)`, name, formatTime(now))
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return nil, errors.ErrFolderExists
		}
		return nil, fmt.Errorf("create folder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return &models.Folder{ID: id, Name: name, CreatedAt: now}, nil
}

func (fs *FolderStore) ByName(ctx context.Context, name string) (*models.Folder, error) {
	row := fs.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM folders WHERE name = ?`, name)
	return scanFolder(row)
}

func (fs *FolderStore) ByID(ctx context.Context, id int64) (*models.Folder, error) {
	row := fs.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM folders WHERE id = ?`, id)
	return scanFolder(row)
}

func (fs *FolderStore) List(ctx context.Context, skip, limit int) ([]models.Folder, error) {
	rows, err := fs.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM folders ORDER BY id LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, *folder)
	}
	return folders, rows.Err()
}

func (fs *FolderStore) Names(ctx context.Context) ([]string, error) {
	rows, err := fs.db.QueryContext(ctx, `SELECT name FROM folders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query folder names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan folder name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (fs *FolderStore) Delete(ctx context.Context, id int64) error {
	res, err := fs.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return errors.ErrFolderNotEmpty
		}
		return fmt.Errorf("delete folder: %w", err)
	}
	return expectOneRow(res)
}

const bookmarkColumns = `id, url, title, description, user_note, folder_id, created_at`

func (bs *BookmarkStore) Create(ctx context.Context, nb models.NewBookmark) (*models.Bookmark, error) {
	now := time.Now().UTC()
	res, err := bs.db.ExecContext(ctx, `
		INSERT INTO bookmarks (url, title, description, user_note, folder_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nb.URL, nb.Title, nullString(nb.Description), nullString(nb.UserNote), nb.FolderID, formatTime(now))
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return nil, errors.ErrFolderMissing
		}
		return nil, fmt.Errorf("create bookmark: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create bookmark: %w", err)
	}
	return &models.Bookmark{
		ID:          id,
		URL:         nb.URL,
		Title:       nb.Title,
		Description: nb.Description,
		UserNote:    nb.UserNote,
		FolderID:    nb.FolderID,
		CreatedAt:   now,
	}, nil
}

func (bs *BookmarkStore) ByID(ctx context.Context, id int64) (*models.Bookmark, error) {
	row := bs.db.QueryRowContext(ctx, `SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ?`, id)
	return scanBookmark(row)
}

func (bs *BookmarkStore) Update(ctx context.Context, id int64, update models.BookmarkUpdate) (*models.Bookmark, error) {
	var folderID sql.NullInt64
	if update.FolderID != nil {
		folderID = sql.NullInt64{Int64: *update.FolderID, Valid: true}
	}
	res, err := bs.db.ExecContext(ctx, `
		UPDATE bookmarks SET
			title = COALESCE(?, title),
			description = COALESCE(?, description),
			user_note = COALESCE(?, user_note),
			folder_id = COALESCE(?, folder_id)
		WHERE id = ?`,
		nullString(update.Title), nullString(update.Description), nullString(update.UserNote), folderID, id)
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return nil, errors.ErrFolderMissing
		}
		return nil, fmt.Errorf("update bookmark: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	return bs.ByID(ctx, id)
}

func (bs *BookmarkStore) Delete(ctx context.Context, id int64) error {
	res, err := bs.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return expectOneRow(res)
}

func (bs *BookmarkStore) List(ctx context.Context, skip, limit int) ([]models.Bookmark, error) {
	rows, err := bs.db.QueryContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks ORDER BY id LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	return collectBookmarks(rows)
}

func (bs *BookmarkStore) ListByFolder(ctx context.Context, folderID int64) ([]models.Bookmark, error) {
	rows, err := bs.db.QueryContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE folder_id = ? ORDER BY id`, folderID)
	if err != nil {
		return nil, fmt.Errorf("query folder bookmarks: %w", err)
	}
	return collectBookmarks(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFolder(row scanner) (*models.Folder, error) {
	var folder models.Folder
	var createdAt string
	if err := row.Scan(&folder.ID, &folder.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("scan folder: %w", err)
	}
	folder.CreatedAt = parseTime(createdAt)
	return &folder, nil
}

func scanBookmark(row scanner) (*models.Bookmark, error) {
	var b models.Bookmark
	var description, note sql.NullString
	var createdAt string
	if err := row.Scan(&b.ID, &b.URL, &b.Title, &description, &note, &b.FolderID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("scan bookmark: %w", err)
	}
	if description.Valid {
		b.Description = &description.String
	}
	if note.Valid {
		b.UserNote = &note.String
	}
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

func collectBookmarks(rows *sql.Rows) ([]models.Bookmark, error) {
	defer rows.Close()
	bookmarks := []models.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, *b)
	}
	return bookmarks, rows.Err()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// constraintCode returns the extended SQLite result code for constraint
// violations, or zero.
func constraintCode(err error) int {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0
	}
	switch code := sqliteErr.Code(); code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return code
	}
	// Older builds report the primary code only.
	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return sqlite3.SQLITE_CONSTRAINT_UNIQUE
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

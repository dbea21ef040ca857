package models

import (
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gotest.tools/v3/assert"

	"github.com/arashthr/shelfmark/internal/errors"
)

func TestSQLState(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, pgerrcode.UniqueViolation},
		{"wrapped foreign key violation", fmt.Errorf("create bookmark: %w", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}), pgerrcode.ForeignKeyViolation},
		{"plain error", errors.New("connection refused"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, sqlState(tt.err), tt.want)
		})
	}
}

func TestConstraintError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		violations map[string]error
		want       error
	}{
		{"duplicate folder name", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, folderCreateViolations, errors.ErrFolderExists},
		{"folder still referenced", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, folderDeleteViolations, errors.ErrFolderNotEmpty},
		{"bookmark folder missing", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, bookmarkViolations, errors.ErrFolderMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, constraintError(tt.err, "op", tt.violations), tt.want)
		})
	}
}

func TestConstraintErrorWrapsOthers(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.CheckViolation}
	err := constraintError(pgErr, "create folder", folderCreateViolations)

	assert.ErrorContains(t, err, "create folder")
	var got *pgconn.PgError
	assert.Assert(t, errors.As(err, &got))
	assert.Equal(t, got.Code, pgerrcode.CheckViolation)
}

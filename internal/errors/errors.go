package errors

import "errors"

var (
	ErrNotFound   = errors.New("resource could not be found")
	ErrInvalidUrl = errors.New("url is invalid")

	// Folders
	ErrFolderExists   = errors.New("folder with this name already exists")
	ErrFolderNotEmpty = errors.New("folder still has bookmarks")
	ErrFolderMissing  = errors.New("referenced folder does not exist")
	ErrEmptyName      = errors.New("folder name is empty")

	// Rate limiting
	ErrRateLimited = errors.New("too many pipeline requests")
)

// Is and As are re-exported so callers only need this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func New(text string) error {
	return errors.New(text)
}

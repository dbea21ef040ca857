package types

import "strings"

// CreateBookmarkRequest is the body of the create and suggest endpoints.
// Title, Description and FolderName override generated values when set.
type CreateBookmarkRequest struct {
	URL         string  `json:"url"`
	UserNote    *string `json:"user_note,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	FolderName  *string `json:"folder_name,omitempty"`
}

// Complete reports whether the request supplies everything the pipeline
// would otherwise produce.
func (r CreateBookmarkRequest) Complete() bool {
	return present(r.Title) && present(r.Description) && present(r.FolderName)
}

func (r CreateBookmarkRequest) Note() string {
	if r.UserNote == nil {
		return ""
	}
	return *r.UserNote
}

type UpdateBookmarkRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	UserNote    *string `json:"user_note,omitempty"`
	FolderID    *int64  `json:"folder_id,omitempty"`
}

// Suggestion is the result of a pipeline run.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FolderName  string `json:"folder_name"`
}

type CreateFolderRequest struct {
	Name string `json:"name"`
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

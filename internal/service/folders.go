package service

import (
	"net/http"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/arashthr/shelfmark/internal/logging/loggercontext"
	"github.com/arashthr/shelfmark/internal/models"
	"github.com/arashthr/shelfmark/internal/types"
	"github.com/arashthr/shelfmark/internal/validations"
)

// maxSearchFolders bounds how many folders a fuzzy search ranks.
const maxSearchFolders = 10000

type FolderWithBookmarks struct {
	models.Folder
	Bookmarks []models.Bookmark `json:"bookmarks"`
}

func (a *Api) CreateFolderAPI(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	var data types.CreateFolderRequest
	if !decodeBody(w, r, &data) {
		return
	}
	folder, err := a.Folders.Create(r.Context(), strings.TrimSpace(data.Name))
	if err != nil {
		writeStoreError(w, r, err, "CREATE_FOLDER")
		return
	}
	logger.Infow("[api] created folder", "folderId", folder.ID, "name", folder.Name)
	err = writeResponse(w, folder)
	if err != nil {
		logger.Errorw("write response", "error", err)
	}
}

func (a *Api) ListFoldersAPI(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	skip, limit := validations.GetSkipLimit(r.FormValue("skip"), r.FormValue("limit"))
	folders, err := a.Folders.List(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, r, err, "LIST_FOLDERS")
		return
	}
	err = writeResponse(w, folders)
	if err != nil {
		logger.Errorw("write response", "error", err)
	}
}

// SearchFoldersAPI ranks folders by fuzzy match of their name against q.
//
// @Param q query string true "Search query"
// @Router /api/v1/folders/search [get]
func (a *Api) SearchFoldersAPI(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	query := strings.TrimSpace(r.FormValue("q"))
	if query == "" {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Query is required",
		})
		return
	}
	_, limit := validations.GetSkipLimit("", r.FormValue("limit"))

	folders, err := a.Folders.List(r.Context(), 0, maxSearchFolders)
	if err != nil {
		writeStoreError(w, r, err, "SEARCH_FOLDERS")
		return
	}
	results := SearchFolders(query, folders, limit)
	err = writeResponse(w, results)
	if err != nil {
		logger.Errorw("write response", "error", err)
	}
}

// SearchFolders returns at most limit folders whose names fuzzily match query,
// best match first.
func SearchFolders(query string, folders []models.Folder, limit int) []models.Folder {
	matches := fuzzy.FindFrom(query, folderSource(folders))
	results := make([]models.Folder, 0, min(len(matches), limit))
	for _, match := range matches {
		if len(results) == limit {
			break
		}
		results = append(results, folders[match.Index])
	}
	return results
}

type folderSource []models.Folder

func (fs folderSource) String(i int) string { return fs[i].Name }
func (fs folderSource) Len() int            { return len(fs) }

func (a *Api) GetFolderAPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := loggercontext.Logger(ctx)
	id, ok := idParam(w, r, "Folder")
	if !ok {
		return
	}
	folder, err := a.Folders.ByID(ctx, id)
	if err != nil {
		writeStoreError(w, r, err, "GET_FOLDER")
		return
	}
	bookmarks, err := a.Bookmarks.ListByFolder(ctx, id)
	if err != nil {
		writeStoreError(w, r, err, "GET_FOLDER")
		return
	}
	if bookmarks == nil {
		bookmarks = []models.Bookmark{}
	}
	err = writeResponse(w, FolderWithBookmarks{Folder: *folder, Bookmarks: bookmarks})
	if err != nil {
		logger.Errorw("write response", "error", err)
	}
}

func (a *Api) DeleteFolderAPI(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	id, ok := idParam(w, r, "Folder")
	if !ok {
		return
	}
	if err := a.Folders.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "DELETE_FOLDER")
		return
	}
	var data struct {
		Id int64 `json:"id"`
	}
	data.Id = id
	err := writeResponse(w, &data)
	if err != nil {
		logger.Errorw("write response", "error", err)
	}
	logger.Infow("[api] deleted folder", "folderId", id)
}

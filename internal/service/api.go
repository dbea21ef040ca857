package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/arashthr/shelfmark/internal/errors"
	"github.com/arashthr/shelfmark/internal/logging/loggercontext"
	"github.com/arashthr/shelfmark/internal/models"
	"github.com/arashthr/shelfmark/internal/types"
	"github.com/arashthr/shelfmark/internal/validations"
)

type Api struct {
	Service   *Bookmarks
	Folders   FolderStore
	Bookmarks BookmarkStore
}

type ErrorResponse struct {
	Code    string `json:"errorCode"`
	Message string `json:"errorMessage"`
}

// Bookmark is the API view of a bookmark.
type Bookmark struct {
	models.Bookmark
	FolderName string `json:"folder_name,omitempty"`
}

// CreateAPI files a new bookmark.
//
// @Accept json
// @Produce json
// @Param data body types.CreateBookmarkRequest true "URL, optional note and overrides"
// @Success 200 {object} Bookmark
// @Failure 400 {object} ErrorResponse "Invalid request body or invalid URL"
// @Failure 429 {object} ErrorResponse "Too many requests"
// @Router /api/v1/bookmarks [post]
func (a *Api) CreateAPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := loggercontext.Logger(ctx)
	var data types.CreateBookmarkRequest
	if !decodeBody(w, r, &data) {
		return
	}

	logger.Infow("[api] creating bookmark", "link", data.URL, "hasNote", data.UserNote != nil, "hasTitle", data.Title != nil)
	bookmark, folder, err := a.Service.Create(ctx, data)
	if err != nil {
		writeStoreError(w, r, err, "CREATE_BOOKMARK")
		return
	}
	err = writeResponse(w, Bookmark{Bookmark: *bookmark, FolderName: folder.Name})
	if err != nil {
		logger.Errorw("write response", "error", err)
	}
}

// SuggestAPI runs the pipeline and returns its result without saving.
//
// @Router /api/v1/bookmarks/suggest [post]
func (a *Api) SuggestAPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := loggercontext.Logger(ctx)
	var data types.CreateBookmarkRequest
	if !decodeBody(w, r, &data) {
		return
	}

	suggestion, err := a.Service.Suggest(ctx, data)
	if err != nil {
		writeStoreError(w, r, err, "SUGGEST_BOOKMARK")
		return
	}
	err = writeResponse(w, suggestion)
	if err != nil {
		logger.Errorw("write response", "error", err)
	}
}

// IndexAPI lists bookmarks.
//
// @Param skip query int false "Items to skip"
// @Param limit query int false "Page size, at most 100"
// @Router /api/v1/bookmarks [get]
func (a *Api) IndexAPI(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	skip, limit := validations.GetSkipLimit(r.FormValue("skip"), r.FormValue("limit"))
	bookmarks, err := a.Bookmarks.List(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, r, err, "LIST_BOOKMARKS")
		return
	}
	err = writeResponse(w, bookmarks)
	if err != nil {
		logger.Errorw("write response", "error", err)
	}
}

func (a *Api) GetAPI(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	bookmark := a.getBookmark(w, r)
	if bookmark == nil {
		return
	}
	err := writeResponse(w, bookmark)
	if err != nil {
		logger.Errorw("write response", "error", err)
	}
}

func (a *Api) UpdateAPI(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	id, ok := idParam(w, r, "Bookmark")
	if !ok {
		return
	}
	var data types.UpdateBookmarkRequest
	if !decodeBody(w, r, &data) {
		return
	}
	if data.Title != nil && strings.TrimSpace(*data.Title) == "" {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Title cannot be empty",
		})
		return
	}

	bookmark, err := a.Bookmarks.Update(r.Context(), id, models.BookmarkUpdate{
		Title:       data.Title,
		Description: data.Description,
		UserNote:    data.UserNote,
		FolderID:    data.FolderID,
	})
	if err != nil {
		writeStoreError(w, r, err, "UPDATE_BOOKMARK")
		return
	}
	logger.Infow("[api] updated bookmark", "bookmarkId", id)
	err = writeResponse(w, bookmark)
	if err != nil {
		logger.Errorw("write response", "error", err)
	}
}

func (a *Api) DeleteAPI(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	id, ok := idParam(w, r, "Bookmark")
	if !ok {
		return
	}
	if err := a.Bookmarks.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "DELETE_BOOKMARK")
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
	logger.Infow("[api] deleted bookmark", "bookmarkId", id)
}

func (a *Api) getBookmark(w http.ResponseWriter, r *http.Request) *models.Bookmark {
	id, ok := idParam(w, r, "Bookmark")
	if !ok {
		return nil
	}
	bookmark, err := a.Bookmarks.ByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "GET_BOOKMARK")
		return nil
	}
	return bookmark
}

func idParam(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: fmt.Sprintf("%s ID is invalid: %q", what, raw),
		})
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		loggercontext.Logger(r.Context()).Infow("[api] decoding request body", "error", err)
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: fmt.Sprintf("Invalid request body: %v", err),
		})
		return false
	}
	return true
}

// writeStoreError maps service and store errors onto HTTP responses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, code string) {
	logger := loggercontext.Logger(r.Context())
	status, resp := http.StatusInternalServerError, ErrorResponse{
		Code:    code,
		Message: "api: Something went wrong",
	}
	switch {
	case errors.Is(err, errors.ErrInvalidUrl):
		status, resp = http.StatusBadRequest, ErrorResponse{Code: "INVALID_URL", Message: errors.PublicMessage(err, "Invalid URL")}
	case errors.Is(err, errors.ErrEmptyName):
		status, resp = http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: "Folder name cannot be empty"}
	case errors.Is(err, errors.ErrNotFound):
		status, resp = http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: errors.PublicMessage(err, "Resource not found")}
	case errors.Is(err, errors.ErrFolderMissing):
		status, resp = http.StatusNotFound, ErrorResponse{Code: "FOLDER_NOT_FOUND", Message: "Folder does not exist"}
	case errors.Is(err, errors.ErrFolderExists):
		status, resp = http.StatusConflict, ErrorResponse{Code: "FOLDER_EXISTS", Message: "A folder with this name already exists"}
	case errors.Is(err, errors.ErrFolderNotEmpty):
		status, resp = http.StatusConflict, ErrorResponse{Code: "FOLDER_NOT_EMPTY", Message: "Folder still contains bookmarks"}
	case errors.Is(err, errors.ErrRateLimited):
		status, resp = http.StatusTooManyRequests, ErrorResponse{Code: "RATE_LIMITED", Message: "Too many requests, try again later"}
	default:
		logger.Errorw("[api] request failed", "code", code, "error", err)
	}
	if status != http.StatusInternalServerError {
		logger.Infow("[api] request rejected", "code", resp.Code, "error", err)
	}
	if err := writeErrorResponse(w, status, resp); err != nil {
		logger.Errorw("write response", "error", err)
	}
}

func writeResponse(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return err
	}
	return nil
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, errResp ErrorResponse) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		return err
	}
	return nil
}

package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/arashthr/shelfmark/internal/ai/aitest"
	"github.com/arashthr/shelfmark/internal/config"
	"github.com/arashthr/shelfmark/internal/errors"
	"github.com/arashthr/shelfmark/internal/extractor"
	"github.com/arashthr/shelfmark/internal/models"
	"github.com/arashthr/shelfmark/internal/pipeline"
	"github.com/arashthr/shelfmark/internal/ratelimit"
	"github.com/arashthr/shelfmark/internal/service"
	"github.com/arashthr/shelfmark/internal/storage"
	"github.com/arashthr/shelfmark/internal/types"
)

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, link string) extractor.ContentSummary {
	return extractor.ContentSummary{Title: "Example Article", Domain: "example.com"}
}

const techCategory = `{"primary_category":"Technology","subcategory":"News","confidence_score":0.9,"rationale":"headlines"}`

type testEnv struct {
	server *httptest.Server
	db     *storage.SQLite
	client *aitest.Fake
	svc    *service.Bookmarks
}

func newTestEnv(t *testing.T, client *aitest.Fake, limiter *ratelimit.RateLimiter) *testEnv {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "bookmarks.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := &service.Bookmarks{
		Folders:   db.Folders,
		Bookmarks: db.Bookmarks,
		Pipeline:  pipeline.NewWithExtractor(config.DefaultPipelineConfig(), client, stubExtractor{}),
	}
	api := &service.Api{Service: svc, Folders: db.Folders, Bookmarks: db.Bookmarks}
	server := httptest.NewServer(service.NewRouter(api, limiter))
	t.Cleanup(server.Close)
	return &testEnv{server: server, db: db, client: client, svc: svc}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	status, _ := e.doWithHeader(t, method, path, body, out)
	return status
}

func (e *testEnv) doWithHeader(t *testing.T, method, path string, body any, out any) (int, http.Header) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NilError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	assert.NilError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	assert.NilError(t, err)
	defer resp.Body.Close()
	if out != nil {
		assert.NilError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode, resp.Header
}

func str(s string) *string { return &s }

func TestCreateBookmarkRunsPipeline(t *testing.T) {
	client := &aitest.Fake{
		Texts:   []string{"Title: Example Summary\nDescription: A short piece about examples.", "Tech News"},
		Objects: []string{techCategory},
	}
	env := newTestEnv(t, client, nil)

	var created service.Bookmark
	status := env.do(t, http.MethodPost, "/api/v1/bookmarks", types.CreateBookmarkRequest{
		URL:      "https://example.com/article",
		UserNote: str("for the weekly digest"),
	}, &created)

	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, created.Title, "Example Summary")
	assert.Equal(t, *created.Description, "A short piece about examples.")
	assert.Equal(t, *created.UserNote, "for the weekly digest")
	assert.Equal(t, created.FolderName, "Tech News")

	folder, err := env.db.Folders.ByName(context.Background(), "Tech News")
	assert.NilError(t, err)
	assert.Equal(t, created.FolderID, folder.ID)

	var got models.Bookmark
	status = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookmarks/%d", created.ID), nil, &got)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, got.URL, "https://example.com/article")
}

func TestCreateBookmarkReusesMatchedFolder(t *testing.T) {
	client := &aitest.Fake{
		Texts:   []string{"Title: Example Summary\nDescription: A short piece about examples."},
		Objects: []string{techCategory, `{"matching_folder":"Tech News","confidence_score":0.8,"reasoning":"same topic"}`},
	}
	env := newTestEnv(t, client, nil)
	existing, err := env.db.Folders.Create(context.Background(), "Tech News")
	assert.NilError(t, err)

	var created service.Bookmark
	status := env.do(t, http.MethodPost, "/api/v1/bookmarks", types.CreateBookmarkRequest{URL: "https://example.com/article"}, &created)

	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, created.FolderID, existing.ID)
	names, err := env.db.Folders.Names(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, names, []string{"Tech News"})
}

func TestCreateBookmarkWithOverridesSkipsPipeline(t *testing.T) {
	client := &aitest.Fake{}
	env := newTestEnv(t, client, nil)
	existing, err := env.db.Folders.Create(context.Background(), "Tech News")
	assert.NilError(t, err)

	var created service.Bookmark
	status := env.do(t, http.MethodPost, "/api/v1/bookmarks", types.CreateBookmarkRequest{
		URL:         "https://example.com/article",
		Title:       str("My Title"),
		Description: str("My own description."),
		FolderName:  str("tech news"),
	}, &created)

	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, client.Calls(), 0)
	assert.Equal(t, created.Title, "My Title")
	assert.Equal(t, created.FolderID, existing.ID)
	assert.Equal(t, created.FolderName, "Tech News")
}

func TestCreateBookmarkPartialOverride(t *testing.T) {
	client := &aitest.Fake{
		Texts:   []string{"Title: Example Summary\nDescription: A short piece about examples.", "Tech News"},
		Objects: []string{techCategory},
	}
	env := newTestEnv(t, client, nil)

	var created service.Bookmark
	status := env.do(t, http.MethodPost, "/api/v1/bookmarks", types.CreateBookmarkRequest{
		URL:   "https://example.com/article",
		Title: str("Chosen Title"),
	}, &created)

	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, created.Title, "Chosen Title")
	assert.Equal(t, *created.Description, "A short piece about examples.")
	assert.Equal(t, created.FolderName, "Tech News")
}

func TestCreateBookmarkAllStagesFail(t *testing.T) {
	client := &aitest.Fake{Err: errors.New("model down")}
	env := newTestEnv(t, client, nil)

	var created service.Bookmark
	status := env.do(t, http.MethodPost, "/api/v1/bookmarks", types.CreateBookmarkRequest{URL: "https://example.com/article"}, &created)

	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, created.Title, "example.com")
	assert.Equal(t, *created.Description, "No description available")
	assert.Equal(t, created.FolderName, pipeline.FallbackFolder)
}

func TestInvalidRequests(t *testing.T) {
	client := &aitest.Fake{}
	env := newTestEnv(t, client, nil)

	var errResp service.ErrorResponse
	status := env.do(t, http.MethodPost, "/api/v1/bookmarks", types.CreateBookmarkRequest{URL: "ftp://example.com"}, &errResp)
	assert.Equal(t, status, http.StatusBadRequest)
	assert.Equal(t, errResp.Code, "INVALID_URL")
	assert.Equal(t, client.Calls(), 0)

	status = env.do(t, http.MethodPost, "/api/v1/bookmarks/suggest", "not an object", &errResp)
	assert.Equal(t, status, http.StatusBadRequest)
	assert.Equal(t, errResp.Code, "INVALID_REQUEST")

	status = env.do(t, http.MethodGet, "/api/v1/bookmarks/abc", nil, &errResp)
	assert.Equal(t, status, http.StatusBadRequest)

	status = env.do(t, http.MethodGet, "/api/v1/bookmarks/42", nil, &errResp)
	assert.Equal(t, status, http.StatusNotFound)
	assert.Equal(t, errResp.Code, "NOT_FOUND")
}

func TestSuggestDoesNotPersist(t *testing.T) {
	client := &aitest.Fake{
		Texts:   []string{"Title: Example Summary\nDescription: A short piece about examples.", "Tech News"},
		Objects: []string{techCategory},
	}
	env := newTestEnv(t, client, nil)

	var suggestion types.Suggestion
	status := env.do(t, http.MethodPost, "/api/v1/bookmarks/suggest", types.CreateBookmarkRequest{URL: "https://example.com/article"}, &suggestion)

	assert.Equal(t, status, http.StatusOK)
	assert.DeepEqual(t, suggestion, types.Suggestion{
		Title:       "Example Summary",
		Description: "A short piece about examples.",
		FolderName:  "Tech News",
	})
	names, err := env.db.Folders.Names(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, len(names), 0)
	bookmarks, err := env.db.Bookmarks.List(context.Background(), 0, 100)
	assert.NilError(t, err)
	assert.Equal(t, len(bookmarks), 0)
}

func TestFolderLifecycle(t *testing.T) {
	env := newTestEnv(t, &aitest.Fake{}, nil)

	var folder models.Folder
	status := env.do(t, http.MethodPost, "/api/v1/folders", types.CreateFolderRequest{Name: "Reading"}, &folder)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, folder.Name, "Reading")

	var errResp service.ErrorResponse
	status = env.do(t, http.MethodPost, "/api/v1/folders", types.CreateFolderRequest{Name: "Reading"}, &errResp)
	assert.Equal(t, status, http.StatusConflict)
	assert.Equal(t, errResp.Code, "FOLDER_EXISTS")

	status = env.do(t, http.MethodPost, "/api/v1/folders", types.CreateFolderRequest{Name: " "}, &errResp)
	assert.Equal(t, status, http.StatusBadRequest)

	var created service.Bookmark
	status = env.do(t, http.MethodPost, "/api/v1/bookmarks", types.CreateBookmarkRequest{
		URL:         "https://example.com/a",
		Title:       str("A"),
		Description: str("About A."),
		FolderName:  str("Reading"),
	}, &created)
	assert.Equal(t, status, http.StatusOK)

	var withBookmarks service.FolderWithBookmarks
	status = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/folders/%d", folder.ID), nil, &withBookmarks)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, len(withBookmarks.Bookmarks), 1)

	status = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/folders/%d", folder.ID), nil, &errResp)
	assert.Equal(t, status, http.StatusConflict)
	assert.Equal(t, errResp.Code, "FOLDER_NOT_EMPTY")

	status = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/bookmarks/%d", created.ID), nil, nil)
	assert.Equal(t, status, http.StatusOK)
	status = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/folders/%d", folder.ID), nil, nil)
	assert.Equal(t, status, http.StatusOK)
	status = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/folders/%d", folder.ID), nil, &errResp)
	assert.Equal(t, status, http.StatusNotFound)
}

func TestUpdateBookmark(t *testing.T) {
	env := newTestEnv(t, &aitest.Fake{}, nil)
	ctx := context.Background()
	reading, err := env.db.Folders.Create(ctx, "Reading")
	assert.NilError(t, err)
	archive, err := env.db.Folders.Create(ctx, "Archive")
	assert.NilError(t, err)
	b, err := env.db.Bookmarks.Create(ctx, models.NewBookmark{URL: "https://example.com", Title: "Old", FolderID: reading.ID})
	assert.NilError(t, err)
	path := fmt.Sprintf("/api/v1/bookmarks/%d", b.ID)

	var updated models.Bookmark
	status := env.do(t, http.MethodPut, path, types.UpdateBookmarkRequest{Title: str("New"), FolderID: &archive.ID}, &updated)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, updated.Title, "New")
	assert.Equal(t, updated.FolderID, archive.ID)

	missing := int64(999)
	var errResp service.ErrorResponse
	status = env.do(t, http.MethodPut, path, types.UpdateBookmarkRequest{FolderID: &missing}, &errResp)
	assert.Equal(t, status, http.StatusNotFound)
	assert.Equal(t, errResp.Code, "FOLDER_NOT_FOUND")

	status = env.do(t, http.MethodPut, path, types.UpdateBookmarkRequest{Title: str("")}, &errResp)
	assert.Equal(t, status, http.StatusBadRequest)

	status = env.do(t, http.MethodPut, "/api/v1/bookmarks/999", types.UpdateBookmarkRequest{Title: str("x")}, &errResp)
	assert.Equal(t, status, http.StatusNotFound)
}

func TestListPagination(t *testing.T) {
	env := newTestEnv(t, &aitest.Fake{}, nil)
	ctx := context.Background()
	folder, err := env.db.Folders.Create(ctx, "Links")
	assert.NilError(t, err)
	for i := 0; i < 3; i++ {
		_, err := env.db.Bookmarks.Create(ctx, models.NewBookmark{URL: "https://example.com", Title: fmt.Sprintf("Link %d", i), FolderID: folder.ID})
		assert.NilError(t, err)
	}

	var page []models.Bookmark
	status := env.do(t, http.MethodGet, "/api/v1/bookmarks?skip=1&limit=1", nil, &page)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, len(page), 1)
	assert.Equal(t, page[0].Title, "Link 1")

	status = env.do(t, http.MethodGet, "/api/v1/bookmarks?limit=1000", nil, &page)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, len(page), 3)

	var folders []models.Folder
	status = env.do(t, http.MethodGet, "/api/v1/folders", nil, &folders)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, len(folders), 1)
}

func TestSearchFolders(t *testing.T) {
	env := newTestEnv(t, &aitest.Fake{}, nil)
	ctx := context.Background()
	for _, name := range []string{"Cooking Recipes", "Web Development", "Tech News"} {
		_, err := env.db.Folders.Create(ctx, name)
		assert.NilError(t, err)
	}

	var results []models.Folder
	status := env.do(t, http.MethodGet, "/api/v1/folders/search?q=webdev", nil, &results)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, len(results), 1)
	assert.Equal(t, results[0].Name, "Web Development")

	var errResp service.ErrorResponse
	status = env.do(t, http.MethodGet, "/api/v1/folders/search", nil, &errResp)
	assert.Equal(t, status, http.StatusBadRequest)
}

func TestPipelineEndpointsAreRateLimited(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	client := &aitest.Fake{Texts: []string{"Title: Example Summary\nDescription: A short piece about examples.", "Tech News"}}
	env := newTestEnv(t, client, limiter)

	status, header := env.doWithHeader(t, http.MethodPost, "/api/v1/bookmarks/suggest", types.CreateBookmarkRequest{URL: "https://example.com"}, nil)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, header.Get("X-RateLimit-Remaining"), "0")

	var errResp service.ErrorResponse
	status, header = env.doWithHeader(t, http.MethodPost, "/api/v1/bookmarks", types.CreateBookmarkRequest{URL: "https://example.com"}, &errResp)
	assert.Equal(t, status, http.StatusTooManyRequests)
	assert.Equal(t, errResp.Code, "RATE_LIMITED")
	assert.Equal(t, errResp.Message, "Too many requests, try again later")
	assert.Equal(t, header.Get("Retry-After"), "60")

	// CRUD endpoints are not limited.
	status = env.do(t, http.MethodGet, "/api/v1/bookmarks", nil, nil)
	assert.Equal(t, status, http.StatusOK)
}

func TestPingAndMetrics(t *testing.T) {
	env := newTestEnv(t, &aitest.Fake{}, nil)

	resp, err := http.Get(env.server.URL + "/api/ping")
	assert.NilError(t, err)
	resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Assert(t, resp.Header.Get("X-Request-Id") != "")

	resp, err = http.Get(env.server.URL + "/metrics")
	assert.NilError(t, err)
	resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusOK)
}

func TestConcurrentCreatesShareFolder(t *testing.T) {
	env := newTestEnv(t, &aitest.Fake{}, nil)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := env.svc.Create(context.Background(), types.CreateBookmarkRequest{
				URL:         fmt.Sprintf("https://example.com/%d", i),
				Title:       str("Title"),
				Description: str("Description."),
				FolderName:  str("Reading"),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NilError(t, err)
	}

	names, err := env.db.Folders.Names(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, names, []string{"Reading"})
}

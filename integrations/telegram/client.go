package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BookmarkResponse mirrors the API's bookmark payload.
type BookmarkResponse struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	UserNote    *string   `json:"user_note"`
	FolderID    int64     `json:"folder_id"`
	FolderName  string    `json:"folder_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type FolderResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type apiError struct {
	Code    string `json:"errorCode"`
	Message string `json:"errorMessage"`
}

// APIClient talks to the bookmark HTTP API rooted at Endpoint, e.g. http://localhost:8000/api/v1.
type APIClient struct {
	Endpoint   string
	HTTPClient *http.Client
}

func NewAPIClient(endpoint string) *APIClient {
	return &APIClient{
		Endpoint: strings.TrimRight(endpoint, "/"),
		// Saving runs the whole pipeline, which can take a while.
		HTTPClient: &http.Client{Timeout: 3 * time.Minute},
	}
}

func (c *APIClient) SaveBookmark(ctx context.Context, link, note string) (*BookmarkResponse, error) {
	body := map[string]string{"url": link}
	if note != "" {
		body["user_note"] = note
	}
	var bookmark BookmarkResponse
	if err := c.do(ctx, http.MethodPost, "/bookmarks", body, &bookmark); err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func (c *APIClient) GetBookmark(ctx context.Context, id string) (*BookmarkResponse, error) {
	var bookmark BookmarkResponse
	if err := c.do(ctx, http.MethodGet, "/bookmarks/"+url.PathEscape(id), nil, &bookmark); err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func (c *APIClient) DeleteBookmark(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/bookmarks/"+url.PathEscape(id), nil, nil)
}

func (c *APIClient) SearchFolders(ctx context.Context, query string) ([]FolderResponse, error) {
	var folders []FolderResponse
	path := "/folders/search?" + url.Values{"q": {query}, "limit": {"10"}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Message)
		}
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

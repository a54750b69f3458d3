package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/netx"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// HTTPClient implements Client over the gallery REST API.
type HTTPClient struct {
	base   string
	userID string
	http   *http.Client
}

func NewHTTPClient(baseURL, userID string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	return &HTTPClient{
		base:   u.String(),
		userID: userID,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/api/albums/stats", nil, "", nil)
}

func (c *HTTPClient) Upload(ctx context.Context, filename string, data []byte) (*models.Upload, error) {
	body, contentType, err := netx.MultipartFile("file", filename, data)
	if err != nil {
		return nil, err
	}
	var out models.Upload
	if err := c.call(ctx, http.MethodPost, "/api/upload", body, contentType, &out); err != nil {
		return nil, err
	}
	out.Artifact.URL = out.URL
	out.Artifact.ThumbnailURL = out.ThumbnailURL
	return &out, nil
}

func (c *HTTPClient) ListFiles(ctx context.Context) ([]models.Artifact, error) {
	var out []models.Artifact
	if err := c.call(ctx, http.MethodGet, "/api/files", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetFile(ctx context.Context, name string) (*models.Artifact, error) {
	var out models.Artifact
	if err := c.call(ctx, http.MethodGet, "/api/files/"+url.PathEscape(name), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteFile(ctx context.Context, name, token string) error {
	path := "/api/files/" + url.PathEscape(name) + "?token=" + url.QueryEscape(token)
	return c.call(ctx, http.MethodDelete, path, nil, "", nil)
}

func (c *HTTPClient) ListAlbums(ctx context.Context) ([]models.Album, error) {
	var out []models.Album
	if err := c.call(ctx, http.MethodGet, "/api/albums", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateAlbum(ctx context.Context, name, description string, shared bool) (*models.Album, error) {
	req := map[string]any{"name": name, "description": description, "shared": shared}
	var out models.Album
	if err := c.callJSON(ctx, http.MethodPost, "/api/albums", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AlbumFiles(ctx context.Context, albumID int64) ([]string, error) {
	var out []string
	if err := c.call(ctx, http.MethodGet, albumPath(albumID)+"/files", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) AddFiles(ctx context.Context, albumID int64, names []string) error {
	return c.callJSON(ctx, http.MethodPost, albumPath(albumID)+"/files", map[string]any{"file_names": names}, nil)
}

func (c *HTTPClient) RemoveFiles(ctx context.Context, albumID int64, names []string) error {
	return c.callJSON(ctx, http.MethodDelete, albumPath(albumID)+"/files", map[string]any{"file_names": names}, nil)
}

func (c *HTTPClient) AddFilesToAlbums(ctx context.Context, albumIDs []int64, names []string) ([]models.BatchResult, error) {
	req := map[string]any{"album_ids": albumIDs, "file_names": names}
	var out []models.BatchResult
	if err := c.callJSON(ctx, http.MethodPost, "/api/albums/batch/add", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func albumPath(id int64) string {
	return "/api/albums/" + strconv.FormatInt(id, 10)
}

func (c *HTTPClient) callJSON(ctx context.Context, method, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.call(ctx, method, path, bytes.NewReader(b), "application/json", out)
}

// call sends one request and decodes the envelope's data into out, which
// may be nil.
func (c *HTTPClient) call(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userID != "" {
		req.Header.Set(common.UserIDHeaderName, c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && resp.StatusCode < 300 {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

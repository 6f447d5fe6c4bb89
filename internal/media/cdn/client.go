// Package cdn provides the remote media store used for page images and
// covers. Uploads go to a Cloudinary-style HTTP API; the server keeps no
// image bytes of its own once an upload succeeds.
package cdn

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	domainerrors "github.com/openarklib/openark-server/internal/errors"
)

// uploadTimeout caps a single upload round trip.
const uploadTimeout = 60 * time.Second

// Store is the capability the ingestion pipeline needs from a media store.
type Store interface {
	// Upload pushes the file at localPath into the remote folder and
	// returns its public URL. On success the local file is removed.
	Upload(ctx context.Context, localPath, folder string) (string, error)

	// Delete removes a local temp file, best effort.
	Delete(ctx context.Context, localPath string) error
}

// Config holds the remote media store settings.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client implements Store against a Cloudinary-style upload API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewClient creates a media store client. An empty base URL is allowed;
// the first upload then fails with a configuration error instead.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: uploadTimeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// uploadResponse is the subset of the remote API's reply we care about.
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

// Upload pushes a local file to the remote store and returns its public URL.
// The local file is removed after a successful upload; on failure it is left
// in place for the uploads watcher to report.
func (c *Client) Upload(ctx context.Context, localPath, folder string) (string, error) {
	if c.baseURL == "" {
		return "", domainerrors.MediaUpload("media store is not configured", nil)
	}

	file, err := os.Open(localPath) //#nosec G304 -- Path comes from our own uploads spool
	if err != nil {
		return "", domainerrors.MediaUpload("open upload file", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	// Stream the multipart body so large page scans never sit in memory twice.
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(localPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	endpoint := c.baseURL + "/upload/" + url.PathEscape(folder)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return "", domainerrors.MediaUpload("create upload request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domainerrors.MediaUpload("media store unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domainerrors.MediaUpload(
			fmt.Sprintf("media store rejected upload: status %d", resp.StatusCode),
			fmt.Errorf("response: %s", body),
		)
	}

	var result uploadResponse
	if err := json.UnmarshalRead(resp.Body, &result); err != nil {
		return "", domainerrors.MediaUpload("parse upload response", err)
	}
	if result.SecureURL == "" {
		return "", domainerrors.MediaUpload("upload response missing secure_url", nil)
	}

	// Upload landed; the spooled file is no longer needed.
	if err := os.Remove(localPath); err != nil && c.logger != nil {
		c.logger.Warn("Failed to remove spooled upload", "path", localPath, "error", err)
	}

	if c.logger != nil {
		c.logger.Debug("Uploaded media",
			"folder", folder,
			"file", filepath.Base(localPath),
			"url", result.SecureURL,
		)
	}
	return result.SecureURL, nil
}

// Delete removes a local temp file. Missing files are not an error.
func (c *Client) Delete(_ context.Context, localPath string) error {
	err := os.Remove(localPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", localPath, err)
	}
	return nil
}

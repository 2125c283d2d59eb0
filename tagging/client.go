// Package tagging is the HTTP client for the remote AI tagging service:
// album and image CRUD, keyword edits, CSV export streams, and batch
// uploads with streamed progress.
package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/snaptag/gateway/models"
)

// Client talks to the tagging service's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given service base URL. The timeout
// applies to every call except batch uploads, which stream progress for as
// long as the service keeps processing.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// serviceError is the error envelope the tagging service returns on non-2xx
// responses.
type serviceError struct {
	Error            string `json:"error"`
	RemainingCredits int    `json:"remaining_credits"`
	RequestedImages  int    `json:"requested_images"`
}

// decodeError maps a non-2xx response onto the error taxonomy. The service
// payload is passed through verbatim in the transient case.
func decodeError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var svcErr serviceError
	if err := json.Unmarshal(body, &svcErr); err == nil && svcErr.Error != "" {
		if strings.EqualFold(svcErr.Error, "insufficient credits") {
			return &InsufficientCreditsError{
				RemainingCredits: svcErr.RemainingCredits,
				RequestedImages:  svcErr.RequestedImages,
			}
		}
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		return &TransientError{Op: op, Err: fmt.Errorf("service error (status %d): %s", resp.StatusCode, svcErr.Error)}
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return &TransientError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
}

func (c *Client) doJSON(req *http.Request, op string, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// FetchAlbumsWithDetails returns every album of the account including its
// image records, in the service's display order.
func (c *Client) FetchAlbumsWithDetails(ctx context.Context) ([]models.Album, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/albums?include=details", nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Albums []models.Album `json:"albums"`
	}
	if err := c.doJSON(req, "fetch albums", &payload); err != nil {
		return nil, err
	}
	if payload.Albums == nil {
		payload.Albums = []models.Album{}
	}
	return payload.Albums, nil
}

// FetchAlbumDetails returns the image list of a single album.
func (c *Client) FetchAlbumDetails(ctx context.Context, albumID string) ([]models.Image, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/albums/"+url.PathEscape(albumID)+"/images", nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Images []models.Image `json:"images"`
	}
	if err := c.doJSON(req, "fetch album details", &payload); err != nil {
		return nil, err
	}
	if payload.Images == nil {
		payload.Images = []models.Image{}
	}
	return payload.Images, nil
}

// DeleteAlbum removes an album and all of its images.
func (c *Client) DeleteAlbum(ctx context.Context, albumID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/albums/"+url.PathEscape(albumID), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, "delete album", nil)
}

// DeleteImage removes a single image from an album.
func (c *Client) DeleteImage(ctx context.Context, imageID, albumID string) error {
	path := "/api/albums/" + url.PathEscape(albumID) + "/images/" + url.PathEscape(imageID)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, "delete image", nil)
}

// AddKeyword attaches a keyword to an image. Blank keywords are rejected
// locally; no request is made.
func (c *Client) AddKeyword(ctx context.Context, imageID, albumID, keyword string) error {
	if strings.TrimSpace(keyword) == "" {
		return NewValidationError("keyword must not be empty")
	}

	body, err := json.Marshal(map[string]string{"keyword": keyword})
	if err != nil {
		return fmt.Errorf("failed to encode keyword payload: %w", err)
	}

	path := "/api/albums/" + url.PathEscape(albumID) + "/images/" + url.PathEscape(imageID) + "/keywords"
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, "add keyword", nil)
}

// DeleteKeyword detaches a keyword from an image.
func (c *Client) DeleteKeyword(ctx context.Context, imageID, albumID, keyword string) error {
	if strings.TrimSpace(keyword) == "" {
		return NewValidationError("keyword must not be empty")
	}

	path := "/api/albums/" + url.PathEscape(albumID) + "/images/" + url.PathEscape(imageID) +
		"/keywords?keyword=" + url.QueryEscape(keyword)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, "delete keyword", nil)
}

// DownloadKeywordsCSV streams one album's keyword CSV for a platform. The
// CSV content and schema are entirely the service's concern; the stream is
// passed through untouched. The returned filename comes from the service's
// Content-Disposition header when present. The caller must close the reader.
func (c *Client) DownloadKeywordsCSV(ctx context.Context, albumID, platform string) (io.ReadCloser, string, error) {
	if !IsValidPlatform(platform) {
		return nil, "", NewValidationError("unknown platform %q", platform)
	}

	path := "/api/albums/" + url.PathEscape(albumID) + "/keywords/csv?platform=" + url.QueryEscape(platform)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &TransientError{Op: "download keywords csv", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, "", decodeError("download keywords csv", resp)
	}

	filename := fmt.Sprintf("%s_%s.csv", albumID, platform)
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			filename = params["filename"]
		}
	}
	return resp.Body, filename, nil
}

// GetProfile fetches the account profile and credit balance.
func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/profile", nil)
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := c.doJSON(req, "fetch profile", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

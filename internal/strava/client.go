package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://www.strava.com/api/v3"

// ErrDuplicate is returned when the destination already has the
// activity. Callers treat it as a successful terminal outcome.
var ErrDuplicate = errors.New("strava: activity already exists")

// Client is a Strava API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a new Strava API client
func NewClient(tokenSource oauth2.TokenSource) *Client {
	return &Client{
		baseURL:     DefaultBaseURL,
		httpClient:  oauth2.NewClient(context.Background(), tokenSource),
		rateLimiter: NewRateLimiter(),
	}
}

// NewClientWithBaseURL creates a client against a non-default API root.
// Used by tests.
func NewClientWithBaseURL(tokenSource oauth2.TokenSource, baseURL string) *Client {
	c := NewClient(tokenSource)
	c.baseURL = baseURL
	return c
}

// CreateActivity creates a summary-only activity. A conflict response
// is reported as ErrDuplicate, not a generic API error.
func (c *Client) CreateActivity(ctx context.Context, a NewActivity) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	payload := map[string]any{
		"name":             a.Name,
		"start_date_local": a.StartDate.Format("2006-01-02T15:04:05"),
		"type":             activityType,
		"elapsed_time":     a.ElapsedTime,
		"distance":         a.Distance,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/activities", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("creating activity: %w", err)
	}
	defer resp.Body.Close()
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	switch {
	case resp.StatusCode == http.StatusConflict:
		return ErrDuplicate
	case resp.StatusCode >= 300:
		return apiError(resp)
	}
	return nil
}

// UploadTrack uploads a serialized TCX document.
func (c *Client) UploadTrack(ctx context.Context, up TrackUpload) (*UploadStatus, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for field, value := range map[string]string{
		"activity_type": "ebikeride",
		"name":          up.Name,
		"data_type":     "tcx",
	} {
		if err := w.WriteField(field, value); err != nil {
			return nil, err
		}
	}

	part, err := w.CreateFormFile("file", up.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading track: %w", err)
	}
	defer resp.Body.Close()
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}

	var status UploadStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if status.Error != "" {
		return nil, fmt.Errorf("upload rejected: %s", status.Error)
	}
	return &status, nil
}

// RateLimitStatus returns the current rate limit usage.
func (c *Client) RateLimitStatus() (shortUsage, dailyUsage int) {
	return c.rateLimiter.Usage()
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("strava: API error %d: %s", resp.StatusCode, string(body))
}

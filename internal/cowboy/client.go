package cowboy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://app-api.cowboy.bike"

// appToken identifies this client to the Cowboy API. It is a public
// application token, not a user credential.
const appToken = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"

// ErrUnauthorized is returned when the API rejects the session headers.
// The caller is expected to refresh the session and retry once.
var ErrUnauthorized = errors.New("cowboy: unauthorized")

// APIError is a non-401 error response from the Cowboy API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cowboy: API error %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the error is likely to resolve on a later
// run (server errors and throttling, as opposed to bad requests).
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Session is the header set identifying one authenticated user. It is
// an immutable value: a refresh produces a new Session rather than
// mutating a shared one.
type Session struct {
	UID         string
	AccessToken string
	Client      string
	Expiry      time.Time
}

// Valid reports whether the session can still be presented, with a
// one minute buffer before the server-side expiry.
func (s Session) Valid(now time.Time) bool {
	return s.AccessToken != "" && now.Add(time.Minute).Before(s.Expiry)
}

// Client is a Cowboy API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Cowboy API client. baseURL is overridable for tests;
// pass "" for the production API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Login authenticates with email and password and returns a fresh session
// built from the response headers.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Session{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/sign_in", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	setBaseHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("cowboy: sign in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Session{}, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return Session{}, newAPIError(resp)
	}

	expiry, err := strconv.ParseInt(resp.Header.Get("Expiry"), 10, 64)
	if err != nil {
		return Session{}, fmt.Errorf("cowboy: parsing Expiry header: %w", err)
	}

	sess := Session{
		UID:         resp.Header.Get("Uid"),
		AccessToken: resp.Header.Get("Access-Token"),
		Client:      resp.Header.Get("Client"),
		Expiry:      time.Unix(expiry, 0),
	}
	if sess.AccessToken == "" {
		return Session{}, fmt.Errorf("cowboy: sign in response missing Access-Token header")
	}
	return sess, nil
}

// Trips fetches one page of the trip listing for the [from, to) window.
func (c *Client) Trips(ctx context.Context, sess Session, from, to time.Time, page int) (*TripsPage, error) {
	body := map[string]any{
		"page": page,
		"from": from.Format("2006-01-02T15:04:05"),
		"to":   to.Format("2006-01-02T15:04:05"),
	}

	var out TripsPage
	if err := c.get(ctx, sess, "/trips", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trip fetches a single trip summary by provider id.
func (c *Client) Trip(ctx context.Context, sess Session, id int64) (*Trip, error) {
	var out Trip
	if err := c.get(ctx, sess, fmt.Sprintf("/trips/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Charts fetches the telemetry time series for a trip.
func (c *Client) Charts(ctx context.Context, sess Session, id int64) (*Charts, error) {
	var out Charts
	if err := c.get(ctx, sess, fmt.Sprintf("/trips/%d/charts", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get performs an authenticated GET. The API expects request parameters
// as a JSON body even on GET requests.
func (c *Client) get(ctx context.Context, sess Session, path string, params any, out any) error {
	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, body)
	if err != nil {
		return err
	}
	setBaseHeaders(req)
	req.Header.Set("Client", sess.Client)
	req.Header.Set("Uid", sess.UID)
	req.Header.Set("Access-Token", sess.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cowboy: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cowboy: decoding %s response: %w", path, err)
	}
	return nil
}

func setBaseHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	req.Header.Set("X-Cowboy-App-Token", appToken)
	req.Header.Set("Client-Type", "Android-App")
}

func newAPIError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
}

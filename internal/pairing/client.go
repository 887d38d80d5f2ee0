package pairing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single credentials request.
const DefaultTimeout = 3 * time.Second

// maxBody caps the credentials document.
const maxBody = 64 << 10

// Credentials are the home network details the user entered on the meter.
type Credentials struct {
	SSID      string `json:"ssid"`
	Password  string `json:"password"`
	Validated bool   `json:"validated"`
}

// Ready reports whether the meter has accepted the credentials.
func (c *Credentials) Ready() bool {
	return c != nil && c.SSID != "" && c.Validated
}

// Client polls the meter's setup server for credentials.
type Client struct {
	// URL of the credentials document, e.g. "http://192.168.4.1:8080/credentials"
	URL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewClient creates a client for url with the default timeout.
func NewClient(url string) *Client {
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// FetchCredentials performs one request. Failures are returned as *Error.
func (c *Client) FetchCredentials(ctx context.Context) (*Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, NewParseError("invalid credentials URL", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, NewHTTPError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, ClassifyNetworkError(err)
	}

	var creds Credentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return nil, NewParseError("malformed credentials", err)
	}
	return &creds, nil
}

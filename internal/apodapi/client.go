package apodapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"apod/internal/logging"
	"apod/internal/services"
)

// Source is the remote collaborator consumed by the image cache.
type Source interface {
	Metadata(ctx context.Context, date time.Time) (*Metadata, error)
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

// Client provides access to the APOD API.
type Client struct {
	apiKey     string
	baseURL    string
	thumbs     bool
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Source = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithThumbs controls whether video records include a thumbnail_url.
func WithThumbs(enabled bool) Option {
	return func(c *Client) {
		c.thumbs = enabled
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "apodapi")
		}
	}
}

// New creates an APOD client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "apodapi", "new client", "api key required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "apodapi", "new client", "base url required", nil)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		thumbs:     true,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Metadata fetches the APOD record for date.
func (c *Client) Metadata(ctx context.Context, date time.Time) (*Metadata, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "apodapi", "metadata", "parse base url", err)
	}
	dateValue := date.Format(DateLayout)
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("date", dateValue)
	if c.thumbs {
		params.Set("thumbs", "true")
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrRemote, "apodapi", "metadata", "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrRemote, "apodapi", "metadata", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	c.logger.Debug("apod metadata response",
		logging.String("date", dateValue),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, services.Wrap(services.ErrRemote, "apodapi", "metadata",
			fmt.Sprintf("status %d: %s", resp.StatusCode, errorMessage(body)), nil)
	}

	var wire wireMetadata
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, services.Wrap(services.ErrRemote, "apodapi", "metadata", "decode response", err)
	}
	meta, err := wire.toMetadata()
	if err != nil {
		return nil, err
	}
	if meta.Date == "" {
		meta.Date = dateValue
	}
	return meta, nil
}

// Download fetches raw bytes from rawURL. The bytes are not written anywhere.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, services.Wrap(services.ErrDownload, "apodapi", "download", "empty url", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "apodapi", "download", "build request", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "apodapi", "download", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, services.Wrap(services.ErrDownload, "apodapi", "download", fmt.Sprintf("%s returned %d", rawURL, resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "apodapi", "download", "read body", err)
	}
	c.logger.Debug("downloaded image",
		logging.String("url", rawURL),
		logging.Int("bytes", len(data)),
		logging.Duration("latency", latency))
	return data, nil
}

// errorMessage extracts the human readable reason from an API error body.
// The API uses both {"msg": "..."} and {"error": {"message": "..."}}.
func errorMessage(body []byte) string {
	var payload struct {
		Msg   string `json:"msg"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Msg != "" {
			return payload.Msg
		}
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response"
	}
	return text
}

// IsNotPublished reports whether err is a remote failure for a date the API
// has no record for yet.
func IsNotPublished(err error) bool {
	return errors.Is(err, services.ErrRemote) && strings.Contains(strings.ToLower(err.Error()), "no data available")
}

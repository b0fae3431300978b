// Package client talks to the timeline paging API. Client implements
// grid.BucketFetcher so a Store can load buckets from a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/grid"
)

// APIError is an HTTP error response from the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs a request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %w", grid.ErrFetchCancelled, err)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", grid.ErrFetchCancelled, err)
		}
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr = &APIError{Message: string(bytes.TrimSpace(respBody))}
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// TimeBuckets fetches the bucket layout, newest first.
func (c *Client) TimeBuckets(ctx context.Context, size assets.BucketSize, filter assets.Filter) ([]assets.BucketCount, error) {
	q := url.Values{}
	q.Set(assets.ParamSize, string(size))
	filter.Encode(q)
	var layout []assets.BucketCount
	if err := c.do(ctx, http.MethodGet, "/api/timeline/buckets", q, nil, &layout); err != nil {
		return nil, err
	}
	return layout, nil
}

// Page fetches one page of a bucket.
func (c *Client) Page(ctx context.Context, req grid.FetchRequest, page int) ([]assets.Asset, error) {
	q := url.Values{}
	q.Set(assets.ParamTimeBucket, req.BucketKey)
	if req.Size != "" {
		q.Set(assets.ParamSize, string(req.Size))
	}
	q.Set(assets.ParamPage, strconv.Itoa(page))
	q.Set(assets.ParamPageSize, strconv.Itoa(req.PageSize))
	req.Filter.Encode(q)

	var items []assets.Asset
	if err := c.do(ctx, http.MethodGet, "/api/timeline/bucket", q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FetchBucket requests pages until one comes back shorter than the page size.
func (c *Client) FetchBucket(ctx context.Context, req grid.FetchRequest) ([]assets.Asset, error) {
	if req.PageSize <= 0 {
		return nil, fmt.Errorf("fetch bucket %s: page size must be positive", req.BucketKey)
	}
	var out []assets.Asset
	for page := 0; ; page++ {
		batch, err := c.Page(ctx, req, page)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < req.PageSize {
			c.logger.Debug().Str("bucket", req.BucketKey).Int("pages", page+1).Int("assets", len(out)).Msg("bucket fetched")
			return out, nil
		}
	}
}

// SaveAsset stores a full asset record.
func (c *Client) SaveAsset(ctx context.Context, a assets.Asset) (assets.Asset, error) {
	var saved assets.Asset
	err := c.do(ctx, http.MethodPut, "/api/assets/"+url.PathEscape(a.ID), nil, a, &saved)
	return saved, err
}

// SetFavorite toggles the favorite flag of one asset.
func (c *Client) SetFavorite(ctx context.Context, id string, favorite bool) error {
	body := map[string]bool{"isFavorite": favorite}
	return c.do(ctx, http.MethodPut, "/api/assets/"+url.PathEscape(id)+"/favorite", nil, body, nil)
}

var _ grid.BucketFetcher = (*Client)(nil)

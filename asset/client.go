package asset

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
)

// Client is the remote asset service as this core consumes it: child
// listing, asset creation, asset fetch. Paging is the client's problem;
// callers see complete child lists.
type Client interface {
	GetAsset(ctx context.Context, id string) (*Asset, error)
	CreateAsset(ctx context.Context, parentID string, req CreateRequest) (*Asset, error)
	ListChildren(ctx context.Context, parentID string) ([]Asset, error)
}

// ClientOptions configures the HTTP asset client.
type ClientOptions struct {
	// BaseURL is the service root, e.g. https://api.example.com/v2.
	BaseURL string

	// Token is sent as a bearer credential on every request.
	Token string

	// PageSize bounds each child-listing page. Default: 50.
	PageSize int

	// Timeout for individual requests. Default: 30s.
	Timeout time.Duration

	// MaxIdleConnsPerHost sets the idle connection budget per host.
	// Default: 100.
	MaxIdleConnsPerHost int
}

// HTTPClient talks to the asset service over HTTPS with a shared,
// explicitly owned connection pool.
type HTTPClient struct {
	opts   ClientOptions
	client *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates an asset client with a tuned transport.
func NewHTTPClient(opts ClientOptions) *HTTPClient {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxIdleConnsPerHost == 0 {
		opts.MaxIdleConnsPerHost = 100
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPClient{
		opts: opts,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
	}
}

// GetAsset fetches a single asset by id.
func (c *HTTPClient) GetAsset(ctx context.Context, id string) (*Asset, error) {
	var a Asset
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/assets/%s", id), nil, &a); err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	return &a, nil
}

// CreateAsset creates a child under parentID. Both the parent id and a
// valid payload are required; absence is an input error, not a
// transient one.
func (c *HTTPClient) CreateAsset(ctx context.Context, parentID string, req CreateRequest) (*Asset, error) {
	if parentID == "" {
		return nil, ErrMissingParent
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var a Asset
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/assets/%s/children", parentID), req, &a); err != nil {
		return nil, fmt.Errorf("create asset under %s: %w", parentID, err)
	}
	return &a, nil
}

// ListChildren returns every child of parentID, walking pages until the
// service runs dry.
func (c *HTTPClient) ListChildren(ctx context.Context, parentID string) ([]Asset, error) {
	if parentID == "" {
		return nil, ErrMissingParent
	}

	var children []Asset
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(c.opts.PageSize))

		var batch []Asset
		path := fmt.Sprintf("/assets/%s/children?%s", parentID, q.Encode())
		if err := c.call(ctx, http.MethodGet, path, nil, &batch); err != nil {
			return nil, fmt.Errorf("list children of %s: %w", parentID, err)
		}

		children = append(children, batch...)
		if len(batch) < c.opts.PageSize {
			return children, nil
		}
	}
}

func (c *HTTPClient) call(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package esa

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

	"github.com/jbctechsolutions/wikisync/internal/domain/errors"
	"github.com/jbctechsolutions/wikisync/internal/domain/ratelimit"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/logging"
)

// Client handles HTTP communication with the esa.io API.
// It never retries: a 429 is returned as *ratelimit.ExceededError.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.config.Timeout = timeout
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.config.BaseURL = baseURL
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new esa.io API client with the provided access token and options.
func NewClient(token string, opts ...ClientOption) *Client {
	config := DefaultConfig(token)

	client := &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logging.Discard(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func postsPath(team string) string {
	return "/v1/teams/" + url.PathEscape(team) + "/posts"
}

// ListPosts runs a post search.
func (c *Client) ListPosts(ctx context.Context, team, q string, page, perPage int) (*PostsResponse, ratelimit.Snapshot, error) {
	params := url.Values{}
	params.Set("q", q)
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}

	var result PostsResponse
	snap, err := c.do(ctx, http.MethodGet, postsPath(team)+"?"+params.Encode(), nil, http.StatusOK, "get post", &result)
	if err != nil {
		return nil, snap, err
	}
	return &result, snap, nil
}

// CreatePost creates a post. The API answers 201.
func (c *Client) CreatePost(ctx context.Context, team string, body CreatePostBody) (*Post, ratelimit.Snapshot, error) {
	var result Post
	snap, err := c.do(ctx, http.MethodPost, postsPath(team), CreatePostRequest{Post: body}, http.StatusCreated, "create post", &result)
	if err != nil {
		return nil, snap, err
	}
	return &result, snap, nil
}

// UpdatePost replaces a post's body. The API answers 200.
func (c *Client) UpdatePost(ctx context.Context, team string, number int, body UpdatePostBody) (*Post, ratelimit.Snapshot, error) {
	var result Post
	path := postsPath(team) + "/" + strconv.Itoa(number)
	snap, err := c.do(ctx, http.MethodPatch, path, UpdatePostRequest{Post: body}, http.StatusOK, "update post", &result)
	if err != nil {
		return nil, snap, err
	}
	return &result, snap, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, want int, op string, out any) (ratelimit.Snapshot, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return ratelimit.Snapshot{}, errors.NewError(errors.CodeValidation, "failed to marshal request", err)
		}
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return ratelimit.Snapshot{}, err
	}

	logging.LogRequest(ctx, c.logger, method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ratelimit.Snapshot{}, errors.NewError(errors.CodeNetwork, op+" request failed", err)
	}
	defer resp.Body.Close()

	snap := ratelimit.ParseHeaders(resp.Header)

	if resp.StatusCode == http.StatusTooManyRequests {
		return snap, &ratelimit.ExceededError{Snapshot: snap, Message: c.readErrorMessage(resp)}
	}
	if resp.StatusCode != want {
		return snap, errors.NewRemoteRejected(op, resp.StatusCode, c.readErrorMessage(resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return snap, errors.NewError(errors.CodeRemoteRejected, "failed to decode "+op+" response", err)
	}
	return snap, nil
}

// newRequest creates a new HTTP request with required headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return nil, errors.NewError(errors.CodeConfiguration, "failed to create request", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)

	return req, nil
}

// readErrorMessage extracts the remote message from an error response,
// falling back to the raw body.
func (c *Client) readErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Sprintf("failed to read error response: %v", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		return string(bytes.TrimSpace(body))
	}
	return errResp.Message
}

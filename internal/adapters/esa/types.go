// Package esa provides an adapter for the esa.io v1 API.
package esa

import "time"

// DefaultBaseURL is the default esa.io API endpoint.
const DefaultBaseURL = "https://api.esa.io"

// DefaultTimeout is the default HTTP timeout.
const DefaultTimeout = 30 * time.Second

// Config holds client configuration.
type Config struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// DefaultConfig returns the default configuration for token.
func DefaultConfig(token string) Config {
	return Config{
		AccessToken: token,
		BaseURL:     DefaultBaseURL,
		Timeout:     DefaultTimeout,
	}
}

// Post is a post as returned by the API. Only the fields the sync engine
// reads are decoded.
type Post struct {
	Number   int    `json:"number"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Category string `json:"category"`
	WIP      bool   `json:"wip"`
	URL      string `json:"url,omitempty"`
}

// PostsResponse is the body of GET /v1/teams/{team}/posts.
type PostsResponse struct {
	Posts      []Post `json:"posts"`
	PrevPage   *int   `json:"prev_page"`
	NextPage   *int   `json:"next_page"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
}

// CreatePostBody is the payload of a create call.
type CreatePostBody struct {
	Name     string   `json:"name"`
	BodyMD   string   `json:"body_md"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
	WIP      bool     `json:"wip"`
	Message  string   `json:"message"`
}

// UpdatePostBody is the payload of an update call. Category is left out so
// the post stays where it is.
type UpdatePostBody struct {
	Name    string   `json:"name,omitempty"`
	BodyMD  string   `json:"body_md"`
	Tags    []string `json:"tags"`
	WIP     *bool    `json:"wip,omitempty"`
	Message string   `json:"message"`
}

// CreatePostRequest wraps CreatePostBody as the API expects.
type CreatePostRequest struct {
	Post CreatePostBody `json:"post"`
}

// UpdatePostRequest wraps UpdatePostBody as the API expects.
type UpdatePostRequest struct {
	Post UpdatePostBody `json:"post"`
}

// ErrorResponse is the body of a non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Package apiclient is the authenticated HTTP client for the chatstream
// backend API. It owns request construction, auth headers, and status
// checking; stream consumption is the caller's job.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// sendMessageRequest is the JSON body of the per-conversation send endpoint.
type sendMessageRequest struct {
	Message string `json:"message"`
}

// Client talks to the chatstream backend API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client created with New.
type Option func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// Streamed LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SendMessage posts text to the conversation's send endpoint and returns the
// response body stream. On success the body is a text/event-stream the caller
// must close once drained. A non-2xx status is returned as an error carrying
// the response body.
func (c *Client) SendMessage(ctx context.Context, conversationID, text string) (io.ReadCloser, error) {
	body, err := json.Marshal(sendMessageRequest{Message: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/chat/conversations/%s/send", c.baseURL, url.PathEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("send returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return resp.Body, nil
}

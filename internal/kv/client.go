package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNotFound = errors.New("kv: key not found")

// StatusError is returned for any non-200 response from the server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kv server responded %d: %s", e.Code, strings.TrimSpace(e.Body))
}

type Client struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

// NewClient registers with the server at baseURL and keeps the issued token.
func NewClient(ctx context.Context, baseURL string) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	token, err := c.do(ctx, http.MethodGet, "/register", nil)
	if err != nil {
		return nil, fmt.Errorf("register with kv server: %w", err)
	}
	c.apiToken = string(token)
	return c, nil
}

func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.do(ctx, http.MethodPost, c.keyPath("/save/", key), value)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Load returns the value stored under key, or ErrNotFound.
func (c *Client) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := c.do(ctx, http.MethodGet, c.keyPath("/load/", key), nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return value, nil
}

func (c *Client) keyPath(prefix, key string) string {
	return prefix + url.PathEscape(key) + "?API_TOKEN=" + url.QueryEscape(c.apiToken)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

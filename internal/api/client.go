// Package api is the HTTP client for the exchange backend. Every method returns
// the backend's authoritative entity or a normalized *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const maxResponseBytes = 4 << 20

// Client represents an HTTP client for the backend API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	cookies    *cookieStore
}

// New creates a new API client. baseURL includes the /api prefix.
func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger.With().Str("component", "api").Logger(),
		cookies: newCookieStore(),
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// WithCookies returns a copy of the client carrying its own cookie store seeded
// with cookies. The copy shares the underlying transport.
func (c *Client) WithCookies(cookies ...*http.Cookie) *Client {
	clone := *c
	clone.cookies = newCookieStore()
	for _, cookie := range cookies {
		if cookie != nil && cookie.Value != "" {
			clone.cookies.set(cookie.Name, cookie.Value)
		}
	}
	return &clone
}

// Cookie returns a session cookie value held by the client
func (c *Client) Cookie(name string) (string, bool) {
	return c.cookies.get(name)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindValidation, Message: "Invalid request payload", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return networkError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.cookies.apply(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("Backend request failed")
		return networkError(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	c.cookies.capture(resp)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return networkError(fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return networkError(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// cookieStore carries session cookies between the visitor and the backend
type cookieStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newCookieStore() *cookieStore {
	return &cookieStore{values: make(map[string]string)}
}

func (s *cookieStore) get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

func (s *cookieStore) set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

func (s *cookieStore) apply(req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: s.values[name]})
	}
}

func (s *cookieStore) capture(resp *http.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, cookie := range resp.Cookies() {
		expired := cookie.MaxAge < 0 || (!cookie.Expires.IsZero() && cookie.Expires.Before(now))
		if cookie.Value == "" || expired {
			delete(s.values, cookie.Name)
			continue
		}
		s.values[cookie.Name] = cookie.Value
	}
}

func pathID(id string) string {
	return url.PathEscape(id)
}

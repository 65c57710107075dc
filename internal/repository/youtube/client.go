// Package youtube implements repository.Repository on the YouTube Data API v3.
//
// The client speaks plain REST over an authenticated *http.Client (see
// internal/auth). Responses are decoded into the typed structs in types.go and
// mapped to model.Event at this boundary; nothing outside the package sees a
// platform payload.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"livekeeper/internal/repository"
)

// DefaultBaseURL is the public Data API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Client is a YouTube-backed event repository.
type Client struct {
	http    *http.Client
	baseURL string
	// newBackOff builds the retry policy for endpoint resolution.
	newBackOff func() backoff.BackOff
}

var _ repository.Repository = (*Client)(nil)

type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithBackOff replaces the retry policy used when listing ingest endpoints.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = fn
	}
}

// New creates a Client. httpClient must already attach credentials.
func New(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		http:       httpClient,
		baseURL:    DefaultBaseURL,
		newBackOff: defaultBackOff,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// defaultBackOff allows three attempts, waiting 1s then 2s.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, 2)
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
	Reason     string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Reason != "" {
		return fmt.Sprintf("youtube: %s %s: %d %s (%s)", e.Method, e.Path, e.StatusCode, msg, e.Reason)
	}
	return fmt.Sprintf("youtube: %s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Unwrap maps status codes onto the repository sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode >= 500:
		return repository.ErrTransient
	case e.StatusCode == http.StatusNotFound:
		return repository.ErrNotFound
	default:
		return nil
	}
}

// IsServerError reports whether err is a 5xx answer.
func IsServerError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 500
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// do sends one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("youtube: encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("youtube: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("youtube: read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Message = eb.Error.Message
			if len(eb.Error.Errors) > 0 {
				apiErr.Reason = eb.Error.Errors[0].Reason
			}
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("youtube: decode %s response: %w", path, err)
	}
	return nil
}

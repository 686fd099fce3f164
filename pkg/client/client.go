// Package client provides the HTTP shim used to reach the Databricks REST API.
//
// The shim only speaks GET and POST, applies one fixed timeout to every call,
// and converts every transport or HTTP failure into an *Error. It never
// retries; retry and polling policy belong to the callers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds every outbound call.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody limits how much of an error response is read for decoding.
	maxErrorBody = 64 << 10

	defaultUserAgent = "mcp-databricks"
)

// ErrUnsupportedMethod is returned when a caller asks for a method other
// than GET or POST. It signals a programming error, not a runtime condition.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// Error is the uniform failure returned for every unsuccessful call.
type Error struct {
	// StatusCode is the HTTP status, or zero when no response was received.
	StatusCode int

	// ErrorCode is the Databricks error_code from the response body, if any.
	ErrorCode string

	// Message is the combined, caller-facing message.
	Message string

	// Timeout is set when the call exceeded the client timeout.
	Timeout bool

	err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.err
}

// Config configures the client.
type Config struct {
	Host       string
	Token      string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Client performs authenticated JSON requests against a Databricks workspace.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	baseURL   string
	token     string
	timeout   time.Duration
	userAgent string
	http      *http.Client
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("databricks host is required")
	}
	base, err := normalizeHost(cfg.Host)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL:   base,
		token:     cfg.Token,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		http:      cfg.HTTPClient,
	}, nil
}

// normalizeHost adds a scheme when missing and strips trailing slashes.
func normalizeHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("invalid databricks host %q: %w", host, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid databricks host %q", host)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the normalized workspace URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// CloseIdleConnections closes idle keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, query, out)
}

// Post issues a POST request with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, nil, out)
}

// Do issues a request. body is JSON-encoded for POST; query is appended to
// the URL. A nil out discards the response body.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any, query url.Values, out any) error {
	method = strings.ToUpper(method)
	if method != http.MethodGet && method != http.MethodPost {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, endpoint, body, query)
	if err != nil {
		return requestError(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return c.transportError(err)
		}
		return requestError(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any, query url.Values) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil && method == http.MethodPost {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

// apiError is the error body returned by Databricks REST endpoints.
type apiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// statusError builds an *Error from a non-2xx response, decoding the
// structured message when the body allows it.
func statusError(resp *http.Response) *Error {
	msg := fmt.Sprintf("HTTP error: %d", resp.StatusCode)
	e := &Error{StatusCode: resp.StatusCode}

	var body apiError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(data, &body); err == nil {
		e.ErrorCode = body.ErrorCode
		msg += " - " + body.Message
	}

	e.Message = msg
	return e
}

func (c *Client) transportError(err error) *Error {
	if errors.Is(err, context.Canceled) {
		return &Error{Message: "Error making request to Databricks API: request canceled", err: err}
	}
	if isTimeout(err) {
		return &Error{
			Message: fmt.Sprintf("Error making request to Databricks API: timeout after %s", c.timeout),
			Timeout: true,
			err:     err,
		}
	}
	return requestError(err)
}

func requestError(err error) *Error {
	return &Error{Message: "Error making request to Databricks API: " + err.Error(), err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ABOUTME: HTTP client facade for the record-admin backend API
// ABOUTME: Attaches cookies and JSON headers, and turns 401/403 into a forced logout

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Backend endpoints, relative to the configured base URL
const (
	LoginEndpoint                = "/auth/login"
	LogoutEndpoint               = "/auth/logout"
	MeEndpoint                   = "/auth/me"
	ForcedChangePasswordEndpoint = "/auth/forced-change-password"
	ModelsEndpoint               = "/v1/models"
	MyTokensEndpoint             = "/tokens/my-tokens"
	GenerateTokenEndpoint        = "/tokens/generate"
)

// TokenEndpoint returns the endpoint addressing a single token
func TokenEndpoint(tokenID string) string {
	return "/tokens/" + tokenID
}

// LoginPath is the unauthenticated entry route the client navigates to after
// an intercepted authentication failure.
const LoginPath = "/"

// RequestIDHeader carries a per-request correlation ID
const RequestIDHeader = "X-Request-ID"

const defaultTimeout = 30 * time.Second

// Navigator moves the presentation layer to another route
type Navigator interface {
	Navigate(path string) error
}

// NavigatorFunc adapts a function to the Navigator interface
type NavigatorFunc func(path string) error

// Navigate calls f(path)
func (f NavigatorFunc) Navigate(path string) error {
	return f(path)
}

// Invalidator clears local session state when the backend rejects it
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// RequestOptions are the per-request settings callers may supply
type RequestOptions struct {
	Method string
	Body   io.Reader
	Header http.Header
}

// Client is the single choke point for every backend call
type Client struct {
	baseURL    string
	httpClient *http.Client
	jar        *FileJar
	logger     *zap.Logger

	mu           sync.RWMutex
	navigator    Navigator
	invalidator  Invalidator
	hardRedirect func(path string)

	// Concurrent 401/403 responses share one invalidate-and-navigate
	authFailures singleflight.Group
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout of the underlying http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithJar installs a cookie jar; without one the client keeps cookies in memory
func WithJar(jar *FileJar) Option {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithLogger sets the logger used for auth failures and cookie persistence
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHardRedirect replaces the fallback used when no navigator is registered
func WithHardRedirect(fn func(path string)) Option {
	return func(c *Client) {
		c.hardRedirect = fn
	}
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:       zap.NewNop(),
		hardRedirect: stderrRedirect,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.jar == nil {
		c.jar = NewMemoryJar(baseURL)
	}
	c.jar.SetLogger(c.logger)
	c.httpClient.Jar = c.jar
	return c
}

// BaseURL returns the configured backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL builds the absolute URL for an endpoint
func (c *Client) URL(endpoint string) string {
	return c.baseURL + endpoint
}

// SetNavigator registers the navigation handle used after an auth failure.
// It must be registered before any request that may fail with 401/403;
// until then the hard redirect fallback is used.
func (c *Client) SetNavigator(n Navigator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navigator = n
}

// SetInvalidator registers the session invalidation hook
func (c *Client) SetInvalidator(i Invalidator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidator = i
}

// ClearCookies drops every stored cookie, in memory and on disk
func (c *Client) ClearCookies() error {
	return c.jar.Clear()
}

// Request issues a request against endpoint. Unless skipAuthHandling is set,
// a 401 or 403 response invalidates the session, navigates to the login
// route and fails with *AuthenticationFailedError. Every other response,
// including non-2xx ones, is returned unmodified and the caller owns the body.
func (c *Client) Request(ctx context.Context, endpoint string, opts *RequestOptions, skipAuthHandling bool) (*http.Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(endpoint), opts.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	for key, values := range opts.Header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.handleRequestError(ctx, err)
	}

	if !skipAuthHandling && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, c.handleAuthFailure(ctx, endpoint, resp.StatusCode)
	}

	return resp, nil
}

// handleAuthFailure clears the session before navigating, so a guarded route
// never sees a stale authenticated state. Every caller returns only after the
// shared handling has finished.
func (c *Client) handleAuthFailure(ctx context.Context, endpoint string, status int) error {
	c.logger.Warn("authentication error detected, logging out",
		zap.String("endpoint", endpoint),
		zap.Int("status", status))

	c.authFailures.Do("auth-failure", func() (interface{}, error) {
		c.mu.RLock()
		invalidator := c.invalidator
		navigator := c.navigator
		hardRedirect := c.hardRedirect
		c.mu.RUnlock()

		if invalidator != nil {
			invalidator.Invalidate(context.WithoutCancel(ctx))
		}

		if navigator != nil {
			if err := navigator.Navigate(LoginPath); err != nil {
				c.logger.Error("navigation to login failed", zap.Error(err))
			}
		} else {
			c.logger.Error("navigator not registered, falling back to hard redirect")
			hardRedirect(LoginPath)
		}
		return nil, nil
	})

	return &AuthenticationFailedError{StatusCode: status}
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if ctx.Err() == context.Canceled {
		return &NetworkError{Msg: "request canceled", Err: err}
	}
	if ctx.Err() == context.DeadlineExceeded {
		return &NetworkError{Msg: "request timed out", Err: err}
	}
	return &NetworkError{Msg: fmt.Sprintf("cannot connect to backend at %s: %v", c.baseURL, err), Err: err}
}

func stderrRedirect(path string) {
	fmt.Fprintf(os.Stderr, "Session ended. Sign in again (%s).\n", path)
}

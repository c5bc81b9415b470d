// ABOUTME: Tests for the API client facade
// ABOUTME: Uses httptest to mock backend responses and fake session hooks

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recorder captures the order in which auth-failure hooks fire
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeInvalidator struct{ rec *recorder }

func (f fakeInvalidator) Invalidate(ctx context.Context) {
	f.rec.add("invalidate")
}

func statusServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(ErrorBody{Message: http.StatusText(status)})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRequest_BuildsURLAndDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/models", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL + "/api")
	resp, err := c.Request(context.Background(), ModelsEndpoint, nil, false)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequest_CallerHeadersWin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		assert.Equal(t, "fixed-id", r.Header.Get(RequestIDHeader))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "hello", string(body))
	}))
	defer server.Close()

	header := http.Header{}
	header.Set("Content-Type", "text/plain")
	header.Set(RequestIDHeader, "fixed-id")
	header.Set("X-Extra", "yes")

	c := New(server.URL)
	resp, err := c.Request(context.Background(), "/echo", &RequestOptions{
		Method: http.MethodPost,
		Body:   strings.NewReader("hello"),
		Header: header,
	}, false)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestRequest_AttachesCookies(t *testing.T) {
	var sawCookie bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "abc", Path: "/"})
		case "/auth/me":
			cookie, err := r.Cookie("SESSION")
			sawCookie = err == nil && cookie.Value == "abc"
		}
	}))
	defer server.Close()

	c := New(server.URL)
	resp, err := c.Request(context.Background(), LoginEndpoint, &RequestOptions{Method: http.MethodPost}, true)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = c.Request(context.Background(), MeEndpoint, nil, true)
	require.NoError(t, err)
	resp.Body.Close()

	assert.True(t, sawCookie, "expected session cookie on follow-up request")
}

func TestRequest_AuthFailureInvalidatesThenNavigates(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := statusServer(t, status)
			rec := &recorder{}

			c := New(server.URL)
			c.SetInvalidator(fakeInvalidator{rec: rec})
			c.SetNavigator(NavigatorFunc(func(path string) error {
				rec.add("navigate:" + path)
				return nil
			}))

			resp, err := c.Request(context.Background(), ModelsEndpoint, nil, false)

			assert.Nil(t, resp)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAuthenticationFailed))
			var authErr *AuthenticationFailedError
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, status, authErr.StatusCode)
			assert.Equal(t, []string{"invalidate", "navigate:/"}, rec.list())
		})
	}
}

// blockingInvalidator holds the first invalidation until released
type blockingInvalidator struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingInvalidator) Invalidate(ctx context.Context) {
	if b.calls.Add(1) == 1 {
		close(b.entered)
	}
	<-b.release
}

func TestRequest_ConcurrentAuthFailuresShareOneInvalidation(t *testing.T) {
	server := statusServer(t, http.StatusUnauthorized)
	inv := &blockingInvalidator{entered: make(chan struct{}), release: make(chan struct{})}
	var navigations atomic.Int32

	c := New(server.URL)
	c.SetInvalidator(inv)
	c.SetNavigator(NavigatorFunc(func(path string) error {
		navigations.Add(1)
		return nil
	}))

	errs := make(chan error, 2)
	request := func() {
		_, err := c.Request(context.Background(), ModelsEndpoint, nil, false)
		errs <- err
	}

	go request()
	<-inv.entered
	go request()
	time.Sleep(50 * time.Millisecond)
	close(inv.release)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, <-errs, ErrAuthenticationFailed)
	}
	assert.Equal(t, int32(1), inv.calls.Load())
	assert.Equal(t, int32(1), navigations.Load())

	// A later failure is handled again
	_, err := c.Request(context.Background(), ModelsEndpoint, nil, false)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Equal(t, int32(2), inv.calls.Load())
}

func TestRequest_SkipAuthHandlingReturnsRawResponse(t *testing.T) {
	server := statusServer(t, http.StatusUnauthorized)
	rec := &recorder{}

	c := New(server.URL)
	c.SetInvalidator(fakeInvalidator{rec: rec})
	c.SetNavigator(NavigatorFunc(func(path string) error {
		rec.add("navigate:" + path)
		return nil
	}))

	resp, err := c.Request(context.Background(), LoginEndpoint, &RequestOptions{Method: http.MethodPost}, true)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, rec.list())
}

func TestRequest_OtherErrorStatusesReturnedRaw(t *testing.T) {
	server := statusServer(t, http.StatusInternalServerError)
	rec := &recorder{}

	c := New(server.URL)
	c.SetInvalidator(fakeInvalidator{rec: rec})

	resp, err := c.Request(context.Background(), ModelsEndpoint, nil, false)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, rec.list())
}

func TestRequest_NoNavigatorFallsBackToHardRedirect(t *testing.T) {
	server := statusServer(t, http.StatusUnauthorized)
	rec := &recorder{}
	core, logs := observer.New(zapcore.InfoLevel)

	c := New(server.URL,
		WithLogger(zap.New(core)),
		WithHardRedirect(func(path string) { rec.add("hard:" + path) }),
	)
	c.SetInvalidator(fakeInvalidator{rec: rec})

	_, err := c.Request(context.Background(), MyTokensEndpoint, nil, false)

	assert.True(t, errors.Is(err, ErrAuthenticationFailed))
	assert.Equal(t, []string{"invalidate", "hard:/"}, rec.list())
	assert.Equal(t, 1, logs.FilterMessage("navigator not registered, falling back to hard redirect").Len())
	assert.Equal(t, 1, logs.FilterMessage("authentication error detected, logging out").Len())
}

func TestRequest_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := New(url)
	_, err := c.Request(context.Background(), MeEndpoint, nil, true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Contains(t, err.Error(), "cannot connect to backend")
}

func TestRequest_Canceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(server.URL)
	_, err := c.Request(ctx, MeEndpoint, nil, true)

	require.Error(t, err)
	assert.Equal(t, "request canceled", err.Error())
}

func TestListModels_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(ModelsResponse{Models: []Model{
			{ID: "m1", Name: "Customers", Fields: []ModelField{{ID: "f1", Type: "EMAIL", Name: "email"}}},
		}})
	}))
	defer server.Close()

	models, err := New(server.URL).ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "Customers", models[0].Name)
	assert.Equal(t, "EMAIL", models[0].Fields[0].Type)
}

func TestListModels_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorBody{ErrorCode: "NOT_FOUND", Message: "no such model"})
	}))
	defer server.Close()

	_, err := New(server.URL).ListModels(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.ErrorCode)
	assert.Equal(t, "backend error: no such model", apiErr.Error())
}

func TestListModels_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := New(server.URL).ListModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid response from backend")
}

func TestGenerateAndDeleteToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == GenerateTokenEndpoint:
			var req GenerateTokenRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "ci", req.TokenName)
			assert.Equal(t, 30, req.ExpiryDays)
			json.NewEncoder(w).Encode(GenerateTokenResponse{Token: "secret", TokenName: req.TokenName})
		case r.Method == http.MethodDelete && r.URL.Path == "/tokens/t1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := New(server.URL)
	out, err := c.GenerateToken(context.Background(), &GenerateTokenRequest{TokenName: "ci", ExpiryDays: 30})
	require.NoError(t, err)
	assert.Equal(t, "secret", out.Token)

	assert.NoError(t, c.DeleteToken(context.Background(), "t1"))
	assert.Error(t, c.DeleteToken(context.Background(), "missing"))
}

func TestAPIError_NoMessage(t *testing.T) {
	err := &APIError{StatusCode: http.StatusBadGateway}
	assert.Equal(t, "backend returned status 502", err.Error())
}

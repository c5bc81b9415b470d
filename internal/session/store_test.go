// ABOUTME: Tests for the session store lifecycle
// ABOUTME: Drives a real client facade against httptest backends

package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/markalston/record-admin/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var alice = client.LoginResponse{
	Username:          "alice",
	AdminUser:         true,
	CanGenerateTokens: true,
	MaxTokenCount:     5,
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newStore(t *testing.T, baseURL string) (*Store, *FileCache, *client.Client) {
	t.Helper()
	c := client.New(baseURL)
	cache := NewFileCache(t.TempDir())
	return New(c, cache, zap.NewNop()), cache, c
}

// assertInvariant checks that authenticated and user always agree
func assertInvariant(t *testing.T, s *Store) {
	t.Helper()
	snap := s.Snapshot()
	assert.Equal(t, snap.Authenticated, snap.User != nil, "authenticated must equal user != nil")
	assert.Equal(t, s.IsAuthenticated(), s.User() != nil)
}

func TestLogin_Success(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, client.LoginEndpoint, r.URL.Path)
		var req client.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)
		assert.Equal(t, "secret", req.Password)
		writeJSON(w, http.StatusOK, alice)
	})
	store, cache, _ := newStore(t, server.URL)

	result := store.Login(context.Background(), "alice", "secret")

	assert.Equal(t, LoginResult{Success: true}, result)
	assert.True(t, store.IsAuthenticated())
	assert.False(t, store.Provisional())
	assert.Equal(t, &Profile{ID: "alice", Username: "alice", AdminUser: true, CanGenerateTokens: true, MaxTokenCount: 5}, store.User())
	assert.True(t, store.IsAdminUser())
	assert.True(t, store.CanGenerateTokens())
	assertInvariant(t, store)

	cached, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, store.User(), cached)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, client.ErrorBody{Message: "bad password for alice"})
	})
	store, cache, _ := newStore(t, server.URL)

	result := store.Login(context.Background(), "alice", "wrong")

	assert.False(t, result.Success)
	assert.Equal(t, "Invalid credentials", result.Error, "server detail is not leaked")
	assert.Equal(t, ReasonInvalidCredentials, result.Reason)
	assert.False(t, store.IsAuthenticated())
	assertInvariant(t, store)

	cached, _ := cache.Load()
	assert.Nil(t, cached)
}

func TestLogin_MustChangePassword(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, client.ErrorBody{
			ErrorCode: client.MustChangePasswordCode,
			Message:   "Password expired",
		})
	})
	store, _, _ := newStore(t, server.URL)

	result := store.Login(context.Background(), "bob", "old")

	assert.False(t, result.Success)
	assert.True(t, result.MustChangePassword)
	assert.Equal(t, "Password expired", result.Error)
	assert.Equal(t, ReasonMustChangePassword, result.Reason)
	assert.False(t, store.IsAuthenticated())
	assertInvariant(t, store)
}

func TestLogin_MustChangePasswordDefaultMessage(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, client.ErrorBody{ErrorCode: client.MustChangePasswordCode})
	})
	store, _, _ := newStore(t, server.URL)

	result := store.Login(context.Background(), "bob", "old")

	assert.True(t, result.MustChangePassword)
	assert.Equal(t, MsgMustChangePassword, result.Error)
}

func TestLogin_ServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    interface{}
		wantMsg string
	}{
		{"500 with message", http.StatusInternalServerError, client.ErrorBody{Message: "database down"}, "database down"},
		{"500 without body", http.StatusInternalServerError, nil, MsgServerError},
		{"502 with message", http.StatusBadGateway, client.ErrorBody{Message: "upstream unavailable"}, "upstream unavailable"},
		{"400 with legacy error field", http.StatusBadRequest, map[string]string{"error": "username required"}, "username required"},
		{"503 without body", http.StatusServiceUnavailable, nil, MsgServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				if tc.body == nil {
					w.WriteHeader(tc.status)
					return
				}
				writeJSON(w, tc.status, tc.body)
			})
			store, _, _ := newStore(t, server.URL)

			result := store.Login(context.Background(), "alice", "secret")

			assert.False(t, result.Success)
			assert.False(t, result.MustChangePassword)
			assert.Equal(t, tc.wantMsg, result.Error)
			assert.Equal(t, ReasonServerError, result.Reason)
			assertInvariant(t, store)
		})
	}
}

func TestLogin_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()
	store, _, _ := newStore(t, url)

	result := store.Login(context.Background(), "alice", "secret")

	assert.False(t, result.Success)
	assert.Equal(t, ReasonNetwork, result.Reason)
	assert.Contains(t, result.Error, "cannot connect to backend")
	assertInvariant(t, store)
}

func TestLogin_MalformedSuccessBody(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	})
	store, _, _ := newStore(t, server.URL)

	result := store.Login(context.Background(), "alice", "secret")

	assert.False(t, result.Success)
	assert.Equal(t, ReasonNetwork, result.Reason)
	assert.False(t, store.IsAuthenticated())
}

func TestLogin_NeverTriggersGlobalAuthHandling(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	store, _, c := newStore(t, server.URL)
	navigated := false
	c.SetNavigator(client.NavigatorFunc(func(string) error { navigated = true; return nil }))

	store.Login(context.Background(), "alice", "wrong")

	assert.False(t, navigated)
}

func TestNew_RestoresCachedProfileProvisionally(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileCache(dir)
	require.NoError(t, cache.Save(&Profile{ID: "alice", Username: "alice", CanGenerateTokens: true}))

	store := New(client.New("http://127.0.0.1:1"), cache, nil)

	assert.True(t, store.IsAuthenticated())
	assert.True(t, store.Provisional())
	assert.True(t, store.CanGenerateTokens())
	assert.False(t, store.IsAdminUser())
	assertInvariant(t, store)
}

func TestLogout_ClearsEverything(t *testing.T) {
	var logoutCalls int
	var probeHadCookie bool
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case client.LoginEndpoint:
			http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "abc", Path: "/"})
			writeJSON(w, http.StatusOK, alice)
		case client.LogoutEndpoint:
			logoutCalls++
			assert.Equal(t, http.MethodPost, r.Method)
			w.WriteHeader(http.StatusOK)
		case "/probe":
			_, err := r.Cookie("SESSION")
			probeHadCookie = err == nil
		}
	})
	store, cache, c := newStore(t, server.URL)
	require.True(t, store.Login(context.Background(), "alice", "secret").Success)

	store.Logout(context.Background())

	assert.Equal(t, 1, logoutCalls)
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.User())
	assert.False(t, store.IsAdminUser())
	assert.False(t, store.CanGenerateTokens())
	assertInvariant(t, store)
	cached, _ := cache.Load()
	assert.Nil(t, cached)

	resp, err := c.Request(context.Background(), "/probe", nil, true)
	require.NoError(t, err)
	resp.Body.Close()
	assert.False(t, probeHadCookie, "cookies are dropped on logout")
}

func TestLogout_ServerUnreachableStillClearsLocally(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileCache(dir)
	require.NoError(t, cache.Save(&Profile{ID: "alice", Username: "alice"}))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	store := New(client.New(url), cache, zap.New(core))
	require.True(t, store.IsAuthenticated())

	store.Logout(context.Background())

	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.User())
	assertInvariant(t, store)
	_, err := os.Stat(filepath.Join(dir, CacheKey+".json"))
	assert.True(t, os.IsNotExist(err), "cache file should be removed")
	assert.Equal(t, 1, logs.FilterMessage("logout request failed").Len())
}

func TestValidateSession_Success(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, client.MeEndpoint, r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		writeJSON(w, http.StatusOK, client.MeResponse{Username: "carol", MaxTokenCount: 2})
	})
	store, cache, _ := newStore(t, server.URL)

	assert.True(t, store.ValidateSession(context.Background()))

	assert.True(t, store.IsAuthenticated())
	assert.False(t, store.Provisional())
	assert.Equal(t, "carol", store.User().ID)
	assert.Equal(t, 2, store.User().MaxTokenCount)
	assertInvariant(t, store)
	cached, _ := cache.Load()
	assert.Equal(t, "carol", cached.Username)
}

func TestValidateSession_ConfirmsProvisionalSession(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, client.MeResponse{Username: "alice", AdminUser: true})
	})
	cache := NewFileCache(t.TempDir())
	require.NoError(t, cache.Save(&Profile{ID: "alice", Username: "alice"}))
	store := New(client.New(server.URL), cache, nil)
	require.True(t, store.Provisional())

	assert.True(t, store.ValidateSession(context.Background()))

	assert.False(t, store.Provisional())
	assert.True(t, store.IsAdminUser(), "profile refreshed from backend")
}

func TestValidateSession_RejectedClearsSession(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var logoutCalls int
			server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == client.LogoutEndpoint {
					logoutCalls++
					return
				}
				w.WriteHeader(status)
			})
			cache := NewFileCache(t.TempDir())
			require.NoError(t, cache.Save(&Profile{ID: "alice", Username: "alice"}))
			c := client.New(server.URL)
			navigated := false
			c.SetNavigator(client.NavigatorFunc(func(string) error { navigated = true; return nil }))
			store := New(c, cache, nil)

			assert.False(t, store.ValidateSession(context.Background()))

			assert.False(t, store.IsAuthenticated())
			assert.Nil(t, store.User())
			assertInvariant(t, store)
			assert.Equal(t, 1, logoutCalls)
			assert.False(t, navigated, "validation never triggers the global redirect")
			cached, _ := cache.Load()
			assert.Nil(t, cached)
		})
	}
}

func TestValidateSession_MalformedBody(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == client.MeEndpoint {
			w.Write([]byte("{"))
		}
	})
	store, _, _ := newStore(t, server.URL)

	assert.False(t, store.ValidateSession(context.Background()))
	assert.False(t, store.IsAuthenticated())
}

func TestAuthFailureThroughFacadeClearsSession(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case client.LoginEndpoint:
			writeJSON(w, http.StatusOK, alice)
		case client.LogoutEndpoint:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	store, cache, c := newStore(t, server.URL)
	c.SetInvalidator(store)

	var authenticatedAtNavigation *bool
	c.SetNavigator(client.NavigatorFunc(func(path string) error {
		v := store.IsAuthenticated()
		authenticatedAtNavigation = &v
		assert.Equal(t, client.LoginPath, path)
		return nil
	}))
	require.True(t, store.Login(context.Background(), "alice", "secret").Success)

	_, err := c.ListModels(context.Background())

	assert.True(t, errors.Is(err, client.ErrAuthenticationFailed))
	require.NotNil(t, authenticatedAtNavigation)
	assert.False(t, *authenticatedAtNavigation, "session must be cleared before navigation")
	assert.False(t, store.IsAuthenticated())
	assertInvariant(t, store)
	cached, _ := cache.Load()
	assert.Nil(t, cached)
}

func TestAuthFailureWithSkipKeepsSession(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == client.LoginEndpoint {
			writeJSON(w, http.StatusOK, alice)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	store, _, c := newStore(t, server.URL)
	c.SetInvalidator(store)
	navigated := false
	c.SetNavigator(client.NavigatorFunc(func(string) error { navigated = true; return nil }))
	require.True(t, store.Login(context.Background(), "alice", "secret").Success)

	resp, err := c.Request(context.Background(), client.ModelsEndpoint, nil, true)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.True(t, store.IsAuthenticated())
	assert.False(t, navigated)
}

func TestForcedChangePassword(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req client.ForcedChangePasswordRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.OldPassword != "old" {
			writeJSON(w, http.StatusUnauthorized, client.ErrorBody{Message: "old password does not match"})
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	store, _, _ := newStore(t, server.URL)

	assert.NoError(t, store.ForcedChangePassword(context.Background(), "bob", "old", "n3w-Passw0rd"))

	err := store.ForcedChangePassword(context.Background(), "bob", "wrong", "n3w-Passw0rd")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.False(t, store.IsAuthenticated())
}

func TestReasonString(t *testing.T) {
	tests := []struct {
		reason   Reason
		expected string
	}{
		{ReasonNone, "none"},
		{ReasonInvalidCredentials, "invalid_credentials"},
		{ReasonMustChangePassword, "must_change_password"},
		{ReasonServerError, "server_error"},
		{ReasonNetwork, "network"},
		{Reason(99), "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.reason.String())
		})
	}
}

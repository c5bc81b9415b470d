// ABOUTME: Client-side session store for the signed-in user
// ABOUTME: Implements login, logout and session validation against the backend

package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/markalston/record-admin/internal/client"
	"go.uber.org/zap"
)

// API is the part of the client facade the store depends on
type API interface {
	Request(ctx context.Context, endpoint string, opts *client.RequestOptions, skipAuthHandling bool) (*http.Response, error)
	ClearCookies() error
}

// Snapshot is a consistent copy of the session state
type Snapshot struct {
	Authenticated bool
	User          *Profile
	// Provisional is set while the state comes only from the local cache
	// and has not been confirmed by the backend.
	Provisional bool
}

// Store holds the current session. authenticated and user always change
// together under mu, so authenticated == (user != nil) at every observable
// point. Overlapping operations are not serialized; the last write wins.
type Store struct {
	api    API
	cache  Cache
	logger *zap.Logger

	mu            sync.RWMutex
	authenticated bool
	user          *Profile
	provisional   bool
}

// New creates a store and restores a cached profile, if any. A restored
// session is provisional until Login or ValidateSession confirms it.
func New(api API, cache Cache, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{api: api, cache: cache, logger: logger}

	p, err := cache.Load()
	if err != nil {
		logger.Warn("failed to read cached profile", zap.Error(err))
	}
	if p != nil {
		s.set(p, true)
	}
	return s
}

func (s *Store) set(p *Profile, provisional bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = p
	s.authenticated = true
	s.provisional = provisional
}

func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.authenticated = false
	s.provisional = false
}

// Login authenticates with the backend. It never returns an error; every
// failure mode is described by the result.
func (s *Store) Login(ctx context.Context, username, password string) LoginResult {
	body, err := client.JSONBody(client.LoginRequest{Username: username, Password: password})
	if err != nil {
		return failure(ReasonNetwork, err.Error())
	}

	resp, err := s.api.Request(ctx, client.LoginEndpoint, &client.RequestOptions{
		Method: http.MethodPost,
		Body:   body,
	}, true)
	if err != nil {
		s.logger.Error("login error", zap.Error(err))
		return failure(ReasonNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return failure(ReasonInvalidCredentials, MsgInvalidCredentials)
	}

	if resp.StatusCode == http.StatusInternalServerError {
		errBody, _ := client.ReadErrorBody(resp)
		if errBody.ErrorCode == client.MustChangePasswordCode {
			msg := errBody.Message
			if msg == "" {
				msg = MsgMustChangePassword
			}
			result := failure(ReasonMustChangePassword, msg)
			result.MustChangePassword = true
			return result
		}
		return failure(ReasonServerError, messageOr(errBody.Message, MsgServerError))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := client.ReadErrorBody(resp)
		s.logger.Warn("login rejected", zap.Int("status", resp.StatusCode))
		return failure(ReasonServerError, messageOr(errBody.Message, MsgServerError))
	}

	var data client.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		s.logger.Error("login error", zap.Error(err))
		return failure(ReasonNetwork, "invalid response from backend: "+err.Error())
	}

	p := profileFromLogin(data)
	s.set(p, false)

	// The cache write completes before success is reported, so a restart
	// right after login sees the session.
	if err := s.cache.Save(p); err != nil {
		s.logger.Warn("failed to cache profile", zap.Error(err))
	}

	s.logger.Info("logged in", zap.String("username", p.Username))
	return LoginResult{Success: true}
}

// Logout tells the backend to end the session and always clears the local
// state, cache and cookies, even when the backend cannot be reached.
func (s *Store) Logout(ctx context.Context) {
	resp, err := s.api.Request(ctx, client.LogoutEndpoint, &client.RequestOptions{
		Method: http.MethodPost,
	}, true)
	if err != nil {
		s.logger.Warn("logout request failed", zap.Error(err))
	} else {
		resp.Body.Close()
	}

	s.clear()

	if err := s.cache.Clear(); err != nil {
		s.logger.Warn("failed to clear cached profile", zap.Error(err))
	}
	if err := s.api.ClearCookies(); err != nil {
		s.logger.Warn("failed to clear cookies", zap.Error(err))
	}
}

// Invalidate implements client.Invalidator
func (s *Store) Invalidate(ctx context.Context) {
	s.Logout(ctx)
}

// ValidateSession asks the backend who is signed in. Any failure is treated
// as "not signed in": the store logs out and returns false without going
// through the client's global auth-failure handling.
func (s *Store) ValidateSession(ctx context.Context) bool {
	resp, err := s.api.Request(ctx, client.MeEndpoint, nil, true)
	if err != nil {
		s.logger.Warn("session validation error", zap.Error(err))
		s.Logout(ctx)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Info("session rejected by backend", zap.Int("status", resp.StatusCode))
		s.Logout(ctx)
		return false
	}

	var data client.MeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		s.logger.Warn("session validation error", zap.Error(err))
		s.Logout(ctx)
		return false
	}

	p := profileFromMe(data)
	s.set(p, false)

	if err := s.cache.Save(p); err != nil {
		s.logger.Warn("failed to cache profile", zap.Error(err))
	}
	return true
}

// ForcedChangePassword replaces the password of a user who was told to
// change it at login. No session is needed or created.
func (s *Store) ForcedChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	body, err := client.JSONBody(client.ForcedChangePasswordRequest{
		Username:    username,
		OldPassword: oldPassword,
		NewPassword: newPassword,
	})
	if err != nil {
		return err
	}

	resp, err := s.api.Request(ctx, client.ForcedChangePasswordEndpoint, &client.RequestOptions{
		Method: http.MethodPost,
		Body:   body,
	}, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return client.NewAPIError(resp)
	}
	return nil
}

// IsAuthenticated reports whether a session is believed to exist
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// User returns a copy of the current profile, or nil
func (s *Store) User() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	p := *s.user
	return &p
}

// Snapshot returns the session state as one consistent value
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Authenticated: s.authenticated, Provisional: s.provisional}
	if s.user != nil {
		p := *s.user
		snap.User = &p
	}
	return snap
}

// Provisional reports whether the session was only restored from cache
func (s *Store) Provisional() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provisional
}

// IsAdminUser reports the admin flag, false when signed out
func (s *Store) IsAdminUser() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.AdminUser
}

// CanGenerateTokens reports the token flag, false when signed out
func (s *Store) CanGenerateTokens() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.CanGenerateTokens
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

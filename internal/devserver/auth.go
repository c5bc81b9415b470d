// ABOUTME: Auth handlers for the development backend
// ABOUTME: Handles login, logout, session lookup and forced password changes

package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/markalston/record-admin/internal/client"
	"go.uber.org/zap"
)

const sessionMaxAge = 3600

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req client.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "", "Username and password are required")
		return
	}

	u, err := s.users.authenticate(req.Username, req.Password)
	if err != nil {
		s.logger.Warn("authentication failed", zap.String("username", req.Username), zap.Error(err))
		writeError(w, http.StatusUnauthorized, "", "Invalid credentials")
		return
	}

	// The backend reports an expired password as a server error with a
	// dedicated code; no session is created.
	if u.mustChangePassword {
		writeError(w, http.StatusInternalServerError, client.MustChangePasswordCode,
			"Your password has expired and must be changed")
		return
	}

	sessionID, err := s.sessions.create(u.username)
	if err != nil {
		s.logger.Error("failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "", "Failed to create session")
		return
	}
	s.setSessionCookie(w, sessionID)

	writeJSON(w, http.StatusOK, client.LoginResponse{
		Username:          u.username,
		AdminUser:         u.admin,
		CanGenerateTokens: u.canGenerateTokens,
		MaxTokenCount:     u.maxTokenCount,
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, _ := s.currentUser(r)
	writeJSON(w, http.StatusOK, client.MeResponse{
		Username:          u.username,
		AdminUser:         u.admin,
		CanGenerateTokens: u.canGenerateTokens,
		MaxTokenCount:     u.maxTokenCount,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		s.sessions.delete(cookie.Value)
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) forcedChangePassword(w http.ResponseWriter, r *http.Request) {
	var req client.ForcedChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		writeError(w, http.StatusBadRequest, "", "New password is required")
		return
	}
	if req.NewPassword == req.OldPassword {
		writeError(w, http.StatusBadRequest, "", "New password must differ from the current one")
		return
	}

	if _, err := s.users.authenticate(req.Username, req.OldPassword); err != nil {
		writeError(w, http.StatusUnauthorized, "", "Invalid credentials")
		return
	}

	if err := s.users.setPassword(req.Username, req.NewPassword); err != nil {
		if errors.Is(err, errUnknownUser) {
			writeError(w, http.StatusUnauthorized, "", "Invalid credentials")
			return
		}
		s.logger.Error("failed to change password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "", "Failed to change password")
		return
	}

	s.logger.Info("password changed", zap.String("username", req.Username))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	type userInfo struct {
		Username           string `json:"username"`
		AdminUser          bool   `json:"adminUser"`
		CanGenerateTokens  bool   `json:"canGenerateTokens"`
		MustChangePassword bool   `json:"mustChangePassword"`
	}

	var out []userInfo
	for _, u := range s.users.list() {
		out = append(out, userInfo{
			Username:           u.username,
			AdminUser:          u.admin,
			CanGenerateTokens:  u.canGenerateTokens,
			MustChangePassword: u.mustChangePassword,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": out})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   sessionMaxAge,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

// ABOUTME: API token and model handlers for the development backend
// ABOUTME: Tokens are kept per user and only their prefix is ever listed

package devserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/markalston/record-admin/internal/client"
	"go.uber.org/zap"
)

const (
	defaultExpiryDays = 30
	maxExpiryDays     = 365
	tokenPrefixLength = 8
)

// DefaultModels returns a small catalogue for the models screen
func DefaultModels() []client.Model {
	return []client.Model{
		{
			ID:          "1",
			Name:        "People",
			Description: "Contacts and staff",
			Fields: []client.ModelField{
				{ID: "1", Type: "text", Name: "name"},
				{ID: "2", Type: "email", Name: "email"},
			},
		},
		{
			ID:          "2",
			Name:        "Cars",
			Description: "Fleet vehicles",
			Fields: []client.ModelField{
				{ID: "3", Type: "text", Name: "make"},
				{ID: "4", Type: "number", Name: "year"},
			},
		},
	}
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, client.ModelsResponse{Models: s.models})
}

func (s *Server) myTokens(w http.ResponseWriter, r *http.Request) {
	u, _ := s.currentUser(r)

	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	out := make([]client.UserToken, 0, len(s.tokens[u.username]))
	out = append(out, s.tokens[u.username]...)
	writeJSON(w, http.StatusOK, client.UserTokensResponse{Tokens: out})
}

func (s *Server) generateToken(w http.ResponseWriter, r *http.Request) {
	u, _ := s.currentUser(r)
	if !u.canGenerateTokens {
		writeError(w, http.StatusForbidden, "", "Token generation is not allowed for this user")
		return
	}

	var req client.GenerateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "Invalid request body")
		return
	}
	req.TokenName = strings.TrimSpace(req.TokenName)
	if req.TokenName == "" {
		writeError(w, http.StatusBadRequest, "", "Token name is required")
		return
	}
	if req.ExpiryDays == 0 {
		req.ExpiryDays = defaultExpiryDays
	}
	if req.ExpiryDays < 0 || req.ExpiryDays > maxExpiryDays {
		writeError(w, http.StatusBadRequest, "", "Expiry must be between 1 and 365 days")
		return
	}

	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	if len(s.tokens[u.username]) >= u.maxTokenCount {
		writeError(w, http.StatusBadRequest, "", "Maximum number of tokens reached")
		return
	}

	now := time.Now().UTC()
	expiry := now.AddDate(0, 0, req.ExpiryDays)
	secret := "ra_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	// Only the prefix is kept; the secret is shown once in the response
	token := client.UserToken{
		ID:                  uuid.NewString(),
		TokenName:           req.TokenName,
		CreatedAt:           now.Format(time.RFC3339),
		TokenExpiryDateTime: expiry.Format(time.RFC3339),
		TokenPrefix:         secret[:tokenPrefixLength],
	}
	s.tokens[u.username] = append(s.tokens[u.username], token)

	s.logger.Info("token generated", zap.String("username", u.username), zap.String("token_id", token.ID))
	writeJSON(w, http.StatusOK, client.GenerateTokenResponse{
		Token:          secret,
		TokenName:      req.TokenName,
		ExpiryDateTime: token.TokenExpiryDateTime,
	})
}

func (s *Server) deleteToken(w http.ResponseWriter, r *http.Request) {
	u, _ := s.currentUser(r)
	id := mux.Vars(r)["id"]

	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	tokens := s.tokens[u.username]
	for i, t := range tokens {
		if t.ID == id {
			s.tokens[u.username] = append(tokens[:i], tokens[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
			return
		}
	}
	writeError(w, http.StatusNotFound, "", "Token not found")
}

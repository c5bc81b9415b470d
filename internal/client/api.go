// ABOUTME: Wire DTOs and typed helpers for the record-admin endpoints
// ABOUTME: Typed helpers go through Request with auth handling enabled

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// LoginRequest carries credentials for /auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful /auth/login
type LoginResponse struct {
	MustChangePassword bool   `json:"mustChangePassword"`
	AdminUser          bool   `json:"adminUser"`
	Username           string `json:"username"`
	CanGenerateTokens  bool   `json:"canGenerateTokens"`
	MaxTokenCount      int    `json:"maxTokenCount"`
}

// MeResponse is returned by /auth/me
type MeResponse struct {
	Username          string `json:"username"`
	AdminUser         bool   `json:"adminUser"`
	CanGenerateTokens bool   `json:"canGenerateTokens"`
	MaxTokenCount     int    `json:"maxTokenCount"`
}

// ForcedChangePasswordRequest replaces an expired password without a session
type ForcedChangePasswordRequest struct {
	Username    string `json:"username"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ModelField describes one field of a user-defined model
type ModelField struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Model is a user-defined record type
type Model struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Fields      []ModelField `json:"fields"`
}

// ModelsResponse is returned by GET /v1/models
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// UserToken is an API token owned by the current user
type UserToken struct {
	ID                  string `json:"id"`
	TokenName           string `json:"tokenName"`
	CreatedAt           string `json:"createdAt"`
	TokenExpiryDateTime string `json:"tokenExpiryDateTime"`
	TokenPrefix         string `json:"tokenPrefix"`
}

// UserTokensResponse is returned by GET /tokens/my-tokens
type UserTokensResponse struct {
	Tokens []UserToken `json:"tokens"`
}

// GenerateTokenRequest asks for a new API token
type GenerateTokenRequest struct {
	TokenName  string `json:"tokenName"`
	ExpiryDays int    `json:"expiryDays"`
}

// GenerateTokenResponse holds the only copy of a new token's secret
type GenerateTokenResponse struct {
	Token          string `json:"token"`
	TokenName      string `json:"tokenName"`
	ExpiryDateTime string `json:"expiryDateTime"`
}

// JSONBody encodes v for use as RequestOptions.Body
func JSONBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}
	return bytes.NewReader(data), nil
}

// ListModels calls GET /v1/models
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var out ModelsResponse
	if err := c.do(ctx, http.MethodGet, ModelsEndpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// MyTokens calls GET /tokens/my-tokens
func (c *Client) MyTokens(ctx context.Context) ([]UserToken, error) {
	var out UserTokensResponse
	if err := c.do(ctx, http.MethodGet, MyTokensEndpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Tokens, nil
}

// GenerateToken calls POST /tokens/generate
func (c *Client) GenerateToken(ctx context.Context, input *GenerateTokenRequest) (*GenerateTokenResponse, error) {
	var out GenerateTokenResponse
	if err := c.do(ctx, http.MethodPost, GenerateTokenEndpoint, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteToken calls DELETE /tokens/{id}
func (c *Client) DeleteToken(ctx context.Context, tokenID string) error {
	return c.do(ctx, http.MethodDelete, TokenEndpoint(tokenID), nil, nil)
}

// do performs a JSON round trip with auth handling enabled. A nil out
// discards the response body.
func (c *Client) do(ctx context.Context, method, endpoint string, in, out interface{}) error {
	opts := &RequestOptions{Method: method}
	if in != nil {
		body, err := JSONBody(in)
		if err != nil {
			return err
		}
		opts.Body = body
	}

	resp, err := c.Request(ctx, endpoint, opts, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewAPIError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

// ABOUTME: Error types returned by the API client
// ABOUTME: Distinguishes forced logouts, transport failures and backend errors

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrAuthenticationFailed matches any *AuthenticationFailedError
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNetwork matches any *NetworkError
	ErrNetwork = errors.New("network error")
)

// MustChangePasswordCode is the backend error code for users whose password
// has to be changed before they can sign in
const MustChangePasswordCode = "USER_MUST_CHANGE_PASSWORD"

// AuthenticationFailedError is returned after an intercepted 401/403, once
// the session has been cleared and navigation to login issued
type AuthenticationFailedError struct {
	StatusCode int
}

func (e *AuthenticationFailedError) Error() string {
	return fmt.Sprintf("authentication failed: %d", e.StatusCode)
}

// Is reports whether target is ErrAuthenticationFailed
func (e *AuthenticationFailedError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

// NetworkError wraps a transport failure
type NetworkError struct {
	Msg string
	Err error
}

func (e *NetworkError) Error() string {
	return e.Msg
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrNetwork
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// ErrorBody is the structured error payload the backend sends
type ErrorBody struct {
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// APIError represents a non-success response from a typed endpoint
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend error: %s", e.Message)
}

// ReadErrorBody decodes the error payload of resp. A body that is empty or
// not JSON yields an empty ErrorBody and a non-nil error.
func ReadErrorBody(resp *http.Response) (ErrorBody, error) {
	var body ErrorBody
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return body, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ErrorBody{}, fmt.Errorf("invalid error response: %w", err)
	}
	if body.Message == "" {
		body.Message = body.Error
	}
	return body, nil
}

// NewAPIError builds an APIError from a non-success response
func NewAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if body, err := ReadErrorBody(resp); err == nil {
		apiErr.ErrorCode = body.ErrorCode
		apiErr.Message = body.Message
	}
	return apiErr
}

package taiga

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthentication is matched by every authentication failure
	ErrAuthentication = errors.New("authentication failed")

	// ErrNotFound is matched by resolution failures and 404 responses
	ErrNotFound = errors.New("not found")
)

// AuthError describes a failed login against the Taiga API
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Username == "" {
		return fmt.Sprintf("authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("authentication failed for %s: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthentication }

// ResolveError represents an error when resolving an identifier
type ResolveError struct {
	Type  string
	Query string
	Err   error
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not found: %s (%v)", e.Type, e.Query, e.Err)
	}
	return fmt.Sprintf("%s not found: %s", e.Type, e.Query)
}

func (e *ResolveError) Unwrap() error { return e.Err }

func (e *ResolveError) Is(target error) bool { return target == ErrNotFound }

// APIError is returned for any non-2xx response from the Taiga API
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d) on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrAuthentication:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// newAPIError extracts the human message Taiga puts in error bodies
func newAPIError(status int, method, path string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    strings.TrimSpace(string(body)),
	}

	var payload struct {
		ErrorMessage string `json:"_error_message"`
		Detail       string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.ErrorMessage != "":
			apiErr.Message = payload.ErrorMessage
		case payload.Detail != "":
			apiErr.Message = payload.Detail
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	return apiErr
}

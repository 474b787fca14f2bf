package api

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError indicates that the session token was rejected (HTTP 401).
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s",
		e.StatusCode, e.Method, e.Path, e.Message)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// errorResponse is the NestJS error envelope.
type errorResponse struct {
	StatusCode int         `json:"statusCode"`
	Message    interface{} `json:"message"`
	Error      string      `json:"error"`
}

// text flattens the message field, which NestJS sends as a string or a list
// of validation messages.
func (r errorResponse) text() string {
	switch m := r.Message.(type) {
	case string:
		return m
	case []interface{}:
		out := ""
		for i, v := range m {
			if i > 0 {
				out += "; "
			}
			out += fmt.Sprint(v)
		}
		return out
	}
	return r.Error
}

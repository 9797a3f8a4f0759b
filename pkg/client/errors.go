package client

import "fmt"

// APIError is an error response from the UsageSentry API
type APIError struct {
	StatusCode int `json:"-"`
	ErrorBody  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.ErrorBody.Message != "" {
		return fmt.Sprintf("%s (status %d)", e.ErrorBody.Message, e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d)", e.StatusCode)
}

// IsNotFound reports whether the error is a 404 API error
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == 404
}

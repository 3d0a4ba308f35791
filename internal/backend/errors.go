package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// StatusCode extracts the HTTP status from err, or 0 if err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsConflict reports a 409, which the note endpoint uses for "not ready yet".
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

func IsServerError(err error) bool {
	return StatusCode(err) >= http.StatusInternalServerError
}

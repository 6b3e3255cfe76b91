package deepface

import (
	"errors"
	"fmt"
)

var (
	ErrDeepFaceUnavailable = errors.New("deepface service unavailable")
	ErrInvalidResponse     = errors.New("invalid response from deepface")
	ErrEmptyImage          = errors.New("empty image")
	ErrNoThreshold         = errors.New("no default threshold for model and metric")
)

// StatusError is returned for any HTTP status >= 400.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.StatusCode, e.Body)
}

// isClientError checks if the error is a 4xx client error
func isClientError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500
}

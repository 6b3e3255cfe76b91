package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so wrapped copies
// produced by WithError still satisfy errors.Is against the catalogue.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// WithMessage keeps the code and status but replaces the message.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    msg,
		StatusCode: e.StatusCode,
		Err:        e.Err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Gallery errors
	ErrInvalidName = &AppError{
		Code:       "INVALID_NAME",
		Message:    "Identity name is empty or not allowed",
		StatusCode: 422,
	}

	ErrUnsupportedImage = &AppError{
		Code:       "UNSUPPORTED_IMAGE",
		Message:    "Only .jpg, .jpeg and .png images are supported",
		StatusCode: 422,
	}

	ErrPersonNotFound = &AppError{
		Code:       "PERSON_NOT_FOUND",
		Message:    "Person is not registered in the gallery",
		StatusCode: 404,
	}

	ErrAddPersonFailed = &AppError{
		Code:       "ADD_PERSON_FAILED",
		Message:    "Could not copy the image into the gallery",
		StatusCode: 500,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrGalleryReload = &AppError{
		Code:       "GALLERY_RELOAD_FAILED",
		Message:    "Could not rebuild the face gallery",
		StatusCode: 502,
	}

	// Ledger errors
	ErrLedgerPersist = &AppError{
		Code:       "LEDGER_PERSIST_FAILED",
		Message:    "Could not write the attendance file",
		StatusCode: 500,
	}

	ErrLedgerLoad = &AppError{
		Code:       "LEDGER_LOAD_FAILED",
		Message:    "Could not read the attendance file",
		StatusCode: 500,
	}

	ErrInvalidDate = &AppError{
		Code:       "INVALID_DATE",
		Message:    "Date must use the YYYY-MM-DD format",
		StatusCode: 400,
	}

	// Video errors
	ErrVideoOpen = &AppError{
		Code:       "VIDEO_OPEN_FAILED",
		Message:    "Could not open the video source",
		StatusCode: 422,
	}

	ErrSessionActive = &AppError{
		Code:       "SESSION_ACTIVE",
		Message:    "A video session is already running",
		StatusCode: 409,
	}

	ErrNoActiveSession = &AppError{
		Code:       "NO_ACTIVE_SESSION",
		Message:    "No video session has been started",
		StatusCode: 404,
	}

	// HTTP errors
	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, try again later",
		StatusCode: 429,
	}

	ErrProviderUnavailable = &AppError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "Face recognition backend is unavailable",
		StatusCode: 503,
	}
)

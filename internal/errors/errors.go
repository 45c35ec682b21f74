package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"keeptree/internal/manifest"
	"keeptree/internal/storage"
)

type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func Conflict(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeConflict,
		Message: message,
		Code:    http.StatusConflict,
		Details: details,
	}
}

func Internal(message string) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
	}
}

// FromError maps any error onto an *Error. Manifest parse and range
// failures become validation errors carrying their location.
func FromError(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	var perr *manifest.ParseError
	if stderrors.As(err, &perr) {
		return ValidationError(err.Error(), perr)
	}

	var rerr *manifest.RangeError
	if stderrors.As(err, &rerr) {
		return ValidationError(err.Error(), map[string]any{
			"stream":      rerr.Stream,
			"path":        rerr.Token.Path,
			"stream_size": rerr.StreamSize,
		})
	}

	var cerr *manifest.ConflictError
	if stderrors.As(err, &cerr) {
		return Conflict(err.Error(), map[string]string{"id": cerr.ID})
	}

	if stderrors.Is(err, storage.ErrNotFound) {
		return NotFound(err.Error())
	}
	if stderrors.Is(err, storage.ErrAlreadyExists) {
		return Conflict(err.Error(), nil)
	}

	return Internal(err.Error())
}

// Write sends err as a JSON body with its status code.
func Write(w http.ResponseWriter, err error) {
	e := FromError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	json.NewEncoder(w).Encode(e)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies failures of backend calls
type Kind int

const (
	// KindNetwork means the request did not complete
	KindNetwork Kind = iota + 1
	// KindAuth means the session is absent or expired (401)
	KindAuth
	// KindValidation means malformed input, caught locally or rejected by the backend
	KindValidation
	// KindDomain means the backend refused a business operation
	KindDomain
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindDomain:
		return "domain"
	default:
		return "unknown"
	}
}

const unexpectedMessage = "Unexpected error"

// Error is the normalized error returned by every Client method
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports input rejected before it reached the backend
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusUnprocessableEntity, Message: message}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "Network error", Err: err}
}

// errorFromResponse maps a non-2xx backend response to an Error
func errorFromResponse(status int, body []byte) *Error {
	message := extractMessage(body)
	if message == "" {
		message = fmt.Sprintf("Request failed with status code %d", status)
	}

	e := &Error{Status: status, Message: message}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = KindAuth
	case http.StatusUnprocessableEntity, http.StatusTooManyRequests:
		e.Kind = KindValidation
	default:
		e.Kind = KindDomain
	}
	return e
}

func extractMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return strings.TrimSpace(payload.Message)
	}
	return strings.TrimSpace(payload.Error)
}

// KindOf returns the Kind of err, or 0 when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsAuth(err error) bool       { return KindOf(err) == KindAuth }
func IsNetwork(err error) bool    { return KindOf(err) == KindNetwork }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsDomain(err error) bool     { return KindOf(err) == KindDomain }

// Message turns any error into the text shown next to a form
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return unexpectedMessage
}

// StatusOf returns the HTTP status to relay for err
func StatusOf(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindNetwork:
		return http.StatusBadGateway
	case KindAuth:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

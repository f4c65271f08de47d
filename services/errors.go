package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid             ErrorCode = "invalid"
	ErrorConfig              ErrorCode = "config"
	ErrorUpstream            ErrorCode = "upstream"
	ErrorUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrorMalformedReply      ErrorCode = "malformed_reply"
	ErrorUnauthorized        ErrorCode = "unauthorized"
	ErrorTooManyRequests     ErrorCode = "too_many_requests"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

func NewInvalidError(msg string) error { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewConfigError(msg string) error  { return &ServiceError{Code: ErrorConfig, Message: msg} }

func NewUpstreamError(msg string, err error) error {
	return &ServiceError{Code: ErrorUpstream, Message: msg, Err: err}
}

func NewUpstreamUnavailableError(msg string, err error) error {
	return &ServiceError{Code: ErrorUpstreamUnavailable, Message: msg, Err: err}
}

func NewMalformedReplyError(msg string, err error) error {
	return &ServiceError{Code: ErrorMalformedReply, Message: msg, Err: err}
}

func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewTooManyRequestsError(msg string) error {
	return &ServiceError{Code: ErrorTooManyRequests, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCode reports whether err carries the given service error code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == code
}

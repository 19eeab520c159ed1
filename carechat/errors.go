package carechat

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	// Protocol errors (from gateway error responses)
	ErrorUnknown ErrorCode = iota
	ErrorUnsupportedVersion
	ErrorUnauthorized
	ErrorInvalidMessage
	ErrorBadRequest
	ErrorRoomNotFound
	ErrorAccessDenied
	ErrorRateLimited
	ErrorInternalServer

	// Client-side errors
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorSerialization
	ErrorJoinFailed
	ErrorSendFailed
	ErrorHistoryUnavailable
	ErrorAttachmentTooLarge
	ErrorAttachmentType
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorUnsupportedVersion:
		return "unsupported_version"
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorInvalidMessage:
		return "invalid_message"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorRoomNotFound:
		return "room_not_found"
	case ErrorAccessDenied:
		return "access_denied"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorInternalServer:
		return "internal_error"
	case ErrorConnection:
		return "connection_error"
	case ErrorDisconnected:
		return "disconnected"
	case ErrorTimeout:
		return "timeout"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorJoinFailed:
		return "join_failed"
	case ErrorSendFailed:
		return "send_failed"
	case ErrorHistoryUnavailable:
		return "history_unavailable"
	case ErrorAttachmentTooLarge:
		return "attachment_too_large"
	case ErrorAttachmentType:
		return "attachment_type_not_allowed"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ParseErrorCode converts a protocol error code string to ErrorCode.
func ParseErrorCode(code string) ErrorCode {
	switch code {
	case "unsupported_version":
		return ErrorUnsupportedVersion
	case "unauthorized":
		return ErrorUnauthorized
	case "invalid_message":
		return ErrorInvalidMessage
	case "bad_request":
		return ErrorBadRequest
	case "room_not_found":
		return ErrorRoomNotFound
	case "access_denied":
		return ErrorAccessDenied
	case "rate_limited":
		return ErrorRateLimited
	case "internal_error":
		return ErrorInternalServer
	case "disconnected":
		return ErrorDisconnected
	default:
		return ErrorUnknown
	}
}

// CareChatError is a structured error with code and context.
type CareChatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *CareChatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *CareChatError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is support, comparing by code.
func (e *CareChatError) Is(target error) bool {
	t, ok := target.(*CareChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new CareChatError with the given code and message.
func NewError(code ErrorCode, message string) *CareChatError {
	return &CareChatError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a CareChatError.
func WrapError(code ErrorCode, message string, err error) *CareChatError {
	return &CareChatError{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// FromProtocolError converts a protocol Error to CareChatError.
func FromProtocolError(e *Error) *CareChatError {
	if e == nil {
		return nil
	}
	return &CareChatError{
		Code:    ParseErrorCode(e.Code),
		Message: e.Msg,
	}
}

// IsAuthError reports whether the error is terminal for the session: the
// caller must re-authenticate rather than retry the connection. The whole
// unwrap chain is inspected, so an auth rejection keeps its classification
// through wrapping.
func IsAuthError(err error) bool {
	return hasCode(err, ErrorUnauthorized, ErrorUnsupportedVersion)
}

// IsConnectionError reports whether the error is a transient connectivity
// failure that the client retries automatically.
func IsConnectionError(err error) bool {
	return hasCode(err, ErrorConnection, ErrorDisconnected, ErrorTimeout)
}

// hasCode walks the unwrap chain and reports whether any CareChatError in it
// carries one of the given codes.
func hasCode(err error, codes ...ErrorCode) bool {
	for err != nil {
		var ce *CareChatError
		if !errors.As(err, &ce) {
			return false
		}
		for _, code := range codes {
			if ce.Code == code {
				return true
			}
		}
		err = ce.Wrapped
	}
	return false
}

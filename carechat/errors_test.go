package carechat

import (
	"errors"
	"testing"
)

func TestErrorCodeRoundTrip(t *testing.T) {
	codes := []ErrorCode{
		ErrorUnsupportedVersion, ErrorUnauthorized, ErrorInvalidMessage,
		ErrorBadRequest, ErrorRoomNotFound, ErrorAccessDenied,
		ErrorRateLimited, ErrorInternalServer,
	}
	for _, code := range codes {
		if got := ParseErrorCode(code.String()); got != code {
			t.Fatalf("round trip %s: got %s", code, got)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	auth := FromProtocolError(&Error{Code: "unauthorized", Msg: "expired token"})
	if !IsAuthError(auth) {
		t.Fatalf("unauthorized must be terminal")
	}
	if IsConnectionError(auth) {
		t.Fatalf("auth errors are not transient")
	}

	drop := WrapError(ErrorDisconnected, "connection lost", errors.New("eof"))
	if !IsConnectionError(drop) {
		t.Fatalf("disconnect must be transient")
	}
	if IsAuthError(drop) {
		t.Fatalf("disconnect is not an auth error")
	}

	// Wrapped errors keep their classification down the whole chain.
	wrapped := WrapError(ErrorJoinFailed, "join", auth)
	if !IsAuthError(wrapped) {
		t.Fatalf("wrapped auth error must still classify as auth")
	}
	deep := WrapError(ErrorSendFailed, "send", wrapped)
	if !IsAuthError(deep) {
		t.Fatalf("doubly wrapped auth error must still classify as auth")
	}
	if !IsConnectionError(WrapError(ErrorSendFailed, "send", drop)) {
		t.Fatalf("wrapped disconnect must still classify as transient")
	}
	if IsAuthError(WrapError(ErrorSendFailed, "send", errors.New("io"))) {
		t.Fatalf("chain without auth code must not classify as auth")
	}
}

func TestErrorIsByCode(t *testing.T) {
	err := WrapError(ErrorSendFailed, "both paths failed", errors.New("io"))
	if !errors.Is(err, NewError(ErrorSendFailed, "")) {
		t.Fatalf("errors.Is should match by code")
	}
	if errors.Is(err, NewError(ErrorTimeout, "")) {
		t.Fatalf("different codes must not match")
	}
}

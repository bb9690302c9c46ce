package auth

import "errors"

// ErrUnauthorized matches every *Error via errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// Reason tags why a request was rejected. Reasons are for logs and tests;
// clients only ever see Message.
type Reason string

const (
	ReasonMissingHeader   Reason = "missing_header"
	ReasonMalformedHeader Reason = "malformed_header"
	ReasonInvalidToken    Reason = "invalid_token"
	ReasonExpiredToken    Reason = "expired_token"
	ReasonMissingSession  Reason = "missing_session"
)

const (
	MessageTokenRequired  = "Access token required"
	MessageInvalidToken   = "Invalid token"
	MessageInvalidSession = "Invalid session"
)

// Error is returned by Issuer.Verify and Guard.Authenticate.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Reason) + ": " + e.Err.Error()
	}
	return string(e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrUnauthorized }

// Message is the client-facing text. Expired and forged tokens share
// one message.
func (e *Error) Message() string {
	switch e.Reason {
	case ReasonMissingHeader, ReasonMalformedHeader:
		return MessageTokenRequired
	case ReasonMissingSession:
		return MessageInvalidSession
	default:
		return MessageInvalidToken
	}
}

func reject(reason Reason, err error) *Error {
	return &Error{Reason: reason, Err: err}
}

package service

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateEmail means the email is already registered.
	ErrDuplicateEmail = errors.New("duplicate_email")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password, so callers cannot tell which.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInactiveAccount is returned after a correct password for a
	// deactivated account.
	ErrInactiveAccount = errors.New("inactive_account")

	// ErrInvalidToken is matched by every refused refresh, see RejectionError.
	ErrInvalidToken = errors.New("invalid_token")

	// ErrConfiguration is matched by every settings error, from the env
	// loader or from NewSessionService.
	ErrConfiguration = errors.New("configuration_error")
)

// RejectReason says why a refresh token was refused. It is logged, never
// returned to the client.
type RejectReason string

const (
	ReasonMalformed     RejectReason = "malformed"
	ReasonExpired       RejectReason = "expired"
	ReasonWrongType     RejectReason = "wrong_type"
	ReasonNotFound      RejectReason = "not_found"
	ReasonRevoked       RejectReason = "revoked"
	ReasonRecordExpired RejectReason = "record_expired"
	ReasonUserMissing   RejectReason = "user_missing"
	ReasonUserInactive  RejectReason = "user_inactive"
	ReasonReplayed      RejectReason = "replayed"
)

// RejectionError is returned for every refused refresh. It matches
// ErrInvalidToken with errors.Is so callers only ever see one kind.
type RejectionError struct {
	Reason RejectReason
	Err    error
}

func reject(reason RejectReason, err error) *RejectionError {
	return &RejectionError{Reason: reason, Err: err}
}

func (e *RejectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", ErrInvalidToken, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s (%s)", ErrInvalidToken, e.Reason)
}

func (e *RejectionError) Is(target error) bool { return target == ErrInvalidToken }

func (e *RejectionError) Unwrap() error { return e.Err }

package ceremony

import (
	"errors"
	"fmt"
)

var (
	ErrTypeMismatch          = errors.New("client data type mismatch")
	ErrChallengeMismatch     = errors.New("challenge mismatch")
	ErrOriginMismatch        = errors.New("origin mismatch")
	ErrCredentialNotFound    = errors.New("credential not found")
	ErrSignatureInvalid      = errors.New("signature invalid")
	ErrPossibleCloneDetected = errors.New("signature counter did not increase, possible cloned authenticator")
	ErrAttestationMalformed  = errors.New("attestation malformed")
	ErrMalformedResponse     = errors.New("malformed response")
	ErrNoCredentials         = errors.New("no credentials registered")
	ErrTeacherNotFound       = errors.New("teacher not found")
	ErrCredentialExists      = errors.New("credential already registered")
)

// Error records the ceremony step that failed and why. Errors.Is sees
// through it to the sentinel.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

package service

import (
	"errors"
	"fmt"
)

// Flow error taxonomy. Handlers map these onto HTTP statuses; anything else
// is logged and surfaced as a generic internal error.
var (
	ErrEmailTaken          = errors.New("email already in use")
	ErrForbidden           = errors.New("registration denied")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUnauthorized        = errors.New("invalid or unknown token")
	ErrTokenExpired        = errors.New("token expired")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrVerificationPending = errors.New("verification email already requested")
	ErrResetPending        = errors.New("password reset already requested")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrAccountNotFound     = errors.New("account not found")
	ErrDeliveryFailed      = errors.New("failed to send email")
)

// FilterDeniedError carries the abuse filter's reason code alongside the
// ErrForbidden sentinel.
type FilterDeniedError struct {
	Reason string
}

func (e *FilterDeniedError) Error() string {
	if e.Reason == "" {
		return ErrForbidden.Error()
	}
	return fmt.Sprintf("%s: %s", ErrForbidden.Error(), e.Reason)
}

func (e *FilterDeniedError) Unwrap() error { return ErrForbidden }

package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("invalid credentials")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountLocked   = errors.New("account is temporarily locked")
	ErrAccountInactive = errors.New("account is inactive")

	// Recovery flow errors
	ErrOTPInvalid       = errors.New("invalid or expired OTP")
	ErrPasswordMismatch = errors.New("new passwords do not match")
)

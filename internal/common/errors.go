// Package common defines shared constants and sentinel errors used across
// the gophauth server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Input validation.
	ErrValidation = errors.New("validation error")

	// Credential errors.
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")

	// Token errors: bad signature, expired, or not resolvable to a user.
	ErrTokenInvalid = errors.New("token is invalid or has expired")

	// The token is correctly signed but the password was changed after it
	// was issued.
	ErrStaleCredentials = errors.New("password was changed, please sign in again")
)

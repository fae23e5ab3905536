package password

import "errors"

// Public, stable errors for callers.
var (
	ErrPasswordTooShort  = errors.New("password too short")
	ErrPasswordTooLong   = errors.New("password too long")
	ErrInvalidHash       = errors.New("invalid password hash")
	ErrUnknownAlgorithm  = errors.New("unknown password algorithm")
	ErrInvalidBcryptCost = errors.New("invalid bcrypt cost")
)

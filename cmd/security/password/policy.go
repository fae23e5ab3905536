package password

import (
	"unicode/utf8"
)

// Validate checks password policy. It does not mutate input.
func (c Config) Validate(password string) error {
	// Count characters (runes), not bytes, to be user-friendly.
	n := utf8.RuneCountInString(password)

	minLen := c.Policy.MinLength
	if minLen < 1 {
		minLen = 1
	}
	if n < minLen {
		return ErrPasswordTooShort
	}
	if c.Policy.MaxLength > 0 && n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	if c.Algorithm == Bcrypt && len(password) > bcryptMaxBytes {
		return ErrPasswordTooLong
	}

	return nil
}

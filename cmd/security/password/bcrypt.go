package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only looks at the first 72 bytes of input.
const bcryptMaxBytes = 72

func hashBcrypt(cost int, password string) (string, error) {
	if cost < bcrypt.MinCost || cost > maxBcryptCost {
		return "", ErrInvalidBcryptCost
	}
	if len(password) > bcryptMaxBytes {
		return "", ErrPasswordTooLong
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func verifyBcrypt(password, encodedHash string) (bool, error) {
	cost, err := bcryptCost(encodedHash)
	if err != nil {
		return false, ErrInvalidHash
	}
	// Same anti-DoS stance as argon2id: refuse absurd work factors from storage.
	if cost > maxBcryptCost {
		return false, ErrInvalidHash
	}
	if len(password) > bcryptMaxBytes {
		// Such a password could never have been hashed by us; compare nothing.
		return false, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}

func bcryptCost(encodedHash string) (int, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return 0, ErrInvalidHash
	}
	return cost, nil
}

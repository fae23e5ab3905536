package password

import (
	"strings"
)

// Hasher turns plaintext into a stored hash and checks candidates against it.
// Implementations must be safe for concurrent use.
type Hasher interface {
	// Hash returns a salted hash; repeated calls on the same input differ.
	Hash(password string) (string, error)
	// Verify returns (true, nil) on match, (false, nil) on mismatch and
	// (false, ErrInvalidHash) for malformed or unsupported hashes.
	Verify(password, encodedHash string) (bool, error)
}

var _ Hasher = Config{}

// Hash validates the password against policy and hashes it with the configured algorithm.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	switch c.Algorithm {
	case Bcrypt:
		return hashBcrypt(c.BcryptCost, password)
	case Argon2id, "":
		return hashArgon2id(c.Params, password)
	default:
		return "", ErrUnknownAlgorithm
	}
}

// Verify checks password against encodedHash, whichever supported algorithm produced it.
func (c Config) Verify(password, encodedHash string) (bool, error) {
	switch alg, ok := Detect(encodedHash); {
	case !ok:
		return false, ErrInvalidHash
	case alg == Bcrypt:
		return verifyBcrypt(password, encodedHash)
	default:
		return verifyArgon2id(password, encodedHash)
	}
}

// dummyPlaintext feeds DummyHash; it is never compared for success.
const dummyPlaintext = "warden-dummy-password-for-timing"

// DummyHash hashes a fixed value with the configured algorithm and cost, bypassing
// Policy. Callers verify against it to make unknown-user logins cost one verification.
func (c Config) DummyHash() (string, error) {
	switch c.Algorithm {
	case Bcrypt:
		return hashBcrypt(c.BcryptCost, dummyPlaintext)
	case Argon2id, "":
		return hashArgon2id(c.Params, dummyPlaintext)
	default:
		return "", ErrUnknownAlgorithm
	}
}

// NeedsRehash reports whether encodedHash was produced by another algorithm or
// with parameters that differ from the current configuration.
func (c Config) NeedsRehash(encodedHash string) bool {
	alg, ok := Detect(encodedHash)
	if !ok {
		return true
	}
	want := c.Algorithm
	if want == "" {
		want = Argon2id
	}
	if alg != want {
		return true
	}

	switch alg {
	case Bcrypt:
		cost, err := bcryptCost(encodedHash)
		return err != nil || cost != c.BcryptCost
	default:
		h, err := parseArgon2id(encodedHash)
		if err != nil {
			return true
		}
		p := h.params()
		return p.MemoryKiB != c.Params.MemoryKiB ||
			p.Iterations != c.Params.Iterations ||
			p.Parallelism != c.Params.Parallelism ||
			p.SaltLength != c.Params.SaltLength ||
			p.KeyLength != c.Params.KeyLength
	}
}

// Detect reports which algorithm produced encodedHash, based on its prefix only.
func Detect(encodedHash string) (Algorithm, bool) {
	switch {
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return Argon2id, true
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		return Bcrypt, true
	default:
		return "", false
	}
}

package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Fixed Argon2id ceilings. Check applies them to configuration and verify applies them
// to stored hashes, so stored hashes are never judged against the current settings.
const (
	argon2MinMemoryKiB   = 8 * 1024
	argon2MaxMemoryKiB   = 1024 * 1024 // 1 GiB
	argon2MaxIterations  = 20
	argon2MaxParallelism = 64
	argon2MinSaltLen     = 8
	argon2MaxSaltLen     = 64
	argon2MinKeyLen      = 16
	argon2MaxKeyLen      = 64
	argon2MaxStoredKey   = 128
)

var phcB64 = base64.RawStdEncoding

// argon2idHash is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type argon2idHash struct {
	memoryKiB   uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h argon2idHash) String() string {
	var b strings.Builder
	b.WriteString("$argon2id$v=")
	b.WriteString(strconv.Itoa(argon2.Version))
	fmt.Fprintf(&b, "$m=%d,t=%d,p=%d$", h.memoryKiB, h.iterations, h.parallelism)
	b.WriteString(phcB64.EncodeToString(h.salt))
	b.WriteByte('$')
	b.WriteString(phcB64.EncodeToString(h.key))
	return b.String()
}

func (h argon2idHash) params() Argon2idParams {
	return Argon2idParams{
		MemoryKiB:   h.memoryKiB,
		Iterations:  h.iterations,
		Parallelism: h.parallelism,
		SaltLength:  uint32(len(h.salt)), // #nosec G115 -- salt length capped by parseArgon2id.
		KeyLength:   uint32(len(h.key)),  // #nosec G115 -- key length capped by parseArgon2id.
	}
}

// derive computes the key for password under h's own parameters.
func (h argon2idHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.iterations, h.memoryKiB, h.parallelism,
		uint32(len(h.key))) // #nosec G115 -- key length capped by parseArgon2id.
}

func hashArgon2id(p Argon2idParams, password string) (string, error) {
	h := argon2idHash{
		memoryKiB:   p.MemoryKiB,
		iterations:  p.Iterations,
		parallelism: p.Parallelism,
		salt:        make([]byte, p.SaltLength),
		key:         make([]byte, p.KeyLength),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// verifyArgon2id recomputes the key with the parameters stored in encodedHash.
func verifyArgon2id(password, encodedHash string) (bool, error) {
	h, err := parseArgon2id(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.derive(password), h.key) == 1, nil
}

// parseArgon2id decodes encoded. Parameters are bounded by fixed ceilings, never by
// the current Config.
func parseArgon2id(encoded string) (argon2idHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != "v=19" {
		return argon2idHash{}, ErrInvalidHash
	}

	var (
		h   argon2idHash
		par uint32
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memoryKiB, &h.iterations, &par); err != nil {
		return argon2idHash{}, ErrInvalidHash
	}
	switch {
	case h.memoryKiB == 0 || h.memoryKiB > argon2MaxMemoryKiB,
		h.iterations == 0 || h.iterations > argon2MaxIterations,
		par == 0 || par > argon2MaxParallelism:
		return argon2idHash{}, ErrInvalidHash
	}
	h.parallelism = uint8(par) // #nosec G115 -- par <= argon2MaxParallelism.

	var err error
	if h.salt, err = phcB64.DecodeString(parts[4]); err != nil {
		return argon2idHash{}, ErrInvalidHash
	}
	if h.key, err = phcB64.DecodeString(parts[5]); err != nil {
		return argon2idHash{}, ErrInvalidHash
	}
	if len(h.salt) < argon2MinSaltLen || len(h.salt) > argon2MaxSaltLen ||
		len(h.key) < argon2MinKeyLen || len(h.key) > argon2MaxStoredKey {
		return argon2idHash{}, ErrInvalidHash
	}
	return h, nil
}

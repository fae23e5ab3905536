package password

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix is prepended to every environment variable read by FromEnv.
const EnvPrefix = "WARDEN_"

// Algorithm names the hashing scheme used for new hashes.
type Algorithm string

const (
	Argon2id Algorithm = "argon2id"
	Bcrypt   Algorithm = "bcrypt"
)

// UnmarshalText lets env parsing reject unknown algorithm names early.
func (a *Algorithm) UnmarshalText(text []byte) error {
	switch v := Algorithm(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case Argon2id, Bcrypt:
		*a = v
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(text))
	}
}

// DefaultBcryptCost matches the work factor the service has always used for bcrypt.
const DefaultBcryptCost = 10

// maxBcryptCost caps both configured cost and the cost accepted during Verify.
const maxBcryptCost = 16

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32 `env:"ARGON2_MEMORY_KIB"`
	Iterations  uint32 `env:"ARGON2_ITERATIONS"`
	Parallelism uint8  `env:"ARGON2_PARALLELISM"`
	SaltLength  uint32 `env:"ARGON2_SALT_LEN"`
	KeyLength   uint32 `env:"ARGON2_KEY_LEN"`
}

// Policy controls password length boundaries.
// MaxLength exists to bound hashing cost, not to judge password quality.
type Policy struct {
	MinLength int `env:"PASSWORD_MIN_LEN"`
	MaxLength int `env:"PASSWORD_MAX_LEN"`
}

// Config is the single configuration surface for this package.
// A Config value is itself a Hasher.
type Config struct {
	Algorithm  Algorithm `env:"PASSWORD_ALGORITHM"`
	BcryptCost int       `env:"BCRYPT_COST"`

	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the baseline used when no environment overrides exist.
func DefaultConfig() Config {
	// CPU-aware parallelism, clamped to [1..4] to keep container resource usage predictable.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Algorithm:  Argon2id,
		BcryptCost: DefaultBcryptCost,
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024, // 64 MiB
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 1,
			MaxLength: 1024,
		},
	}
}

// FromEnv loads config from environment variables on top of DefaultConfig.
//
// Env surface:
// - WARDEN_PASSWORD_ALGORITHM (argon2id|bcrypt)
// - WARDEN_PASSWORD_MIN_LEN
// - WARDEN_PASSWORD_MAX_LEN
// - WARDEN_BCRYPT_COST
// - WARDEN_ARGON2_MEMORY_KIB
// - WARDEN_ARGON2_ITERATIONS
// - WARDEN_ARGON2_PARALLELISM
// - WARDEN_ARGON2_SALT_LEN
// - WARDEN_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	// Unset variables leave the defaults above in place.
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("password config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Check validates every field against its allowed range.
func (c Config) Check() error {
	switch c.Algorithm {
	case Argon2id, Bcrypt:
	default:
		return fmt.Errorf("%sPASSWORD_ALGORITHM: %w: %q", EnvPrefix, ErrUnknownAlgorithm, string(c.Algorithm))
	}

	if err := inRange("PASSWORD_MIN_LEN", c.Policy.MinLength, 1, 1024); err != nil {
		return err
	}
	if err := inRange("PASSWORD_MAX_LEN", c.Policy.MaxLength, 1, 4096); err != nil {
		return err
	}
	if err := inRange("BCRYPT_COST", c.BcryptCost, bcrypt.MinCost, maxBcryptCost); err != nil {
		return err
	}
	if err := inRange("ARGON2_MEMORY_KIB", int(c.Params.MemoryKiB), argon2MinMemoryKiB, argon2MaxMemoryKiB); err != nil {
		return err
	}
	if err := inRange("ARGON2_ITERATIONS", int(c.Params.Iterations), 1, argon2MaxIterations); err != nil {
		return err
	}
	if err := inRange("ARGON2_PARALLELISM", int(c.Params.Parallelism), 1, argon2MaxParallelism); err != nil {
		return err
	}
	if err := inRange("ARGON2_SALT_LEN", int(c.Params.SaltLength), argon2MinSaltLen, argon2MaxSaltLen); err != nil {
		return err
	}
	if err := inRange("ARGON2_KEY_LEN", int(c.Params.KeyLength), argon2MinKeyLen, argon2MaxKeyLen); err != nil {
		return err
	}

	if c.Policy.MinLength > c.Policy.MaxLength {
		return fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			c.Policy.MinLength,
			c.Policy.MaxLength,
		)
	}
	return nil
}

func inRange(key string, v, minVal, maxVal int) error {
	if v < minVal || v > maxVal {
		return fmt.Errorf("%s%s: out of range [%d..%d]", EnvPrefix, key, minVal, maxVal)
	}
	return nil
}

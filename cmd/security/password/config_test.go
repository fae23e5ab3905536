package password

import (
	"errors"
	"os"
	"strings"
	"testing"
)

var passwordEnvKeys = []string{
	"WARDEN_PASSWORD_ALGORITHM",
	"WARDEN_PASSWORD_MIN_LEN",
	"WARDEN_PASSWORD_MAX_LEN",
	"WARDEN_BCRYPT_COST",
	"WARDEN_ARGON2_MEMORY_KIB",
	"WARDEN_ARGON2_ITERATIONS",
	"WARDEN_ARGON2_PARALLELISM",
	"WARDEN_ARGON2_SALT_LEN",
	"WARDEN_ARGON2_KEY_LEN",
}

func TestFromEnv_Defaults(t *testing.T) {
	// Ensure env is clean for this test.
	for _, k := range passwordEnvKeys {
		_ = os.Unsetenv(k)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	def := DefaultConfig()
	if cfg != def {
		t.Fatalf("expected defaults, got %+v want %+v", cfg, def)
	}
	if cfg.Algorithm != Argon2id {
		t.Fatalf("default algorithm = %q", cfg.Algorithm)
	}
	if cfg.BcryptCost != DefaultBcryptCost {
		t.Fatalf("default bcrypt cost = %d", cfg.BcryptCost)
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("WARDEN_PASSWORD_ALGORITHM", "BCRYPT")
	t.Setenv("WARDEN_PASSWORD_MIN_LEN", "10")
	t.Setenv("WARDEN_PASSWORD_MAX_LEN", "200")
	t.Setenv("WARDEN_BCRYPT_COST", "12")
	t.Setenv("WARDEN_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("WARDEN_ARGON2_ITERATIONS", "4")
	t.Setenv("WARDEN_ARGON2_PARALLELISM", "2")
	t.Setenv("WARDEN_ARGON2_SALT_LEN", "24")
	t.Setenv("WARDEN_ARGON2_KEY_LEN", "32")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	if cfg.Algorithm != Bcrypt || cfg.BcryptCost != 12 {
		t.Fatalf("algorithm override failed: %q cost=%d", cfg.Algorithm, cfg.BcryptCost)
	}
	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxLength != 200 {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != 32768 || cfg.Params.Iterations != 4 || cfg.Params.Parallelism != 2 {
		t.Fatalf("argon2 override failed: %+v", cfg.Params)
	}
	if cfg.Params.SaltLength != 24 || cfg.Params.KeyLength != 32 {
		t.Fatalf("len override failed: %+v", cfg.Params)
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("WARDEN_PASSWORD_MIN_LEN", "20")
	t.Setenv("WARDEN_PASSWORD_MAX_LEN", "10")

	_, err := FromEnv()
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromEnv_OutOfRangeNamesVariable(t *testing.T) {
	t.Setenv("WARDEN_BCRYPT_COST", "40")

	_, err := FromEnv()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "WARDEN_BCRYPT_COST") {
		t.Fatalf("error should name the variable, got %v", err)
	}
}

func TestFromEnv_UnknownAlgorithm(t *testing.T) {
	t.Setenv("WARDEN_PASSWORD_ALGORITHM", "md5")

	_, err := FromEnv()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), ErrUnknownAlgorithm.Error()) {
		t.Fatalf("expected unknown algorithm error, got %v", err)
	}
}

func TestConfigCheck_UnknownAlgorithm(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = "scrypt"

	if err := cfg.Check(); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

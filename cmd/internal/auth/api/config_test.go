package authapi

import "testing"

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.MaxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("MaxBodyBytes=%d want %d", cfg.MaxBodyBytes, defaultMaxBodyBytes)
	}
	if cfg.TrustProxy {
		t.Fatalf("TrustProxy must default to false")
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("WARDEN_AUTH_TRUST_PROXY", "true")
	t.Setenv("WARDEN_AUTH_MAX_BODY_BYTES", "2048")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if !cfg.TrustProxy || cfg.MaxBodyBytes != 2048 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigFromEnv_NonPositiveBodyFallsBack(t *testing.T) {
	t.Setenv("WARDEN_AUTH_MAX_BODY_BYTES", "0")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.MaxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("MaxBodyBytes=%d want default", cfg.MaxBodyBytes)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	t.Setenv("WARDEN_AUTH_TRUST_PROXY", "maybe")

	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatalf("expected error for invalid bool")
	}
}

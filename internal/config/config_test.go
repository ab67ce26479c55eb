package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"REFPAY_HTTP_ADDR", "REFPAY_RATE_BURST", "REFPAY_RATE_PER_SEC"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.HTTPAddr)
	}
	if cfg.RateBurst != 20 || cfg.RatePerSec != 10 {
		t.Fatalf("unexpected rate defaults: %d %d", cfg.RateBurst, cfg.RatePerSec)
	}
}

func TestLoadOverridesAndValidation(t *testing.T) {
	t.Setenv("REFPAY_HTTP_ADDR", ":9999")
	t.Setenv("REFPAY_PG_DSN", "postgres://localhost/refpay")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.PostgresDSN == "" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	t.Setenv("REFPAY_RATE_BURST", "0")
	if _, err := Load(); err == nil {
		t.Fatal("zero burst must fail validation")
	}
}

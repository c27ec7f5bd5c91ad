package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.Auth.TokenTTL != 24*time.Hour || cfg.Auth.BcryptCost != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RateLimit.Limit != 20 || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.Bootstrap.Username != "admin" || cfg.Bootstrap.Email != "admin@pharmacy.com" || cfg.Bootstrap.FullName != "System Administrator" {
		t.Fatalf("unexpected bootstrap defaults: %+v", cfg.Bootstrap)
	}
	if cfg.Bootstrap.Password != "" || cfg.Auth.RefreshIdentity {
		t.Fatalf("seed password and identity refresh must be off by default")
	}
}

func TestLoad_RequiresSecret(t *testing.T) {
	if _, err := load(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":            "s3cret",
		"TOKEN_TTL":             "90m",
		"AUTH_REFRESH_IDENTITY": "true",
		"CORS_ORIGINS":          "https://a.example,https://b.example",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.TokenTTL != 90*time.Minute || !cfg.Auth.RefreshIdentity || len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoad_RejectsNonPositiveTTL(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
		"TOKEN_TTL":  "0s",
	}))
	if err == nil {
		t.Fatalf("expected error for zero TTL")
	}
}

func TestLoad_RejectsSubSecondTTL(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
		"TOKEN_TTL":  "1500ms",
	}))
	if err != nil {
		t.Fatalf("1500ms is above the floor: %v", err)
	}
	_, err = load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
		"TOKEN_TTL":  "900ms",
	}))
	if err == nil {
		t.Fatalf("expected error for sub-second TTL")
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "s3cret",
		"TRUSTED_PROXIES": "10.0.0.0/8, 192.0.2.10,2001:db8::1",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	nets, err := cfg.TrustedProxyNets()
	if err != nil {
		t.Fatalf("nets: %v", err)
	}
	want := []string{"10.0.0.0/8", "192.0.2.10/32", "2001:db8::1/128"}
	if len(nets) != len(want) {
		t.Fatalf("expected %d nets, got %v", len(want), nets)
	}
	for i, n := range nets {
		if n.String() != want[i] {
			t.Fatalf("net %d = %s, want %s", i, n, want[i])
		}
	}

	_, err = load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "s3cret",
		"TRUSTED_PROXIES": "not-an-ip",
	}))
	if err == nil {
		t.Fatalf("expected error for invalid TRUSTED_PROXIES")
	}
}

func TestLoad_ProductionIsStricter(t *testing.T) {
	strong := strings.Repeat("k", 32)
	cases := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"short secret", map[string]string{"ENV": "production", "JWT_SECRET": "s3cret"}, true},
		{"pretty logs", map[string]string{"ENV": "production", "JWT_SECRET": strong, "LOG_PRETTY": "true"}, true},
		{"ok", map[string]string{"ENV": "production", "JWT_SECRET": strong}, false},
		{"development allows both", map[string]string{"JWT_SECRET": "s3cret", "LOG_PRETTY": "true"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := load(context.Background(), envconfig.MapLookuper(tc.env))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && cfg.IsProduction() != (tc.env["ENV"] == "production") {
				t.Fatalf("IsProduction mismatch for %v", tc.env)
			}
		})
	}
}

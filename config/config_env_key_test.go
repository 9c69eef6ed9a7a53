package config

import "testing"

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{
			"sslMode": "disable",
			"master": map[string]any{
				"userName": "user",
			},
		},
		"rateLimit": map[string]any{
			"requestsPerWindow": 5,
		},
		"jwt": map[string]any{
			"accessTtl": "1h",
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "POSTGRES_SSLMODE", want: "postgres.sslMode"},
		{envKey: "POSTGRES_MASTER_USERNAME", want: "postgres.master.userName"},
		{envKey: "RATELIMIT_REQUESTSPERWINDOW", want: "rateLimit.requestsPerWindow"},
		{envKey: "JWT_ACCESSTTL", want: "jwt.accessTtl"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.JWT.AccessTTL == 0 || cfg.JWT.RefreshTTL == 0 {
		t.Fatalf("expected token TTL defaults, got access=%v refresh=%v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.RateLimit == nil {
		t.Fatal("expected rate limit defaults")
	}
	if cfg.RateLimit.RequestsPerWindow != 5 {
		t.Fatalf("expected default capacity 5, got %d", cfg.RateLimit.RequestsPerWindow)
	}
	if cfg.RateLimit.Store != "memory" {
		t.Fatalf("expected default store memory, got %q", cfg.RateLimit.Store)
	}
}

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newViper(overrides map[string]string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newViper(nil))
	if err != nil {
		t.Fatalf("fromViper: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr: got %q", cfg.Addr)
	}
	if cfg.ChallengeTTL != 5*time.Minute {
		t.Errorf("ChallengeTTL: got %s, want 5m", cfg.ChallengeTTL)
	}
	if cfg.Location().String() != "Africa/Kampala" {
		t.Errorf("Location: got %s", cfg.Location())
	}
	if cfg.TrustProxy {
		t.Error("TrustProxy: expected false by default")
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr: expected empty default, got %q", cfg.RedisAddr)
	}
}

func TestFromViper_UnknownTimeZone(t *testing.T) {
	_, err := fromViper(newViper(map[string]string{"TIMEZONE": "Mars/Olympus"}))
	if err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}

func TestFromViper_NonPositiveTTL(t *testing.T) {
	_, err := fromViper(newViper(map[string]string{"CHALLENGE_TTL": "0s"}))
	if err == nil {
		t.Fatal("expected error for zero TTL")
	}
}

func TestFromViper_MissingOrigin(t *testing.T) {
	_, err := fromViper(newViper(map[string]string{"RP_ORIGIN": ""}))
	if err == nil {
		t.Fatal("expected error for empty origin")
	}
}

func TestFromViper_TrustProxy(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]string{"TRUST_PROXY": "true"}))
	if err != nil {
		t.Fatalf("fromViper: %v", err)
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy: expected true")
	}
}

// Package config loads runtime settings for the attendance server.
//
// Values come from the process environment, optionally seeded from a .env
// file in the working directory. Every key has a development default so
// `server serve` works out of the box on a laptop.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved server configuration.
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string

	// RPID is the WebAuthn relying party identifier (a bare domain).
	RPID string
	// RPName is shown by the platform authenticator during registration.
	RPName string
	// RPOrigin is compared verbatim with the origin the browser reports.
	RPOrigin string

	// TimeZone names the single zone every wall-clock comparison uses.
	TimeZone     string
	ChallengeTTL time.Duration

	// TrustProxy honours X-Forwarded-For. Set it only behind a reverse proxy.
	TrustProxy bool

	// RedisAddr switches the challenge store to Redis when non-empty.
	RedisAddr string

	PregenerateSchedule string
	LogLevel            string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ADDR", ":8080")
	v.SetDefault("DATABASE_URL",
		"igaratrack.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	v.SetDefault("JWT_SECRET", "changeme-use-a-real-secret-in-production")
	v.SetDefault("RP_ID", "localhost")
	v.SetDefault("RP_NAME", "Teacher Attendance System")
	v.SetDefault("RP_ORIGIN", "http://localhost:8080")
	v.SetDefault("TIMEZONE", "Africa/Kampala")
	v.SetDefault("CHALLENGE_TTL", "5m")
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("PREGENERATE_SCHEDULE", "5 0 * * *")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file, using process environment")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Addr:                v.GetString("ADDR"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		RPID:                v.GetString("RP_ID"),
		RPName:              v.GetString("RP_NAME"),
		RPOrigin:            v.GetString("RP_ORIGIN"),
		TimeZone:            v.GetString("TIMEZONE"),
		ChallengeTTL:        v.GetDuration("CHALLENGE_TTL"),
		TrustProxy:          v.GetBool("TRUST_PROXY"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		PregenerateSchedule: v.GetString("PREGENERATE_SCHEDULE"),
		LogLevel:            v.GetString("LOG_LEVEL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return errors.New("RP_ID is required")
	}
	if c.RPOrigin == "" {
		return errors.New("RP_ORIGIN is required")
	}
	if c.ChallengeTTL <= 0 {
		return fmt.Errorf("CHALLENGE_TTL must be positive, got %s", c.ChallengeTTL)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.TimeZone, err)
	}
	return nil
}

// Location returns the configured time zone. Validate has already proven it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Verification providers.
const (
	ProviderLocal  = "local"
	ProviderTwilio = "twilio"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the echo server listens on (e.g. :8000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the redis:// URL backing the local verification gateway.
	RedisURL string `mapstructure:"REDIS_URL"`

	// SecretKey is the HS256 signing secret (at least 32 bytes). Ignored when both PEM keys are set.
	SecretKey string `mapstructure:"SECRET_KEY"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim stamped on and required of access tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "720h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// RefreshCookieTTL is the Max-Age of the refresh cookie.
	RefreshCookieTTL string `mapstructure:"REFRESH_COOKIE_TTL"`

	// EncryptionKey is base64 32-byte key material for invitation and challenge envelopes.
	EncryptionKey string `mapstructure:"ENCRYPTION_KEY"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// ChallengeTTL bounds the age of a sign-in or reset sid; "0" disables the check.
	ChallengeTTL string `mapstructure:"CHALLENGE_TTL"`
	// InvitationTTL bounds the age of an invitation; "0" means invitations never expire.
	InvitationTTL string `mapstructure:"INVITATION_TTL"`
	// FrontendURL is the base of registration links.
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// VerifyProvider is "local" (Redis, dev codes exposed) or "twilio".
	VerifyProvider         string `mapstructure:"VERIFY_PROVIDER"`
	TwilioAccountSID       string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken        string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioVerifyServiceSID string `mapstructure:"TWILIO_VERIFY_SERVICE_SID"`
	TwilioBaseURL          string `mapstructure:"TWILIO_BASE_URL"`

	// AuthRateInterval and AuthRateBurst throttle the unauthenticated auth routes per client IP.
	AuthRateInterval string `mapstructure:"AUTH_RATE_INTERVAL"`
	AuthRateBurst    int    `mapstructure:"AUTH_RATE_BURST"`

	// Env is the application environment (e.g. "development", "production").
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// OTLP export. An empty endpoint disables telemetry export.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// KafkaBrokers is a comma-separated list of broker addresses. When set, audit events go to
	// Kafka and the worker persists them; otherwise they are written inline.
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the audit worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

var defaults = map[string]any{
	"HTTP_ADDR":                   ":8000",
	"GRPC_ADDR":                   ":9090",
	"DATABASE_URL":                "",
	"REDIS_URL":                   "redis://localhost:6379/0",
	"SECRET_KEY":                  "",
	"JWT_PRIVATE_KEY":             "",
	"JWT_PUBLIC_KEY":              "",
	"JWT_ISSUER":                  "adinsights-auth",
	"JWT_ACCESS_TTL":              "15m",
	"JWT_REFRESH_TTL":             "720h",
	"REFRESH_COOKIE_TTL":          "720h",
	"ENCRYPTION_KEY":              "",
	"BCRYPT_COST":                 12,
	"CHALLENGE_TTL":               "10m",
	"INVITATION_TTL":              "0",
	"FRONTEND_URL":                "http://localhost:3000",
	"VERIFY_PROVIDER":             ProviderLocal,
	"TWILIO_ACCOUNT_SID":          "",
	"TWILIO_AUTH_TOKEN":           "",
	"TWILIO_VERIFY_SERVICE_SID":   "",
	"TWILIO_BASE_URL":             "",
	"AUTH_RATE_INTERVAL":          "6s",
	"AUTH_RATE_BURST":             10,
	"APP_ENV":                     "development",
	"LOG_LEVEL":                   "info",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"OTEL_EXPORTER_OTLP_INSECURE": false,
	"OTEL_SERVICE_NAME":           "adinsights-backend",
	"KAFKA_BROKERS":               "",
	"AUDIT_KAFKA_TOPIC":           "adinsights-audit",
	"KAFKA_GROUP_ID":              "adinsights-audit-worker",
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for tools that only need a few keys (migrate, worker).
func Read() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid or missing setting.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" || c.GRPCAddr == "" {
		return errors.New("config: HTTP_ADDR and GRPC_ADDR must be set")
	}
	hasPEM := c.JWTPrivateKey != "" && c.JWTPublicKey != ""
	if !hasPEM && c.SecretKey == "" {
		return errors.New("config: SECRET_KEY or both JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set")
	}
	if (c.JWTPrivateKey == "") != (c.JWTPublicKey == "") {
		return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set together")
	}
	if c.EncryptionKey == "" {
		return errors.New("config: ENCRYPTION_KEY must be set")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	for key, val := range map[string]string{
		"JWT_ACCESS_TTL":     c.JWTAccessTTL,
		"JWT_REFRESH_TTL":    c.JWTRefreshTTL,
		"REFRESH_COOKIE_TTL": c.RefreshCookieTTL,
		"CHALLENGE_TTL":      c.ChallengeTTL,
		"INVITATION_TTL":     c.InvitationTTL,
		"AUTH_RATE_INTERVAL": c.AuthRateInterval,
	} {
		if val == "" {
			continue
		}
		if d, err := time.ParseDuration(val); err != nil || d < 0 {
			return fmt.Errorf("config: %s must be a non-negative duration, got %q", key, val)
		}
	}
	switch c.VerifyProvider {
	case ProviderTwilio:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioVerifyServiceSID == "" {
			return errors.New("config: VERIFY_PROVIDER=twilio requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_VERIFY_SERVICE_SID")
		}
	case ProviderLocal:
		if c.IsProduction() {
			return errors.New("config: VERIFY_PROVIDER=local must not be used when APP_ENV=production")
		}
	default:
		return fmt.Errorf("config: unknown VERIFY_PROVIDER %q", c.VerifyProvider)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AccessTTL parses JWTAccessTTL. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration { return duration(c.JWTAccessTTL, 15*time.Minute) }

// RefreshTTL parses JWTRefreshTTL. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration { return duration(c.JWTRefreshTTL, 720*time.Hour) }

// CookieTTL parses RefreshCookieTTL. Returns 720h if unset or invalid.
func (c *Config) CookieTTL() time.Duration { return duration(c.RefreshCookieTTL, 720*time.Hour) }

// ChallengeMaxAge parses ChallengeTTL; zero disables the check.
func (c *Config) ChallengeMaxAge() time.Duration { return duration(c.ChallengeTTL, 10*time.Minute) }

// InvitationMaxAge parses InvitationTTL; zero means invitations never expire.
func (c *Config) InvitationMaxAge() time.Duration { return duration(c.InvitationTTL, 0) }

// RateInterval parses AuthRateInterval. Returns 6s if unset or invalid.
func (c *Config) RateInterval() time.Duration {
	d := duration(c.AuthRateInterval, 6*time.Second)
	if d == 0 {
		return 6 * time.Second
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the Kafka audit path.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

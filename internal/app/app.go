// Package app wires configuration into the stores, gateways and services shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	otellog "go.opentelemetry.io/otel/log"

	accountrepo "adinsights/backend/internal/account/repository"
	"adinsights/backend/internal/audit"
	"adinsights/backend/internal/audit/producer"
	auditrepo "adinsights/backend/internal/audit/repository"
	brandrepo "adinsights/backend/internal/brand/repository"
	"adinsights/backend/internal/config"
	"adinsights/backend/internal/db"
	"adinsights/backend/internal/devotp"
	"adinsights/backend/internal/identity/service"
	membershiprepo "adinsights/backend/internal/membership/repository"
	"adinsights/backend/internal/security"
	"adinsights/backend/internal/server/interceptors"
	"adinsights/backend/internal/telemetry/metrics"
	telemetryotel "adinsights/backend/internal/telemetry/otel"
	"adinsights/backend/internal/verify"
	"adinsights/backend/internal/verify/local"
	"adinsights/backend/internal/verify/twilio"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config      *config.Config
	Log         *slog.Logger
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	Accounts    *accountrepo.PostgresRepository
	Brands      *brandrepo.PostgresRepository
	Memberships *membershiprepo.PostgresRepository
	Tokens      *security.TokenProvider
	Gateway     verify.Gateway
	// DevCodes is set only for the local verification provider.
	DevCodes devotp.Store
	Producer producer.Producer
	Audit    *audit.Logger
	Metrics  *metrics.Metrics
	Auth     *service.AuthService
}

// Options tune New. LoggerProvider, when set, mirrors audit events into the OTel log pipeline.
type Options struct {
	LoggerProvider otellog.LoggerProvider
	Metrics        *metrics.Metrics
}

// New connects to Postgres (and Redis for the local provider) and builds the auth service.
// Call Close when done.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: opts.Metrics}

	key, err := SigningKey(cfg)
	if err != nil {
		return nil, err
	}
	a.Tokens = security.NewTokenProvider(key, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	cipher, err := security.NewCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	a.Pool, err = db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.Accounts = accountrepo.NewPostgresRepository(a.Pool)
	a.Brands = brandrepo.NewPostgresRepository(a.Pool)
	a.Memberships = membershiprepo.NewPostgresRepository(a.Pool)

	if err := a.initGateway(ctx); err != nil {
		a.Close()
		return nil, err
	}

	var kafka producer.Producer
	if kp := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuditKafkaTopic); kp != nil {
		kafka = kp
	}
	var mirror producer.Producer
	if opts.LoggerProvider != nil {
		mirror = telemetryotel.NewAuditExporter(opts.LoggerProvider)
	}
	a.Producer = producer.NewFanout(kafka, mirror)
	var inline auditrepo.Repository
	if kafka == nil {
		inline = auditrepo.NewPostgresRepository(a.Pool)
	}
	a.Audit = audit.NewLogger(inline, a.Producer, interceptors.ClientIP, log)

	a.Auth = service.NewAuthService(
		a.Accounts, a.Brands, a.Memberships,
		security.NewHasher(cfg.BcryptCost), a.Tokens, cipher, a.Gateway,
		service.Config{
			FrontendURL:   cfg.FrontendURL,
			ChallengeTTL:  cfg.ChallengeMaxAge(),
			InvitationTTL: cfg.InvitationMaxAge(),
		},
		a.Audit, a.Metrics, log,
	)
	return a, nil
}

func (a *App) initGateway(ctx context.Context) error {
	switch a.Config.VerifyProvider {
	case config.ProviderTwilio:
		a.Gateway = twilio.NewClient(a.Config.TwilioAccountSID, a.Config.TwilioAuthToken,
			a.Config.TwilioVerifyServiceSID, a.Config.TwilioBaseURL)
		return nil
	case config.ProviderLocal:
		opts, err := redis.ParseURL(a.Config.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		a.Redis = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.Redis.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		codes := devotp.NewMemoryStore()
		a.DevCodes = codes
		a.Gateway = local.NewGateway(a.Redis, a.Config.ChallengeMaxAge(), codes, a.Log)
		return nil
	}
	return fmt.Errorf("unknown verification provider %q", a.Config.VerifyProvider)
}

// Close releases connections and flushes the audit producer. Safe to call on a partly built App.
func (a *App) Close() {
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			a.Log.Error("close audit producer", "error", err)
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// SigningKey returns the asymmetric key when both PEM keys are configured, else the HS256 secret.
func SigningKey(cfg *config.Config) (security.SigningKey, error) {
	if cfg.JWTPrivateKey != "" && cfg.JWTPublicKey != "" {
		key, err := security.NewAsymmetricKey(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return security.SigningKey{}, fmt.Errorf("jwt keys: %w", err)
		}
		return key, nil
	}
	key, err := security.NewHMACKey(cfg.SecretKey)
	if err != nil {
		if errors.Is(err, security.ErrInvalidKey) {
			return security.SigningKey{}, errors.New("SECRET_KEY must be at least 32 bytes")
		}
		return security.SigningKey{}, err
	}
	return key, nil
}

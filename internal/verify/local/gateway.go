// Package local is a self-hosted verify.Gateway for development and single-node deployments.
// Codes are generated in-process, stored hashed in Redis with a TTL and consumed on first match.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"adinsights/backend/internal/devotp"
	"adinsights/backend/internal/verify"
)

const (
	keyPrefix          = "verify:"
	defaultTTL         = 10 * time.Minute
	defaultMaxAttempts = 5
	maxWatchRetries    = 4
)

type record struct {
	Hash     string `json:"hash"`
	Purpose  string `json:"purpose"`
	Attempts int    `json:"attempts"`
}

// Gateway implements verify.Gateway on Redis.
type Gateway struct {
	redis       redis.UniversalClient
	ttl         time.Duration
	maxAttempts int
	dev         devotp.Store
	log         *slog.Logger
}

// NewGateway returns a gateway storing codes for ttl (default 10m). dev may be nil; when set the
// plain code is mirrored there for the development lookup endpoint.
func NewGateway(client redis.UniversalClient, ttl time.Duration, dev devotp.Store, log *slog.Logger) *Gateway {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		redis:       client,
		ttl:         ttl,
		maxAttempts: defaultMaxAttempts,
		dev:         dev,
		log:         log.With("component", "verify-local"),
	}
}

func key(identifier string) string { return keyPrefix + identifier }

// RequestCode issues a fresh code for req.Identifier, replacing any outstanding one.
func (g *Gateway) RequestCode(ctx context.Context, req verify.CodeRequest) error {
	code, err := GenerateOTP()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(record{Hash: HashOTP(code), Purpose: string(req.Purpose)})
	if err != nil {
		return err
	}
	if err := g.redis.Set(ctx, key(req.Identifier), raw, g.ttl).Err(); err != nil {
		return fmt.Errorf("verify: store code: %w", err)
	}
	if g.dev != nil {
		g.dev.Put(ctx, req.Email, devotp.Entry{
			Code:      code,
			Purpose:   string(req.Purpose),
			Link:      req.Link,
			ExpiresAt: time.Now().UTC().Add(g.ttl),
		})
	}
	g.log.InfoContext(ctx, "verification code issued", "email", req.Email, "purpose", req.Purpose, "link", req.Link)
	return nil
}

// CheckCode consumes the code on a match. A wrong code counts an attempt; the code is discarded
// once the attempt cap is reached. Unknown or expired identifiers are not approved, and neither
// is a code issued for a purpose outside purposes (the code stays outstanding).
func (g *Gateway) CheckCode(ctx context.Context, identifier, code string, purposes ...verify.Purpose) (verify.Check, error) {
	k := key(identifier)
	for i := 0; i < maxWatchRetries; i++ {
		var result verify.Check
		err := g.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, k).Bytes()
			if err != nil {
				return err
			}
			var rec record
			if err := json.Unmarshal(data, &rec); err != nil {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, k)
					return nil
				})
				return err
			}
			if !verify.Accepts(verify.Purpose(rec.Purpose), purposes) {
				result = verify.Check{Valid: true}
				return nil
			}
			if OTPEqual(code, rec.Hash) {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, k)
					return nil
				})
				if err == nil {
					result = verify.Check{Valid: true, Approved: true}
				}
				return err
			}
			rec.Attempts++
			if rec.Attempts >= g.maxAttempts {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, k)
					return nil
				})
				return err
			}
			updated, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.SetArgs(ctx, k, updated, redis.SetArgs{KeepTTL: true})
				return nil
			})
			return err
		}, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, redis.Nil) {
			return verify.Check{}, nil
		}
		if err != nil {
			return verify.Check{}, fmt.Errorf("verify: check code: %w", err)
		}
		return result, nil
	}
	return verify.Check{}, nil
}

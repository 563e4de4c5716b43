package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked token ids until the token would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisDenylist stores revoked token ids as expiring Redis keys.
type RedisDenylist struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisDenylist constructs a denylist using keys under prefix.
func NewRedisDenylist(client redis.Cmdable, prefix string) *RedisDenylist {
	if prefix == "" {
		prefix = "campus:denylist:"
	}
	return &RedisDenylist{client: client, prefix: prefix, now: time.Now}
}

// Revoke adds tokenID for the remainder of its lifetime. Already expired tokens are skipped.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.prefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked.
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("auth: check denylist: %w", err)
	}
	return n > 0, nil
}

// NoopDenylist never revokes anything; logout then only means the client
// discards its token.
type NoopDenylist struct{}

// Revoke does nothing.
func (NoopDenylist) Revoke(context.Context, string, time.Time) error { return nil }

// IsRevoked always reports false.
func (NoopDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }

var (
	_ Denylist = (*RedisDenylist)(nil)
	_ Denylist = NoopDenylist{}
)

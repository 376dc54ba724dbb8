package auth

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked token IDs until their natural expiry. RequireAuth
// consults it on every request; logout feeds it.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	Revoked(ctx context.Context, jti string) bool
}

// redisDenylist keeps revoked token IDs in redis. A nil client disables
// revocation: logout becomes a no-op and every parsed token stays valid for
// its full TTL.
type redisDenylist struct {
	client *redis.Client
}

func NewDenylist(client *redis.Client) Denylist {
	return &redisDenylist{client: client}
}

func key(jti string) string {
	return "revoked_token:" + jti
}

// Revoke marks the token ID as revoked for the given remaining lifetime.
func (d *redisDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	if d.client == nil {
		log.Printf("[WARN] Denylist: redis not configured, token %s not revoked", jti)
		return nil
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, key(jti), "1", ttl).Err()
}

// Revoked reports whether the token ID has been revoked. Redis errors fail
// open with a log line so an unavailable redis cannot lock everyone out.
func (d *redisDenylist) Revoked(ctx context.Context, jti string) bool {
	if d.client == nil {
		return false
	}
	n, err := d.client.Exists(ctx, key(jti)).Result()
	if err != nil {
		log.Printf("[ERROR] Denylist: revocation check failed for %s: %v", jti, err)
		return false
	}
	return n > 0
}

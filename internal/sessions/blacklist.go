package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "blacklist:access:"

// Blacklist stores revoked access tokens in Redis until they would have
// expired anyway. A Blacklist with a nil client is a no-op.
type Blacklist struct {
	client *redis.Client
	prefix string
}

func NewBlacklist(c *redis.Client) *Blacklist {
	return &Blacklist{client: c, prefix: defaultPrefix}
}

func (b *Blacklist) enabled() bool { return b != nil && b.client != nil }

// Revoke blacklists token for ttl. Non-positive ttls are ignored since the
// token is already expired.
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if !b.enabled() || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, b.prefix+token, "1", ttl).Err()
}

// IsRevoked returns true when the token exists in the blacklist.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if !b.enabled() {
		return false, nil
	}
	exists, err := b.client.Exists(ctx, b.prefix+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Ping reports Redis reachability for the readiness probe.
func (b *Blacklist) Ping(ctx context.Context) error {
	if !b.enabled() {
		return nil
	}
	return b.client.Ping(ctx).Err()
}

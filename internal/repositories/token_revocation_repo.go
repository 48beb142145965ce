package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var isRevokedDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "auth_revocation_check_duration_ms",
	Help:    "Latency of token revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedKeyPrefix = "revoked:jti:"

// RedisRevocationLedger is the production revocation ledger. Entries are
// keyed by JTI with a TTL equal to the token's remaining life, so an entry
// disappears exactly when the token it vetoes can no longer verify anyway.
type RedisRevocationLedger struct {
	client *redis.Client
}

func NewRedisRevocationLedger(client *redis.Client) *RedisRevocationLedger {
	return &RedisRevocationLedger{client: client}
}

// Revoke inserts a ledger entry. SET is idempotent: revoking the same JTI
// twice is harmless.
func (l *RedisRevocationLedger) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	// Key existence is the marker; the value carries no meaning
	return l.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked checks the ledger. A missing key means not revoked (or already
// expired, which is observationally the same).
func (l *RedisRevocationLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDuration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if jti == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, revokedKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

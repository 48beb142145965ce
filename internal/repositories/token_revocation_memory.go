package repositories

import (
	"context"
	"sync"
	"time"
)

// MemoryRevocationLedger is an in-process revocation ledger for tests and
// single-node deployments. Expired entries are skipped on lookup and removed
// lazily; PurgeExpired exists for the background sweep but purging is an
// optimization, not a correctness requirement.
type MemoryRevocationLedger struct {
	mu      sync.Mutex
	entries map[string]time.Time // jti -> entry expiry
}

func NewMemoryRevocationLedger() *MemoryRevocationLedger {
	return &MemoryRevocationLedger{
		entries: make(map[string]time.Time),
	}
}

func (l *MemoryRevocationLedger) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[jti] = time.Now().Add(ttl)
	return nil
}

func (l *MemoryRevocationLedger) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	expiresAt, ok := l.entries[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		delete(l.entries, jti)
		return false, nil
	}
	return true, nil
}

// PurgeExpired drops entries whose expiry has passed and reports how many
// were removed.
func (l *MemoryRevocationLedger) PurgeExpired(_ context.Context) (int, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	purged := 0
	for jti, expiresAt := range l.entries {
		if now.After(expiresAt) {
			delete(l.entries, jti)
			purged++
		}
	}
	return purged, nil
}

package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/models"
	pkglogger "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/logger"
)

// LockoutRepository is the slice of the credential store the lockout policy
// mutates. Increment must be atomic per account.
type LockoutRepository interface {
	IncrementFailedLogin(ctx context.Context, id string) (int, error)
	ResetFailedLogin(ctx context.Context, id string) error
	SetLockedUntil(ctx context.Context, id string, until time.Time) error
}

// LockoutConfig holds the lockout policy knobs
type LockoutConfig struct {
	Threshold int           // consecutive failures before the account locks
	Duration  time.Duration // how long the lock holds
}

// LockoutService enforces the per-account lockout state machine: Unlocked
// accounts accumulate failures until the threshold locks them for a fixed
// window; attempts during the window are rejected without touching the
// counter; any success resets everything.
type LockoutService struct {
	repo   LockoutRepository
	config LockoutConfig
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

func NewLockoutService(repo LockoutRepository, config LockoutConfig, logger *slog.Logger, audit *pkglogger.AuditLogger) *LockoutService {
	return &LockoutService{
		repo:   repo,
		config: config,
		logger: logger,
		audit:  audit,
	}
}

// Check rejects an attempt against a locked account before any credential is
// verified. The counter stays untouched so repeated attempts cannot stretch
// the lockout window.
func (s *LockoutService) Check(user *models.User, now time.Time) error {
	if user.Locked(now) {
		return models.ErrAccountLocked
	}
	return nil
}

// RecordFailure bumps the failure counter and, when the threshold is
// crossed, places the time-boxed lock.
func (s *LockoutService) RecordFailure(ctx context.Context, userID string) error {
	count, err := s.repo.IncrementFailedLogin(ctx, userID)
	if err != nil {
		return err
	}

	if count >= s.config.Threshold {
		until := time.Now().Add(s.config.Duration)
		if err := s.repo.SetLockedUntil(ctx, userID, until); err != nil {
			return err
		}
		s.logger.Warn("account locked after repeated failures",
			slog.String("user_id", userID),
			slog.Int("failed_count", count))
		s.audit.LogLockout(userID, until)
	}

	return nil
}

// RecordSuccess resets the counter, clears any expired lock and stamps the
// login. Runs on every successful authentication, also when the counter was
// already zero, so stale state never survives a success.
func (s *LockoutService) RecordSuccess(ctx context.Context, userID string) error {
	return s.repo.ResetFailedLogin(ctx, userID)
}

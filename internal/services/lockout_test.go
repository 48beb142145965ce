package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/models"
	pkglogger "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLockoutService(repo LockoutRepository) *LockoutService {
	logger := slog.Default()
	return NewLockoutService(repo, LockoutConfig{
		Threshold: 5,
		Duration:  15 * time.Minute,
	}, logger, pkglogger.NewAuditLogger(logger))
}

func TestLockout_Check_UnlockedAccount(t *testing.T) {
	svc := newLockoutService(&MockUserRepository{})

	user := &models.User{ID: "u1"}
	assert.NoError(t, svc.Check(user, time.Now()))
}

func TestLockout_Check_LockedAccountRejected(t *testing.T) {
	svc := newLockoutService(&MockUserRepository{})

	until := time.Now().Add(10 * time.Minute)
	user := &models.User{ID: "u1", LockedUntil: &until}

	err := svc.Check(user, time.Now())
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestLockout_Check_ExpiredLockAdmits(t *testing.T) {
	svc := newLockoutService(&MockUserRepository{})

	until := time.Now().Add(-time.Minute)
	user := &models.User{ID: "u1", LockedUntil: &until, FailedLoginCount: 5}

	assert.NoError(t, svc.Check(user, time.Now()))
}

func TestLockout_RecordFailure_BelowThresholdDoesNotLock(t *testing.T) {
	lockCalled := false
	repo := &MockUserRepository{
		IncrementFailedLoginFunc: func(ctx context.Context, id string) (int, error) {
			return 4, nil
		},
		SetLockedUntilFunc: func(ctx context.Context, id string, until time.Time) error {
			lockCalled = true
			return nil
		},
	}
	svc := newLockoutService(repo)

	require.NoError(t, svc.RecordFailure(context.Background(), "u1"))
	assert.False(t, lockCalled, "lock must not be placed below the threshold")
}

func TestLockout_RecordFailure_FifthFailureLocks(t *testing.T) {
	var lockedUntil time.Time
	repo := &MockUserRepository{
		IncrementFailedLoginFunc: func(ctx context.Context, id string) (int, error) {
			return 5, nil
		},
		SetLockedUntilFunc: func(ctx context.Context, id string, until time.Time) error {
			lockedUntil = until
			return nil
		},
	}
	svc := newLockoutService(repo)

	before := time.Now()
	require.NoError(t, svc.RecordFailure(context.Background(), "u1"))

	require.False(t, lockedUntil.IsZero(), "fifth failure must place a lock")
	assert.WithinDuration(t, before.Add(15*time.Minute), lockedUntil, 2*time.Second)
}

func TestLockout_RecordSuccess_ResetsCounter(t *testing.T) {
	resetID := ""
	repo := &MockUserRepository{
		ResetFailedLoginFunc: func(ctx context.Context, id string) error {
			resetID = id
			return nil
		},
	}
	svc := newLockoutService(repo)

	require.NoError(t, svc.RecordSuccess(context.Background(), "u1"))
	assert.Equal(t, "u1", resetID)
}

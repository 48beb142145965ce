package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/auth"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/models"
	pkgauth "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/auth"
	pkglogger "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/logger"
)

// UserRepository defines the credential-store operations the auth flow needs
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// AuthService handles authentication business logic
type AuthService struct {
	repo    UserRepository
	ledger  auth.RevocationLedger
	tm      *auth.TokenManager
	lockout *LockoutService
	logger  *slog.Logger
	audit   *pkglogger.AuditLogger
}

func NewAuthService(repo UserRepository, tm *auth.TokenManager, ledger auth.RevocationLedger, lockout *LockoutService, logger *slog.Logger, audit *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:    repo,
		ledger:  ledger,
		tm:      tm,
		lockout: lockout,
		logger:  logger,
		audit:   audit,
	}
}

// Login authenticates a user and returns a fresh credential pair.
//
// Failure causes collapse into ErrUnauthorized except for an active lockout,
// which only this path may surface as ErrAccountLocked. Store failures fail
// closed as ErrUnauthorized; a login must never succeed on a guess because
// the store was down.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*models.User, *auth.TokenPair, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		return nil, nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("login attempt for unknown account",
				slog.String("email", pkglogger.SanitizedEmail(email)))
		} else {
			s.logger.Error("failed to get user by email", slog.Any("error", err))
		}
		// Unknown account and store failure are indistinguishable from a
		// wrong password by design.
		s.audit.LogAuthAttempt(pkglogger.SessionEvent{
			EventType:     "login_failed",
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, nil, models.ErrUnauthorized
	}

	if err := s.lockout.Check(user, time.Now()); err != nil {
		s.audit.LogAuthAttempt(pkglogger.SessionEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "account_locked",
			Success:       false,
		})
		return nil, nil, err
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		if recordErr := s.lockout.RecordFailure(ctx, user.ID); recordErr != nil {
			s.logger.Error("failed to record login failure", slog.String("user_id", user.ID), slog.Any("error", recordErr))
		}
		s.audit.LogAuthAttempt(pkglogger.SessionEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, nil, models.ErrUnauthorized
	}

	if err := s.lockout.RecordSuccess(ctx, user.ID); err != nil {
		s.logger.Error("failed to reset login failures", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, nil, models.ErrUnauthorized
	}

	pair, err := s.tm.IssuePair(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to issue token pair", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	s.audit.LogAuthAttempt(pkglogger.SessionEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return user, pair, nil
}

// Register creates a new account and logs it straight in.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, *auth.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" || name == "" {
		return nil, nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	pair, err := s.tm.IssuePair(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to issue token pair", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	s.audit.LogAuthAttempt(pkglogger.SessionEvent{
		EventType: "user_registered",
		UserID:    user.ID,
		Success:   true,
	})

	return user, pair, nil
}

// Logout writes ledger entries for the session's credentials. The access
// token is revoked from the authenticated identity; the refresh token, when
// still presentable and verifiable, is revoked by its own identifier. Cookie
// clearing alone is never treated as revocation.
func (s *AuthService) Logout(ctx context.Context, identity *auth.Identity, refreshToken string) error {
	if err := s.ledger.Revoke(ctx, identity.TokenID, time.Until(identity.ExpiresAt)); err != nil {
		s.logger.Error("failed to revoke access token", slog.String("jti", identity.TokenID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if refreshToken != "" {
		claims, err := s.tm.VerifyRefresh(refreshToken)
		if err == nil {
			if err := s.ledger.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
				s.logger.Error("failed to revoke refresh token", slog.String("jti", claims.ID), slog.Any("error", err))
				return models.ErrInternalServer
			}
		}
		// An unverifiable refresh cookie carries a token that can never
		// rotate again; nothing to ledger.
	}

	s.audit.LogSessionEvent(pkglogger.SessionEvent{
		EventType: "logout",
		UserID:    identity.UserID,
		Success:   true,
	})
	return nil
}

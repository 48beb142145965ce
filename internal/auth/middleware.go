package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/models"
	pkghttp "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/http"
	pkglogger "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/logger"
)

// contextKey is a custom type for context keys
type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the per-request authenticated principal extracted from a
// verified access token.
type Identity struct {
	UserID    string
	Role      string
	TokenID   string // access token JTI, consumed by logout revocation
	ExpiresAt time.Time
}

// RevocationLedger records token identifiers that must be rejected before
// their natural expiry.
type RevocationLedger interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// UserFetcher is the slice of the credential store rotation needs: the
// current role (refresh tokens do not carry one) and the lockout state.
type UserFetcher interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// SessionMiddleware drives the per-request session state machine: verify the
// access credential, rotate it through the refresh credential when it has
// expired, and short-circuit everything else into a generic rejection.
type SessionMiddleware struct {
	tm           *TokenManager
	ledger       RevocationLedger
	users        UserFetcher
	cookies      CookieConfig
	storeTimeout time.Duration
	logger       *slog.Logger
	audit        *pkglogger.AuditLogger
}

func NewSessionMiddleware(tm *TokenManager, ledger RevocationLedger, users UserFetcher, cookies CookieConfig, storeTimeout time.Duration, logger *slog.Logger, audit *pkglogger.AuditLogger) *SessionMiddleware {
	return &SessionMiddleware{
		tm:           tm,
		ledger:       ledger,
		users:        users,
		cookies:      cookies,
		storeTimeout: storeTimeout,
		logger:       logger,
		audit:        audit,
	}
}

// Authenticate populates the request identity from the session cookies.
//
// A request with no access cookie proceeds anonymously; route-level guards
// (RequireAuthenticated, RequireRole) decide whether that is acceptable. A
// request that presents a credential which fails verification is rejected
// outright, whatever the route wants: a bad signature is a tampering signal,
// not a missing login.
func (s *SessionMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken := GetAccessTokenCookie(r)
		if accessToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := s.tm.VerifyAccess(accessToken)
		switch {
		case err == nil:
			s.proceedIfNotRevoked(w, r, next, claims)

		case errors.Is(err, ErrTokenExpired):
			// Expiry is the one recoverable failure: attempt a silent
			// rotation through the refresh credential within this request.
			s.rotate(w, r, next)

		default:
			s.reject(w, r, "", verifyFailureCause(err))
		}
	})
}

// proceedIfNotRevoked runs the ledger check for a signature-valid access
// token and hands the request on. Verification always precedes the ledger,
// which always precedes role checks.
func (s *SessionMiddleware) proceedIfNotRevoked(w http.ResponseWriter, r *http.Request, next http.Handler, claims *models.TokenClaims) {
	ctx, cancel := context.WithTimeout(r.Context(), s.storeTimeout)
	defer cancel()

	revoked, err := s.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Fail closed: an unreachable ledger must never grant access.
		s.logger.Error("revocation check failed", slog.Any("error", err))
		s.reject(w, r, claims.UserID, "ledger_unavailable")
		return
	}
	if revoked {
		s.reject(w, r, claims.UserID, "revoked")
		return
	}

	s.proceed(w, r, next, claims)
}

// rotate exchanges an expired access credential for a fresh one via the
// refresh credential. A single verification failure is terminal for the
// request; there are no internal retries.
func (s *SessionMiddleware) rotate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	refreshToken := GetRefreshTokenCookie(r)
	if refreshToken == "" {
		s.reject(w, r, "", "expired_no_refresh")
		return
	}

	claims, err := s.tm.VerifyRefresh(refreshToken)
	if err != nil {
		s.reject(w, r, "", "refresh_"+verifyFailureCause(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.storeTimeout)
	defer cancel()

	revoked, err := s.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("revocation check failed during rotation", slog.Any("error", err))
		s.reject(w, r, claims.UserID, "ledger_unavailable")
		return
	}
	if revoked {
		s.reject(w, r, claims.UserID, "refresh_revoked")
		return
	}

	// Refresh claims carry no role: re-read the account so a role change or
	// an active lockout invalidates the session here.
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		s.reject(w, r, claims.UserID, "account_unavailable")
		return
	}
	if user.Locked(time.Now()) {
		s.reject(w, r, user.ID, "account_locked")
		return
	}

	accessToken, accessClaims, err := s.tm.IssueAccess(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to issue access token during rotation", slog.String("user_id", user.ID), slog.Any("error", err))
		s.reject(w, r, user.ID, "issue_failed")
		return
	}

	SetAccessTokenCookie(w, accessToken, time.Until(accessClaims.ExpiresAt.Time), s.cookies)
	s.audit.LogSessionEvent(pkglogger.SessionEvent{
		EventType: "token_rotated",
		UserID:    user.ID,
		Success:   true,
	})

	// The caller never sees the intermediate expired state.
	s.proceed(w, r, next, accessClaims)
}

func (s *SessionMiddleware) proceed(w http.ResponseWriter, r *http.Request, next http.Handler, claims *models.TokenClaims) {
	identity := &Identity{
		UserID:    claims.UserID,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	ctx := context.WithValue(r.Context(), identityContextKey, identity)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// reject clears both credential cookies and writes the generic rejection.
// The cause feeds the audit log only; the response body never distinguishes
// revoked from malformed from expired-beyond-rotation.
func (s *SessionMiddleware) reject(w http.ResponseWriter, r *http.Request, userID, cause string) {
	s.audit.LogSessionEvent(pkglogger.SessionEvent{
		EventType:     "session_rejected",
		UserID:        userID,
		FailureReason: cause,
		Success:       false,
	})
	ClearSessionCookies(w, s.cookies)
	pkghttp.WriteUnauthorized(w, "Authentication required")
}

func verifyFailureCause(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}

// RequireAuthenticated rejects anonymous requests. Must run after
// SessionMiddleware.Authenticate.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole enforces role-based access for a route. An anonymous request is
// always rejected as unauthenticated before its role is even considered; an
// authenticated identity outside the allowed set is forbidden. The check is
// pure: role comes from the verified claims, with no store access.
func RequireRole(allowed ...string) func(next http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			if _, ok := allowedSet[identity.Role]; !ok {
				pkghttp.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext extracts the authenticated identity, or nil for an
// anonymous request.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}

// WithIdentity returns a context carrying the given identity. Intended for
// handler tests that bypass the middleware.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

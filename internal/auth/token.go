package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures, classified by cause. Callers surface all three as
// the same generic rejection; the distinction exists for the rotation state
// machine and the audit log.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// TokenPair holds a freshly issued access/refresh credential pair.
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessClaims  *models.TokenClaims
	RefreshClaims *models.TokenClaims
}

// TokenManager issues and verifies the two token classes. Each class is
// signed with its own secret so one can never stand in for the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// IssuePair mints a new access/refresh pair for an already-authenticated
// user. It has no side effects; active-session tracking is absence-based via
// the revocation ledger.
func (tm *TokenManager) IssuePair(userID, role string) (*TokenPair, error) {
	accessToken, accessClaims, err := tm.IssueAccess(userID, role)
	if err != nil {
		return nil, err
	}

	refreshClaims := tm.newClaims(models.TokenTypeRefresh, userID, "", tm.refreshExpiry)
	refreshToken, err := sign(refreshClaims, tm.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessClaims:  accessClaims,
		RefreshClaims: refreshClaims,
	}, nil
}

// IssueAccess mints a single access token. Used by rotation, where the
// refresh credential has already been verified and the role re-read from the
// credential store.
func (tm *TokenManager) IssueAccess(userID, role string) (string, *models.TokenClaims, error) {
	claims := tm.newClaims(models.TokenTypeAccess, userID, role, tm.accessExpiry)
	token, err := sign(claims, tm.accessSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, claims, nil
}

// VerifyAccess validates an access token's signature and expiry, in that
// order, and returns its claims.
func (tm *TokenManager) VerifyAccess(tokenString string) (*models.TokenClaims, error) {
	return verify(tokenString, tm.accessSecret, models.TokenTypeAccess)
}

// VerifyRefresh is the refresh-class counterpart of VerifyAccess.
func (tm *TokenManager) VerifyRefresh(tokenString string) (*models.TokenClaims, error) {
	return verify(tokenString, tm.refreshSecret, models.TokenTypeRefresh)
}

func (tm *TokenManager) newClaims(tokenType, userID, role string, expiry time.Duration) *models.TokenClaims {
	now := time.Now()
	return &models.TokenClaims{
		Type:   tokenType,
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
}

func sign(claims *models.TokenClaims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func verify(tokenString string, secret []byte, wantType string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	// A refresh token presented where an access token is expected (or vice
	// versa) is a tampering signal, not an expiry.
	if claims.Type != wantType {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// classifyParseError maps jwt parse failures onto the three verification
// sentinels. jwt/v5 checks the signature before claim validity, so a bad
// signature is reported as invalid even when the token is also past its
// expiry and never leaks which one it would have been.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/auth"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/models"
	pkghttp "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAuthService implements AuthServiceInterface for testing
type mockAuthService struct {
	LoginFunc    func(ctx context.Context, email, password, ipAddress string) (*models.User, *auth.TokenPair, error)
	RegisterFunc func(ctx context.Context, email, password, name string) (*models.User, *auth.TokenPair, error)
	LogoutFunc   func(ctx context.Context, identity *auth.Identity, refreshToken string) error
}

func (m *mockAuthService) Login(ctx context.Context, email, password, ipAddress string) (*models.User, *auth.TokenPair, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ipAddress)
	}
	return nil, nil, models.ErrUnauthorized
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name string) (*models.User, *auth.TokenPair, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name)
	}
	return nil, nil, models.ErrInternalServer
}

func (m *mockAuthService) Logout(ctx context.Context, identity *auth.Identity, refreshToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, identity, refreshToken)
	}
	return nil
}

// mockUserGetter implements UserGetter for testing
type mockUserGetter struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.User, error)
}

func (m *mockUserGetter) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func newAuthHandler(service AuthServiceInterface, users UserGetter) *AuthHandler {
	return NewAuthHandler(service, users, auth.CookieConfig{SameSite: "lax"}, &pkghttp.IPConfig{})
}

func testTokenPair(t *testing.T, userID, role string) *auth.TokenPair {
	t.Helper()
	tm := auth.NewTokenManager(
		"access-secret-32-characters-ok!!",
		"refresh-secret-32-characters-ok!",
		15*time.Minute,
		7*24*time.Hour,
	)
	pair, err := tm.IssuePair(userID, role)
	require.NoError(t, err)
	return pair
}

func testUser(id, email string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Email:     email,
		Name:      "Test User",
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func sessionCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	cookies := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	return cookies
}

func TestLogin_Success(t *testing.T) {
	user := testUser("u1", "cook@example.com")
	pair := testTokenPair(t, user.ID, user.Role)

	var gotEmail string
	service := &mockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress string) (*models.User, *auth.TokenPair, error) {
			gotEmail = email
			return user, pair, nil
		},
	}
	handler := newAuthHandler(service, &mockUserGetter{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"Cook@Example.com","password":"secret1234"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cook@example.com", gotEmail, "email must be normalized before the service sees it")

	cookies := sessionCookies(rec)
	require.Contains(t, cookies, auth.AccessCookieName)
	require.Contains(t, cookies, auth.RefreshCookieName)
	assert.Equal(t, pair.AccessToken, cookies[auth.AccessCookieName].Value)
	assert.Equal(t, pair.RefreshToken, cookies[auth.RefreshCookieName].Value)
	assert.True(t, cookies[auth.AccessCookieName].HttpOnly)
	assert.True(t, cookies[auth.RefreshCookieName].HttpOnly)

	// Tokens travel in cookies only
	body := rec.Body.String()
	assert.NotContains(t, body, pair.AccessToken)
	assert.NotContains(t, body, pair.RefreshToken)
	assert.Contains(t, body, "cook@example.com")
	assert.NotContains(t, body, "password")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress string) (*models.User, *auth.TokenPair, error) {
			return nil, nil, models.ErrUnauthorized
		},
	}
	handler := newAuthHandler(service, &mockUserGetter{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"cook@example.com","password":"wrong-pass1"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication failed")
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_LockedAccount(t *testing.T) {
	service := &mockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress string) (*models.User, *auth.TokenPair, error) {
			return nil, nil, models.ErrAccountLocked
		},
	}
	handler := newAuthHandler(service, &mockUserGetter{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"cook@example.com","password":"secret1234"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusLocked, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Account temporarily locked")
	assert.NotContains(t, body, "minute", "lock duration must not leak")
	assert.NotContains(t, body, "15")
}

func TestLogin_InvalidBody(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{}, &mockUserGetter{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"email": `},
		{"missing email", `{"password":"secret1234"}`},
		{"bad email", `{"email":"not-an-email","password":"secret1234"}`},
		{"missing password", `{"email":"cook@example.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.Login(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegister_Success(t *testing.T) {
	user := testUser("u2", "newcook@example.com")
	pair := testTokenPair(t, user.ID, user.Role)

	service := &mockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string) (*models.User, *auth.TokenPair, error) {
			return user, pair, nil
		},
	}
	handler := newAuthHandler(service, &mockUserGetter{})

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"newcook@example.com","password":"secret1234","name":"New Cook"}`))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	cookies := sessionCookies(rec)
	assert.Contains(t, cookies, auth.AccessCookieName)
	assert.Contains(t, cookies, auth.RefreshCookieName)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	service := &mockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string) (*models.User, *auth.TokenPair, error) {
			return nil, nil, models.ErrConflict
		},
	}
	handler := newAuthHandler(service, &mockUserGetter{})

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"cook@example.com","password":"secret1234","name":"Cook"}`))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogout_RevokesAndClearsCookies(t *testing.T) {
	var gotIdentity *auth.Identity
	var gotRefresh string
	service := &mockAuthService{
		LogoutFunc: func(ctx context.Context, identity *auth.Identity, refreshToken string) error {
			gotIdentity = identity
			gotRefresh = refreshToken
			return nil
		},
	}
	handler := newAuthHandler(service, &mockUserGetter{})

	identity := &auth.Identity{UserID: "u1", Role: models.RoleUser, TokenID: "jti-1", ExpiresAt: time.Now().Add(15 * time.Minute)}
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: "refresh-token-value"})
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, gotIdentity)
	assert.Equal(t, "jti-1", gotIdentity.TokenID)
	assert.Equal(t, "refresh-token-value", gotRefresh)

	cookies := sessionCookies(rec)
	for _, name := range []string{auth.AccessCookieName, auth.RefreshCookieName} {
		require.Contains(t, cookies, name)
		assert.Empty(t, cookies[name].Value)
		assert.Negative(t, cookies[name].MaxAge)
	}
}

func TestLogout_Anonymous(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{}, &mockUserGetter{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	user := testUser("u1", "cook@example.com")
	users := &mockUserGetter{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			assert.Equal(t, "u1", id)
			return user, nil
		},
	}
	handler := newAuthHandler(&mockAuthService{}, users)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: "u1", Role: models.RoleUser}))
	rec := httptest.NewRecorder()
	handler.Me(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cook@example.com")
}

func TestMe_Anonymous(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{}, &mockUserGetter{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.Me(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

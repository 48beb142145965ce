package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/auth"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/database"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/handlers"
	custommw "github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/middleware"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/repositories"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/routes"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/services"
	pkghttp "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/http"
	pkglogger "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/logger"
)

// Signing secrets for the test stack. Tests that need to mint tokens out of
// band (e.g. already-expired ones) reuse these.
const (
	TestAccessSecret  = "integration-access-secret-32char"
	TestRefreshSecret = "integration-refresh-secret-32ch!"

	TestAccessExpiry  = 15 * time.Minute
	TestRefreshExpiry = 7 * 24 * time.Hour
)

// TestServer wraps httptest.Server with the full auth stack wired against a
// real database and the given revocation ledger
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	TokenManager *auth.TokenManager
	Ledger       auth.RevocationLedger
	Client       *http.Client
}

// NewTestServer initializes a complete HTTP server against the given database
// and revocation ledger. The client carries no cookie jar: tests manage
// cookies explicitly so they can tamper with them.
func NewTestServer(db *database.DB, ledger auth.RevocationLedger) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	auditLogger := pkglogger.NewAuditLogger(logger)

	userRepo := repositories.NewUserRepository(db)

	tokenManager := auth.NewTokenManager(TestAccessSecret, TestRefreshSecret, TestAccessExpiry, TestRefreshExpiry)

	lockoutService := services.NewLockoutService(userRepo, services.LockoutConfig{
		Threshold: 5,
		Duration:  15 * time.Minute,
	}, logger, auditLogger)

	authService := services.NewAuthService(userRepo, tokenManager, ledger, lockoutService, logger, auditLogger)

	cookieConfig := auth.CookieConfig{SameSite: "lax"}
	ipConfig := &pkghttp.IPConfig{}

	authHandler := handlers.NewAuthHandler(authService, userRepo, cookieConfig, ipConfig)
	userHandler := handlers.NewUserHandler(userRepo)

	session := auth.NewSessionMiddleware(tokenManager, ledger, userRepo, cookieConfig, 2*time.Second, logger, auditLogger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(custommw.RequestLogger(logger))

	routes.RegisterRoutes(r, session, authHandler, userHandler)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		DB:           db,
		TokenManager: tokenManager,
		Ledger:       ledger,
		Client:       &http.Client{},
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server with optional JSON body
// and session cookies
func (ts *TestServer) Request(method, path string, body interface{}, cookies ...*http.Cookie) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	return ts.Client.Do(req)
}

// SessionCookies extracts the session cookies from a response, keyed by name
func SessionCookies(resp *http.Response) map[string]*http.Cookie {
	cookies := make(map[string]*http.Cookie)
	for _, c := range resp.Cookies() {
		if c.Name == auth.AccessCookieName || c.Name == auth.RefreshCookieName {
			cookies[c.Name] = c
		}
	}
	return cookies
}

// ParseJSONResponse parses a JSON response body into the target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fanpulse/config"
	httpmiddleware "fanpulse/internal/delivery/http/middleware"
	"fanpulse/internal/delivery/http/router"
	"fanpulse/internal/delivery/http/router/handler"
	"fanpulse/internal/delivery/http/validator"
	deliverymiddleware "fanpulse/internal/delivery/middleware"
	"fanpulse/internal/domain/service"
	"fanpulse/internal/infra/auth"
	"fanpulse/internal/infra/persistence/memory"
	"fanpulse/internal/infra/ratelimit"
	"fanpulse/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSigningSecret = "integration-test-secret-32-bytes!"

// capturingPublisher records events instead of sending them anywhere.
type capturingPublisher struct {
	mu     sync.Mutex
	events []*service.AuthEvent
}

func (p *capturingPublisher) PublishAuthEvent(_ context.Context, event *service.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)

	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) eventsOfType(eventType service.AuthEventType) []*service.AuthEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*service.AuthEvent
	for _, event := range p.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}

	return out
}

type testApp struct {
	server    *echo.Echo
	publisher *capturingPublisher
}

// newTestApp wires the full HTTP stack against in-memory infrastructure.
func newTestApp(t *testing.T, rateLimitCfg *config.RateLimitConfig) *testApp {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{
		Secret:     testSigningSecret,
		AccessTTL:  time.Hour,
		RefreshTTL: time.Hour * 24,
	}

	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	store := memory.NewStore()
	publisher := &capturingPublisher{}

	authUsecase := impl.NewAuthService(impl.AuthServiceParams{
		TxManager:        memory.NewTransactionManager(store),
		UserRepo:         store.UserRepo(),
		RefreshTokenRepo: store.RefreshTokenRepo(),
		Hasher:           auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		TokenService:     tokenService,
		Publisher:        publisher,
		Logger:           logger,
	})

	if rateLimitCfg == nil {
		rateLimitCfg = &config.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = httpmiddleware.NewErrorMiddleware(logger).HandleHTTPError
	e.Use(deliverymiddleware.NewRequestIDMiddleware(logger).Process)

	routes := router.NewRouter(router.RouterParams{
		AuthHandler:         handler.NewAuthHandler(authUsecase, logger),
		AuthMiddleware:      httpmiddleware.NewAuthMiddleware(tokenService),
		RateLimitMiddleware: httpmiddleware.NewRateLimitMiddleware(ratelimit.NewBucketLimiter(rateLimitCfg), logger),
	})
	routes.RegisterRoutes(e)

	return &testApp{server: e, publisher: publisher}
}

func (app *testApp) request(method, path, body, accessToken string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)

	return rec
}

func (app *testApp) registerAndLogin(t *testing.T, email string) (accessToken, refreshToken string) {
	t.Helper()

	rec := app.request(http.MethodPost, "/auth/register",
		fmt.Sprintf(`{"username":"fan","email":%q,"password":"Sup3r$ecretPass"}`, email), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.request(http.MethodPost, "/auth/login",
		fmt.Sprintf(`{"email":%q,"password":"Sup3r$ecretPass"}`, email), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)
	require.NotEmpty(t, body.Data.RefreshToken)

	return body.Data.AccessToken, body.Data.RefreshToken
}

func TestAuthFlow_RegisterIssuesUsableTokenPair(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.request(http.MethodPost, "/auth/register",
		`{"username":"fresh","email":"fresh@example.com","password":"Sup3r$ecretPass"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)
	require.NotEmpty(t, body.Data.RefreshToken)

	// The pair works without a separate login: the access token reaches a
	// protected endpoint and the refresh token rotates.
	rec = app.request(http.MethodGet, "/users/me", "", body.Data.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "fresh@example.com")

	rec = app.request(http.MethodPost, "/auth/refresh",
		fmt.Sprintf(`{"refreshToken":%q}`, body.Data.RefreshToken), "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAuthFlow_RegisterLoginAndProfile(t *testing.T) {
	app := newTestApp(t, nil)

	accessToken, _ := app.registerAndLogin(t, "fan@example.com")

	rec := app.request(http.MethodGet, "/users/me", "", accessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fan@example.com")
	// The credential hash must never appear in a response.
	assert.NotContains(t, rec.Body.String(), "PasswordHash")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	assert.Len(t, app.publisher.eventsOfType(service.AuthEventRegistered), 1)
	assert.Len(t, app.publisher.eventsOfType(service.AuthEventLoginSucceeded), 1)
}

func TestAuthFlow_DuplicateRegistrationConflicts(t *testing.T) {
	app := newTestApp(t, nil)

	app.registerAndLogin(t, "taken@example.com")

	rec := app.request(http.MethodPost, "/auth/register",
		`{"username":"other","email":"taken@example.com","password":"An0ther$ecret"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "USER_ALREADY_EXISTS")
}

func TestAuthFlow_BadCredentialsAndUnknownEmailLookIdentical(t *testing.T) {
	app := newTestApp(t, nil)

	app.registerAndLogin(t, "real@example.com")

	wrongPassword := app.request(http.MethodPost, "/auth/login",
		`{"email":"real@example.com","password":"WrongPass1$"}`, "")
	unknownEmail := app.request(http.MethodPost, "/auth/login",
		`{"email":"ghost@example.com","password":"WrongPass1$"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestAuthFlow_ProtectedRoutesRejectWithUniformBody(t *testing.T) {
	app := newTestApp(t, nil)

	// A correctly signed access token that is already past its expiry.
	expiredCfg := &config.Config{}
	expiredCfg.JWT = config.JWTConfig{
		Secret:     testSigningSecret,
		AccessTTL:  -time.Minute,
		RefreshTTL: time.Hour,
	}
	expiredService, err := auth.NewJWTService(expiredCfg)
	require.NoError(t, err)
	expiredToken, err := expiredService.GenerateAccessToken(uuid.New())
	require.NoError(t, err)

	noToken := app.request(http.MethodGet, "/users/me", "", "")
	garbageToken := app.request(http.MethodGet, "/users/me", "", "not.a.jwt")
	staleToken := app.request(http.MethodGet, "/users/me", "", expiredToken)

	assert.Equal(t, http.StatusUnauthorized, noToken.Code)
	assert.Equal(t, http.StatusUnauthorized, garbageToken.Code)
	assert.Equal(t, http.StatusUnauthorized, staleToken.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(noToken.Body.Bytes(), &body))
	assert.Equal(t, "Unauthorized", body["error"])
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.Equal(t, "/users/me", body["path"])
	assert.NotEmpty(t, body["timestamp"])

	// Same shape and message whether the token was absent, invalid, or
	// expired: nothing in the response says why the credential was refused.
	message := jsonField(t, noToken.Body.Bytes(), "message")
	assert.Equal(t, message, jsonField(t, garbageToken.Body.Bytes(), "message"))
	assert.Equal(t, message, jsonField(t, staleToken.Body.Bytes(), "message"))
	assert.NotContains(t, staleToken.Body.String(), "expired")
}

func jsonField(t *testing.T, raw []byte, field string) any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))

	return body[field]
}

func TestAuthFlow_RefreshTokenRotation(t *testing.T) {
	app := newTestApp(t, nil)

	_, refreshToken := app.registerAndLogin(t, "rotate@example.com")

	// First rotation succeeds and yields a different refresh token.
	rec := app.request(http.MethodPost, "/auth/refresh",
		fmt.Sprintf(`{"refreshToken":%q}`, refreshToken), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rotated struct {
		Data struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	assert.NotEqual(t, refreshToken, rotated.Data.RefreshToken)

	// Replaying the consumed token is a reuse: it fails and revokes the
	// freshly issued session too.
	rec = app.request(http.MethodPost, "/auth/refresh",
		fmt.Sprintf(`{"refreshToken":%q}`, refreshToken), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "REFRESH_TOKEN_REUSED")

	reuseEvents := app.publisher.eventsOfType(service.AuthEventRefreshTokenReuseDetected)
	require.Len(t, reuseEvents, 1)
	assert.Positive(t, reuseEvents[0].RevokedSessions)

	// The pair issued by the rotation was revoked with everything else.
	rec = app.request(http.MethodPost, "/auth/refresh",
		fmt.Sprintf(`{"refreshToken":%q}`, rotated.Data.RefreshToken), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow_AccessTokenCannotRefresh(t *testing.T) {
	app := newTestApp(t, nil)

	accessToken, _ := app.registerAndLogin(t, "typed@example.com")

	rec := app.request(http.MethodPost, "/auth/refresh",
		fmt.Sprintf(`{"refreshToken":%q}`, accessToken), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}

func TestAuthFlow_RefreshTokenCannotAuthenticateRequests(t *testing.T) {
	app := newTestApp(t, nil)

	_, refreshToken := app.registerAndLogin(t, "swap@example.com")

	rec := app.request(http.MethodGet, "/users/me", "", refreshToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow_LogoutRevokesSessions(t *testing.T) {
	app := newTestApp(t, nil)

	accessToken, refreshToken := app.registerAndLogin(t, "leave@example.com")

	rec := app.request(http.MethodPost, "/auth/logout", "{}", accessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The refresh token from before logout no longer rotates.
	rec = app.request(http.MethodPost, "/auth/refresh",
		fmt.Sprintf(`{"refreshToken":%q}`, refreshToken), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow_LoginRateLimited(t *testing.T) {
	app := newTestApp(t, &config.RateLimitConfig{
		Enabled:           true,
		RequestsPerWindow: 2,
		Window:            time.Minute,
	})

	body := `{"email":"burst@example.com","password":"WrongPass1$"}`

	first := app.request(http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, "1", first.Header().Get("X-Rate-Limit-Remaining"))

	second := app.request(http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, "0", second.Header().Get("X-Rate-Limit-Remaining"))

	third := app.request(http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.NotEmpty(t, third.Header().Get("Retry-After"))
	assert.Contains(t, third.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Contains(t, third.Body.String(), "Too Many Requests")

	// A different client keeps its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthFlow_RefreshIsNotRateLimited(t *testing.T) {
	app := newTestApp(t, &config.RateLimitConfig{
		Enabled:           true,
		RequestsPerWindow: 2,
		Window:            time.Minute,
	})

	// Exhaust the client's bucket on login.
	body := `{"email":"drain@example.com","password":"WrongPass1$"}`
	for range 3 {
		app.request(http.MethodPost, "/auth/login", body, "")
	}

	// Refresh still answers; 401 here, not 429.
	rec := app.request(http.MethodPost, "/auth/refresh", `{"refreshToken":"bogus"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.request(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

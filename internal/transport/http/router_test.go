package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/domain"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/notification"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/repository"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/service"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/token"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/transport/http/handler"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/transport/http/middleware"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct {
	register       func(name, email, password string) (*domain.User, error)
	verify         func(raw string) error
	login          func(email, password string) (string, *domain.User, error)
	forgot         func(email string) error
	reset          func(secret, password string) error
	resend         func(email string) error
	authenticate   func(raw string) (*token.Claims, error)
	logout         func(raw string) error
	getUser        func(id int64) (*domain.User, error)
	lastResetToken string
	authCtx        context.Context
}

func (f *fakeAuth) Register(_ context.Context, name, email, password string) (*domain.User, *notification.Task, error) {
	u, err := f.register(name, email, password)
	return u, nil, err
}

func (f *fakeAuth) VerifyEmail(_ context.Context, raw string) error { return f.verify(raw) }

func (f *fakeAuth) Login(_ context.Context, email, password string) (string, *domain.User, error) {
	return f.login(email, password)
}

func (f *fakeAuth) ForgotPassword(_ context.Context, email string) (*notification.Task, error) {
	if err := f.forgot(email); err != nil {
		return nil, err
	}

	return notification.Failed(notification.KindPasswordReset, notification.ErrQueueFull), nil
}

func (f *fakeAuth) ResetPassword(_ context.Context, secret, password string) error {
	f.lastResetToken = secret
	return f.reset(secret, password)
}

func (f *fakeAuth) ResendVerification(_ context.Context, email string) (*notification.Task, error) {
	return nil, f.resend(email)
}

func (f *fakeAuth) Authenticate(ctx context.Context, raw string) (*token.Claims, error) {
	f.authCtx = ctx
	return f.authenticate(raw)
}

func (f *fakeAuth) Logout(_ context.Context, raw string) error { return f.logout(raw) }

func (f *fakeAuth) GetUser(_ context.Context, id int64) (*domain.User, error) { return f.getUser(id) }

type fakeCatalog struct {
	menu    []domain.MenuItem
	menuErr error
}

func (f *fakeCatalog) ListMenu(context.Context) ([]domain.MenuItem, error) {
	return f.menu, f.menuErr
}

func (f *fakeCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	return domain.DefaultProducts(), nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	return nil, repository.ErrProductNotFound
}

var alice = &domain.User{
	ID:           7,
	Name:         "Alice",
	Email:        "alice@example.com",
	PasswordHash: "$2a$10$secret",
	CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	UpdatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
}

func validClaims(raw string) (*token.Claims, error) {
	if raw != "good" {
		return nil, service.ErrInvalidToken
	}

	return &token.Claims{
		UserID:  alice.ID,
		Purpose: token.PurposeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, nil
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		register: func(string, string, string) (*domain.User, error) { return alice, nil },
		verify:   func(string) error { return nil },
		login: func(string, string) (string, *domain.User, error) {
			return "session-token", alice, nil
		},
		forgot:       func(string) error { return nil },
		reset:        func(string, string) error { return nil },
		resend:       func(string) error { return nil },
		authenticate: validClaims,
		logout:       func(string) error { return nil },
		getUser:      func(int64) (*domain.User, error) { return alice, nil },
	}
}

func newTestApp(auth service.AuthService, catalog service.CatalogService, metrics *middleware.HTTPMetrics) *fiber.App {
	return newTestAppWithTimeout(auth, catalog, metrics, time.Second)
}

func newTestAppWithTimeout(auth service.AuthService, catalog service.CatalogService, metrics *middleware.HTTPMetrics, timeout time.Duration) *fiber.App {
	logger := zap.NewNop()

	app := fiber.New()
	if metrics != nil {
		app.Use(metrics.Handler())
	}

	RegisterRoutes(app, &Handlers{
		Auth:    handler.NewAuthHandler(auth, timeout, logger),
		Catalog: handler.NewCatalogHandler(catalog, timeout, logger),
	}, RouterConfig{
		RequireAuth: middleware.NewAuthMiddleware(auth, timeout, logger),
	})

	return app
}

type response struct {
	status int
	body   map[string]any
	raw    []byte
}

func do(t *testing.T, app *fiber.App, method, path string, body any, headers ...string) response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, raw: raw}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}

	return out
}

func TestRegister(t *testing.T) {
	app := newTestApp(newFakeAuth(), &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "pw123",
	})

	require.Equal(t, fiber.StatusCreated, res.status)
	require.Equal(t, "User registered successfully. Please check your email to verify your account.", res.body["message"])

	user := res.body["user"].(map[string]any)
	require.Equal(t, "alice@example.com", user["email"])
	require.Equal(t, false, user["isVerified"])
	require.NotContains(t, string(res.raw), "secret")
}

func TestRegister_Duplicate(t *testing.T) {
	auth := newFakeAuth()
	auth.register = func(string, string, string) (*domain.User, error) {
		return nil, repository.ErrUserAlreadyExists
	}
	app := newTestApp(auth, &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "pw123",
	})

	require.Equal(t, fiber.StatusBadRequest, res.status)
	require.Equal(t, "User already exists", res.body["message"])
}

func TestRegister_Validation(t *testing.T) {
	app := newTestApp(newFakeAuth(), &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/register", map[string]string{
		"name": "Alice", "email": "not-an-email", "password": "pw123",
	})

	require.Equal(t, fiber.StatusBadRequest, res.status)
	require.Equal(t, "Validation failed", res.body["message"])
	require.Contains(t, res.body["errors"], "email")
}

func TestRegister_WeakPassword(t *testing.T) {
	auth := newFakeAuth()
	auth.register = func(string, string, string) (*domain.User, error) {
		return nil, validator.ErrPasswordTooWeak
	}
	app := newTestApp(auth, &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "password",
	})

	require.Equal(t, fiber.StatusBadRequest, res.status)
	require.Equal(t, validator.ErrPasswordTooWeak.Error(), res.body["message"])
}

func TestRegister_PasswordTooLong(t *testing.T) {
	auth := newFakeAuth()
	auth.register = func(string, string, string) (*domain.User, error) {
		return nil, validator.ErrPasswordTooLong
	}
	app := newTestApp(auth, &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": strings.Repeat("a1", 40),
	})

	require.Equal(t, fiber.StatusBadRequest, res.status)
	require.Equal(t, validator.ErrPasswordTooLong.Error(), res.body["message"])
}

func TestResetPassword_PasswordTooLong(t *testing.T) {
	auth := newFakeAuth()
	auth.reset = func(string, string) error { return validator.ErrPasswordTooLong }
	app := newTestApp(auth, &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/reset-password/deadbeef", map[string]string{"password": strings.Repeat("a1", 40)})

	require.Equal(t, fiber.StatusBadRequest, res.status)
	require.Equal(t, validator.ErrPasswordTooLong.Error(), res.body["message"])
}

func TestRegister_BadJSON(t *testing.T) {
	app := newTestApp(newFakeAuth(), &fakeCatalog{}, nil)

	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_StatusMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"unknown email", repository.ErrUserNotFound, fiber.StatusNotFound, "User not found"},
		{"unverified", service.ErrEmailNotVerified, fiber.StatusForbidden, "Please verify your email before logging in."},
		{"wrong password", service.ErrInvalidCredentials, fiber.StatusUnauthorized, "Invalid credentials"},
		{"store down", errors.New("connection refused"), fiber.StatusInternalServerError, "Server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := newFakeAuth()
			auth.login = func(string, string) (string, *domain.User, error) { return "", nil, tc.err }
			app := newTestApp(auth, &fakeCatalog{}, nil)

			res := do(t, app, "POST", "/api/auth/login", map[string]string{
				"email": "alice@example.com", "password": "pw123",
			})

			require.Equal(t, tc.status, res.status)
			require.Equal(t, tc.message, res.body["message"])
			require.NotContains(t, res.body, "token")
		})
	}
}

func TestLogin_Success(t *testing.T) {
	app := newTestApp(newFakeAuth(), &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "pw123",
	})

	require.Equal(t, fiber.StatusOK, res.status)
	require.Equal(t, "Login successful", res.body["message"])
	require.Equal(t, "session-token", res.body["token"])
	require.NotContains(t, res.body["user"], "passwordHash")
}

func TestForgotPassword(t *testing.T) {
	auth := newFakeAuth()
	app := newTestApp(auth, &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/forgot-password", map[string]string{"email": "alice@example.com"})
	require.Equal(t, fiber.StatusOK, res.status)
	require.Equal(t, "Password reset link sent to your email.", res.body["message"])

	auth.forgot = func(string) error { return repository.ErrUserNotFound }
	res = do(t, app, "POST", "/api/auth/forgot-password", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, fiber.StatusNotFound, res.status)
}

func TestVerifyEmail(t *testing.T) {
	auth := newFakeAuth()
	app := newTestApp(auth, &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/verify-email", map[string]string{"token": "abc"})
	require.Equal(t, fiber.StatusOK, res.status)
	require.Equal(t, "Email verified successfully.", res.body["message"])

	auth.verify = func(string) error { return service.ErrInvalidToken }
	res = do(t, app, "POST", "/api/auth/verify-email", map[string]string{"token": "abc"})
	require.Equal(t, fiber.StatusBadRequest, res.status)
	require.Equal(t, "Invalid or expired token.", res.body["message"])

	auth.verify = func(string) error { return repository.ErrUserNotFound }
	res = do(t, app, "GET", "/api/auth/confirm?token=abc", nil)
	require.Equal(t, fiber.StatusNotFound, res.status)
	require.Equal(t, "User not found.", res.body["message"])

	res = do(t, app, "GET", "/api/auth/confirm", nil)
	require.Equal(t, fiber.StatusBadRequest, res.status)
}

func TestResetPassword_TokenFromPath(t *testing.T) {
	auth := newFakeAuth()
	app := newTestApp(auth, &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/reset-password/deadbeef", map[string]string{"password": "newpw1"})
	require.Equal(t, fiber.StatusOK, res.status)
	require.Equal(t, "deadbeef", auth.lastResetToken)

	auth.reset = func(string, string) error { return service.ErrInvalidToken }
	res = do(t, app, "POST", "/api/auth/reset-password", map[string]string{"token": "used", "password": "newpw1"})
	require.Equal(t, fiber.StatusBadRequest, res.status)
	require.Equal(t, "used", auth.lastResetToken)
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	auth := newFakeAuth()
	auth.resend = func(string) error { return service.ErrAlreadyVerified }
	app := newTestApp(auth, &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/resend-verification", map[string]string{"email": "alice@example.com"})
	require.Equal(t, fiber.StatusBadRequest, res.status)
}

func TestMe_RequiresSession(t *testing.T) {
	app := newTestApp(newFakeAuth(), &fakeCatalog{}, nil)

	res := do(t, app, "GET", "/api/auth/me", nil)
	require.Equal(t, fiber.StatusUnauthorized, res.status)

	res = do(t, app, "GET", "/api/auth/me", nil, "Authorization", "Token good")
	require.Equal(t, fiber.StatusUnauthorized, res.status)

	res = do(t, app, "GET", "/api/auth/me", nil, "Authorization", "Bearer bad")
	require.Equal(t, fiber.StatusUnauthorized, res.status)

	res = do(t, app, "GET", "/api/auth/me", nil, "Authorization", "Bearer good")
	require.Equal(t, fiber.StatusOK, res.status)
	require.Equal(t, "alice@example.com", res.body["user"].(map[string]any)["email"])
}

func TestMe_SessionCheckUsesConfiguredTimeout(t *testing.T) {
	auth := newFakeAuth()
	app := newTestAppWithTimeout(auth, &fakeCatalog{}, nil, 7*time.Second)

	before := time.Now()
	res := do(t, app, "GET", "/api/auth/me", nil, "Authorization", "Bearer good")
	require.Equal(t, fiber.StatusOK, res.status)

	deadline, ok := auth.authCtx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, before.Add(7*time.Second), deadline, 2*time.Second)
}

func TestMe_RevocationStoreDown(t *testing.T) {
	auth := newFakeAuth()
	auth.authenticate = func(string) (*token.Claims, error) { return nil, errors.New("redis down") }
	app := newTestApp(auth, &fakeCatalog{}, nil)

	res := do(t, app, "GET", "/api/auth/me", nil, "Authorization", "Bearer good")
	require.Equal(t, fiber.StatusInternalServerError, res.status)
}

func TestLogout(t *testing.T) {
	auth := newFakeAuth()
	var revoked string
	auth.logout = func(raw string) error {
		revoked = raw
		return nil
	}
	app := newTestApp(auth, &fakeCatalog{}, nil)

	res := do(t, app, "POST", "/api/auth/logout", nil, "Authorization", "Bearer good")
	require.Equal(t, fiber.StatusOK, res.status)
	require.Equal(t, "good", revoked)
}

func TestMenu(t *testing.T) {
	catalog := &fakeCatalog{menu: domain.DefaultMenu()}
	app := newTestApp(newFakeAuth(), catalog, nil)

	res := do(t, app, "GET", "/api/menu", nil)
	require.Equal(t, fiber.StatusOK, res.status)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(res.raw, &items))
	require.Len(t, items, len(domain.DefaultMenu()))
	require.Equal(t, "Rice", items[0]["name"])

	catalog.menuErr = errors.New("mongo down")
	res = do(t, app, "GET", "/api/menu", nil)
	require.Equal(t, fiber.StatusInternalServerError, res.status)
	require.Equal(t, "Failed to fetch menu items", res.body["message"])
}

func TestProductNotFound(t *testing.T) {
	app := newTestApp(newFakeAuth(), &fakeCatalog{}, nil)

	res := do(t, app, "GET", "/api/products/nope", nil)
	require.Equal(t, fiber.StatusNotFound, res.status)
}

func TestHTTPMetrics(t *testing.T) {
	metrics := middleware.NewHTTPMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.Collectors()...)

	app := newTestApp(newFakeAuth(), &fakeCatalog{}, metrics)

	do(t, app, "GET", "/api/products/a", nil)
	do(t, app, "GET", "/api/products/b", nil)
	do(t, app, "GET", "/health", nil)

	expected := `
# HELP shop_api_http_requests_total Count of processed HTTP requests
# TYPE shop_api_http_requests_total counter
shop_api_http_requests_total{method="GET",route="/api/products/:id",status="404"} 2
shop_api_http_requests_total{method="GET",route="/health",status="200"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "shop_api_http_requests_total"))
}

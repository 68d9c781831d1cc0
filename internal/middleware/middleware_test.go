package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"petalpaint/internal/middleware"
	"petalpaint/internal/models"
	"petalpaint/internal/repositories"
	"petalpaint/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func newProtectedApp() *fiber.App {
	// Token validation never touches the repository.
	var users repositories.UserRepository
	auth := services.NewAuthService(users, "secret", time.Hour, zap.NewNop())

	app := fiber.New()
	app.Get("/me", middleware.AuthRequired(auth, zap.NewNop()), func(c *fiber.Ctx) error {
		actor := middleware.ActorFrom(c)
		return c.SendString(actor.UserID + ":" + actor.Role)
	})
	app.Get("/admin", middleware.AuthRequired(auth, zap.NewNop()), middleware.AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	app := newProtectedApp()
	customer := signToken(t, jwt.MapClaims{"user_id": "u1", "role": models.RoleCustomer, "exp": time.Now().Add(time.Hour).Unix()})

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"malformed header", "/me", "Token " + customer, http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"bearer header", "/me", "Bearer " + customer, http.StatusOK},
		{"query token", "/me?token=" + customer, "", http.StatusOK},
		{"customer on admin route", "/admin", "Bearer " + customer, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestAdminOnlyAllowsAdmin(t *testing.T) {
	app := newProtectedApp()
	admin := signToken(t, jwt.MapClaims{"user_id": "a1", "role": models.RoleAdmin, "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := app.Test(req, -1)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.NewRateLimiter(1, 2).Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	var codes []int
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

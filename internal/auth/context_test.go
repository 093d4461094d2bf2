package auth

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithUserIDAndGetUserIDFromContext(t *testing.T) {
	t.Run("Store and retrieve user ID from context", func(t *testing.T) {
		ctx := WithUserID(context.Background(), uint(123))

		retrievedID, err := GetUserIDFromContext(ctx)
		assert.NoError(t, err)
		assert.Equal(t, uint(123), retrievedID)

		idStr, err := UserIDString(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "123", idStr)
	})

	t.Run("Error when user ID not in context", func(t *testing.T) {
		_, err := GetUserIDFromContext(context.Background())
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Contains(t, err.Error(), "not found in context")
	})

	t.Run("Error when context value is not uint", func(t *testing.T) {
		// Контекст с неправильным типом значения
		ctx := context.WithValue(context.Background(), userIDKey, "not-a-uint")

		_, err := GetUserIDFromContext(ctx)
		assert.Error(t, err)
	})
}

func TestExtractTokenFromHeader(t *testing.T) {
	t.Run("Valid Bearer token", func(t *testing.T) {
		assert.Equal(t, "token123", extractTokenFromHeader("Bearer token123"))
	})

	t.Run("Invalid format - no Bearer prefix", func(t *testing.T) {
		assert.Equal(t, "", extractTokenFromHeader("NotBearer token123"))
	})

	t.Run("Invalid format - no space", func(t *testing.T) {
		assert.Equal(t, "", extractTokenFromHeader("Bearertoken123"))
	})

	t.Run("Empty header", func(t *testing.T) {
		assert.Equal(t, "", extractTokenFromHeader(""))
	})
}

func newTestApp(secret string) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(secret))
	app.Get("/", func(c *fiber.Ctx) error {
		userID, err := GetUserIDFromContext(c.UserContext())
		if err != nil {
			return c.SendString("No user ID in context")
		}
		return c.SendString(fmt.Sprintf("User ID: %d", userID))
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) string {
	req := httptest.NewRequest("GET", "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMiddleware(t *testing.T) {
	testSecret := "test_jwt_secret"
	app := newTestApp(testSecret)

	t.Run("Valid token", func(t *testing.T) {
		tokenString, err := IssueToken(testSecret, 123, "testuser")
		require.NoError(t, err)

		assert.Equal(t, "User ID: 123", doRequest(t, app, "Bearer "+tokenString))
	})

	t.Run("Invalid token signature", func(t *testing.T) {
		tokenString, err := IssueToken("wrong_secret", 123, "testuser")
		require.NoError(t, err)

		assert.Equal(t, "No user ID in context", doRequest(t, app, "Bearer "+tokenString))
	})

	t.Run("Expired token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id":  float64(123),
			"username": "testuser",
			"exp":      time.Now().Add(-time.Hour).Unix(),
		})
		tokenString, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		assert.Equal(t, "No user ID in context", doRequest(t, app, "Bearer "+tokenString))
	})

	t.Run("No token", func(t *testing.T) {
		assert.Equal(t, "No user ID in context", doRequest(t, app, ""))
	})

	t.Run("Invalid token format", func(t *testing.T) {
		assert.Equal(t, "No user ID in context", doRequest(t, app, "InvalidFormat"))
	})

	t.Run("Empty secret ignores tokens", func(t *testing.T) {
		tokenString, err := IssueToken(testSecret, 123, "testuser")
		require.NoError(t, err)

		assert.Equal(t, "No user ID in context", doRequest(t, newTestApp(""), "Bearer "+tokenString))
	})
}

func TestIssueToken(t *testing.T) {
	t.Run("Error without secret", func(t *testing.T) {
		_, err := IssueToken("", 1, "user")
		assert.Error(t, err)
	})
}

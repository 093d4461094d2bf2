// internal/auth/context.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const userIDKey = contextKey("userID")

const tokenTTL = 72 * time.Hour

var ErrUnauthorized = errors.New("user ID not found in context")

// Сохраняет userID в контексте
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Достает userID из контекста
func GetUserIDFromContext(ctx context.Context) (uint, error) {
	val := ctx.Value(userIDKey)
	id, ok := val.(uint)
	if !ok {
		return 0, ErrUnauthorized
	}
	return id, nil
}

// UserIDString — то же самое, но в строковом виде, в котором ID хранятся в model
func UserIDString(ctx context.Context) (string, error) {
	id, err := GetUserIDFromContext(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(id), nil
}

// IssueToken подписывает JWT для пользователя
func IssueToken(secret string, userID uint, username string) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret is not set")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      time.Now().Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Middleware извлекает userID из JWT и помещает его в user context запроса.
// Запросы без токена или с невалидным токеном пропускаются дальше без userID,
// обработчики сами решают, нужна ли авторизация.
func Middleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := extractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if tokenStr == "" {
			return c.Next()
		}

		userID, err := parseToken(secret, tokenStr)
		if err != nil {
			return c.Next()
		}

		c.Locals("userID", userID)
		c.SetUserContext(WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

func parseToken(secret, tokenStr string) (uint, error) {
	if secret == "" {
		return 0, errors.New("JWT secret not set")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid claims")
	}

	idFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, errors.New("user_id claim missing")
	}
	return uint(idFloat), nil
}

func extractTokenFromHeader(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

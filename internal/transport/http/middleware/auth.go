package middleware

import (
	"github.com/fridday/backend/internal/core/ports"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SupabaseAuth authenticates the bearer token of each request. With a
// project JWT secret configured the token is verified locally (HS256,
// audience "authenticated"); otherwise verification is delegated to the
// auth backend. The resolved user and the raw token are stored in the
// request locals.
func SupabaseAuth(provider ports.AuthProvider, jwtSecret string, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "no authorization header",
			})
		}

		var (
			user *domain.AuthUser
			err  error
		)
		if jwtSecret != "" {
			user, err = verifyLocal(token, jwtSecret)
		} else {
			user, err = provider.GetUser(c.Context(), token)
		}
		if err != nil {
			log.Warnw("auth_rejected", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authentication credentials",
			})
		}

		c.Locals("user", user)
		c.Locals("access_token", token)
		return c.Next()
	}
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

func verifyLocal(tokenStr, secret string) (*domain.AuthUser, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience("authenticated"),
	)
	if err != nil || !tok.Valid {
		return nil, domain.ErrUnauthorized
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, domain.ErrUnauthorized
	}
	email, _ := claims["email"].(string)
	meta, _ := claims["user_metadata"].(map[string]interface{})

	return &domain.AuthUser{ID: sub, Email: email, UserMetadata: meta}, nil
}

package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/auth"
)

const bearerPrefix = "Bearer "

// JWTMiddleware authenticates the bearer token and stores the caller identity
// on the context.
func JWTMiddleware(key []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return fmt.Errorf("%w: missing bearer token", apperr.ErrUnauthenticated)
			}
			if !strings.HasPrefix(header, bearerPrefix) {
				return fmt.Errorf("%w: authorization header is not a bearer token", apperr.ErrUnauthenticated)
			}

			identity, err := auth.ValidateJWT(key, strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
			if err != nil {
				return err
			}
			auth.SetIdentity(c, identity)
			return next(c)
		}
	}
}

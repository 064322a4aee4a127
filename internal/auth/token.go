package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/recipient"
)

const contextKeyIdentity = "identity"

// JWTClaims is the token payload issued by the institution's auth layer.
type JWTClaims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller: who acts, and in which role.
type Identity struct {
	UserID string
	Role   recipient.Role
	Name   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == recipient.RoleAdmin
}

// GenerateJWT signs a token for id. The service itself only verifies tokens;
// minting is used by tests and local tooling.
func GenerateJWT(key []byte, id Identity, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID: id.UserID,
		Role:   string(id.Role),
		Name:   id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ValidateJWT verifies the signature and expiry of tokenString and returns the
// caller identity it carries.
func ValidateJWT(key []byte, tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}
	if claims.UserID == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", apperr.ErrUnauthenticated)
	}

	role, err := recipient.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: unknown role %q", apperr.ErrUnauthenticated, claims.Role)
	}

	return Identity{UserID: claims.UserID, Role: role, Name: claims.Name}, nil
}

// SetIdentity stores the authenticated caller on the echo context.
func SetIdentity(c echo.Context, id Identity) {
	c.Set(contextKeyIdentity, id)
}

// IdentityFrom returns the caller stored by the JWT middleware.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(contextKeyIdentity).(Identity)
	return id, ok
}

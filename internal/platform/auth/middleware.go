package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/session"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
	UserRoleKey contextKey = "user_role"
)

// ErrAuthRequired is returned for requests without a usable credential.
var ErrAuthRequired = apperr.New(apperr.ErrUnauthorized, "Authentication required")

// Claims are the JWT claims issued at login.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// Subject identifies the user a token is issued for.
type Subject struct {
	ID       string
	Username string
	Email    string
	Role     string
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer returns an issuer for tokens valid for ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "frat",
		now:    time.Now,
	}
}

// Issue signs a token for sub.
func (i *TokenIssuer) Issue(sub Subject) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Username: sub.Username,
		Email:    sub.Email,
		Role:     sub.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenStr and returns its claims.
func (i *TokenIssuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.New(apperr.ErrForbidden, "Token expired")
		}
		return nil, apperr.New(apperr.ErrForbidden, "Invalid token")
	}
	if !token.Valid {
		return nil, apperr.New(apperr.ErrForbidden, "Invalid token")
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c echo.Context) string {
	parts := strings.SplitN(c.Request().Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireToken rejects requests without a valid bearer token with 401, or
// with 403 when the token does not verify. Claims land on the request
// context.
func RequireToken(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := BearerToken(c)
			if tokenStr == "" {
				return apperr.New(apperr.ErrUnauthorized, "Access token required")
			}
			claims, err := issuer.Parse(tokenStr)
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(withClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// RequireSession admits requests whose session holds an access token, or
// that present a valid bearer token. The session token is checked for
// presence only.
func RequireSession(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if sess := session.FromContext(ctx); sess.Authenticated() {
				ctx = context.WithValue(ctx, UserIDKey, sess.UserID)
				ctx = context.WithValue(ctx, UsernameKey, sess.Username)
				ctx = context.WithValue(ctx, UserRoleKey, sess.Role)
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}
			if tokenStr := BearerToken(c); tokenStr != "" {
				if claims, err := issuer.Parse(tokenStr); err == nil {
					c.SetRequest(c.Request().WithContext(withClaims(ctx, claims)))
					return next(c)
				}
			}
			return ErrAuthRequired
		}
	}
}

func withClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
	ctx = context.WithValue(ctx, UsernameKey, claims.Username)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
	return ctx
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func UsernameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(UsernameKey).(string)
	return name
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SessionCookie carries the admin session token for browser clients.
const SessionCookie = "portal_session"

const sessionIssuer = "portal"

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// SessionIssuer mints and verifies HS256 admin session tokens.
type SessionIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewSessionIssuer(key []byte, ttl time.Duration) (*SessionIssuer, error) {
	if len(key) < 16 {
		return nil, fmt.Errorf("session signing key must be at least 16 bytes")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &SessionIssuer{key: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for userID and the claims it carries.
func (s *SessionIssuer) Issue(userID string, roles []string) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    sessionIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Roles: roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return token, claims, nil
}

func (s *SessionIssuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

func tokenFromRequest(c echo.Context) string {
	if h := c.Request().Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// SessionMiddleware authenticates the request from a bearer token or the
// session cookie. revoked may be nil.
func SessionMiddleware(issuer *SessionIssuer, revoked *RevocationStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok := tokenFromRequest(c)
			if tok == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			claims, err := issuer.Parse(tok)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}
			if revoked != nil && revoked.IsRevoked(claims.ID) {
				return echo.NewHTTPError(http.StatusUnauthorized, "session revoked")
			}

			ctx := withIdentity(c.Request().Context(), claims.Subject, claims.Roles)
			ctx = context.WithValue(ctx, SessionIDKey, claims)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthMiddleware grants the admin role to every request that carries no
// credentials. Requests with a token go through the session check.
func DevAuthMiddleware(issuer *SessionIssuer, revoked *RevocationStore) echo.MiddlewareFunc {
	session := SessionMiddleware(issuer, revoked)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		checked := session(next)
		return func(c echo.Context) error {
			if tokenFromRequest(c) != "" {
				return checked(c)
			}
			ctx := withIdentity(c.Request().Context(), "dev-admin", []string{RoleAdmin})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

package echoapi

import (
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/session"
)

const (
	authScheme        = "Bearer"
	contextSessionKey = "session"
)

// Claims are the parts of the backend issued access token naming the admin.
// The token is verified by the backend on every call; the console only reads it.
type Claims struct {
	jwt.StandardClaims
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
}

func (c Claims) Admin() core.Admin {
	return core.Admin{ID: c.Subject, Username: c.PreferredUsername, Email: c.Email}
}

func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	l := len(authScheme)
	if len(auth) > l+1 && strings.EqualFold(auth[:l], authScheme) {
		return strings.TrimSpace(auth[l+1:])
	}
	return ""
}

// parseClaims reads the claims of `token` without verifying its signature.
// Expired tokens and tokens not naming an admin are refused.
func parseClaims(token string) (*Claims, error) {
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	if err := claims.Valid(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// sessionMiddleware opens the session of the admin named by the request's bearer token.
func sessionMiddleware(sessions *session.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := bearerToken(ctx)
			if token == "" {
				return errUnauthorized
			}
			claims, err := parseClaims(token)
			if err != nil {
				return &echo.HTTPError{Code: errUnauthorized.Code, Message: errUnauthorized.Message, Internal: err}
			}
			s, err := sessions.Open(token, claims.Admin())
			if err != nil {
				return errors.Wrap(err, "opening session")
			}
			ctx.Set(contextSessionKey, s)
			return next(ctx)
		}
	}
}

func getContextSession(ctx echo.Context) (*session.Session, error) {
	if s, ok := ctx.Get(contextSessionKey).(*session.Session); ok {
		return s, nil
	}
	return nil, errNoSessionInCx
}

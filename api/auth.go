package api

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"codeflow-api/session"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errInvalidCredential    = errors.New("invalid or expired credential")
)

// bearerToken extracts the raw credential from an Authorization header
// value. The credential is dot-separated; anything else is rejected before
// it reaches the parser.
func bearerToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errMissingAuthorization
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errBadAuthorization
	}
	token := strings.TrimSpace(parts[1])
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}

// currentUser resolves the acting user's claims from the request credential.
// An absent, malformed, or expired credential reads as logged out.
func currentUser(c echo.Context, sessions *session.Manager) (*session.Claims, error) {
	token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return nil, err
	}
	if !sessions.Valid(token) {
		return nil, errInvalidCredential
	}
	return sessions.Parse(token), nil
}

package api

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// StaticTokenAuth authenticates requests against a single shared
// token. Real user authentication lives outside this service; the
// admin stream only needs to be unreachable for ordinary viewers.
type StaticTokenAuth struct {
	token string
}

// NewStaticTokenAuth creates an Authenticator for the given token.
func NewStaticTokenAuth(token string) *StaticTokenAuth {
	return &StaticTokenAuth{token: token}
}

// Authenticate checks a Bearer authorization header value.
func (a *StaticTokenAuth) Authenticate(authHeader string) error {
	raw := strings.TrimSpace(authHeader)
	if raw == "" {
		return errMissingAuthorization
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(raw, prefix) {
		return errBadAuthorization
	}
	token := raw[len(prefix):]
	if a.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return errBadAuthorization
	}
	return nil
}

package service

import (
	"crypto/subtle"
)

// Challenge is the WWW-Authenticate value sent with rejected requests.
const Challenge = "Bearer"

// AuthIface is the bearer gate used by the HTTP middleware and the gRPC
// interceptor.
type AuthIface interface {
	Enabled() bool
	Authorized(authorization string) bool
}

// BearerAuth accepts requests whose Authorization value is exactly
// "Bearer <secret>". With an empty secret every request is accepted.
type BearerAuth struct {
	expected []byte
}

func NewBearerAuth(secret string) *BearerAuth {
	if secret == "" {
		return &BearerAuth{}
	}

	return &BearerAuth{expected: []byte("Bearer " + secret)}
}

func (a *BearerAuth) Enabled() bool {
	return len(a.expected) > 0
}

// Authorized reports whether the Authorization header value passes.
func (a *BearerAuth) Authorized(authorization string) bool {
	if !a.Enabled() {
		return true
	}

	return subtle.ConstantTimeCompare([]byte(authorization), a.expected) == 1
}

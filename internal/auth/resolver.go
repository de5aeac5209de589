package auth

import (
	"context"
	"errors"
)

// Rejection reasons. Every one of them means the handshake is refused before
// any frame exchange and no registry entry is created.
var (
	ErrTokenMissing   = errors.New("auth: token missing")
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrBadSignature   = errors.New("auth: invalid signature")
	ErrUnknownUser    = errors.New("auth: unknown user")
)

// Identity is the resolved principal behind a handshake credential.
type Identity struct {
	UserID   int64
	Username string
}

// Resolver turns an opaque bearer credential into an identity or a tagged
// rejection. Transport handlers depend on this contract, never on the JWT
// implementation directly.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

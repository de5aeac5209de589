package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smarthunt/realtime-service/internal/store"
)

// UserLookup is the slice of the store the resolver needs.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*store.User, error)
}

type claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 access tokens carrying a user_id claim and
// confirms the user still exists.
type JWTResolver struct {
	secret []byte
	users  UserLookup
}

func NewJWTResolver(secret string, users UserLookup) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), users: users}
}

func (r *JWTResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrTokenMissing
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Identity{}, ErrBadSignature
		default:
			return Identity{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}
	if !parsed.Valid || c.UserID == 0 {
		return Identity{}, ErrTokenMalformed
	}

	user, err := r.users.GetUser(ctx, c.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, ErrUnknownUser
		}
		return Identity{}, err
	}

	return Identity{UserID: user.ID, Username: user.Username}, nil
}

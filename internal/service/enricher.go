package service

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/smarthunt/realtime-service/internal/store"
)

// Enricher resolves user ids to display names for event payloads.
type Enricher interface {
	Username(ctx context.Context, userID int64) (string, error)
}

// UserLookup is the slice of the store the enricher needs.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*store.User, error)
}

type ProfileEnricher struct {
	users UserLookup
	cache *lru.Cache[int64, string]
}

// NewProfileEnricher builds a thread-safe enricher with an LRU of hot
// identities in front of the store.
func NewProfileEnricher(users UserLookup) *ProfileEnricher {
	cache, _ := lru.New[int64, string](10000)
	return &ProfileEnricher{users: users, cache: cache}
}

func (e *ProfileEnricher) Username(ctx context.Context, userID int64) (string, error) {
	if name, ok := e.cache.Get(userID); ok {
		return name, nil
	}

	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("enrich user %d: %w", userID, err)
	}

	e.cache.Add(userID, user.Username)
	return user.Username, nil
}

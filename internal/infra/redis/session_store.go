package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"brawl-service/internal/domain"
)

// SessionStore resolves session tokens against the auth service's Redis
// session storage. Sessions are written by the auth collaborator as:
// SET brawl:session:{token} {"userId":...,"displayName":...} EX {ttl}
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err == redis.Nil {
		return domain.Identity{}, domain.ErrSessionInvalid
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("resolve session: %w", err)
	}
	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.Identity{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if id.UserID == "" {
		return domain.Identity{}, domain.ErrSessionInvalid
	}
	return id, nil
}

func (s *SessionStore) key(token string) string {
	return "brawl:session:" + token
}

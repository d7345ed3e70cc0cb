package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quizdesk/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps admin sessions in Redis so every instance sees the same logins.
// Sessions are stored as: SET quiz:admin:session:{token} {json} EX ttl
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Save(ctx context.Context, token string, session domain.AdminSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(token), payload, ttl).Err(); err != nil {
		return domain.Storage("save admin session", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (domain.AdminSession, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AdminSession{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.AdminSession{}, domain.Storage("load admin session", err)
	}
	var session domain.AdminSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.AdminSession{}, domain.ErrUnauthorized
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return domain.Storage("delete admin session", err)
	}
	return nil
}

func (s *SessionStore) key(token string) string {
	return "quiz:admin:session:" + token
}

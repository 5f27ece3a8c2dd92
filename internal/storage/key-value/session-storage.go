package key_value

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	sessionsKey  = "chat_sessions"
	maxTxRetries = 10
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type SessionStorage struct {
	rdb   *redis.Client
	limit int
}

func NewSessionStorage(rdb *redis.Client) *SessionStorage {
	return &SessionStorage{
		rdb:   rdb,
		limit: model.MaxStoredSessions,
	}
}

func (s *SessionStorage) ListSessions(ctx context.Context) ([]model.ChatSession, error) {
	return getSessions(ctx, s.rdb)
}

// SaveSession upserts session inside a WATCH transaction, retried when another writer
// got in first.
func (s *SessionStorage) SaveSession(ctx context.Context, session model.ChatSession) error {
	return s.update(
		ctx, func(sessions []model.ChatSession) []model.ChatSession {
			return model.UpsertSession(sessions, session, s.limit)
		},
	)
}

func (s *SessionStorage) DeleteSession(ctx context.Context, id string) error {
	return s.update(
		ctx, func(sessions []model.ChatSession) []model.ChatSession {
			return model.RemoveSession(sessions, id)
		},
	)
}

func (s *SessionStorage) ClearSessions(ctx context.Context) error {
	if err := s.rdb.Del(ctx, sessionsKey).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", sessionsKey, err)
	}
	return nil
}

func (s *SessionStorage) update(ctx context.Context, change func([]model.ChatSession) []model.ChatSession) error {
	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = s.updateOnce(ctx, change)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", sessionsKey, err)
	}
	return nil
}

// updateOnce fails with redis.TxFailedErr when another writer changed the list
// between the read and the write.
func (s *SessionStorage) updateOnce(ctx context.Context, change func([]model.ChatSession) []model.ChatSession) error {
	return s.rdb.Watch(
		ctx, func(tx *redis.Tx) error {
			sessions, err := getSessions(ctx, tx)
			if err != nil {
				return err
			}
			sessionsJSON, err := json.Marshal(change(sessions))
			if err != nil {
				return fmt.Errorf("failed to marshal sessions: %w", err)
			}
			_, err = tx.TxPipelined(
				ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, sessionsKey, sessionsJSON, 0)
					return nil
				},
			)
			return err
		}, sessionsKey,
	)
}

// getSessions treats a missing or unparseable list as empty.
func getSessions(ctx context.Context, rdb getter) ([]model.ChatSession, error) {
	sessionsRaw, err := rdb.Get(ctx, sessionsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return make([]model.ChatSession, 0), nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", sessionsKey, err)
	}
	var sessions []model.ChatSession
	if err = json.Unmarshal([]byte(sessionsRaw), &sessions); err != nil {
		return make([]model.ChatSession, 0), nil
	}
	model.SortSessions(sessions)
	return sessions, nil
}

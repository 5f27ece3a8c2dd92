package sqlite

import (
	"context"
	"fmt"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"gorm.io/gorm"
)

type SessionStorage struct {
	db    *gorm.DB
	limit int
}

func NewSessionStorage(db *gorm.DB) *SessionStorage {
	return &SessionStorage{
		db:    db,
		limit: model.MaxStoredSessions,
	}
}

// ListSessions loads sessions most recently modified first. Rows whose messages cannot
// be decoded are skipped.
func (s *SessionStorage) ListSessions(ctx context.Context) ([]model.ChatSession, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&chatSessionRow{}).
		Order("last_modified desc").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sessions := make([]model.ChatSession, 0, len(ids))
	for _, id := range ids {
		var row chatSessionRow
		if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		sessions = append(sessions, rowToSession(row))
	}
	model.SortSessions(sessions)
	return sessions, nil
}

func (s *SessionStorage) SaveSession(ctx context.Context, session model.ChatSession) error {
	row := sessionToRow(session)
	return s.db.WithContext(ctx).Transaction(
		func(tx *gorm.DB) error {
			if err := tx.Save(&row).Error; err != nil {
				return fmt.Errorf("failed to save session %s: %w", session.ID, err)
			}
			var ids []string
			if err := tx.Model(&chatSessionRow{}).Order("last_modified desc").Pluck("id", &ids).Error; err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(ids) <= s.limit {
				return nil
			}
			if err := tx.Where("id IN ?", ids[s.limit:]).Delete(&chatSessionRow{}).Error; err != nil {
				return fmt.Errorf("failed to evict sessions: %w", err)
			}
			return nil
		},
	)
}

func (s *SessionStorage) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&chatSessionRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (s *SessionStorage) ClearSessions(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&chatSessionRow{}).Error; err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}

func sessionToRow(session model.ChatSession) chatSessionRow {
	return chatSessionRow{
		ID:           session.ID,
		Title:        session.Title,
		Mode:         string(session.Mode),
		LastModified: session.LastModified,
		Messages:     session.Messages,
	}
}

func rowToSession(row chatSessionRow) model.ChatSession {
	messages := row.Messages
	if messages == nil {
		messages = make([]model.Message, 0)
	}
	return model.ChatSession{
		ID:           row.ID,
		Title:        row.Title,
		Mode:         model.ChatMode(row.Mode),
		LastModified: row.LastModified,
		Messages:     messages,
	}
}

package usecase

import (
	"context"
	"fmt"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/sirupsen/logrus"
)

// SessionStorage keeps the bounded list of stored chat sessions. Lists are ordered most
// recently modified first.
type SessionStorage interface {
	ListSessions(ctx context.Context) ([]model.ChatSession, error)
	SaveSession(ctx context.Context, session model.ChatSession) error
	DeleteSession(ctx context.Context, id string) error
	ClearSessions(ctx context.Context) error
}

type HistoryUsecaseDeps struct {
	SessionStorage SessionStorage
	Logger         *logrus.Logger
}

type HistoryUsecase struct {
	HistoryUsecaseDeps
}

func NewHistoryUsecase(deps HistoryUsecaseDeps) *HistoryUsecase {
	return &HistoryUsecase{
		HistoryUsecaseDeps: deps,
	}
}

// ListSessions returns stored sessions most recently modified first. Unreadable
// storage yields an empty list.
func (h *HistoryUsecase) ListSessions(ctx context.Context) ([]model.ChatSession, error) {
	sessions, err := h.SessionStorage.ListSessions(ctx)
	if err != nil {
		h.Logger.WithError(&model.PersistenceError{Op: "list", Err: err}).Warn("chat history is unreadable")
		return []model.ChatSession{}, nil
	}
	return sessions, nil
}

func (h *HistoryUsecase) GetSession(ctx context.Context, id string) (model.ChatSession, error) {
	sessions, err := h.ListSessions(ctx)
	if err != nil {
		return model.ChatSession{}, err
	}
	for _, session := range sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return model.ChatSession{}, model.ErrSessionNotFound
}

func (h *HistoryUsecase) DeleteSession(ctx context.Context, id string) error {
	if err := h.SessionStorage.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, &model.PersistenceError{Op: "delete", Err: err})
	}
	h.Logger.WithField("session_id", id).Info("chat session deleted")
	return nil
}

func (h *HistoryUsecase) ClearSessions(ctx context.Context) error {
	if err := h.SessionStorage.ClearSessions(ctx); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", &model.PersistenceError{Op: "clear", Err: err})
	}
	h.Logger.Info("chat history cleared")
	return nil
}

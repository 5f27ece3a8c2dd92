package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/iamvkosarev/legal-ai-assistant/pkg/local"
	"github.com/iamvkosarev/legal-ai-assistant/pkg/logger"
	"github.com/sirupsen/logrus"
)

type Connectivity interface {
	Online() bool
}

// ChatState is a snapshot of the conversation shown to the user.
type ChatState struct {
	SessionID string
	Mode      model.ChatMode
	Messages  []model.Message
	Loading   bool
	Language  model.Language
}

type ChatUsecaseDeps struct {
	Conversation   *ConversationUsecase
	User           *UserUsecase
	SessionStorage SessionStorage
	Connectivity   Connectivity
	Logger         *logrus.Logger
}

// ChatUsecase holds the visible conversation and turns user intents into turns on the
// active session. Every change of a message list with more than the greeting is saved.
type ChatUsecase struct {
	ChatUsecaseDeps
	now func() time.Time

	mu          sync.Mutex
	sessionID   string
	mode        model.ChatMode
	messages    []model.Message
	loading     bool
	language    model.Language
	subscribers map[int]chan ChatState
	nextSubID   int
}

func NewChatUsecase(deps ChatUsecaseDeps) *ChatUsecase {
	return &ChatUsecase{
		ChatUsecaseDeps: deps,
		now:             time.Now,
		mode:            model.ChatModeStandard,
		language:        model.LanguageEnglish,
		subscribers:     make(map[int]chan ChatState),
	}
}

func (c *ChatUsecase) State() ChatState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that always holds the latest state. Intermediate states
// are dropped for slow readers. The returned func unsubscribes.
func (c *ChatUsecase) Subscribe() (<-chan ChatState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	ch := make(chan ChatState, 1)
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(ch)
		}
	}
}

// StartNewChat drops the active session and opens a fresh one greeted by the assistant.
func (c *ChatUsecase) StartNewChat(ctx context.Context, mode model.ChatMode) error {
	profile := c.User.GetProfile(ctx)

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return model.ErrTurnInProgress
	}
	c.Conversation.Reset()
	c.sessionID = uuid.NewString()
	c.mode = mode
	c.language = profile.Language
	c.messages = []model.Message{
		{
			ID:        uuid.NewString(),
			Text:      local.Greeting(local.Language(profile.Language), c.now()),
			Sender:    model.SenderModel,
			Timestamp: c.now(),
		},
	}
	sessionID := c.sessionID
	c.publishLocked()
	c.mu.Unlock()

	if _, err := c.Conversation.Initialize(ctx, mode, profile); err != nil {
		return fmt.Errorf("failed to start chat: %w", err)
	}
	logger.WithSession(c.Logger, sessionID, string(mode)).Info("new chat started")
	return nil
}

// ResumeChat restores a stored session verbatim and replays its messages.
func (c *ChatUsecase) ResumeChat(ctx context.Context, session model.ChatSession) error {
	profile := c.User.GetProfile(ctx)
	mode := session.Mode
	if !mode.Valid() {
		mode = model.ChatModeStandard
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return model.ErrTurnInProgress
	}
	c.sessionID = session.ID
	c.mode = mode
	c.language = profile.Language
	c.messages = model.CloneMessages(session.Messages)
	messages := model.CloneMessages(c.messages)
	c.publishLocked()
	c.mu.Unlock()

	if _, err := c.Conversation.Resume(ctx, messages, mode, profile); err != nil {
		return fmt.Errorf("failed to resume chat: %w", err)
	}
	logger.WithSession(c.Logger, session.ID, string(mode)).
		WithField("messages", len(messages)).Info("chat resumed")
	return nil
}

// SwitchMode starts a new chat in mode unless it is already the current one.
func (c *ChatUsecase) SwitchMode(ctx context.Context, mode model.ChatMode) error {
	c.mu.Lock()
	current := c.mode
	c.mu.Unlock()
	if current == mode && c.Conversation.Active() != nil {
		return nil
	}
	return c.StartNewChat(ctx, mode)
}

func (c *ChatUsecase) ClearHistory(ctx context.Context) error {
	c.mu.Lock()
	mode := c.mode
	c.mu.Unlock()
	return c.StartNewChat(ctx, mode)
}

// SendMessage appends the user message and an empty reply, then streams the reply into
// it. Offline sends are rejected with model.ErrOffline before anything changes.
func (c *ChatUsecase) SendMessage(ctx context.Context, text string, attachments []model.Attachment) error {
	if !c.Connectivity.Online() {
		return model.ErrOffline
	}
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return nil
	}
	profile := c.User.GetProfile(ctx)

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return model.ErrTurnInProgress
	}
	now := c.now()
	c.messages = append(
		c.messages,
		model.Message{
			ID:          uuid.NewString(),
			Text:        text,
			Sender:      model.SenderUser,
			Timestamp:   now,
			Attachments: append([]model.Attachment(nil), attachments...),
		},
		model.Message{
			ID:        uuid.NewString(),
			Sender:    model.SenderModel,
			Timestamp: now,
		},
	)
	placeholderID := c.messages[len(c.messages)-1].ID
	c.loading = true
	mode := c.mode
	sessionID := c.sessionID
	c.persistLocked(ctx)
	c.publishLocked()
	c.mu.Unlock()

	_, err := c.Conversation.SendTurn(
		ctx, text, attachments, mode, profile,
		func(text string, grounding model.GroundingMetadata) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.patchLocked(
				placeholderID, func(msg *model.Message) {
					msg.Text = text
					if grounding != nil {
						msg.GroundingMetadata = grounding
					}
				},
			)
			c.persistLocked(ctx)
			c.publishLocked()
		},
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		logger.WithSession(c.Logger, sessionID, string(mode)).WithError(err).Error("failed to get reply")
		c.patchLocked(
			placeholderID, func(msg *model.Message) {
				msg.Text = local.StreamFailed.Text(local.Language(profile.Language))
				msg.IsError = true
			},
		)
		c.persistLocked(ctx)
	}
	c.publishLocked()
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// ShareLocation asks for legal help near the given coordinates.
func (c *ChatUsecase) ShareLocation(ctx context.Context, latitude, longitude float64) error {
	c.mu.Lock()
	language := c.language
	c.mu.Unlock()
	text := local.LocationRequest.Format(local.Language(language), latitude, longitude)
	return c.SendMessage(ctx, text, nil)
}

func (c *ChatUsecase) SetFeedback(ctx context.Context, messageID string, feedback model.Feedback) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := c.patchLocked(
		messageID, func(msg *model.Message) {
			msg.Feedback = feedback
		},
	)
	if !found {
		return model.ErrMessageNotFound
	}
	c.persistLocked(ctx)
	c.publishLocked()
	return nil
}

func (c *ChatUsecase) patchLocked(id string, patch func(msg *model.Message)) bool {
	for i := range c.messages {
		if c.messages[i].ID == id {
			patch(&c.messages[i])
			return true
		}
	}
	return false
}

func (c *ChatUsecase) persistLocked(ctx context.Context) {
	if len(c.messages) <= 1 || c.sessionID == "" {
		return
	}
	session := model.ChatSession{
		ID:           c.sessionID,
		Title:        model.GenerateTitle(c.messages),
		Messages:     model.CloneMessages(c.messages),
		Mode:         c.mode,
		LastModified: c.now().UnixMilli(),
	}
	if err := c.SessionStorage.SaveSession(ctx, session); err != nil {
		var persistErr *model.PersistenceError
		if !errors.As(err, &persistErr) {
			err = &model.PersistenceError{Op: "save", Err: err}
		}
		logger.WithSession(c.Logger, c.sessionID, string(c.mode)).WithError(err).Warn("failed to save chat session")
	}
}

func (c *ChatUsecase) snapshotLocked() ChatState {
	return ChatState{
		SessionID: c.sessionID,
		Mode:      c.mode,
		Messages:  model.CloneMessages(c.messages),
		Loading:   c.loading,
		Language:  c.language,
	}
}

func (c *ChatUsecase) publishLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	state := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}

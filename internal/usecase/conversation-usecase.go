package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/iamvkosarev/legal-ai-assistant/pkg/logger"
	"github.com/sirupsen/logrus"
)

// GenerationConfig is everything the remote service needs to open a connection.
type GenerationConfig struct {
	Model             string
	SystemInstruction string
	Temperature       float32
	Tools             []model.Tool
	ThinkingBudget    int
}

// Chunk is one streamed increment. Text holds only the new characters.
type Chunk struct {
	Text              string
	GroundingMetadata model.GroundingMetadata
}

type ChunkStream interface {
	// Recv returns io.EOF once the stream has completed.
	Recv() (Chunk, error)
	Close() error
}

type ChatConnection interface {
	SendStream(ctx context.Context, parts []model.Part) (ChunkStream, error)
	History() []model.Turn
}

type Generator interface {
	CreateChat(ctx context.Context, cfg GenerationConfig, history []model.Turn) (ChatConnection, error)
}

// IncrementFunc receives the full text accumulated so far and the grounding metadata of
// the latest chunk, or nil when the chunk had none.
type IncrementFunc func(text string, grounding model.GroundingMetadata)

// Session is the live handle to a remote conversation.
type Session struct {
	ID     string
	Mode   model.ChatMode
	Config GenerationConfig

	conn ChatConnection
	busy atomic.Bool
}

func (s *Session) History() []model.Turn {
	return s.conn.History()
}

type ConversationUsecaseDeps struct {
	Generator Generator
	Logger    *logrus.Logger
}

type ConversationUsecase struct {
	ConversationUsecaseDeps

	mu     sync.Mutex
	active *Session
}

func NewConversationUsecase(deps ConversationUsecaseDeps) *ConversationUsecase {
	return &ConversationUsecase{
		ConversationUsecaseDeps: deps,
	}
}

// GenerationConfigFor builds the connection config of a mode for the given profile.
func GenerationConfigFor(mode model.ChatMode, profile model.UserProfile) GenerationConfig {
	modeCfg := mode.Config()
	return GenerationConfig{
		Model:             modeCfg.Model,
		SystemInstruction: BuildSystemInstruction(mode, profile),
		Temperature:       modeCfg.Temperature,
		Tools:             modeCfg.Tools,
		ThinkingBudget:    modeCfg.ThinkingBudget,
	}
}

// Initialize opens a fresh session for mode and makes it the active one.
func (c *ConversationUsecase) Initialize(
	ctx context.Context,
	mode model.ChatMode,
	profile model.UserProfile,
) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open(ctx, mode, profile, nil)
}

// Resume opens a session whose history replays messages.
func (c *ConversationUsecase) Resume(
	ctx context.Context,
	messages []model.Message,
	mode model.ChatMode,
	profile model.UserProfile,
) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open(ctx, mode, profile, ReplayHistory(messages))
}

func (c *ConversationUsecase) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
}

// Active returns the current session handle or nil.
func (c *ConversationUsecase) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// GetOrCreate returns the active session when its mode matches, otherwise it
// initializes a new one.
func (c *ConversationUsecase) GetOrCreate(
	ctx context.Context,
	mode model.ChatMode,
	profile model.UserProfile,
) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil && c.active.Mode == mode {
		return c.active, nil
	}
	return c.open(ctx, mode, profile, nil)
}

func (c *ConversationUsecase) open(
	ctx context.Context,
	mode model.ChatMode,
	profile model.UserProfile,
	history []model.Turn,
) (*Session, error) {
	c.active = nil
	cfg := GenerationConfigFor(mode, profile)
	conn, err := c.Generator.CreateChat(ctx, cfg, history)
	if err != nil {
		return nil, err
	}
	session := &Session{
		ID:     uuid.NewString(),
		Mode:   mode,
		Config: cfg,
		conn:   conn,
	}
	c.active = session
	logger.WithSession(c.Logger, session.ID, string(mode)).WithField("history_turns", len(history)).
		Debug("chat session opened")
	return session, nil
}

// SendTurn streams one turn on the session for mode. onIncrement is called on the
// calling goroutine, in chunk order.
func (c *ConversationUsecase) SendTurn(
	ctx context.Context,
	text string,
	attachments []model.Attachment,
	mode model.ChatMode,
	profile model.UserProfile,
	onIncrement IncrementFunc,
) (string, error) {
	session, err := c.GetOrCreate(ctx, mode, profile)
	if err != nil {
		return "", err
	}
	if !session.busy.CompareAndSwap(false, true) {
		return "", model.ErrTurnInProgress
	}
	defer session.busy.Store(false)

	log := logger.WithSession(c.Logger, session.ID, string(mode))

	stream, err := session.conn.SendStream(ctx, TurnParts(text, attachments))
	if err != nil {
		log.WithError(err).Error("failed to start stream")
		return "", &model.StreamError{Err: err}
	}
	defer stream.Close()

	var currentAnswer string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.WithError(err).WithField("partial_len", len(currentAnswer)).Error("stream failed")
			return currentAnswer, &model.StreamError{Partial: currentAnswer, Err: err}
		}
		if chunk.Text == "" && chunk.GroundingMetadata == nil {
			continue
		}
		currentAnswer += chunk.Text
		if onIncrement != nil {
			onIncrement(currentAnswer, chunk.GroundingMetadata)
		}
	}
	log.WithField("answer_len", len(currentAnswer)).Debug("turn completed")
	return currentAnswer, nil
}

// TurnParts builds the payload of an outgoing turn: inline attachments first, then
// the text when it is not blank. Without attachments the text is sent as is.
func TurnParts(text string, attachments []model.Attachment) []model.Part {
	if len(attachments) == 0 {
		return []model.Part{{Text: text}}
	}
	parts := model.AttachmentParts(attachments)
	if strings.TrimSpace(text) != "" {
		parts = append(parts, model.Part{Text: text})
	}
	return parts
}

// ReplayHistory converts stored messages into connection history. Messages without
// text or attachments are dropped.
func ReplayHistory(messages []model.Message) []model.Turn {
	history := make([]model.Turn, 0, len(messages))
	for _, msg := range messages {
		parts := model.AttachmentParts(msg.Attachments)
		if msg.Text != "" {
			parts = append(parts, model.Part{Text: msg.Text})
		}
		if len(parts) == 0 {
			continue
		}
		sender := model.SenderModel
		if msg.Sender == model.SenderUser {
			sender = model.SenderUser
		}
		history = append(history, model.Turn{Sender: sender, Parts: parts})
	}
	return history
}

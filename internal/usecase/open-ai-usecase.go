package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/iamvkosarev/legal-ai-assistant/config"
	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	openai_tools "github.com/iamvkosarev/legal-ai-assistant/pkg/openai-tools"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const reasoningEffortHigh = "high"

type OpenAIUsecase struct {
	cfg    config.Generation
	logger *logrus.Logger
}

func NewOpenAIUsecase(cfg config.Generation, logger *logrus.Logger) *OpenAIUsecase {
	return &OpenAIUsecase{
		cfg:    cfg,
		logger: logger,
	}
}

func (gpt *OpenAIUsecase) client() (*openai.Client, error) {
	if gpt.cfg.APIKey == "" {
		return nil, &model.ConfigurationError{Setting: "API_KEY"}
	}
	clientConfig := openai.DefaultConfig(gpt.cfg.APIKey)
	if gpt.cfg.BaseURL != "" {
		clientConfig.BaseURL = gpt.cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig), nil
}

// CreateChat opens a connection seeded with history. No request is made until the
// first turn is sent.
func (gpt *OpenAIUsecase) CreateChat(_ context.Context, cfg GenerationConfig, history []model.Turn) (ChatConnection, error) {
	c, err := gpt.client()
	if err != nil {
		return nil, err
	}
	return &openAIChat{
		client:       c,
		cfg:          cfg,
		contextLimit: gpt.cfg.ContextTokenLimit,
		logger:       gpt.logger,
		history:      append([]model.Turn(nil), history...),
	}, nil
}

// Synthesize requests speech for text and returns base64 encoded 16-bit PCM.
func (gpt *OpenAIUsecase) Synthesize(ctx context.Context, text string) (string, error) {
	c, err := gpt.client()
	if err != nil {
		return "", err
	}
	resp, err := c.CreateSpeech(
		ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(gpt.cfg.SpeechModel),
			Input:          text,
			Voice:          openai.SpeechVoice(gpt.cfg.SpeechVoice),
			ResponseFormat: openai.SpeechResponseFormat("pcm"),
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return "", fmt.Errorf("failed to read speech: %w", err)
	}
	if len(audio) == 0 {
		return "", model.ErrMissingAudioData
	}
	return base64.StdEncoding.EncodeToString(audio), nil
}

type openAIChat struct {
	client       *openai.Client
	cfg          GenerationConfig
	contextLimit int
	logger       *logrus.Logger

	mu      sync.Mutex
	history []model.Turn
}

func (c *openAIChat) History() []model.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Turn(nil), c.history...)
}

func (c *openAIChat) SendStream(ctx context.Context, parts []model.Part) (ChunkStream, error) {
	userTurn := model.Turn{Sender: model.SenderUser, Parts: parts}

	messageHistory := c.buildMessages(userTurn)
	tokenCount, err := openai_tools.CountToken(messageHistory, c.cfg.Model)
	if err != nil {
		c.logger.WithError(err).Warn("failed to count tokens")
	} else {
		entry := c.logger.WithFields(logrus.Fields{"model": c.cfg.Model, "tokens": tokenCount})
		if c.contextLimit > 0 && tokenCount > c.contextLimit {
			entry.Warn("chat history exceeds the context token limit")
		} else {
			entry.Debug("sending turn")
		}
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(messageHistory))
	if err != nil {
		return nil, err
	}
	return &openAIStream{
		stream: stream,
		commit: func(answer string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.history = append(
				c.history,
				userTurn,
				model.Turn{Sender: model.SenderModel, Parts: []model.Part{{Text: answer}}},
			)
		},
	}, nil
}

func (c *openAIChat) buildRequest(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		TopP:        1,
		N:           1,
		Messages:    messages,
		Stream:      true,
	}
	for _, tool := range c.cfg.Tools {
		req.Tools = append(req.Tools, openai.Tool{Type: openai.ToolType(tool)})
	}
	if c.cfg.ThinkingBudget > 0 {
		req.ReasoningEffort = reasoningEffortHigh
	}
	return req
}

func (c *openAIChat) buildMessages(next model.Turn) []openai.ChatCompletionMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	messageHistory := make([]openai.ChatCompletionMessage, 0, len(c.history)+2)
	if c.cfg.SystemInstruction != "" {
		messageHistory = append(
			messageHistory, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: c.cfg.SystemInstruction,
			},
		)
	}
	for _, turn := range c.history {
		messageHistory = append(messageHistory, turnToMessage(turn))
	}
	return append(messageHistory, turnToMessage(next))
}

func turnToMessage(turn model.Turn) openai.ChatCompletionMessage {
	message := openai.ChatCompletionMessage{Role: parseSenderToRole(turn.Sender)}
	if len(turn.Parts) == 1 && turn.Parts[0].InlineData == nil {
		message.Content = turn.Parts[0].Text
		return message
	}
	for _, part := range turn.Parts {
		if part.InlineData != nil {
			message.MultiContent = append(
				message.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", part.InlineData.MIMEType, part.InlineData.Data),
					},
				},
			)
			continue
		}
		message.MultiContent = append(
			message.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: part.Text,
			},
		)
	}
	return message
}

func parseSenderToRole(sender model.Sender) string {
	switch sender {
	case model.SenderUser:
		return openai.ChatMessageRoleUser
	default:
		return openai.ChatMessageRoleAssistant
	}
}

type openAIStream struct {
	stream        *openai.ChatCompletionStream
	commit        func(answer string)
	currentAnswer string
}

func (s *openAIStream) Recv() (Chunk, error) {
	response, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		s.commit(s.currentAnswer)
		return Chunk{}, io.EOF
	}
	if err != nil {
		return Chunk{}, err
	}
	if len(response.Choices) == 0 {
		return Chunk{}, nil
	}
	delta := response.Choices[0].Delta.Content
	s.currentAnswer += delta
	return Chunk{Text: delta}, nil
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

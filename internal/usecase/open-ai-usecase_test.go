package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iamvkosarev/legal-ai-assistant/config"
	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamServer(t *testing.T, deltas []string, requests chan<- openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				var req openai.ChatCompletionRequest
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &req)
				requests <- req

				w.Header().Set("Content-Type", "text/event-stream")
				for _, delta := range deltas {
					chunk := openai.ChatCompletionStreamResponse{
						Choices: []openai.ChatCompletionStreamChoice{
							{Delta: openai.ChatCompletionStreamChoiceDelta{Content: delta}},
						},
					}
					data, _ := json.Marshal(chunk)
					_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
				}
				_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
			},
		),
	)
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIUsecase_CreateChatRequiresAPIKey(t *testing.T) {
	gpt := NewOpenAIUsecase(config.Generation{}, newTestLogger())

	_, err := gpt.CreateChat(context.Background(), GenerationConfig{}, nil)

	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "API_KEY", cfgErr.Setting)

	_, err = gpt.Synthesize(context.Background(), "hello")
	require.ErrorAs(t, err, &cfgErr)
}

func TestOpenAIUsecase_StreamCommitsHistoryOnCompletion(t *testing.T) {
	requests := make(chan openai.ChatCompletionRequest, 2)
	server := newStreamServer(t, []string{"Under ", "Section 35"}, requests)
	gpt := NewOpenAIUsecase(config.Generation{APIKey: "key", BaseURL: server.URL}, newTestLogger())
	gen := GenerationConfigFor(model.ChatModeDeepThink, model.DefaultUserProfile())

	conn, err := gpt.CreateChat(context.Background(), gen, nil)
	require.NoError(t, err)

	stream, err := conn.SendStream(context.Background(), []model.Part{{Text: "Can police detain me?"}})
	require.NoError(t, err)

	var got string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got += chunk.Text
	}
	require.NoError(t, stream.Close())
	assert.Equal(t, "Under Section 35", got)

	req := <-requests
	assert.Equal(t, "gemini-3-pro-preview", req.Model)
	assert.Equal(t, "high", req.ReasoningEffort)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "Can police detain me?", req.Messages[1].Content)
	assert.Empty(t, req.Tools)

	history := conn.History()
	require.Len(t, history, 2)
	assert.Equal(t, model.SenderUser, history[0].Sender)
	assert.Equal(t, "Under Section 35", history[1].Parts[0].Text)
}

func TestOpenAIUsecase_ReplayedHistoryAndAttachments(t *testing.T) {
	requests := make(chan openai.ChatCompletionRequest, 1)
	server := newStreamServer(t, []string{"ok"}, requests)
	gpt := NewOpenAIUsecase(config.Generation{APIKey: "key", BaseURL: server.URL}, newTestLogger())
	history := ReplayHistory(
		[]model.Message{
			{Sender: model.SenderModel, Text: "Good evening!"},
			{Sender: model.SenderUser, Text: "Hello"},
		},
	)

	conn, err := gpt.CreateChat(context.Background(), GenerationConfig{Model: "gemini-2.5-flash"}, history)
	require.NoError(t, err)

	parts := TurnParts("Read this", []model.Attachment{{MIMEType: "image/jpeg", Data: "abc"}})
	stream, err := conn.SendStream(context.Background(), parts)
	require.NoError(t, err)
	defer stream.Close()

	req := <-requests
	require.Len(t, req.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleAssistant, req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	last := req.Messages[2]
	require.Len(t, last.MultiContent, 2)
	assert.Equal(t, "data:image/jpeg;base64,abc", last.MultiContent[0].ImageURL.URL)
	assert.Equal(t, "Read this", last.MultiContent[1].Text)
	assert.Empty(t, req.ReasoningEffort)
}

func TestOpenAIUsecase_Synthesize(t *testing.T) {
	pcm := []byte{0x00, 0x40, 0x00, 0xC0}
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/audio/speech", r.URL.Path)
				_, _ = w.Write(pcm)
			},
		),
	)
	defer server.Close()
	gpt := NewOpenAIUsecase(
		config.Generation{APIKey: "key", BaseURL: server.URL, SpeechModel: "tts-1", SpeechVoice: "alloy"},
		newTestLogger(),
	)

	encoded, err := gpt.Synthesize(context.Background(), "Hello")

	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pcm), encoded)
}

func TestOpenAIUsecase_SynthesizeEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	gpt := NewOpenAIUsecase(
		config.Generation{APIKey: "key", BaseURL: server.URL, SpeechModel: "tts-1", SpeechVoice: "alloy"},
		newTestLogger(),
	)

	_, err := gpt.Synthesize(context.Background(), "Hello")

	assert.ErrorIs(t, err, model.ErrMissingAudioData)
}

package usecase

import (
	"strings"
	"testing"

	"github.com/iamvkosarev/legal-ai-assistant/config"
	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTelegramAnswer(t *testing.T) {
	reply := model.Message{
		Text: "**Section 35** protects you.\n\n```json\n{\"type\": \"flashcards\", \"cards\": [{\"front\": \"S.35\", \"back\": \"Liberty & freedom\"}]}\n```",
		GroundingMetadata: model.GroundingMetadata(
			`{"groundingChunks":[{"web":{"uri":"https://nigeria-law.org/a","title":"Constitution"}}]}`,
		),
	}

	got := renderTelegramAnswer(reply)

	assert.Contains(t, got, "<b>Section 35</b> protects you.")
	assert.Contains(t, got, "<b>Flashcards</b>")
	assert.Contains(t, got, "• <b>S.35</b>: Liberty &amp; freedom")
	assert.Contains(t, got, `1. <a href="https://nigeria-law.org/a">Constitution</a>`)
	assert.NotContains(t, got, "```")
}

func TestReplyAfter(t *testing.T) {
	state := ChatState{
		Messages: []model.Message{
			{ID: "greeting", Sender: model.SenderModel},
			{ID: "question", Sender: model.SenderUser},
			{ID: "answer", Sender: model.SenderModel, Text: "Yes"},
		},
	}

	reply, ok := replyAfter(state, 1)
	assert.True(t, ok)
	assert.Equal(t, "answer", reply.ID)

	_, ok = replyAfter(state, 2)
	assert.False(t, ok)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 3))
	got := truncateRunes(strings.Repeat("ọ", 10), 5)
	assert.Equal(t, "ọọọọ…", got)
}

func TestTelegramUsecase_Allowed(t *testing.T) {
	open := &TelegramUsecase{}
	assert.False(t, open.allowed(42))
	assert.False(t, open.allowed(0))

	owned := &TelegramUsecase{cfg: config.Telegram{OwnerChatID: 42}}
	assert.True(t, owned.allowed(42))
	assert.False(t, owned.allowed(7))
}

func TestNewTelegramUsecase_RequiresOwnerChat(t *testing.T) {
	_, err := NewTelegramUsecase(config.Telegram{TelegramAPIToken: "token"}, TelegramUsecaseDeps{})

	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "TELEGRAM_OWNER_CHAT_ID", cfgErr.Setting)
}

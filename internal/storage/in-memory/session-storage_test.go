package in_memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStorage_EvictsLeastRecentlyModified(t *testing.T) {
	ctx := context.Background()
	storage := NewSessionStorage()

	for i := 1; i <= model.MaxStoredSessions+1; i++ {
		require.NoError(
			t, storage.SaveSession(ctx, model.ChatSession{ID: fmt.Sprintf("s%d", i), LastModified: int64(i)}),
		)
	}

	sessions, err := storage.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, model.MaxStoredSessions)
	assert.Equal(t, "s21", sessions[0].ID)
	for _, session := range sessions {
		assert.NotEqual(t, "s1", session.ID)
	}
}

func TestSessionStorage_SaveReplacesAndCopies(t *testing.T) {
	ctx := context.Background()
	storage := NewSessionStorage()
	messages := []model.Message{{ID: "m1", Text: "Hi"}}

	require.NoError(t, storage.SaveSession(ctx, model.ChatSession{ID: "a", Title: "old", Messages: messages, LastModified: 1}))
	messages[0].Text = "mutated"
	require.NoError(t, storage.SaveSession(ctx, model.ChatSession{ID: "b", LastModified: 2}))
	require.NoError(t, storage.SaveSession(ctx, model.ChatSession{ID: "a", Title: "new", Messages: []model.Message{{ID: "m1", Text: "Hi"}}, LastModified: 3}))

	sessions, err := storage.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, "new", sessions[0].Title)
	assert.Equal(t, "Hi", sessions[0].Messages[0].Text)

	require.NoError(t, storage.DeleteSession(ctx, "a"))
	sessions, _ = storage.ListSessions(ctx)
	assert.Len(t, sessions, 1)

	require.NoError(t, storage.ClearSessions(ctx))
	sessions, _ = storage.ListSessions(ctx)
	assert.Empty(t, sessions)
}

func TestProfileStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewProfileStorage()

	profile, err := storage.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultUserProfile(), profile)

	want := model.UserProfile{Language: model.LanguageHausa, Dialect: model.DialectUS, Location: "Kano"}
	require.NoError(t, storage.SaveProfile(ctx, want))
	profile, err = storage.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, profile)
}

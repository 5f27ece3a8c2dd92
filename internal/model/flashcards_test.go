package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFlashcards(t *testing.T) {
	text := "Your rights dey here.\n\n```json\n{\n  \"type\": \"flashcards\",\n  \"cards\": [\n    {\"front\": \"Section 35\", \"back\": \"Right to personal liberty\"}\n  ]\n}\n```"

	display, cards := ExtractFlashcards(text)

	require.Len(t, cards, 1)
	assert.Equal(t, "Section 35", cards[0].Front)
	assert.Equal(t, "Right to personal liberty", cards[0].Back)
	assert.Equal(t, "Your rights dey here.", display)
}

func TestExtractFlashcards_NoDeck(t *testing.T) {
	text := "```json\n{\"type\": \"quiz\"}\n```"
	display, cards := ExtractFlashcards(text)
	assert.Nil(t, cards)
	assert.Equal(t, text, display)
}

func TestExtractFlashcards_MalformedJSON(t *testing.T) {
	text := "Intro ```json\n{\"type\": \"flashcards\", \"cards\": [oops}\n```"
	display, cards := ExtractFlashcards(text)
	assert.Nil(t, cards)
	assert.Equal(t, text, display)
}

package usecase

import (
	"testing"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestBuildSystemInstruction_ProfileBlock(t *testing.T) {
	profile := model.UserProfile{Language: model.LanguagePidgin, Dialect: model.DialectUS, Location: "Lagos"}

	got := BuildSystemInstruction(model.ChatModeStandard, profile)

	assert.Contains(t, got, "Your Legal AI")
	assert.Contains(t, got, "Preferred language: Pidgin")
	assert.Contains(t, got, "American (US)")
	assert.Contains(t, got, "located in Lagos")
	assert.Contains(t, got, "MODE: NORMAL CHAT")
}

func TestBuildSystemInstruction_NoProfile(t *testing.T) {
	got := BuildSystemInstruction(model.ChatModeResearch, model.UserProfile{})

	assert.NotContains(t, got, "USER PROFILE")
	assert.Contains(t, got, "NWLR")
}

func TestBuildSystemInstruction_GuidedLearningFlashcards(t *testing.T) {
	got := BuildSystemInstruction(model.ChatModeGuidedLearning, model.DefaultUserProfile())

	assert.Contains(t, got, "\"type\": \"flashcards\"")
	assert.NotContains(t, got, "located in")
}

func TestBuildSystemInstruction_IsPure(t *testing.T) {
	profile := model.UserProfile{Language: model.LanguageHausa, Location: "Kano"}
	assert.Equal(
		t,
		BuildSystemInstruction(model.ChatModeDeepThink, profile),
		BuildSystemInstruction(model.ChatModeDeepThink, profile),
	)
	assert.NotEqual(
		t,
		BuildSystemInstruction(model.ChatModeDeepThink, profile),
		BuildSystemInstruction(model.ChatModeResearch, profile),
	)
}

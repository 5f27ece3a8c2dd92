package model

import (
	"encoding/json"
	"regexp"
	"strings"
)

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

var flashcardBlock = regexp.MustCompile("(?i)```json\\s*(\\{[\\s\\S]*?\"type\":\\s*\"flashcards\"[\\s\\S]*?\\})\\s*```")

// ExtractFlashcards splits a guided-learning reply into display text and its trailing
// flashcard deck. Text without a valid deck is returned unchanged.
func ExtractFlashcards(text string) (string, []Flashcard) {
	match := flashcardBlock.FindStringSubmatchIndex(text)
	if match == nil {
		return text, nil
	}
	var deck struct {
		Type  string      `json:"type"`
		Cards []Flashcard `json:"cards"`
	}
	if err := json.Unmarshal([]byte(text[match[2]:match[3]]), &deck); err != nil {
		return text, nil
	}
	if deck.Type != "flashcards" || deck.Cards == nil {
		return text, nil
	}
	display := strings.TrimSpace(text[:match[0]] + text[match[1]:])
	return display, deck.Cards
}

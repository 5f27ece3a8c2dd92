package model

import (
	"sort"
	"unicode/utf8"
)

const (
	MaxStoredSessions = 20
	titleMaxRunes     = 40
	titleEllipsis     = "..."
	untitledChat      = "New Chat"
)

// GenerateTitle derives a session title from the first user message, falling back to
// the first message of the list.
func GenerateTitle(messages []Message) string {
	if len(messages) == 0 {
		return untitledChat
	}
	source := messages[0]
	for _, msg := range messages {
		if msg.Sender == SenderUser {
			source = msg
			break
		}
	}
	return titleFromText(source.Text)
}

func titleFromText(text string) string {
	if text == "" {
		return untitledChat
	}
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}
	return string([]rune(text)[:titleMaxRunes]) + titleEllipsis
}

// SortSessions orders sessions most-recently-modified first and their messages
// chronologically.
func SortSessions(sessions []ChatSession) {
	for i := range sessions {
		messages := sessions[i].Messages
		sort.SliceStable(
			messages, func(a, b int) bool {
				return messages[a].Timestamp.Before(messages[b].Timestamp)
			},
		)
	}
	sort.SliceStable(
		sessions, func(i, j int) bool {
			return sessions[i].LastModified > sessions[j].LastModified
		},
	)
}

// UpsertSession replaces the session with the same ID or adds it, then keeps at most
// limit sessions, evicting the least recently modified ones.
func UpsertSession(sessions []ChatSession, session ChatSession, limit int) []ChatSession {
	result := make([]ChatSession, 0, len(sessions)+1)
	result = append(result, session)
	for _, s := range sessions {
		if s.ID != session.ID {
			result = append(result, s)
		}
	}
	sort.SliceStable(
		result, func(i, j int) bool {
			return result[i].LastModified > result[j].LastModified
		},
	)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func RemoveSession(sessions []ChatSession, id string) []ChatSession {
	result := make([]ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if s.ID != id {
			result = append(result, s)
		}
	}
	return result
}

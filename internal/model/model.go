package model

import "fmt"

type ChatMode string

const (
	ChatModeStandard       = ChatMode("standard")
	ChatModeDeepThink      = ChatMode("deep_think")
	ChatModeResearch       = ChatMode("research")
	ChatModeGuidedLearning = ChatMode("guided_learning")
)

var ChatModes = []ChatMode{ChatModeStandard, ChatModeDeepThink, ChatModeResearch, ChatModeGuidedLearning}

type Tool string

const (
	ToolGoogleSearch = Tool("google_search")
	ToolGoogleMaps   = Tool("google_maps")
)

// ModeConfig is the fixed configuration bundle of a chat mode.
type ModeConfig struct {
	Label          string
	Description    string
	Model          string
	Tools          []Tool
	Temperature    float32
	ThinkingBudget int
}

const deepThinkBudget = 32768

var modeConfigs = map[ChatMode]ModeConfig{
	ChatModeStandard: {
		Label:       "Normal Chat",
		Description: "Fast answers for everyday legal questions.",
		Model:       "gemini-2.5-flash",
		Tools:       []Tool{ToolGoogleSearch},
		Temperature: 0.7,
	},
	ChatModeDeepThink: {
		Label:          "Deep Thinking",
		Description:    "Complex analysis. I go think well well and give you full legal backing.",
		Model:          "gemini-3-pro-preview",
		Temperature:    1.0,
		ThinkingBudget: deepThinkBudget,
	},
	ChatModeResearch: {
		Label:       "Research Mode",
		Description: "Deep dive with NWLR citations and Google Search.",
		Model:       "gemini-3-flash-preview",
		Tools:       []Tool{ToolGoogleSearch},
		Temperature: 0.7,
	},
	ChatModeGuidedLearning: {
		Label:       "Guided Learning",
		Description: "Learn law with flashcards and simple guides.",
		Model:       "gemini-2.5-flash",
		Tools:       []Tool{ToolGoogleMaps},
		Temperature: 0.7,
	},
}

func (m ChatMode) Config() ModeConfig {
	cfg, ok := modeConfigs[m]
	if !ok {
		cfg = modeConfigs[ChatModeStandard]
	}
	cfg.Tools = append([]Tool(nil), cfg.Tools...)
	return cfg
}

func (m ChatMode) Valid() bool {
	_, ok := modeConfigs[m]
	return ok
}

func ParseChatMode(s string) (ChatMode, error) {
	mode := ChatMode(s)
	if !mode.Valid() {
		return "", fmt.Errorf("unknown chat mode %q", s)
	}
	return mode, nil
}

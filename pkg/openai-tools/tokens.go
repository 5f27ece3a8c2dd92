package openai_tools

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
)

const (
	fallbackEncoding = "cl100k_base"
	tokensPerMessage = 3
	tokensPerName    = 1
	tokensPerReply   = 3
	// Inline images and documents are billed per part, not by their base64 length.
	tokensPerInlinePart = 258
)

// CountToken estimates the prompt size of messages. Models unknown to tiktoken are
// counted with the cl100k encoding.
func CountToken(messages []openai.ChatCompletionMessage, model string) (int, error) {
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return 0, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	numTokens := 0
	for _, message := range messages {
		numTokens += tokensPerMessage
		numTokens += len(tkm.Encode(message.Role, nil, nil))
		numTokens += len(tkm.Encode(message.Content, nil, nil))
		for _, part := range message.MultiContent {
			if part.Type == openai.ChatMessagePartTypeText {
				numTokens += len(tkm.Encode(part.Text, nil, nil))
			} else {
				numTokens += tokensPerInlinePart
			}
		}
		if message.Name != "" {
			numTokens += len(tkm.Encode(message.Name, nil, nil))
			numTokens += tokensPerName
		}
	}
	numTokens += tokensPerReply
	return numTokens, nil
}

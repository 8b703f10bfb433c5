package llm

import (
	"strings"

	"github.com/openai/openai-go"
)

// OpenAIMessages maps generic turns onto the OpenAI chat schema. Roles map
// one to one; history entries stay plain text (only the current turn may be
// promoted to multipart content, see the adapter).
func OpenAIMessages(turns []Turn) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	return messages
}

// AnthropicMessages maps generic turns onto the Anthropic content-block
// schema. Anthropic history knows only user and assistant, so system turns
// fold into assistant (one-directional, by contract).
func AnthropicMessages(turns []Turn) []AnthropicMessage {
	messages := make([]AnthropicMessage, 0, len(turns))
	for _, turn := range turns {
		role := turn.Role
		if role == RoleSystem {
			role = RoleAssistant
		}
		messages = append(messages, AnthropicMessage{
			Role: role,
			Content: []AnthropicContentBlock{
				{Type: "text", Text: turn.Content},
			},
		})
	}
	return messages
}

// TurnsFromAnthropic converts Anthropic messages back to generic turns,
// joining multiple text blocks. Image blocks carry no text and are skipped.
func TurnsFromAnthropic(messages []AnthropicMessage) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, msg := range messages {
		parts := make([]string, 0, len(msg.Content))
		for _, block := range msg.Content {
			if block.Type == "text" {
				parts = append(parts, block.Text)
			}
		}
		turns = append(turns, Turn{
			Role:    msg.Role,
			Content: strings.Join(parts, "\n"),
		})
	}
	return turns
}

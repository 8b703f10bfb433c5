package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicMessages_FoldsSystemIntoAssistant(t *testing.T) {
	turns := []Turn{
		{Role: RoleSystem, Content: "You are a support bot."},
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleAssistant, Content: "Hello, how can I help?"},
	}

	messages := AnthropicMessages(turns)
	require.Len(t, messages, 3)
	assert.Equal(t, RoleAssistant, messages[0].Role)
	assert.Equal(t, RoleUser, messages[1].Role)
	assert.Equal(t, RoleAssistant, messages[2].Role)

	require.Len(t, messages[0].Content, 1)
	assert.Equal(t, "text", messages[0].Content[0].Type)
	assert.Equal(t, "You are a support bot.", messages[0].Content[0].Text)
}

func TestTurnsFromAnthropic_JoinsTextBlocks(t *testing.T) {
	messages := []AnthropicMessage{
		{
			Role: RoleAssistant,
			Content: []AnthropicContentBlock{
				{Type: "text", Text: "part one"},
				{Type: "text", Text: "part two"},
			},
		},
		{
			Role: RoleUser,
			Content: []AnthropicContentBlock{
				{Type: "image", Source: &AnthropicImageSource{Type: "base64"}},
				{Type: "text", Text: "what is this?"},
			},
		},
	}

	turns := TurnsFromAnthropic(messages)
	require.Len(t, turns, 2)
	assert.Equal(t, "part one\npart two", turns[0].Content)
	assert.Equal(t, "what is this?", turns[1].Content)
}

func TestAnthropicRoundTrip(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Content: "ping"},
		{Role: RoleAssistant, Content: "pong"},
	}
	assert.Equal(t, turns, TurnsFromAnthropic(AnthropicMessages(turns)))
}

func TestOpenAIMessages_PreservesRoles(t *testing.T) {
	turns := []Turn{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}

	messages := OpenAIMessages(turns)
	require.Len(t, messages, 3)
	assert.NotNil(t, messages[0].OfSystem)
	assert.NotNil(t, messages[1].OfUser)
	assert.NotNil(t, messages[2].OfAssistant)
}

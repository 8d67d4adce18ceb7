package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiko/internal/models"
)

func TestBuildSystemPrompt(t *testing.T) {
	t.Run("with name", func(t *testing.T) {
		system := buildSystemPrompt("Mika")
		assert.Contains(t, system, "You are Mika")
		assert.Contains(t, system, "personal AI assistant")
	})

	t.Run("default name", func(t *testing.T) {
		system := buildSystemPrompt("")
		assert.Contains(t, system, "You are Aiko")
	})
}

func TestBuildMessages(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello!"},
		{Role: models.RoleSystem, Content: "internal note"},
	}

	msgs := buildMessages(history, "how are you?")

	// System-role history is dropped; persona travels in the system prompt.
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
}

func TestBuildMessages_EmptyHistory(t *testing.T) {
	msgs := buildMessages(nil, "first message")
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", string(msgs[0].Role))
}

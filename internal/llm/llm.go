package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"aiko/internal/models"
)

const maxReplyTokens = 1024

// Client wraps the Anthropic API for conversational replies.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildSystemPrompt constructs the assistant persona prompt.
func buildSystemPrompt(name string) string {
	if name == "" {
		name = "Aiko"
	}
	var sb strings.Builder
	sb.WriteString("You are ")
	sb.WriteString(name)
	sb.WriteString(", a personal AI assistant chatting over a messaging app.\n\n")
	sb.WriteString(`Rules:
- Be warm, concise, and practical; this is a chat, not an essay
- Remember the conversation history you are given and stay consistent with it
- Plain text only: no markdown headings or code fences unless the user asks for code
- If you cannot do something, say so briefly instead of inventing a result`)
	return sb.String()
}

// buildMessages converts stored history plus the new user message into API
// message params, oldest first.
func buildMessages(history []models.Message, userMsg string) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case models.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)))
	return msgs
}

// Reply sends the conversation to the LLM and returns the assistant's
// next message.
func (c *Client) Reply(ctx context.Context, assistantName string, history []models.Message, userMsg string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxReplyTokens,
		System: []anthropic.TextBlockParam{
			{Text: buildSystemPrompt(assistantName)},
		},
		Messages: buildMessages(history, userMsg),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return strings.TrimSpace(text), nil
}

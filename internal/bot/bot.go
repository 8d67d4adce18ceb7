package bot

import (
	"context"
	"time"
	"unicode/utf8"

	"aiko/internal/models"
	"aiko/internal/output"
	"aiko/internal/selfupdate"
	"aiko/internal/store"
)

const (
	historyLimit   = 30
	maxMessageSize = 4000
	pollRetryDelay = 5 * time.Second
)

// LLM produces the assistant's next reply from conversation history.
type LLM interface {
	Reply(ctx context.Context, assistantName string, history []models.Message, userMsg string) (string, error)
}

// UpdateTrigger is the orchestrator's on-demand entry point.
type UpdateTrigger interface {
	Trigger(ctx context.Context)
}

// Bot is the conversational front-end: it polls the transport, routes
// every inbound message through the update intent classifier first, and
// otherwise generates a reply via the LLM with persisted history.
type Bot struct {
	messenger Messenger
	llm       LLM
	updater   UpdateTrigger
	store     store.Store
	ui        *output.UI

	name        string
	allowedChat string // restrict to one chat ID; empty allows any
}

// New creates the bot loop.
func New(m Messenger, llm LLM, updater UpdateTrigger, st store.Store, ui *output.UI, name, allowedChat string) *Bot {
	return &Bot{
		messenger:   m,
		llm:         llm,
		updater:     updater,
		store:       st,
		ui:          ui,
		name:        name,
		allowedChat: allowedChat,
	}
}

// Run polls for messages until the context is cancelled. Poll errors are
// logged and retried; a broken network never stops the loop.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		msgs, next, err := b.messenger.Poll(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.ui.VerboseLog("poll failed: %v", err)
			select {
			case <-time.After(pollRetryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		offset = next
		for _, msg := range msgs {
			b.handleMessage(ctx, msg)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg Incoming) {
	if b.allowedChat != "" && msg.ChatID != b.allowedChat {
		b.ui.VerboseLog("ignoring message from unknown chat %s", msg.ChatID)
		return
	}

	// Update requests are routed to the orchestrator instead of reply
	// generation. The orchestrator acknowledges via its notify channel and
	// runs on its own goroutine so message intake never blocks on the
	// network.
	if decision := selfupdate.ClassifyUpdateIntent(msg.Text); decision.IsUpdateRequest {
		b.ui.VerboseLog("update intent matched %q", decision.MatchedPhrase)
		go b.updater.Trigger(context.WithoutCancel(ctx))
		return
	}

	reply, err := b.converse(ctx, msg)
	if err != nil {
		b.ui.Error("reply generation failed: %v", err)
		reply = "Hmm, something went wrong on my end. Mind trying that again?"
	}
	b.send(ctx, msg.ChatID, reply)
}

// converse persists the user message, builds the prompt from recent
// history, and persists the assistant's reply.
func (b *Bot) converse(ctx context.Context, msg Incoming) (string, error) {
	conv, err := b.store.GetOrCreateConversation(ctx, msg.ChatID, msg.From)
	if err != nil {
		return "", err
	}

	history, err := b.store.RecentMessages(ctx, conv.ID, historyLimit)
	if err != nil {
		return "", err
	}

	if err := b.store.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        msg.Text,
	}); err != nil {
		return "", err
	}

	reply, err := b.llm.Reply(ctx, b.name, history, msg.Text)
	if err != nil {
		return "", err
	}

	if err := b.store.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleAssistant,
		Content:        reply,
	}); err != nil {
		return "", err
	}
	return reply, nil
}

func (b *Bot) send(ctx context.Context, chatID, text string) {
	for _, chunk := range splitMessage(text, maxMessageSize) {
		if err := b.messenger.Send(ctx, chatID, chunk); err != nil {
			b.ui.Error("send failed: %v", err)
			return
		}
	}
}

// splitMessage splits text into chunks no longer than size, preferring
// newline boundaries so replies stay readable. Chunks never cut a rune
// in half; the transport rejects invalid UTF-8 outright.
func splitMessage(text string, size int) []string {
	if len(text) <= size {
		return []string{text}
	}
	var chunks []string
	for len(text) > size {
		cut := size
		for i := size; i > size/2; i-- {
			if text[i-1] == '\n' {
				cut = i
				break
			}
		}
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			// size smaller than one rune; take the bytes as-is.
			cut = size
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

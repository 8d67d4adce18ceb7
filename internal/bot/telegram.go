package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	telegramAPIBase = "https://api.telegram.org"
	longPollSeconds = 50
)

// Incoming is one user message received from the transport.
type Incoming struct {
	UpdateID int64
	ChatID   string
	From     string
	Text     string
}

// Messenger is the messaging transport the bot loop runs on. Telegram in
// production, a fake in tests.
type Messenger interface {
	// Poll blocks (long-poll) until messages arrive or the timeout lapses,
	// returning the messages and the next poll offset.
	Poll(ctx context.Context, offset int64) ([]Incoming, int64, error)
	Send(ctx context.Context, chatID, text string) error
}

// TelegramClient talks to the Telegram Bot API. The API is a two-method
// REST surface (getUpdates/sendMessage), called directly over net/http.
type TelegramClient struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewTelegramClient creates a client for the given bot token.
func NewTelegramClient(token string) *TelegramClient {
	return &TelegramClient{
		token:   token,
		baseURL: telegramAPIBase,
		client: &http.Client{
			// Longer than the long-poll window so the server closes first.
			Timeout: (longPollSeconds + 10) * time.Second,
		},
	}
}

type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			FirstName string `json:"first_name"`
		} `json:"from"`
	} `json:"message"`
}

type telegramResponse struct {
	OK          bool             `json:"ok"`
	Description string           `json:"description"`
	Result      []telegramUpdate `json:"result"`
}

// Poll long-polls getUpdates starting at offset.
func (c *TelegramClient) Poll(ctx context.Context, offset int64) ([]Incoming, int64, error) {
	q := url.Values{}
	q.Set("timeout", strconv.Itoa(longPollSeconds))
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/bot%s/getUpdates?%s", c.baseURL, c.token, q.Encode()), nil)
	if err != nil {
		return nil, offset, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, offset, fmt.Errorf("getUpdates: %w", err)
	}
	defer resp.Body.Close()

	var parsed telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, offset, fmt.Errorf("decode getUpdates response: %w", err)
	}
	if !parsed.OK {
		return nil, offset, fmt.Errorf("getUpdates: %s", parsed.Description)
	}

	next := offset
	var messages []Incoming
	for _, u := range parsed.Result {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
		if u.Message == nil || u.Message.Text == "" {
			continue // non-text updates are skipped, not errors
		}
		messages = append(messages, Incoming{
			UpdateID: u.UpdateID,
			ChatID:   strconv.FormatInt(u.Message.Chat.ID, 10),
			From:     u.Message.From.FirstName,
			Text:     u.Message.Text,
		})
	}
	return messages, next, nil
}

// Send posts a text message to a chat.
func (c *TelegramClient) Send(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer resp.Body.Close()

	var parsed telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode sendMessage response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("sendMessage: %s", parsed.Description)
	}
	return nil
}

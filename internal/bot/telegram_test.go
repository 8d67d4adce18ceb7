package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTelegram(t *testing.T, handler http.HandlerFunc) *TelegramClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewTelegramClient("test-token")
	c.baseURL = srv.URL
	return c
}

func TestTelegramPoll(t *testing.T) {
	c := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/getUpdates", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":7,"message":{"text":"hello","chat":{"id":12345},"from":{"first_name":"Joe"}}},
			{"update_id":8},
			{"update_id":9,"message":{"text":"update","chat":{"id":12345},"from":{"first_name":"Joe"}}}
		]}`))
	})

	msgs, next, err := c.Poll(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(10), next)
	require.Len(t, msgs, 2, "updates without a text message are skipped")
	assert.Equal(t, "12345", msgs[0].ChatID)
	assert.Equal(t, "Joe", msgs[0].From)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "update", msgs[1].Text)
}

func TestTelegramPoll_APIError(t *testing.T) {
	c := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	})

	_, _, err := c.Poll(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestTelegramSend(t *testing.T) {
	var got map[string]string
	c := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, c.Send(context.Background(), "12345", "hi there"))
	assert.Equal(t, "12345", got["chat_id"])
	assert.Equal(t, "hi there", got["text"])
}

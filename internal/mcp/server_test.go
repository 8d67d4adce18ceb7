package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiko/internal/models"
	"aiko/internal/selfupdate"
	"aiko/internal/store"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockLLM struct {
	reply    string
	err      error
	calls    int
	lastMsg  string
	lastHist []models.Message
}

func (m *mockLLM) Reply(_ context.Context, _ string, history []models.Message, userMsg string) (string, error) {
	m.calls++
	m.lastMsg = userMsg
	m.lastHist = history
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type mockChecker struct {
	result selfupdate.CheckResult
	calls  int
}

func (m *mockChecker) CheckForUpdates(_ context.Context) selfupdate.CheckResult {
	m.calls++
	return m.result
}

type mockApplier struct {
	result selfupdate.ApplyResult
	calls  int
}

func (m *mockApplier) Apply(_ context.Context) selfupdate.ApplyResult {
	m.calls++
	return m.result
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newTestServer creates a Server backed by a real SQLite store and mock
// model and update dependencies.
func newTestServer(t *testing.T) (*Server, store.Store, *mockLLM, *mockChecker, *mockApplier) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "aiko.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	llm := &mockLLM{reply: "hello there"}
	checker := &mockChecker{}
	applier := &mockApplier{}

	srv := NewServer(s, llm, checker, applier, "Aiko", "1.2.3")
	return srv, s, llm, checker, applier
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "result should be valid JSON: %s", text)
}

// ---------------------------------------------------------------------------
// Tests: server wiring
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv, "MCPServer() should return non-nil")
}

// ---------------------------------------------------------------------------
// Tests: aiko_chat
// ---------------------------------------------------------------------------

func TestHandleChat(t *testing.T) {
	srv, _, llm, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("aiko_chat", map[string]any{"message": "good morning"})
	result, err := srv.handleChat(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	assert.Equal(t, "hello there", resultText(t, result))
	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, "good morning", llm.lastMsg)
}

func TestHandleChat_MissingMessage(t *testing.T) {
	srv, _, llm, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("aiko_chat", nil)
	result, err := srv.handleChat(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, 0, llm.calls)
}

func TestHandleChat_PersistsHistory(t *testing.T) {
	srv, s, llm, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("aiko_chat", map[string]any{"message": "first"})
	_, err := srv.handleChat(ctx, req)
	require.NoError(t, err)

	req = callToolReq("aiko_chat", map[string]any{"message": "second"})
	_, err = srv.handleChat(ctx, req)
	require.NoError(t, err)

	// The second call sees the first exchange as context.
	require.Len(t, llm.lastHist, 2)
	assert.Equal(t, "first", llm.lastHist[0].Content)
	assert.Equal(t, models.RoleAssistant, llm.lastHist[1].Role)

	conv, err := s.GetOrCreateConversation(ctx, mcpChatID, "MCP session")
	require.NoError(t, err)
	count, err := s.CountMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestHandleChat_ModelError(t *testing.T) {
	srv, s, llm, _, _ := newTestServer(t)
	ctx := context.Background()

	llm.err = fmt.Errorf("api unreachable")

	req := callToolReq("aiko_chat", map[string]any{"message": "hi"})
	result, err := srv.handleChat(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "api unreachable")

	// Nothing is persisted when the model fails.
	conv, err := s.GetOrCreateConversation(ctx, mcpChatID, "MCP session")
	require.NoError(t, err)
	count, err := s.CountMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// ---------------------------------------------------------------------------
// Tests: aiko_update_check
// ---------------------------------------------------------------------------

func TestHandleUpdateCheck_UpdateAvailable(t *testing.T) {
	srv, _, _, checker, _ := newTestServer(t)
	ctx := context.Background()

	checker.result = selfupdate.CheckResult{
		Available:     true,
		Local:         "aaa1111111111111111111111111111111111111",
		Remote:        "bbb2222222222222222222222222222222222222",
		CommitsBehind: 3,
		Changes:       []string{"fix poller retry", "add status table"},
	}

	req := callToolReq("aiko_update_check", nil)
	result, err := srv.handleUpdateCheck(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Available     bool     `json:"available"`
		CommitsBehind int      `json:"commits_behind"`
		Changes       []string `json:"changes"`
	}
	resultJSON(t, result, &out)
	assert.True(t, out.Available)
	assert.Equal(t, 3, out.CommitsBehind)
	assert.Len(t, out.Changes, 2)
	assert.Equal(t, 1, checker.calls)
}

func TestHandleUpdateCheck_UpToDate(t *testing.T) {
	srv, _, _, checker, _ := newTestServer(t)
	ctx := context.Background()

	checker.result = selfupdate.CheckResult{
		Available: false,
		Local:     "aaa1111111111111111111111111111111111111",
		Remote:    "aaa1111111111111111111111111111111111111",
	}

	req := callToolReq("aiko_update_check", nil)
	result, err := srv.handleUpdateCheck(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Available bool `json:"available"`
	}
	resultJSON(t, result, &out)
	assert.False(t, out.Available)
}

func TestHandleUpdateCheck_Error(t *testing.T) {
	srv, _, _, checker, _ := newTestServer(t)
	ctx := context.Background()

	checker.result = selfupdate.CheckResult{Err: "network: fetch origin: timeout"}

	req := callToolReq("aiko_update_check", nil)
	result, err := srv.handleUpdateCheck(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "timeout")
}

// ---------------------------------------------------------------------------
// Tests: aiko_update_apply
// ---------------------------------------------------------------------------

func TestHandleUpdateApply(t *testing.T) {
	srv, _, _, _, applier := newTestServer(t)
	ctx := context.Background()

	applier.result = selfupdate.ApplyResult{
		Success:      true,
		From:         "aaa1111111111111111111111111111111111111",
		To:           "bbb2222222222222222222222222222222222222",
		FilesChanged: []string{"internal/bot/bot.go"},
		DepsChanged:  true,
	}

	req := callToolReq("aiko_update_apply", nil)
	result, err := srv.handleUpdateApply(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Success     bool `json:"success"`
		DepsChanged bool `json:"deps_changed"`
	}
	resultJSON(t, result, &out)
	assert.True(t, out.Success)
	assert.True(t, out.DepsChanged)
	assert.Equal(t, 1, applier.calls)
}

func TestHandleUpdateApply_Error(t *testing.T) {
	srv, _, _, _, applier := newTestServer(t)
	ctx := context.Background()

	applier.result = selfupdate.ApplyResult{Err: "permission: reset to upstream: denied"}

	req := callToolReq("aiko_update_apply", nil)
	result, err := srv.handleUpdateApply(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "denied")
}

// ---------------------------------------------------------------------------
// Tests: aiko_status
// ---------------------------------------------------------------------------

func TestHandleStatus_NoHistory(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("aiko_status", nil)
	result, err := srv.handleStatus(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out map[string]any
	resultJSON(t, result, &out)
	assert.Equal(t, "Aiko", out["name"])
	assert.Equal(t, "1.2.3", out["version"])
	assert.NotContains(t, out, "last_update")
}

func TestHandleStatus_WithHistory(t *testing.T) {
	srv, s, _, _, _ := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, s.RecordUpdateEvent(ctx, &models.UpdateEvent{
		FromRev:       "aaa1111111111111111111111111111111111111",
		ToRev:         "bbb2222222222222222222222222222222222222",
		CommitsBehind: 2,
		Outcome:       models.OutcomeApplied,
	}))

	req := callToolReq("aiko_status", nil)
	result, err := srv.handleStatus(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		LastUpdate struct {
			Outcome       string `json:"outcome"`
			CommitsBehind int    `json:"commits_behind"`
		} `json:"last_update"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, "applied", out.LastUpdate.Outcome)
	assert.Equal(t, 2, out.LastUpdate.CommitsBehind)
}

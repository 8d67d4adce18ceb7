package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"aiko/internal/models"
	"aiko/internal/selfupdate"
	"aiko/internal/store"
)

// mcpHistoryLimit caps the conversation context sent to the model for
// MCP chat calls, matching the Telegram loop.
const mcpHistoryLimit = 30

// mcpChatID is the synthetic chat identifier under which MCP
// conversations are persisted, keeping them separate from Telegram.
const mcpChatID = "mcp"

// ChatModel produces assistant replies from conversation history.
type ChatModel interface {
	Reply(ctx context.Context, assistantName string, history []models.Message, userMsg string) (string, error)
}

// Server wraps the aiko data layer and exposes it as MCP tools.
type Server struct {
	store   store.Store
	llm     ChatModel
	checker selfupdate.UpdateChecker
	applier selfupdate.UpdateApplier
	name    string
	version string
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(s store.Store, llm ChatModel, checker selfupdate.UpdateChecker, applier selfupdate.UpdateApplier, name, version string) *Server {
	return &Server{
		store:   s,
		llm:     llm,
		checker: checker,
		applier: applier,
		name:    name,
		version: version,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("aiko", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.chatTool())
	srv.AddTool(s.updateCheckTool())
	srv.AddTool(s.updateApplyTool())
	srv.AddTool(s.statusTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// aiko_chat
func (s *Server) chatTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("aiko_chat",
		mcp.WithDescription("Send a message to the assistant and get a reply. The conversation is persisted, so follow-up messages carry context."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The message to send")),
	)
	return tool, s.handleChat
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}

	conv, err := s.store.GetOrCreateConversation(ctx, mcpChatID, "MCP session")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load conversation: %v", err)), nil
	}

	history, err := s.store.RecentMessages(ctx, conv.ID, mcpHistoryLimit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load history: %v", err)), nil
	}

	reply, err := s.llm.Reply(ctx, s.name, history, message)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("model request failed: %v", err)), nil
	}

	// Persist both sides; a failure here loses context, not the reply.
	_ = s.store.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        message,
	})
	_ = s.store.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleAssistant,
		Content:        reply,
	})

	return mcp.NewToolResultText(reply), nil
}

// aiko_update_check
func (s *Server) updateCheckTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("aiko_update_check",
		mcp.WithDescription("Check whether a newer version of the assistant is available upstream. Read-only; does not modify the working tree."),
	)
	return tool, s.handleUpdateCheck
}

func (s *Server) handleUpdateCheck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.checker.CheckForUpdates(ctx)
	if res.Err != "" {
		return mcp.NewToolResultError(fmt.Sprintf("update check failed: %s", res.Err)), nil
	}

	out := map[string]any{
		"available":      res.Available,
		"local":          res.Local,
		"remote":         res.Remote,
		"commits_behind": res.CommitsBehind,
		"changes":        res.Changes,
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// aiko_update_apply
func (s *Server) updateApplyTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("aiko_update_apply",
		mcp.WithDescription("Download and apply the latest version. The running process keeps the old code until it is restarted; restart is left to the operator."),
	)
	return tool, s.handleUpdateApply
}

func (s *Server) handleUpdateApply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.applier.Apply(ctx)
	if res.Err != "" {
		return mcp.NewToolResultError(fmt.Sprintf("update failed: %s", res.Err)), nil
	}

	out := map[string]any{
		"success":       res.Success,
		"from":          res.From,
		"to":            res.To,
		"files_changed": res.FilesChanged,
		"deps_changed":  res.DepsChanged,
		"restart_note":  "restart the process to run the new version",
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// aiko_status
func (s *Server) statusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("aiko_status",
		mcp.WithDescription("Report the assistant's version and recent self-update history as JSON."),
	)
	return tool, s.handleStatus
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := map[string]any{
		"name":    s.name,
		"version": s.version,
	}

	last, err := s.store.LastUpdateEvent(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read update history: %v", err)), nil
	}
	if last != nil {
		out["last_update"] = map[string]any{
			"outcome":        string(last.Outcome),
			"from":           last.FromRev,
			"to":             last.ToRev,
			"commits_behind": last.CommitsBehind,
			"detail":         last.Detail,
			"at":             last.CreatedAt.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

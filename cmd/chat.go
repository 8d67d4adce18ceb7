package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"aiko/internal/models"
	"aiko/internal/store"
)

// cliChatID keys the terminal conversation in the store, separate from
// Telegram and MCP history.
const cliChatID = "cli"

const chatHistoryLimit = 30

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the assistant from the terminal",
	Long: `Send one message and print the reply, or start an interactive
session when no message is given. History is shared across sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return chatOnceRun(cmd.Context(), strings.Join(args, " "))
		}
		return chatReplRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chatOnceRun(ctx context.Context, message string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	reply, err := chatTurn(ctx, s, message)
	if err != nil {
		return err
	}
	fmt.Fprintln(ui.Out, reply)
	return nil
}

func chatReplRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	name := viper.GetString("assistant.name")
	ui.Info("Chatting with %s. Ctrl-D or 'exit' to quit.", name)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(ui.Out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(ui.Out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := chatTurn(ctx, s, line)
		if err != nil {
			ui.Error("%v", err)
			continue
		}
		fmt.Fprintf(ui.Out, "%s: %s\n", name, reply)
	}
}

// chatTurn runs one exchange: load history, ask the model, persist both
// sides.
func chatTurn(ctx context.Context, s store.Store, message string) (string, error) {
	llmClient := newLLMClient()
	if llmClient == nil {
		return "", fmt.Errorf("anthropic.api_key is not configured (run 'aiko config init')")
	}

	conv, err := s.GetOrCreateConversation(ctx, cliChatID, "Terminal session")
	if err != nil {
		return "", err
	}
	history, err := s.RecentMessages(ctx, conv.ID, chatHistoryLimit)
	if err != nil {
		return "", err
	}

	reply, err := llmClient.Reply(ctx, viper.GetString("assistant.name"), history, message)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}

	_ = s.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        message,
	})
	_ = s.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleAssistant,
		Content:        reply,
	})
	return reply, nil
}

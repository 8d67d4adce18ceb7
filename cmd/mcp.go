package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"aiko/internal/git"
	"aiko/internal/mcp"
	"aiko/internal/selfupdate"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets Claude Code talk to the assistant and drive its self-update
cycle. Configure in Claude Code with:

  {
    "mcpServers": {
      "aiko": { "command": "aiko", "args": ["mcp"] }
    }
  }

Available tools: aiko_chat, aiko_update_check, aiko_update_apply,
aiko_status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		llmClient := newLLMClient()
		if llmClient == nil {
			return fmt.Errorf("anthropic.api_key is not configured (run 'aiko config init')")
		}
		s, err := getStore()
		if err != nil {
			return err
		}

		cfg := updateConfig()
		gc := git.NewClient()
		srv := mcp.NewServer(
			s,
			llmClient,
			selfupdate.NewChecker(gc, cfg),
			selfupdate.NewApplier(gc, selfupdate.ExecRunner{}, cfg),
			viper.GetString("assistant.name"),
			buildVersion,
		)
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

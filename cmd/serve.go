package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"aiko/internal/bot"
	"aiko/internal/daemon"
	"aiko/internal/git"
	"aiko/internal/selfupdate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant's Telegram loop",
	Long: `Connect to Telegram and answer messages until interrupted.

On startup the assistant checks its upstream repository for new
commits. When an update is available it either announces it in chat or,
with update.auto enabled, applies it and restarts itself in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the assistant is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running assistant",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

func init() {
	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

// pidFile returns the PID file under the state directory.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "aiko.pid"))
}

func serveRun() error {
	token := viper.GetString("telegram.token")
	if token == "" {
		return fmt.Errorf("telegram.token is not configured (run 'aiko config init')")
	}
	llmClient := newLLMClient()
	if llmClient == nil {
		return fmt.Errorf("anthropic.api_key is not configured (run 'aiko config init')")
	}

	if err := os.MkdirAll(viper.GetString("state_dir"), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	pf := pidFile()
	if err := pf.Acquire(); err != nil {
		return err
	}
	defer func() { _ = pf.Release() }()

	s, err := getStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	messenger := bot.NewTelegramClient(token)
	chatID := viper.GetString("telegram.chat_id")

	// Announcements go to the configured chat. Without one, updates are
	// still applied but announced only in the log.
	notify := func(msg string) {
		ui.VerboseLog("announce: %s", msg)
		if chatID == "" {
			return
		}
		if err := messenger.Send(context.Background(), chatID, msg); err != nil {
			ui.Warning("failed to announce update: %v", err)
		}
	}

	cfg := updateConfig()
	gc := git.NewClient()
	orch := selfupdate.NewOrchestrator(
		selfupdate.NewChecker(gc, cfg),
		selfupdate.NewApplier(gc, selfupdate.ExecRunner{}, cfg),
		selfupdate.NewReplacer(),
		cfg.Auto,
		notify,
		s,
	)

	// The startup check runs beside the poll loop so a slow upstream
	// never delays the first reply.
	go orch.StartupCheck(ctx)

	name := viper.GetString("assistant.name")
	b := bot.New(messenger, llmClient, orch, s, ui, name, chatID)

	ui.Info("%s is listening (version %s)", name, buildVersion)
	err = b.Run(ctx)
	if ctx.Err() != nil {
		ui.Info("shutting down")
		return nil
	}
	return err
}

func serveStatusRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		ui.Info("aiko is not running")
		return nil
	}
	ui.Success("aiko is running (PID %d)", pid)
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		return fmt.Errorf("aiko is not running")
	}
	if err := pf.Stop(); err != nil {
		return fmt.Errorf("stop PID %d: %w", pid, err)
	}
	ui.Success("Sent stop signal to PID %d", pid)
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"aiko/internal/git"
	"aiko/internal/output"
)

var statusEvents int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show assistant status and update history",
	Long: `Show the assistant's build information, the state of the source
checkout, and the most recent self-update events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd.Context())
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusEvents, "events", 10, "Number of update events to show")
	rootCmd.AddCommand(statusCmd)
}

func statusRun(ctx context.Context) error {
	ui.Info("aiko %s (commit %s, built %s)", buildVersion, buildCommit, buildDate)
	ui.Info("Model: %s", viper.GetString("anthropic.model"))

	cfg := updateConfig()
	gc := git.NewClient()
	if head, err := gc.Head(cfg.Dir); err == nil {
		clean, _ := gc.IsClean(cfg.Dir)
		state := output.Green("clean")
		if !clean {
			state = output.Red("dirty")
		}
		ui.Info("Checkout: %s at %.7s (%s)", cfg.Dir, head, state)
	} else {
		ui.Warning("Checkout: %s is not a git repository", cfg.Dir)
	}
	if cfg.Auto {
		ui.Info("Updates: automatic on startup")
	} else {
		ui.Info("Updates: on request")
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	if n, err := s.CountConversations(ctx); err == nil {
		ui.Info("Conversations: %d", n)
	}

	events, err := s.ListUpdateEvents(ctx, statusEvents)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(ui.Out)
		ui.Info("No update history yet. Run 'aiko update' or ask the assistant to update.")
		return nil
	}

	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"When", "Outcome", "From", "To", "Behind", "Detail"})
	for _, ev := range events {
		detail := truncate(ev.Detail, 60)
		table.Append([]string{
			timeAgo(ev.CreatedAt),
			output.OutcomeColor(ev.Outcome),
			shortRev(ev.FromRev),
			shortRev(ev.ToRev),
			fmt.Sprintf("%d", ev.CommitsBehind),
			detail,
		})
	}
	table.Render()
	return nil
}

// truncate caps s at max runes, never cutting a rune in half.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func shortRev(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	if rev == "" {
		return "-"
	}
	return rev
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

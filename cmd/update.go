package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"aiko/internal/git"
	"aiko/internal/models"
	"aiko/internal/selfupdate"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the assistant from its upstream repository",
	Long: `Check the upstream repository for new commits and fast-forward the
local checkout to match. Dependencies are reinstalled when the module
manifest changed. A running 'aiko serve' process keeps the old code
until it is restarted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateRun(cmd.Context())
	},
}

var updateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for updates without applying them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateCheckRun(cmd.Context())
	},
}

func init() {
	updateCmd.AddCommand(updateCheckCmd)
	rootCmd.AddCommand(updateCmd)
}

func updateCheckRun(ctx context.Context) error {
	cfg := updateConfig()
	checker := selfupdate.NewChecker(git.NewClient(), cfg)

	res := checker.CheckForUpdates(ctx)
	if res.Err != "" {
		return fmt.Errorf("check for updates: %s", res.Err)
	}

	if !res.Available {
		ui.Success("Already up to date (%.7s)", res.Local)
		return nil
	}

	ui.Info("Update available: %d commit(s) behind (%.7s -> %.7s)", res.CommitsBehind, res.Local, res.Remote)
	for _, subject := range res.Changes {
		fmt.Fprintf(ui.Out, "  • %s\n", subject)
	}
	return nil
}

func updateRun(ctx context.Context) error {
	cfg := updateConfig()
	gc := git.NewClient()
	checker := selfupdate.NewChecker(gc, cfg)
	applier := selfupdate.NewApplier(gc, selfupdate.ExecRunner{}, cfg)

	check := checker.CheckForUpdates(ctx)
	if check.Err != "" {
		recordEvent(ctx, &models.UpdateEvent{
			FromRev: check.Local,
			Outcome: models.OutcomeCheckFail,
			Detail:  check.Err,
		})
		return fmt.Errorf("check for updates: %s", check.Err)
	}
	if !check.Available {
		recordEvent(ctx, &models.UpdateEvent{
			FromRev: check.Local,
			ToRev:   check.Remote,
			Outcome: models.OutcomeUpToDate,
		})
		ui.Success("Already up to date (%.7s)", check.Local)
		return nil
	}

	ui.Info("Updating: %d commit(s) behind", check.CommitsBehind)
	res := applier.Apply(ctx)
	if res.Err != "" {
		recordEvent(ctx, &models.UpdateEvent{
			FromRev:       check.Local,
			ToRev:         check.Remote,
			CommitsBehind: check.CommitsBehind,
			Outcome:       models.OutcomeFailed,
			Detail:        res.Err,
		})
		return fmt.Errorf("apply update: %s", res.Err)
	}

	recordEvent(ctx, &models.UpdateEvent{
		FromRev:       res.From,
		ToRev:         res.To,
		CommitsBehind: check.CommitsBehind,
		Outcome:       models.OutcomeApplied,
	})

	ui.Success("Updated %.7s -> %.7s (%d file(s) changed)", res.From, res.To, len(res.FilesChanged))
	if res.DepsChanged {
		ui.Info("Dependencies reinstalled")
	}
	ui.Info("Restart 'aiko serve' to run the new version")
	return nil
}

// recordEvent persists an update event, best-effort. The update itself
// matters more than its audit trail.
func recordEvent(ctx context.Context, ev *models.UpdateEvent) {
	s, err := getStore()
	if err != nil {
		ui.VerboseLog("skipping update event record: %v", err)
		return
	}
	if err := s.RecordUpdateEvent(ctx, ev); err != nil {
		ui.VerboseLog("record update event: %v", err)
	}
}

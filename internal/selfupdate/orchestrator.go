package selfupdate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"aiko/internal/models"
)

// State names the orchestrator's position in the update lifecycle.
type State string

const (
	StateIdle            State = "idle"
	StateChecking        State = "checking"
	StateUpdateAvailable State = "update_available"
	StateNotifying       State = "notifying"
	StateApplying        State = "applying"
	StateRestarting      State = "restarting"
	StateFailed          State = "failed"
)

// UpdateChecker probes the remote for a newer revision.
type UpdateChecker interface {
	CheckForUpdates(ctx context.Context) CheckResult
}

// UpdateApplier synchronizes the checkout to the remote head.
type UpdateApplier interface {
	Apply(ctx context.Context) ApplyResult
}

// EventRecorder persists update events for the status surface. Optional.
type EventRecorder interface {
	RecordUpdateEvent(ctx context.Context, ev *models.UpdateEvent) error
}

// Orchestrator ties checker, applier, and replacer into the update state
// machine. All state is guarded by a single mutex: the startup check and
// conversational triggers race over the same machine, and at most one
// check/apply sequence may be in flight (single-flight). A trigger that
// arrives while busy is acknowledged and coalesced into the in-flight run.
//
// The orchestrator is the error boundary for the whole feature: nothing
// that happens here may terminate the hosting process.
type Orchestrator struct {
	checker  UpdateChecker
	applier  UpdateApplier
	replacer Replacer
	auto     bool
	notify   func(string)
	recorder EventRecorder

	mu    sync.Mutex
	state State
}

// NewOrchestrator wires the update state machine. notify delivers
// user-facing status messages verbatim to the conversational front-end;
// recorder may be nil.
func NewOrchestrator(checker UpdateChecker, applier UpdateApplier, replacer Replacer, auto bool, notify func(string), recorder EventRecorder) *Orchestrator {
	return &Orchestrator{
		checker:  checker,
		applier:  applier,
		replacer: replacer,
		auto:     auto,
		notify:   notify,
		recorder: recorder,
		state:    StateIdle,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// begin claims the machine. Returns false when a run is already in flight.
func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return false
	}
	o.state = StateChecking
	return true
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// finish releases the machine, except after a successful image swap: in
// that case the replacement process starts fresh at Idle and this process
// lifetime ends inside Replace.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()
}

// guard converts a panic anywhere in the update machinery into a status
// message instead of letting it propagate into the host process.
func (o *Orchestrator) guard() {
	if r := recover(); r != nil {
		o.notifyf("The update machinery hit an unexpected error: %v", r)
	}
}

// StartupCheck runs the passive check on process start. When behind it
// either notifies once (default) or applies immediately (auto mode). A
// failed check is silent: network failure means "no update available".
func (o *Orchestrator) StartupCheck(ctx context.Context) {
	if !o.begin() {
		return
	}
	defer o.finish()
	defer o.guard()

	res := o.checker.CheckForUpdates(ctx)
	if res.Err != "" {
		o.record(ctx, res, models.OutcomeCheckFail, res.Err)
		return
	}
	if !res.Available {
		o.record(ctx, res, models.OutcomeUpToDate, "")
		return
	}

	o.setState(StateUpdateAvailable)
	if !o.auto {
		o.setState(StateNotifying)
		o.record(ctx, res, models.OutcomeNotified, "")
		o.notifyf("A new version is available: I'm %d commit(s) behind. Send \"update\" when you want me to update myself.%s",
			res.CommitsBehind, changelog(res.Changes))
		return
	}
	o.applyAndRestart(ctx, res)
}

// Trigger runs the on-demand path for an explicit conversational request.
// It forces an apply regardless of the auto setting; a trigger received
// while a run is in flight is acknowledged and coalesced.
func (o *Orchestrator) Trigger(ctx context.Context) {
	if !o.begin() {
		o.notifyf("An update is already in progress, hang tight.")
		return
	}
	defer o.finish()
	defer o.guard()

	o.notifyf("On it, checking for updates now.")
	res := o.checker.CheckForUpdates(ctx)
	if res.Err != "" {
		o.setState(StateFailed)
		o.record(ctx, res, models.OutcomeCheckFail, res.Err)
		o.notifyf("I couldn't check for updates: %s", res.Err)
		return
	}
	if !res.Available {
		o.record(ctx, res, models.OutcomeUpToDate, "")
		o.notifyf("I'm already up to date (%s).", short(res.Local))
		return
	}
	o.applyAndRestart(ctx, res)
}

// applyAndRestart is the shared tail of both paths. The process image swap
// is the unconditional point of no return and is only reached after the
// applier reports success; the acknowledgement is sent before control
// transfers.
func (o *Orchestrator) applyAndRestart(ctx context.Context, check CheckResult) {
	o.setState(StateApplying)
	res := o.applier.Apply(ctx)
	if !res.Success {
		o.setState(StateFailed)
		o.recordApply(ctx, res, models.OutcomeFailed)
		o.notifyf("The update failed: %s", res.Err)
		return
	}

	o.recordApply(ctx, res, models.OutcomeApplied)
	msg := fmt.Sprintf("Updated %s → %s (%d file(s) changed).", short(res.From), short(res.To), len(res.FilesChanged))
	if res.DepsChanged {
		msg += " Dependencies reinstalled."
	}
	o.notifyf("%s Restarting now, back in a moment.", msg)

	o.setState(StateRestarting)
	if err := o.replacer.Replace(); err != nil {
		o.setState(StateFailed)
		o.notifyf("The update is applied, but I couldn't restart myself (%v). Please restart me manually.", err)
	}
}

func (o *Orchestrator) notifyf(format string, a ...any) {
	if o.notify != nil {
		o.notify(fmt.Sprintf(format, a...))
	}
}

func (o *Orchestrator) record(ctx context.Context, res CheckResult, outcome models.UpdateOutcome, detail string) {
	if o.recorder == nil {
		return
	}
	_ = o.recorder.RecordUpdateEvent(ctx, &models.UpdateEvent{
		FromRev:       res.Local,
		ToRev:         res.Remote,
		CommitsBehind: res.CommitsBehind,
		Outcome:       outcome,
		Detail:        detail,
		CreatedAt:     time.Now(),
	})
}

func (o *Orchestrator) recordApply(ctx context.Context, res ApplyResult, outcome models.UpdateOutcome) {
	if o.recorder == nil {
		return
	}
	_ = o.recorder.RecordUpdateEvent(ctx, &models.UpdateEvent{
		FromRev:   res.From,
		ToRev:     res.To,
		Outcome:   outcome,
		Detail:    res.Err,
		CreatedAt: time.Now(),
	})
}

// changelog renders commit subjects as bullet lines for the notify message.
func changelog(subjects []string) string {
	if len(subjects) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nWhat's new:")
	for _, s := range subjects {
		b.WriteString("\n• ")
		b.WriteString(s)
	}
	return b.String()
}

package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"aiko/internal/models"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestOutcomeColor(t *testing.T) {
	// Color codes are disabled under test; verify passthrough of the label.
	for _, outcome := range []models.UpdateOutcome{
		models.OutcomeApplied,
		models.OutcomeUpToDate,
		models.OutcomeNotified,
		models.OutcomeFailed,
		models.OutcomeCheckFail,
	} {
		assert.Contains(t, OutcomeColor(outcome), string(outcome))
	}
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"WHEN", "OUTCOME"})
	table.Append([]string{"today", "applied"})
	table.Render()
	assert.Contains(t, out.String(), "OUTCOME")
	assert.Contains(t, out.String(), "applied")
}

package models

import "time"

// UpdateOutcome is the terminal result of an update attempt or check.
type UpdateOutcome string

const (
	OutcomeUpToDate  UpdateOutcome = "up_to_date"
	OutcomeNotified  UpdateOutcome = "notified"
	OutcomeApplied   UpdateOutcome = "applied"
	OutcomeFailed    UpdateOutcome = "failed"
	OutcomeCheckFail UpdateOutcome = "check_failed"
)

// UpdateEvent records one self-update check or apply attempt.
// FromRev/ToRev are commit hashes; ToRev is empty when the check failed.
type UpdateEvent struct {
	ID            string
	FromRev       string
	ToRev         string
	CommitsBehind int
	Outcome       UpdateOutcome
	Detail        string
	CreatedAt     time.Time
}

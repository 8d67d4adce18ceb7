package selfupdate

// Config is the read-only slice of application configuration the
// self-update core consumes. It is populated by the config layer at
// process start and never mutated here.
type Config struct {
	Auto     bool   // apply updates automatically on the startup check
	Remote   string // remote name, e.g. "origin"
	Branch   string // default branch on the remote, e.g. "main"
	Dir      string // path of the installed source checkout
	Manifest string // dependency manifest file relative to Dir, e.g. "go.mod"
}

// CheckResult is the outcome of one update check. It is created fresh on
// every check and never cached. Local and Remote are commit hashes,
// comparable for equality only.
type CheckResult struct {
	Available     bool
	Local         string
	Remote        string
	CommitsBehind int
	Changes       []string // commit subjects local..remote, newest first
	Err           string   // non-empty when the check itself failed
}

// ApplyResult is the outcome of one apply attempt.
type ApplyResult struct {
	Success      bool
	From         string
	To           string
	FilesChanged []string
	DepsChanged  bool
	Err          string
}

// IntentDecision is the classifier's verdict on a single inbound message.
type IntentDecision struct {
	IsUpdateRequest bool
	MatchedPhrase   string
}

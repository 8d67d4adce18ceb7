package selfupdate

import "strings"

// Trigger phrases matched against the whole normalized message.
var triggerPhrases = []string{
	"update",
	"upgrade",
	"update yourself",
	"upgrade yourself",
	"update aiko",
	"upgrade aiko",
	"check for updates",
	"check for update",
	"get latest version",
	"update to latest",
	"upgrade to latest",
	"please update",
	"please upgrade",
}

// Self-referential fragments that make a longer message still count as an
// update request ("please update yourself", "can you check for updates?").
var selfIndicators = []string{
	"update yourself",
	"upgrade yourself",
	"update aiko",
	"upgrade aiko",
	"check for updates",
	"check for update",
	"get latest version",
	"update to latest",
	"upgrade to latest",
	"update me",
	"update us",
	"need an update",
	"want an update",
}

// Objects that mean an update-like verb is about something else entirely.
// Any hit rejects the message before the indicator pass runs.
var exclusionWords = []string{
	"calendar",
	"spreadsheet",
	"document",
	"profile",
	"status",
	"schedule",
	"appointment",
	"meeting",
	"reminder",
	"task",
	"file",
	"record",
	"database",
	"contact",
	"address",
}

// ClassifyUpdateIntent decides whether a conversational message is asking
// the assistant to update itself. It is a pure function of the message and
// the static phrase tables above, and it fails closed: phrasing not on the
// tables never triggers an update.
func ClassifyUpdateIntent(text string) IntentDecision {
	msg := normalize(text)
	if msg == "" {
		return IntentDecision{}
	}

	for _, phrase := range triggerPhrases {
		if msg == phrase {
			return IntentDecision{IsUpdateRequest: true, MatchedPhrase: phrase}
		}
	}

	// Longer messages only match when they contain a self-referential
	// fragment and no excluded object.
	if !strings.Contains(msg, "update") && !strings.Contains(msg, "upgrade") {
		return IntentDecision{}
	}
	for _, word := range exclusionWords {
		if strings.Contains(msg, word) {
			return IntentDecision{}
		}
	}
	for _, fragment := range selfIndicators {
		if strings.Contains(msg, fragment) {
			return IntentDecision{IsUpdateRequest: true, MatchedPhrase: fragment}
		}
	}

	return IntentDecision{}
}

// normalize lowercases, trims whitespace, and strips trailing punctuation
// so "Update!" and "update" classify identically.
func normalize(text string) string {
	msg := strings.ToLower(strings.TrimSpace(text))
	return strings.TrimSpace(strings.TrimRight(msg, "!.?"))
}

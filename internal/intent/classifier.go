// Package intent classifies inbound WhatsApp messages into structured
// commands: add an item, ask a question, or unknown.
package intent

import (
	"strings"

	"github.com/finboard/backend/internal/model"
)

// addKeywords trigger the "add" intent. Order matters for name extraction:
// the extractor probes these same variants when locating the command prefix.
var addKeywords = []string{"הוסף", "הוסיף", "add"}

// queryKeywords trigger the "query" intent: Hebrew interrogatives plus a
// literal question mark anywhere in the text.
var queryKeywords = []string{"כמה", "מה", "מתי", "?"}

// Classify inspects a raw message and returns the parsed command.
//
// Add keywords are checked strictly before query keywords, so a message
// containing both (e.g. "הוסף ביטוח?") classifies as add. Imperative
// commands take priority over questions; keep this ordering.
//
// Pure function of its input, safe for any script or length.
func Classify(raw string) model.ParsedCommand {
	text := strings.ToLower(strings.TrimSpace(raw))

	for _, kw := range addKeywords {
		if strings.Contains(text, kw) {
			return extractAddFields(raw)
		}
	}

	for _, kw := range queryKeywords {
		if strings.Contains(text, kw) {
			// Downstream consumers need the original casing and
			// punctuation, so the query text is kept verbatim.
			return model.ParsedCommand{
				Action: model.ActionQuery,
				Query:  raw,
			}
		}
	}

	return model.ParsedCommand{Action: model.ActionUnknown}
}

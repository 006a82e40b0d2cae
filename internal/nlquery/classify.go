package nlquery

import "strings"

// ClassifyText maps a free-text agent answer onto an intent by keyword
// scanning.
//
// The heuristic is deliberately weak and has no positive-match branch:
// any text that is not recognizably a refusal is treated as ambiguous,
// never as a confident data answer. Kept as a separate pure function so
// it stays testable and easy to replace.
func ClassifyText(text string) Intent {
	lowered := strings.ToLower(text)

	if strings.Contains(lowered, "out_of_scope") || strings.Contains(lowered, "out of scope") {
		return IntentOutOfScope
	}
	if strings.Contains(lowered, "clarification") || strings.Contains(lowered, "more detail") {
		return IntentClarificationNeeded
	}
	return IntentClarificationNeeded
}

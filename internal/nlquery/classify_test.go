package nlquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Intent
	}{
		{"explicit out_of_scope token", "intent: out_of_scope", IntentOutOfScope},
		{"refusal phrase", "Sorry, that is out of scope for this assistant.", IntentOutOfScope},
		{"mixed case refusal", "This request is Out Of Scope.", IntentOutOfScope},
		{"clarification token", "I need clarification on which user you mean.", IntentClarificationNeeded},
		{"more detail phrase", "Could you give me more detail?", IntentClarificationNeeded},
		{"unrecognized text stays ambiguous", "Here are your users: ada, bob.", IntentClarificationNeeded},
		{"empty text", "", IntentClarificationNeeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyText(tt.text))
		})
	}
}

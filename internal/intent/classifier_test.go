package intent

import (
	"testing"

	"github.com/finboard/backend/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		wantAction model.CommandAction
	}{
		{
			name:       "hebrew add command",
			message:    "הוסף ביטוח רכב הראל 5000",
			wantAction: model.ActionAdd,
		},
		{
			name:       "english add command",
			message:    "add bank account 2000",
			wantAction: model.ActionAdd,
		},
		{
			name:       "uppercase add command",
			message:    "ADD insurance 300",
			wantAction: model.ActionAdd,
		},
		{
			name:       "hebrew question word",
			message:    "כמה אני משלם על ביטוחים",
			wantAction: model.ActionQuery,
		},
		{
			name:       "question mark only",
			message:    "is my passport valid?",
			wantAction: model.ActionQuery,
		},
		{
			name:       "add beats question mark",
			message:    "הוסף ביטוח חדש?",
			wantAction: model.ActionAdd,
		},
		{
			name:       "add beats hebrew interrogative",
			message:    "מה דעתך, הוסף פנסיה 100",
			wantAction: model.ActionAdd,
		},
		{
			name:       "plain greeting",
			message:    "שלום",
			wantAction: model.ActionUnknown,
		},
		{
			name:       "empty message",
			message:    "",
			wantAction: model.ActionUnknown,
		},
		{
			name:       "other scripts do not crash",
			message:    "こんにちは世界",
			wantAction: model.ActionUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.message)
			if got.Action != tt.wantAction {
				t.Errorf("Classify(%q).Action = %q, want %q", tt.message, got.Action, tt.wantAction)
			}
		})
	}
}

func TestClassifyPreservesQueryVerbatim(t *testing.T) {
	msg := "  מתי פג תוקף הדרכון?  "
	got := Classify(msg)
	if got.Action != model.ActionQuery {
		t.Fatalf("expected query action, got %q", got.Action)
	}
	if got.Query != msg {
		t.Errorf("query text must be preserved verbatim: got %q, want %q", got.Query, msg)
	}
}

// Every message containing both an add keyword and a question mark must
// classify as add, regardless of where the keyword sits in the text.
func TestClassifyAddPrecedence(t *testing.T) {
	messages := []string{
		"הוסף ביטוח?",
		"? הוסף משהו",
		"add something?",
		"מתי? הוסיף חשבון בנק",
	}
	for _, msg := range messages {
		if got := Classify(msg); got.Action != model.ActionAdd {
			t.Errorf("Classify(%q).Action = %q, want add", msg, got.Action)
		}
	}
}

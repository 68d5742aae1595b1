package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubCompleter struct {
	answer string
	err    error
	calls  int
}

func (s *stubCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func TestRespondPrimaryPathWins(t *testing.T) {
	model := &stubCompleter{answer: "תשובה מהמודל"}
	r := newResponder(model)

	got := r.Respond(context.Background(), "כמה אני משלם על ביטוחים?", testSnapshot())

	assert.Equal(t, "תשובה מהמודל", got)
	assert.Equal(t, 1, model.calls)
}

// A primary-path failure must route to the fallback, and the fallback's
// answer must be returned. Nothing propagates as an error.
func TestRespondFallsBackOnModelFailure(t *testing.T) {
	model := &stubCompleter{err: errors.New("connection refused")}
	r := newResponder(model)

	got := r.Respond(context.Background(), "כמה אני משלם על ביטוחים?", testSnapshot())

	assert.Equal(t, 1, model.calls)
	assert.Contains(t, got, "₪10,500")
}

func TestRespondWithoutModelUsesKeywordPath(t *testing.T) {
	r := NewResponder(nil)

	got := r.Respond(context.Background(), "מה שווי ההון שלי?", testSnapshot())

	assert.Contains(t, got, "סך ההון העצמי")
}

func TestRespondNeverReturnsEmpty(t *testing.T) {
	model := &stubCompleter{err: &AssistantError{Code: ErrModelUnavailable, Message: "down"}}
	r := newResponder(model)

	queries := []string{"", "שטויות במיץ", "何ですか"}
	for _, q := range queries {
		got := r.Respond(context.Background(), q, Snapshot{})
		assert.NotEmpty(t, got, "query %q must yield text", q)
	}
}

// Package assistant answers financial questions from the user's data,
// preferring an external completion model and degrading to deterministic
// keyword templates.
package assistant

import (
	"context"
	"log"
)

// genericErrorText is the last-resort chat reply. Chat responses are always
// delivered as text, never as a hard failure to the end user.
const genericErrorText = "מצטער, לא הצלחתי לענות על השאלה כרגע. נסה שוב מאוחר יותר."

// completer is the external completion collaborator. *OpenAIClient
// implements it; tests substitute failing or canned implementations.
type completer interface {
	Complete(ctx context.Context, systemPrompt, userQuery string) (string, error)
}

// strategy is one answer path with its own failure boundary.
type strategy struct {
	name string
	run  func(ctx context.Context, query string, snap Snapshot) (string, error)
}

// Responder produces a text answer for a query against a data snapshot.
type Responder struct {
	strategies []strategy
}

// NewResponder builds the ordered strategy chain: completion model first
// (when configured), keyword templates second. Passing a nil model client
// leaves only the deterministic path.
func NewResponder(llm *OpenAIClient) *Responder {
	var model completer
	if llm != nil {
		model = llm
	}
	return newResponder(model)
}

func newResponder(model completer) *Responder {
	r := &Responder{}

	if model != nil {
		r.strategies = append(r.strategies, strategy{
			name: "openai",
			run: func(ctx context.Context, query string, snap Snapshot) (string, error) {
				return model.Complete(ctx, BuildSystemPrompt(snap), query)
			},
		})
	}

	r.strategies = append(r.strategies, strategy{
		name: "keyword",
		run: func(ctx context.Context, query string, snap Snapshot) (string, error) {
			return KeywordAnswer(query, snap), nil
		},
	})

	return r
}

// Respond tries each strategy in order and returns the first answer. Every
// strategy failure is logged and absorbed; if all fail the generic error
// text is returned as the answer.
func (r *Responder) Respond(ctx context.Context, query string, snap Snapshot) string {
	for _, s := range r.strategies {
		answer, err := s.run(ctx, query, snap)
		if err != nil {
			log.Printf("[Assistant] Strategy %s failed: %v", s.name, err)
			continue
		}
		return answer
	}
	return genericErrorText
}

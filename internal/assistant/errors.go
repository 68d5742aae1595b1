package assistant

import "fmt"

// ErrorCode represents specific assistant failure types.
type ErrorCode string

const (
	ErrModelUnavailable  ErrorCode = "MODEL_UNAVAILABLE"
	ErrModelTimeout      ErrorCode = "MODEL_TIMEOUT"
	ErrModelRateLimited  ErrorCode = "MODEL_RATE_LIMITED"
	ErrModelBadResponse  ErrorCode = "MODEL_BAD_RESPONSE"
	ErrNotConfigured     ErrorCode = "NOT_CONFIGURED"
	ErrAllStrategiesFail ErrorCode = "ALL_STRATEGIES_FAILED"
)

// AssistantError is a structured error for answer-generation failures.
type AssistantError struct {
	Code      ErrorCode
	Message   string
	Strategy  string // e.g. "openai" or "keyword"
	Retryable bool
	Cause     error
}

func (e *AssistantError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AssistantError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether this error is retryable.
func (e *AssistantError) IsRetryable() bool {
	return e.Retryable
}

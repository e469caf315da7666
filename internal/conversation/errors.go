package conversation

import "errors"

var (
	ErrInvalidThreadID      = errors.New("invalid thread id")
	ErrRequestAborted       = errors.New("request was aborted")
	ErrFetchFailed          = errors.New("failed to fetch conversation")
	ErrStreamFailed         = errors.New("stream reading error")
	ErrReconciliationFailed = errors.New("reconciliation fetch failed")
	ErrEmptyInput           = errors.New("empty message")
	ErrBusy                 = errors.New("a response is already in progress")
)

// Error codes understood by the chat page's error banner.
const (
	CodeInvalidThreadID = "invalid_thread_id"
	CodeFetchFailed     = "fetch_failed"
	CodeUnauthorized    = "unauthorized"
)

// ErrUnauthorized marks an expired or rejected session. The backend client
// wraps it so callers here don't need to import that package.
var ErrUnauthorized = errors.New("unauthorized")

// ErrorCode maps a load-path error to the query-string code the page decodes.
// Aborts map to "" because they are never shown to the user.
func ErrorCode(err error) string {
	switch {
	case err == nil, errors.Is(err, ErrRequestAborted):
		return ""
	case errors.Is(err, ErrInvalidThreadID):
		return CodeInvalidThreadID
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeFetchFailed
	}
}

// FallbackReply is the assistant text shown when a send fails.
const FallbackReply = "Sorry, I encountered an error. Please try again."

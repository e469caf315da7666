package backend

import (
	"fmt"

	"github.com/comigor/chatview/internal/conversation"
)

// InitialRequest starts the first assistant turn of a new thread.
type InitialRequest struct {
	UserInput string `json:"user_input"`
	ThreadID  string `json:"thread_id"`
	ParentID  *int64 `json:"parent_id"`
}

// ContinueRequest sends a follow-up turn on an existing thread.
type ContinueRequest struct {
	UserInput string `json:"user_input"`
	ThreadID  string `json:"thread_id"`
}

type conversationRequest struct {
	ThreadID  string `json:"thread_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

type conversationResponse struct {
	Data *struct {
		Messages []conversation.Message `json:"messages"`
		HasMore  *bool                  `json:"has_more"`
	} `json:"data"`
}

// User is the signed-in account as reported by the session endpoint.
type User struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Image     string  `json:"image,omitempty"`
}

// DisplayName mirrors the profile card fallback chain.
func (u User) DisplayName() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.Email != "":
		return u.Email
	default:
		return "user"
	}
}

// StatusError is returned for non-2xx responses other than 401.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP error! status: %d", e.Endpoint, e.StatusCode)
}

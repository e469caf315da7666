// Package conversation holds the chat data model and the pure merge rules
// applied when server pages, live streams and cached snapshots meet.
package conversation

import (
	"slices"
	"time"
)

// Roles a message can carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Image is media attached to a finalized assistant message.
type Image struct {
	Role        string `json:"role"`
	URLID       string `json:"url_id"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// Message is a single chat turn. ID is nil until the backend has persisted it,
// and an empty CreatedAt means the same thing for the timestamp.
type Message struct {
	ID        *int64  `json:"id,omitempty"`
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"created_at"`
	Images    []Image `json:"images,omitempty"`
}

// View is the loaded slice of one thread, oldest message first.
type View struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

// Valid reports whether the view is worth caching or rendering from cache.
func (v View) Valid() bool {
	return len(v.Messages) > 0
}

// Clone returns a copy whose message slice can be modified freely.
func (v View) Clone() View {
	return View{Messages: slices.Clone(v.Messages), HasMore: v.HasMore}
}

// Last returns the newest message, if any.
func (v View) Last() (Message, bool) {
	if len(v.Messages) == 0 {
		return Message{}, false
	}
	return v.Messages[len(v.Messages)-1], true
}

// Oldest returns the created_at of the first loaded message, the backward
// pagination cursor.
func (v View) Oldest() string {
	if len(v.Messages) == 0 {
		return ""
	}
	return v.Messages[0].CreatedAt
}

// Int64 is a helper for building message ids.
func Int64(n int64) *int64 { return &n }

// Timestamp formats t the way browsers do for Date.toISOString.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

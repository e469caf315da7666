// Package cache persists the last known view of each thread on the local
// machine. It is best effort: reads that fail validation are misses and
// writes that fail are logged and dropped.
package cache

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/comigor/chatview/internal/config"
	"github.com/comigor/chatview/internal/conversation"
)

// Namespace names the single durable record (bucket or table) holding every
// thread snapshot.
const Namespace = "chat_threads_cache"

// Store is the local cache contract. Implementations never return errors.
type Store interface {
	Load(threadID string) (conversation.View, bool)
	Save(threadID string, view conversation.View)
	Delete(threadID string)
	Close() error
}

// Encode serializes a view for storage.
func Encode(view conversation.View) ([]byte, error) {
	if view.Messages == nil {
		view.Messages = []conversation.Message{}
	}
	return json.Marshal(view)
}

// Decode validates and parses a stored snapshot. It rejects anything that is
// not an object with a messages array, a boolean has_more and at least one
// message.
func Decode(raw []byte) (conversation.View, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return conversation.View{}, false
	}

	rawMessages := bytes.TrimSpace(fields["messages"])
	if len(rawMessages) == 0 || rawMessages[0] != '[' {
		return conversation.View{}, false
	}

	var hasMore bool
	switch string(bytes.TrimSpace(fields["has_more"])) {
	case "true":
		hasMore = true
	case "false":
	default:
		return conversation.View{}, false
	}

	var messages []conversation.Message
	if err := json.Unmarshal(rawMessages, &messages); err != nil || len(messages) == 0 {
		return conversation.View{}, false
	}
	return conversation.View{Messages: messages, HasMore: hasMore}, true
}

// Open returns the store selected by cfg.Driver.
func Open(cfg config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverBolt, "":
		return OpenBolt(cfg.Path)
	case config.DriverSQLite:
		return NewSQLStore(cfg.Path), nil
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

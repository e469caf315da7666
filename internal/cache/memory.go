package cache

import (
	"sync"

	"github.com/comigor/chatview/internal/conversation"
	"github.com/comigor/chatview/internal/logger"
)

// MemoryStore keeps encoded snapshots in process memory. It stores bytes
// rather than views so reads go through the same validation as disk stores.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (s *MemoryStore) Load(threadID string) (conversation.View, bool) {
	s.mu.Lock()
	raw, ok := s.entries[threadID]
	s.mu.Unlock()
	if !ok {
		return conversation.View{}, false
	}
	return Decode(raw)
}

func (s *MemoryStore) Save(threadID string, view conversation.View) {
	raw, err := Encode(view)
	if err != nil {
		logger.Thread(threadID).Error("failed to save to cache", "error", err)
		return
	}
	s.mu.Lock()
	s.entries[threadID] = raw
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(threadID string) {
	s.mu.Lock()
	delete(s.entries, threadID)
	s.mu.Unlock()
}

// Put stores raw bytes without validation.
func (s *MemoryStore) Put(threadID string, raw []byte) {
	s.mu.Lock()
	s.entries[threadID] = raw
	s.mu.Unlock()
}

func (s *MemoryStore) Close() error { return nil }

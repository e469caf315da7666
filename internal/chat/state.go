package chat

import (
	"sync"

	"github.com/comigor/chatview/internal/cache"
	"github.com/comigor/chatview/internal/conversation"
)

// State is the in-memory view of every open thread. All writers go through
// Update or Patch, which run the supplied function against the latest view
// under one lock, so concurrent callbacks never work from a stale copy.
type State struct {
	mu    sync.Mutex
	views map[string]conversation.View
	cache cache.Store
}

// NewState creates an empty State mirrored to store.
func NewState(store cache.Store) *State {
	return &State{views: make(map[string]conversation.View), cache: store}
}

// Get returns a copy of the thread's view.
func (s *State) Get(threadID string) (conversation.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[threadID]
	return v.Clone(), ok
}

// Update applies fn to the current view, stores the result and writes it
// through to the cache when it has messages.
func (s *State) Update(threadID string, fn func(conversation.View) conversation.View) conversation.View {
	return s.apply(threadID, fn, true)
}

// Patch is Update without the cache write. Streaming uses it once per chunk
// and syncs the cache when the stream ends.
func (s *State) Patch(threadID string, fn func(conversation.View) conversation.View) conversation.View {
	return s.apply(threadID, fn, false)
}

// Set replaces the thread's view.
func (s *State) Set(threadID string, view conversation.View) conversation.View {
	return s.Update(threadID, func(conversation.View) conversation.View { return view.Clone() })
}

// Sync writes the current view to the cache.
func (s *State) Sync(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[threadID]; ok && v.Valid() {
		s.cache.Save(threadID, v)
	}
}

// Forget drops the thread from memory and purges its cache entry. The thread
// deletion flow calls it.
func (s *State) Forget(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, threadID)
	s.cache.Delete(threadID)
}

func (s *State) apply(threadID string, fn func(conversation.View) conversation.View, persist bool) conversation.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.views[threadID].Clone())
	if next.Messages == nil {
		next.Messages = []conversation.Message{}
	}
	s.views[threadID] = next
	if persist && next.Valid() {
		s.cache.Save(threadID, next)
	}
	return next.Clone()
}

func appendMessage(m conversation.Message) func(conversation.View) conversation.View {
	return func(v conversation.View) conversation.View {
		v.Messages = append(v.Messages, m)
		return v
	}
}

// appendToLast grows whatever message is last at the time of the update. An
// empty view is left alone.
func appendToLast(chunk string) func(conversation.View) conversation.View {
	return func(v conversation.View) conversation.View {
		if n := len(v.Messages); n > 0 {
			v.Messages[n-1].Content += chunk
		}
		return v
	}
}

package chat

import (
	"context"
	"fmt"

	"github.com/comigor/chatview/internal/conversation"
)

// FetchFresh loads one page of the thread. An empty cursor asks for the latest
// page and replaces whatever was cached; a cursor asks for the page before it,
// which is prepended to the cached messages. The merged view is written to the
// cache and returned. It does not touch the in-memory state.
//
// Starting a fetch aborts the previous one of the same session; the aborted
// call returns ErrRequestAborted and its result is discarded.
func (s *Session) FetchFresh(ctx context.Context, before string) (conversation.View, error) {
	_, merged, err := s.fetch(ctx, before)
	return merged, err
}

func (s *Session) fetch(ctx context.Context, before string) (page, merged conversation.View, err error) {
	if err := s.checkThreadID(); err != nil {
		return page, merged, err
	}

	ctx, done := s.beginFetch(ctx)
	defer done()

	page, err = s.client.backend.GetConversation(ctx, s.threadID, before)
	if aborted(ctx, err) {
		s.log.Debug("conversation fetch aborted", "before", before)
		return conversation.View{}, conversation.View{}, conversation.ErrRequestAborted
	}
	if err != nil {
		s.log.Error("conversation fetch failed", "before", before, "error", err)
		return conversation.View{}, conversation.View{}, fmt.Errorf("%w: %w", conversation.ErrFetchFailed, err)
	}
	if !page.Valid() {
		s.log.Warn("conversation fetch returned no messages", "before", before)
		return conversation.View{}, conversation.View{}, fmt.Errorf("%w: empty page", conversation.ErrFetchFailed)
	}

	paginating := before != ""
	var base *conversation.View
	if cached, ok := s.client.cache.Load(s.threadID); ok {
		base = &cached
	} else if current, ok := s.client.state.Get(s.threadID); ok && paginating && current.Valid() {
		base = &current
	}
	merged = conversation.MergePage(base, page, paginating)

	// a newer fetch cancels this one under s.mu, so the check and the write
	// cannot interleave with it
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		s.log.Debug("conversation fetch superseded", "before", before)
		return conversation.View{}, conversation.View{}, conversation.ErrRequestAborted
	}
	s.client.cache.Save(s.threadID, merged)
	s.mu.Unlock()

	s.log.Debug("conversation fetched", "before", before, "page", len(page.Messages), "total", len(merged.Messages), "has_more", merged.HasMore)
	return page, merged, nil
}

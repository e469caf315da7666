package chat

import (
	"context"
	"fmt"

	"github.com/comigor/chatview/internal/conversation"
)

// reconcile swaps a streamed image tool placeholder for the persisted
// messages. It runs only when the last message carries the tool marker and an
// image host URL. Failures are logged and leave the view untouched.
func (s *Session) reconcile(ctx context.Context) error {
	current, _ := s.client.state.Get(s.threadID)
	if !conversation.NeedsReconciliation(current, s.client.opts.Marker) {
		return nil
	}

	s.log.Info("image tool reply detected, refreshing conversation")
	refreshed, err := s.FetchFresh(ctx, "")
	if err != nil {
		s.log.Warn("reconciliation fetch failed", "error", err)
		return fmt.Errorf("%w: %w", conversation.ErrReconciliationFailed, err)
	}

	s.client.state.Update(s.threadID, func(latest conversation.View) conversation.View {
		return conversation.Reconcile(latest, refreshed)
	})
	return nil
}

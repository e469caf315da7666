package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/comigor/chatview/internal/conversation"
)

const streamBufferSize = 4096

// ingest appends an empty, not yet persisted assistant placeholder and grows it with every
// decoded chunk of body. Multi-byte sequences split across reads are held back
// by the decoder until complete. Whatever arrived before a failure stays in
// the view.
func (s *Session) ingest(ctx context.Context, body io.ReadCloser) error {
	defer body.Close()

	s.client.state.Update(s.threadID, appendMessage(conversation.Message{
		Role:      conversation.RoleAssistant,
		Content:   "",
		CreatedAt: "",
	}))
	defer s.client.state.Sync(s.threadID)

	r := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, streamBufferSize)
	chunks := 0
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunks++
			s.client.state.Patch(s.threadID, appendToLast(string(buf[:n])))
		}
		if errors.Is(err, io.EOF) {
			s.log.Debug("reply stream finished", "chunks", chunks)
			return nil
		}
		if err != nil {
			if aborted(ctx, err) {
				s.log.Debug("reply stream aborted", "chunks", chunks)
				return conversation.ErrRequestAborted
			}
			s.log.Error("reply stream failed", "chunks", chunks, "error", err)
			return fmt.Errorf("%w: %w", conversation.ErrStreamFailed, err)
		}
	}
}

package chat

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/comigor/chatview/internal/backend"
	"github.com/comigor/chatview/internal/conversation"
)

// Send posts a follow-up message. The user message is shown right away, then
// the reply is streamed into a new assistant message. Empty input and input
// sent while a reply is still running are rejected.
func (s *Session) Send(ctx context.Context, input string) error {
	if err := s.checkThreadID(); err != nil {
		return err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return conversation.ErrEmptyInput
	}
	turn, err := s.turn.begin(false)
	if err != nil {
		return err
	}

	s.client.state.Update(s.threadID, appendMessage(conversation.Message{
		Role:      conversation.RoleUser,
		Content:   input,
		CreatedAt: s.client.now(),
	}))
	s.clearDraft()

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	defer context.AfterFunc(s.ctx, stop)()

	body, err := s.client.backend.ContinueResponse(ctx, backend.ContinueRequest{
		UserInput: input,
		ThreadID:  s.threadID,
	})
	if err != nil {
		return s.failTurn(ctx, turn, err, s.client.now())
	}
	return s.runTurn(ctx, turn, body)
}

// SendInitial requests the first reply of a thread that was just created. A
// previous initial request still in flight is aborted.
func (s *Session) SendInitial(ctx context.Context, input string) error {
	if err := s.checkThreadID(); err != nil {
		return err
	}
	ctx, done := s.beginLLM(ctx)
	defer done()

	turn, err := s.turn.begin(true)
	if err != nil {
		return err
	}

	body, err := s.client.backend.InitialResponse(ctx, backend.InitialRequest{
		UserInput: input,
		ThreadID:  s.threadID,
		ParentID:  s.parentID,
	})
	if err != nil {
		return s.failTurn(ctx, turn, err, "")
	}
	return s.runTurn(ctx, turn, body)
}

func (s *Session) runTurn(ctx context.Context, turn uint64, body io.ReadCloser) error {
	s.turn.fire(turn, TriggerResponseOpened)

	if err := s.ingest(ctx, body); err != nil {
		s.turn.fire(turn, TriggerFailed)
		return err
	}

	current, _ := s.client.state.Get(s.threadID)
	if conversation.NeedsReconciliation(current, s.client.opts.Marker) {
		s.turn.fire(turn, TriggerImageDetected)
		// the placeholder stays visible when this fails
		_ = s.reconcile(ctx)
	}
	s.turn.fire(turn, TriggerSettled)
	return nil
}

// failTurn ends a turn whose reply request failed. Aborts are silent; any
// other failure leaves an apology from the assistant in the thread.
func (s *Session) failTurn(ctx context.Context, turn uint64, err error, createdAt string) error {
	defer s.turn.fire(turn, TriggerFailed)

	if aborted(ctx, err) {
		s.log.Debug("reply request aborted")
		return conversation.ErrRequestAborted
	}
	s.log.Error("reply request failed", "error", err)
	s.client.state.Update(s.threadID, appendMessage(conversation.Message{
		Role:      conversation.RoleAssistant,
		Content:   conversation.FallbackReply,
		CreatedAt: createdAt,
	}))
	return fmt.Errorf("%w: %w", conversation.ErrStreamFailed, err)
}

// checkThreadID rejects a malformed thread id before anything reaches the
// network, sending the page to the invalid id error.
func (s *Session) checkThreadID() error {
	if err := conversation.ValidateThreadID(s.threadID); err != nil {
		s.client.redirect(s.threadID, conversation.CodeInvalidThreadID)
		return err
	}
	return nil
}

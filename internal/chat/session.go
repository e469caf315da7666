package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/comigor/chatview/internal/conversation"
	"github.com/comigor/chatview/internal/logger"
)

// SessionOptions describes how a thread was navigated to.
type SessionOptions struct {
	// NewThread is set right after the thread was created with its first
	// message; opening it kicks off the initial reply.
	NewThread bool
	// ParentID is the id of that first message.
	ParentID *int64
}

// Session is one open thread, the lifetime of a mounted chat window. It owns
// one cancellation handle per request category.
type Session struct {
	client   *Client
	threadID string
	parentID *int64
	log      *slog.Logger
	turn     *turnMachine

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	isNew       bool
	draft       string
	fetchCancel context.CancelFunc
	fetchSeq    uint64
	llmCancel   context.CancelFunc
	llmSeq      uint64
}

// Session opens a per-thread session.
func (c *Client) Session(threadID string, opts SessionOptions) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	log := logger.Thread(threadID)
	return &Session{
		client:   c,
		threadID: threadID,
		parentID: opts.ParentID,
		isNew:    opts.NewThread,
		log:      log,
		turn:     newTurnMachine(log),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ThreadID returns the session's thread.
func (s *Session) ThreadID() string { return s.threadID }

// View returns the current view of the session's thread.
func (s *Session) View() conversation.View {
	v, _ := s.client.state.Get(s.threadID)
	return v
}

// Open performs the initial load. A cached snapshot is used as is unless the
// thread was just created; otherwise the latest page is fetched. For a new
// thread the first message is sent to the initial reply endpoint in the
// background (see Wait).
func (s *Session) Open(ctx context.Context) (conversation.View, error) {
	if err := s.checkThreadID(); err != nil {
		return conversation.View{}, err
	}

	s.mu.Lock()
	isNew := s.isNew
	s.isNew = false
	s.mu.Unlock()

	cached, hit := s.client.cache.Load(s.threadID)
	if hit && !isNew {
		s.log.Debug("using cached messages, no API call needed")
		return s.client.state.Set(s.threadID, cached), nil
	}

	view, err := s.FetchFresh(ctx, "")
	if err != nil {
		if !errors.Is(err, conversation.ErrRequestAborted) && !errors.Is(err, conversation.ErrInvalidThreadID) {
			s.client.redirect(s.threadID, conversation.ErrorCode(err))
		}
		return conversation.View{}, err
	}
	view = s.client.state.Set(s.threadID, view)

	if isNew && !hit {
		if first := view.Messages[0].Content; first != "" {
			s.log.Info("new thread, requesting initial reply")
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				_ = s.SendInitial(s.ctx, first)
			}()
		}
	}
	return view, nil
}

// LoadMore fetches the page before the oldest loaded message and prepends it.
// It does nothing when the backend reported no older history.
func (s *Session) LoadMore(ctx context.Context) (conversation.View, error) {
	current, ok := s.client.state.Get(s.threadID)
	if !ok || !current.HasMore || !current.Valid() {
		return current, nil
	}

	page, merged, err := s.fetch(ctx, current.Oldest())
	if err != nil {
		return current, err
	}
	return s.client.state.Update(s.threadID, func(latest conversation.View) conversation.View {
		if !latest.Valid() {
			return merged
		}
		return conversation.MergePage(&latest, page, true)
	}), nil
}

// SetDraft records pending input, normalising line endings and capping it at
// the configured length.
func (s *Session) SetDraft(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if r := []rune(text); len(r) > s.client.opts.MaxInputLength {
		text = string(r[:s.client.opts.MaxInputLength])
	}
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
	return text
}

// Draft returns the pending input.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SendDraft sends the pending input as a follow-up turn.
func (s *Session) SendDraft(ctx context.Context) error {
	return s.Send(ctx, s.Draft())
}

func (s *Session) clearDraft() {
	s.mu.Lock()
	s.draft = ""
	s.mu.Unlock()
}

// TurnState reports where the current assistant turn is.
func (s *Session) TurnState() TurnState { return s.turn.state() }

// Typing reports whether an assistant turn is in progress.
func (s *Session) Typing() bool { return s.turn.state() != TurnIdle }

// Wait blocks until a background initial reply started by Open has finished.
func (s *Session) Wait() { s.wg.Wait() }

// Close aborts every outstanding request of the session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.fetchCancel != nil {
		s.fetchCancel()
		s.fetchCancel = nil
	}
	if s.llmCancel != nil {
		s.llmCancel()
		s.llmCancel = nil
	}
	s.mu.Unlock()
	s.cancel()
}

// beginFetch aborts the previous conversation fetch and returns the context of
// the new one; done releases the handle if nothing replaced it meanwhile.
func (s *Session) beginFetch(ctx context.Context) (context.Context, func()) {
	return s.beginRequest(ctx, &s.fetchCancel, &s.fetchSeq)
}

// beginLLM does the same for the initial reply stream.
func (s *Session) beginLLM(ctx context.Context) (context.Context, func()) {
	return s.beginRequest(ctx, &s.llmCancel, &s.llmSeq)
}

func (s *Session) beginRequest(ctx context.Context, handle *context.CancelFunc, seq *uint64) (context.Context, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if *handle != nil {
		(*handle)()
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	*handle = cancel
	*seq++
	mine := *seq

	return ctx, func() {
		stop()
		cancel()
		s.mu.Lock()
		if *seq == mine {
			*handle = nil
		}
		s.mu.Unlock()
	}
}

func aborted(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
}

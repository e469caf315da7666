package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/comigor/chatview/internal/chat"
	"github.com/comigor/chatview/internal/conversation"
)

// Threads keeps one chat session per thread id for the tools.
type Threads struct {
	client *chat.Client

	mu       sync.Mutex
	sessions map[string]*chat.Session
}

// NewThreads creates a Threads bound to client.
func NewThreads(client *chat.Client) *Threads {
	return &Threads{client: client, sessions: make(map[string]*chat.Session)}
}

// open returns the thread's session, loading it on first use.
func (t *Threads) open(ctx context.Context, threadID string, opts chat.SessionOptions) (*chat.Session, error) {
	t.mu.Lock()
	s, ok := t.sessions[threadID]
	if !ok || opts.NewThread {
		if ok {
			s.Close()
		}
		s = t.client.Session(threadID, opts)
		t.sessions[threadID] = s
	}
	t.mu.Unlock()

	if ok && !opts.NewThread {
		if _, loaded := t.client.View(threadID); loaded {
			return s, nil
		}
	}
	if _, err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *Threads) forget(threadID string) {
	t.mu.Lock()
	if s, ok := t.sessions[threadID]; ok {
		s.Close()
		delete(t.sessions, threadID)
	}
	t.mu.Unlock()
	t.client.Forget(threadID)
}

// Close aborts every session.
func (t *Threads) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, s := range t.sessions {
		s.Close()
		delete(t.sessions, id)
	}
}

// RegisterChatTools registers the thread tools on m.
func RegisterChatTools(m *ToolManager, threads *Threads) {
	m.RegisterTool(&OpenThreadTool{threads: threads})
	m.RegisterTool(&LoadMoreTool{threads: threads})
	m.RegisterTool(&SendMessageTool{threads: threads})
	m.RegisterTool(&StartThreadTool{threads: threads})
	m.RegisterTool(&ForgetThreadTool{threads: threads})
}

var threadParam = Param{Name: "thread_id", Kind: "string", Description: "UUID of the chat thread", Required: true}

// OpenThreadTool loads a thread from cache or from the backend.
type OpenThreadTool struct{ threads *Threads }

func (t *OpenThreadTool) Name() string { return "open_thread" }

func (t *OpenThreadTool) Description() string {
	return "Opens a chat thread and returns its loaded messages, newest last. Uses the local cache when available."
}

func (t *OpenThreadTool) Params() []Param { return []Param{threadParam} }

func (t *OpenThreadTool) Run(ctx context.Context, args map[string]any) (string, error) {
	threadID, err := stringArg(args, "thread_id")
	if err != nil {
		return "", err
	}
	s, err := t.threads.open(ctx, threadID, chat.SessionOptions{})
	if err != nil {
		return "", err
	}
	return renderView(s.View())
}

// LoadMoreTool fetches older history.
type LoadMoreTool struct{ threads *Threads }

func (t *LoadMoreTool) Name() string { return "load_more" }

func (t *LoadMoreTool) Description() string {
	return "Loads the page of messages older than the oldest one loaded so far. Does nothing when has_more is false."
}

func (t *LoadMoreTool) Params() []Param { return []Param{threadParam} }

func (t *LoadMoreTool) Run(ctx context.Context, args map[string]any) (string, error) {
	threadID, err := stringArg(args, "thread_id")
	if err != nil {
		return "", err
	}
	s, err := t.threads.open(ctx, threadID, chat.SessionOptions{})
	if err != nil {
		return "", err
	}
	view, err := s.LoadMore(ctx)
	if err != nil {
		return "", err
	}
	return renderView(view)
}

// SendMessageTool posts a follow-up message and waits for the full reply.
type SendMessageTool struct{ threads *Threads }

func (t *SendMessageTool) Name() string { return "send_message" }

func (t *SendMessageTool) Description() string {
	return "Sends a message to an existing thread and returns the thread once the assistant reply has finished streaming."
}

func (t *SendMessageTool) Params() []Param {
	return []Param{threadParam, {Name: "message", Kind: "string", Description: "text to send", Required: true}}
}

func (t *SendMessageTool) Run(ctx context.Context, args map[string]any) (string, error) {
	threadID, err := stringArg(args, "thread_id")
	if err != nil {
		return "", err
	}
	message, err := stringArg(args, "message")
	if err != nil {
		return "", err
	}
	s, err := t.threads.open(ctx, threadID, chat.SessionOptions{})
	if err != nil {
		return "", err
	}
	s.SetDraft(message)
	if err := s.SendDraft(ctx); err != nil {
		return "", err
	}
	return renderView(s.View())
}

// StartThreadTool opens a thread that was just created with its first
// message and waits for the initial reply.
type StartThreadTool struct{ threads *Threads }

func (t *StartThreadTool) Name() string { return "start_thread" }

func (t *StartThreadTool) Description() string {
	return "Starts the assistant on a freshly created thread: loads its first message and streams the initial reply."
}

func (t *StartThreadTool) Params() []Param {
	return []Param{threadParam, {Name: "parent_id", Kind: "number", Description: "id of the first message"}}
}

func (t *StartThreadTool) Run(ctx context.Context, args map[string]any) (string, error) {
	threadID, err := stringArg(args, "thread_id")
	if err != nil {
		return "", err
	}
	opts := chat.SessionOptions{NewThread: true}
	if v, ok := args["parent_id"].(float64); ok {
		opts.ParentID = conversation.Int64(int64(v))
	}
	s, err := t.threads.open(ctx, threadID, opts)
	if err != nil {
		return "", err
	}
	s.Wait()
	return renderView(s.View())
}

// ForgetThreadTool drops a deleted thread from memory and cache.
type ForgetThreadTool struct{ threads *Threads }

func (t *ForgetThreadTool) Name() string { return "forget_thread" }

func (t *ForgetThreadTool) Description() string {
	return "Forgets a deleted thread: aborts its requests and purges its cached messages."
}

func (t *ForgetThreadTool) Params() []Param { return []Param{threadParam} }

func (t *ForgetThreadTool) Run(_ context.Context, args map[string]any) (string, error) {
	threadID, err := stringArg(args, "thread_id")
	if err != nil {
		return "", err
	}
	t.threads.forget(threadID)
	return fmt.Sprintf("Thread %s forgotten", threadID), nil
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	return v, nil
}

func renderView(v conversation.View) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/comigor/chatview/internal/backend"
	"github.com/comigor/chatview/internal/cache"
	"github.com/comigor/chatview/internal/chat"
	"github.com/comigor/chatview/internal/conversation"
)

const threadID = "6c8a1f0e-2b3d-4c5e-9f70-8a9b0c1d2e3f"

type mockBackend struct {
	pages    map[string]conversation.View
	getCalls int
	replies  []string
	initial  []backend.InitialRequest
}

func (m *mockBackend) GetConversation(_ context.Context, _ string, createdAt string) (conversation.View, error) {
	m.getCalls++
	v, ok := m.pages[createdAt]
	if !ok {
		return conversation.View{}, errors.New("no page")
	}
	return v, nil
}

func (m *mockBackend) InitialResponse(_ context.Context, req backend.InitialRequest) (io.ReadCloser, error) {
	m.initial = append(m.initial, req)
	return m.next(), nil
}

func (m *mockBackend) ContinueResponse(context.Context, backend.ContinueRequest) (io.ReadCloser, error) {
	return m.next(), nil
}

func (m *mockBackend) next() io.ReadCloser {
	r := m.replies[0]
	m.replies = m.replies[1:]
	return io.NopCloser(strings.NewReader(r))
}

func setup(t *testing.T, b *mockBackend) (*ToolManager, *cache.MemoryStore) {
	t.Helper()
	store := cache.NewMemoryStore()
	threads := NewThreads(chat.NewClient(b, store, chat.Options{}))
	t.Cleanup(threads.Close)

	m := NewToolManager()
	RegisterChatTools(m, threads)
	return m, store
}

func run(t *testing.T, m *ToolManager, name string, args map[string]any) conversation.View {
	t.Helper()
	tool, err := m.GetTool(name)
	require.NoError(t, err)
	out, err := tool.Run(context.Background(), args)
	require.NoError(t, err)

	var v conversation.View
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	return v
}

func msg(id int64, role, content, createdAt string) conversation.Message {
	return conversation.Message{ID: conversation.Int64(id), Role: role, Content: content, CreatedAt: createdAt}
}

func TestToolManager_ListIsSorted(t *testing.T) {
	m, _ := setup(t, &mockBackend{})

	var names []string
	for _, tool := range m.List() {
		names = append(names, tool.Name())
	}
	require.Equal(t, []string{"forget_thread", "load_more", "open_thread", "send_message", "start_thread"}, names)

	_, err := m.GetTool("nope")
	require.Error(t, err)
}

func TestOpenThreadThenLoadMore(t *testing.T) {
	b := &mockBackend{pages: map[string]conversation.View{
		"":   {Messages: []conversation.Message{msg(3, conversation.RoleUser, "three", "t3")}, HasMore: true},
		"t3": {Messages: []conversation.Message{msg(1, conversation.RoleUser, "one", "t1")}, HasMore: false},
	}}
	m, _ := setup(t, b)

	v := run(t, m, "open_thread", map[string]any{"thread_id": threadID})
	require.Len(t, v.Messages, 1)
	require.True(t, v.HasMore)

	v = run(t, m, "load_more", map[string]any{"thread_id": threadID})
	require.Equal(t, []string{"one", "three"}, contents(v))
	require.False(t, v.HasMore)
	require.Equal(t, 2, b.getCalls)
}

func TestSendMessage(t *testing.T) {
	b := &mockBackend{
		pages:   map[string]conversation.View{"": {Messages: []conversation.Message{msg(1, conversation.RoleUser, "hi", "t1")}}},
		replies: []string{"hello there"},
	}
	m, _ := setup(t, b)

	v := run(t, m, "send_message", map[string]any{"thread_id": threadID, "message": "how are you?"})
	require.Equal(t, []string{"hi", "how are you?", "hello there"}, contents(v))
}

func TestStartThread(t *testing.T) {
	b := &mockBackend{
		pages:   map[string]conversation.View{"": {Messages: []conversation.Message{msg(5, conversation.RoleUser, "Hello bot", "t1")}}},
		replies: []string{"Hi!"},
	}
	m, _ := setup(t, b)

	v := run(t, m, "start_thread", map[string]any{"thread_id": threadID, "parent_id": float64(5)})
	require.Equal(t, []string{"Hello bot", "Hi!"}, contents(v))
	require.Len(t, b.initial, 1)
	require.Equal(t, int64(5), *b.initial[0].ParentID)
}

func TestForgetThread(t *testing.T) {
	b := &mockBackend{pages: map[string]conversation.View{"": {Messages: []conversation.Message{msg(1, conversation.RoleUser, "hi", "t1")}}}}
	m, store := setup(t, b)
	run(t, m, "open_thread", map[string]any{"thread_id": threadID})

	tool, err := m.GetTool("forget_thread")
	require.NoError(t, err)
	_, err = tool.Run(context.Background(), map[string]any{"thread_id": threadID})
	require.NoError(t, err)

	_, ok := store.Load(threadID)
	require.False(t, ok)
}

func TestHandler_ReportsToolErrors(t *testing.T) {
	m, _ := setup(t, &mockBackend{})

	res, err := Handler(m, "open_thread")(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "open_thread", Arguments: map[string]any{"thread_id": "not-a-uuid"}},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	require.Contains(t, text.Text, conversation.ErrInvalidThreadID.Error())
}

func TestHandler_MissingArgument(t *testing.T) {
	m, _ := setup(t, &mockBackend{})

	res, err := Handler(m, "send_message")(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "send_message", Arguments: map[string]any{"thread_id": threadID}},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestHandler_UnknownTool(t *testing.T) {
	m, _ := setup(t, &mockBackend{})

	res, err := Handler(m, "delete_everything")(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "delete_everything"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestToolManager_Call(t *testing.T) {
	b := &mockBackend{pages: map[string]conversation.View{"": {Messages: []conversation.Message{msg(1, conversation.RoleUser, "hi", "t1")}}}}
	m, _ := setup(t, b)

	out, err := m.Call(context.Background(), "open_thread", map[string]any{"thread_id": threadID})
	require.NoError(t, err)
	require.Contains(t, out, `"content":"hi"`)

	_, err = m.Call(context.Background(), "open_thread", map[string]any{})
	require.ErrorContains(t, err, "thread_id")
}

func TestNewServer(t *testing.T) {
	m, _ := setup(t, &mockBackend{})
	require.NotNil(t, NewServer(m, "test"))

	tool := mcpTool(&SendMessageTool{})
	require.Equal(t, "send_message", tool.Name)
	require.ElementsMatch(t, []string{"thread_id", "message"}, tool.InputSchema.Required)
}

func contents(v conversation.View) []string {
	out := make([]string, 0, len(v.Messages))
	for _, m := range v.Messages {
		out = append(out, m.Content)
	}
	return out
}

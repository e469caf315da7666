// Package chat keeps the client-side view of each conversation consistent
// while history pages, live reply streams and reconciliation fetches land on
// it concurrently.
package chat

import (
	"context"
	"io"
	"time"

	"github.com/comigor/chatview/internal/backend"
	"github.com/comigor/chatview/internal/cache"
	"github.com/comigor/chatview/internal/conversation"
	"github.com/comigor/chatview/internal/logger"
)

// Backend is the subset of backend.Client the chat layer uses; tests fake it.
type Backend interface {
	GetConversation(ctx context.Context, threadID, createdAt string) (conversation.View, error)
	InitialResponse(ctx context.Context, req backend.InitialRequest) (io.ReadCloser, error)
	ContinueResponse(ctx context.Context, req backend.ContinueRequest) (io.ReadCloser, error)
}

// Redirector performs the navigation that carries a load error code to the
// page, the equivalent of replacing the URL with /chat?error=<code>.
type Redirector interface {
	Redirect(code string)
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(code string)

func (f RedirectFunc) Redirect(code string) { f(code) }

// Options tunes a Client. Zero values fall back to the defaults.
type Options struct {
	Marker         conversation.Marker
	MaxInputLength int
	Redirector     Redirector
	Now            func() time.Time
}

const defaultMaxInputLength = 200

// Client holds the collaborators shared by every session: the backend, the
// local cache and the view state.
type Client struct {
	backend Backend
	cache   cache.Store
	state   *State
	opts    Options
}

// NewClient wires a Client.
func NewClient(b Backend, store cache.Store, opts Options) *Client {
	if opts.Marker == (conversation.Marker{}) {
		opts.Marker = conversation.DefaultMarker
	}
	if opts.MaxInputLength <= 0 {
		opts.MaxInputLength = defaultMaxInputLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		backend: b,
		cache:   store,
		state:   NewState(store),
		opts:    opts,
	}
}

// State exposes the shared view state.
func (c *Client) State() *State { return c.state }

// View returns the current view of a thread.
func (c *Client) View(threadID string) (conversation.View, bool) {
	return c.state.Get(threadID)
}

// Forget evicts a deleted thread from memory and from the cache.
func (c *Client) Forget(threadID string) {
	c.state.Forget(threadID)
	logger.Thread(threadID).Info("thread forgotten")
}

func (c *Client) redirect(threadID, code string) {
	logger.Thread(threadID).Warn("redirecting with error", "code", code)
	if c.opts.Redirector != nil {
		c.opts.Redirector.Redirect(code)
	}
}

func (c *Client) now() string {
	return conversation.Timestamp(c.opts.Now())
}

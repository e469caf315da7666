// Package backend talks to the chat front-end API: conversation pages, the two
// streaming reply endpoints and the session user.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/comigor/chatview/internal/config"
	"github.com/comigor/chatview/internal/conversation"
	"github.com/comigor/chatview/internal/logger"
)

const (
	PathGetConversation  = "/api/get_conversation"
	PathInitialResponse  = "/api/initial_llm_response"
	PathContinueResponse = "/api/continue_llm_response"
	PathUser             = "/api/user"

	authCookie = "auth_token"
)

// Client is a thin HTTP client for the chat API.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new Client. No overall http.Client timeout is set since
// reply bodies stream for as long as the model talks; cfg.Timeout bounds the
// non-streaming calls only.
func NewClient(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.AuthToken,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		now:        time.Now,
	}
}

// GetConversation fetches one page of history, older than createdAt when it is
// set. An empty or missing page is not an error at this level.
func (c *Client) GetConversation(ctx context.Context, threadID, createdAt string) (conversation.View, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.do(ctx, http.MethodPost, PathGetConversation, conversationRequest{ThreadID: threadID, CreatedAt: createdAt})
	if err != nil {
		return conversation.View{}, err
	}
	defer resp.Body.Close()

	var payload conversationResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return conversation.View{}, fmt.Errorf("%s: decode: %w", PathGetConversation, err)
	}

	view := conversation.View{Messages: []conversation.Message{}}
	if payload.Data != nil {
		if payload.Data.Messages != nil {
			view.Messages = payload.Data.Messages
		}
		if payload.Data.HasMore != nil {
			view.HasMore = *payload.Data.HasMore
		}
	}
	return view, nil
}

// InitialResponse opens the reply stream for the first turn of a new thread.
// The caller owns the returned body.
func (c *Client) InitialResponse(ctx context.Context, req InitialRequest) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodPost, PathInitialResponse, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ContinueResponse opens the reply stream for a follow-up turn.
// The caller owns the returned body.
func (c *Client) ContinueResponse(ctx context.Context, req ContinueRequest) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodPost, PathContinueResponse, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// User returns the signed-in account.
func (c *Client) User(ctx context.Context) (User, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, PathUser, nil)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return User{}, fmt.Errorf("%s: decode: %w", PathUser, err)
	}
	return u, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if c.token != "" && TokenExpired(c.token, c.now()) {
		return nil, fmt.Errorf("%s: session expired: %w", path, conversation.ErrUnauthorized)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: authCookie, Value: c.token})
	}

	logger.L.Debug("backend request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", path, conversation.ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &StatusError{Endpoint: path, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/comigor/chatview/internal/config"
	"github.com/comigor/chatview/internal/conversation"
)

const threadID = "3f8a2c1e-9b4d-4e7f-8a6b-1c2d3e4f5a6b"

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "ada",
		"email":    "ada@example.com",
		"exp":      exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestGetConversation_SendsCursorAndCookie(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, PathGetConversation, r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		c, err := r.Cookie("auth_token")
		require.NoError(t, err)
		require.Equal(t, token, c.Value)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = io.WriteString(w, `{"data":{"messages":[{"id":1,"role":"user","content":"hi","created_at":"2025-01-01T00:00:00Z","images":[]}],"has_more":true}}`)
	}))
	defer srv.Close()

	c := NewClient(config.BackendConfig{BaseURL: srv.URL + "/", AuthToken: token})
	view, err := c.GetConversation(context.Background(), threadID, "2025-01-02T00:00:00Z")
	require.NoError(t, err)

	require.Equal(t, map[string]any{"thread_id": threadID, "created_at": "2025-01-02T00:00:00Z"}, got)
	require.True(t, view.HasMore)
	require.Len(t, view.Messages, 1)
	require.Equal(t, int64(1), *view.Messages[0].ID)
}

func TestGetConversation_OmitsEmptyCursor(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"data":{"messages":[]}}`)
	}))
	defer srv.Close()

	view, err := NewClient(config.BackendConfig{BaseURL: srv.URL}).GetConversation(context.Background(), threadID, "")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"thread_id": threadID}, got)
	require.Empty(t, view.Messages)
	require.False(t, view.HasMore, "missing has_more means false")
}

func TestGetConversation_ErrorDetailPayloadIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"detail":"Database error occurred."}}`)
	}))
	defer srv.Close()

	view, err := NewClient(config.BackendConfig{BaseURL: srv.URL}).GetConversation(context.Background(), threadID, "")
	require.NoError(t, err)
	require.Empty(t, view.Messages)
}

func TestGetConversation_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"server error", http.StatusInternalServerError, `{}`, func(t *testing.T, err error) {
			var se *StatusError
			require.True(t, errors.As(err, &se))
			require.Equal(t, http.StatusInternalServerError, se.StatusCode)
		}},
		{"unauthorized", http.StatusUnauthorized, `{"error":"Unauthorized"}`, func(t *testing.T, err error) {
			require.ErrorIs(t, err, conversation.ErrUnauthorized)
		}},
		{"malformed", http.StatusOK, `{"data":`, func(t *testing.T, err error) {
			require.Error(t, err)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewClient(config.BackendConfig{BaseURL: srv.URL}).GetConversation(context.Background(), threadID, "")
			tc.check(t, err)
		})
	}
}

func TestExpiredTokenShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewClient(config.BackendConfig{BaseURL: srv.URL, AuthToken: signedToken(t, time.Now().Add(-time.Minute))})
	_, err := c.GetConversation(context.Background(), threadID, "")
	require.ErrorIs(t, err, conversation.ErrUnauthorized)
	_, err = c.ContinueResponse(context.Background(), ContinueRequest{UserInput: "hi", ThreadID: threadID})
	require.ErrorIs(t, err, conversation.ErrUnauthorized)
	require.Zero(t, calls)
}

func TestStreamEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "text/plain")
		switch r.URL.Path {
		case PathInitialResponse:
			require.Equal(t, float64(42), body["parent_id"])
			_, _ = io.WriteString(w, "first reply")
		case PathContinueResponse:
			_, hasParent := body["parent_id"]
			require.False(t, hasParent)
			_, _ = io.WriteString(w, "next reply")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(config.BackendConfig{BaseURL: srv.URL})

	body, err := c.InitialResponse(context.Background(), InitialRequest{UserInput: "hello", ThreadID: threadID, ParentID: conversation.Int64(42)})
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, "first reply", string(data))

	body, err = c.ContinueResponse(context.Background(), ContinueRequest{UserInput: "more", ThreadID: threadID})
	require.NoError(t, err)
	data, err = io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, "next reply", string(data))
}

func TestStreamEndpoint_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(config.BackendConfig{BaseURL: srv.URL}).ContinueResponse(context.Background(), ContinueRequest{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, PathContinueResponse, se.Endpoint)
}

func TestUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, PathUser, r.URL.Path)
		_, _ = io.WriteString(w, `{"id":7,"username":"","email":"ada@example.com","firstname":null,"lastname":null}`)
	}))
	defer srv.Close()

	u, err := NewClient(config.BackendConfig{BaseURL: srv.URL}).User(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), u.ID)
	require.Nil(t, u.Firstname)
	require.Equal(t, "ada@example.com", u.DisplayName())
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	require.False(t, TokenExpired(signedToken(t, now.Add(time.Hour)), now))
	require.True(t, TokenExpired(signedToken(t, now.Add(-time.Hour)), now))
	require.True(t, TokenExpired("garbage", now))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "ada"}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.False(t, TokenExpired(noExp, now))
}

package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-chat/internal/model/chat"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL + "/")
	require.NoError(t, err)
	return client
}

func TestSendPostsJSONAndReturnsReply(t *testing.T) {
	var got chat.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ChatPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"hi there"}`))
	})

	reply, err := client.Send(context.Background(), "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)
	assert.Equal(t, chat.Request{UserID: "u1", Message: "hello"}, got)
}

func TestSendAcceptsEmptyReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":""}`))
	})

	reply, err := client.Send(context.Background(), "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestSendClassifiesBadStatus(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError, http.StatusBadGateway} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"reply":"should be ignored"}`))
		})

		_, err := client.Send(context.Background(), "u1", "hello")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadStatus)
		assert.NotErrorIs(t, err, ErrUnreachable)
		assert.Equal(t, status, StatusOf(err))

		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindBadStatus, kind)
	}
}

func TestSendClassifiesMalformedResponse(t *testing.T) {
	cases := map[string]string{
		"not json":       `hello`,
		"missing reply":  `{"answer":"hi"}`,
		"null reply":     `{"reply":null}`,
		"numeric reply":  `{"reply":42}`,
		"array body":     `["hi"]`,
		"empty body":     ``,
		"trailing bytes": `{"reply":"hi"} extra`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := client.Send(context.Background(), "u1", "hello")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, 0, StatusOf(err))
		})
	}
}

func TestSendRejectsOversizedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"` + strings.Repeat("a", maxResponseBytes) + `"}`))
	})

	_, err := client.Send(context.Background(), "u1", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSendClassifiesUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client, err := New("http://" + addr)
	require.NoError(t, err)

	_, err = client.Send(context.Background(), "u1", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindUnreachable, kind)
}

func TestSendCancelledContextIsUnreachable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"late"}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Send(ctx, "u1", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewValidatesBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://example.com", "http://"} {
		_, err := New(raw)
		assert.Error(t, err, "base url %q", raw)
	}

	client, err := New(" http://example.com:8000/ ")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com:8000/api/chat", client.Endpoint())
}

func TestErrorMessageCarriesKind(t *testing.T) {
	err := &Error{Kind: KindBadStatus, StatusCode: 503}
	assert.Equal(t, "chat: bad_status 503", err.Error())

	wrapped := &Error{Kind: KindMalformedResponse, Err: errMissingReply}
	assert.Equal(t, "chat: malformed_response: reply field missing", wrapped.Error())

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

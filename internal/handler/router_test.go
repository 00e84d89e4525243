package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-chat/internal/metrics"
	"github.com/zhouzirui/z-chat/internal/model/chat"
	"github.com/zhouzirui/z-chat/internal/service/chatclient"
	"github.com/zhouzirui/z-chat/internal/service/history"
	"github.com/zhouzirui/z-chat/internal/service/reply"
	"github.com/zhouzirui/z-chat/internal/service/session"
)

func newTestServer(t *testing.T) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	svc := reply.NewService(history.NewMemoryStore(0), reply.WithObserver(m))
	srv := httptest.NewServer(NewRouter(svc, m, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, m
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestUnknownRouteIsBadStatusForClient(t *testing.T) {
	srv, _ := newTestServer(t)

	client, err := chatclient.New(srv.URL + "/nowhere")
	require.NoError(t, err)

	_, err = client.Send(context.Background(), "u1", "hi")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, chatclient.StatusOf(err))
}

func TestClientAgainstServer(t *testing.T) {
	srv, _ := newTestServer(t)

	client, err := chatclient.New(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()
	got, err := client.Send(ctx, "test-user", "私の名前は太郎です")
	require.NoError(t, err)
	assert.Equal(t, "こんにちは、太郎さん！", got)

	got, err = client.Send(ctx, "test-user", "名前は？")
	require.NoError(t, err)
	assert.Equal(t, "太郎さん、こんにちは！私はAIです。", got)

	got, err = client.Send(ctx, "someone-else", "名前は？")
	require.NoError(t, err)
	assert.Equal(t, "私はAIです。あなたのお名前は何ですか？", got)
}

func TestSessionAgainstServer(t *testing.T) {
	srv, m := newTestServer(t)

	client, err := chatclient.New(srv.URL)
	require.NoError(t, err)

	ctrl := session.New(context.Background(), "test-user", client)
	defer ctrl.Close()

	ctrl.Submit("  こんにちは ")
	ctrl.Submit("")
	ctrl.Wait()
	ctrl.Submit("天気はどう？")
	ctrl.Wait()

	want := []chat.Turn{
		{Speaker: chat.Participant, Content: "こんにちは"},
		{Speaker: chat.Agent, Content: "こんにちは！"},
		{Speaker: chat.Participant, Content: "天気はどう？"},
		{Speaker: chat.Agent, Content: "今日の天気は晴れです！"},
	}
	if diff := cmp.Diff(want, ctrl.Snapshot()); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `zchat_replies_total{outcome="ok",source="rules"} 2`)
	assert.Contains(t, rec.Body.String(), `zchat_http_requests_total{route="/api/chat",status="200"} 2`)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	_, err = io.Copy(io.Discard, resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionFallbackWhenServerUnavailable(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL
	srv.Close()

	client, err := chatclient.New(base)
	require.NoError(t, err)

	ctrl := session.New(context.Background(), "test-user", client)
	defer ctrl.Close()

	ctrl.Submit("hello")
	ctrl.Wait()

	want := []chat.Turn{
		{Speaker: chat.Participant, Content: "hello"},
		session.DefaultFallback(nil),
	}
	if diff := cmp.Diff(want, ctrl.Snapshot()); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint64(1), ctrl.Stats().Failed)
}

package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
)

type apiCall struct {
	method  string
	payload map[string]any
}

// newBotServer fakes the Bot API: it records calls and serves canned results
// keyed by method name.
func newBotServer(t *testing.T, results map[string]string) (*httptest.Server, *[]apiCall) {
	t.Helper()
	var calls []apiCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot123:abc/", r.URL.Path[:len("/bot123:abc/")])
		method := r.URL.Path[len("/bot123:abc/"):]
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		calls = append(calls, apiCall{method: method, payload: payload})

		result, ok := results[method]
		if !ok {
			_, _ = w.Write([]byte(`{"ok":false,"description":"method not stubbed"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestPublisher(t *testing.T, srv *httptest.Server) *Publisher {
	t.Helper()
	pub, err := New(Config{
		Token:   "123:abc",
		ChatID:  "-100200300",
		BaseURL: srv.URL,
	}, zap.NewNop())
	require.NoError(t, err)
	return pub
}

func TestSendTextWithOrderButton(t *testing.T) {
	t.Parallel()

	srv, calls := newBotServer(t, map[string]string{
		"sendMessage": `{"message_id":42,"text":"hi"}`,
	})
	pub := newTestPublisher(t, srv)

	id, err := pub.SendText(context.Background(), "привет", &catalog.Action{Label: "🛍 Замовити", Token: "CH-1"})
	require.NoError(t, err)
	require.EqualValues(t, 42, id)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	require.Equal(t, "sendMessage", call.method)
	require.Equal(t, "-100200300", call.payload["chat_id"])
	require.Equal(t, "привет", call.payload["text"])

	markup, err := json.Marshal(call.payload["reply_markup"])
	require.NoError(t, err)
	require.JSONEq(t,
		`{"inline_keyboard":[[{"text":"🛍 Замовити","callback_data":"order_CH-1"}]]}`,
		string(markup))
}

func TestSendTextWithoutAction(t *testing.T) {
	t.Parallel()

	srv, calls := newBotServer(t, map[string]string{
		"sendMessage": `{"message_id":7}`,
	})
	pub := newTestPublisher(t, srv)

	_, err := pub.SendText(context.Background(), "привет", nil)
	require.NoError(t, err)
	require.NotContains(t, (*calls)[0].payload, "reply_markup")
}

func TestSendPhoto(t *testing.T) {
	t.Parallel()

	srv, calls := newBotServer(t, map[string]string{
		"sendPhoto": `{"message_id":43,"caption":"подпись"}`,
	})
	pub := newTestPublisher(t, srv)

	id, err := pub.SendPhoto(context.Background(), "https://cdn.example/a.jpg", "подпись", nil)
	require.NoError(t, err)
	require.EqualValues(t, 43, id)
	require.Equal(t, "https://cdn.example/a.jpg", (*calls)[0].payload["photo"])
	require.Equal(t, "подпись", (*calls)[0].payload["caption"])
}

func TestSendPhotoGroup(t *testing.T) {
	t.Parallel()

	srv, calls := newBotServer(t, map[string]string{
		"sendMediaGroup": `[{"message_id":44},{"message_id":45}]`,
	})
	pub := newTestPublisher(t, srv)

	ids, err := pub.SendPhotoGroup(context.Background(), []string{
		"https://cdn.example/b.jpg",
		"https://cdn.example/c.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, []int64{44, 45}, ids)

	media, ok := (*calls)[0].payload["media"].([]any)
	require.True(t, ok)
	require.Len(t, media, 2)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	srv, calls := newBotServer(t, map[string]string{
		"deleteMessage": `true`,
	})
	pub := newTestPublisher(t, srv)

	require.NoError(t, pub.Delete(context.Background(), 42))
	require.Equal(t, "deleteMessage", (*calls)[0].method)
	require.EqualValues(t, 42, (*calls)[0].payload["message_id"])
}

func TestDeleteFalseResult(t *testing.T) {
	t.Parallel()

	srv, _ := newBotServer(t, map[string]string{
		"deleteMessage": `false`,
	})
	pub := newTestPublisher(t, srv)

	require.Error(t, pub.Delete(context.Background(), 42))
}

func TestRecentMessages(t *testing.T) {
	t.Parallel()

	srv, calls := newBotServer(t, map[string]string{
		"getUpdates": `[
			{"update_id":1,"channel_post":{"message_id":10,"text":"пост"}},
			{"update_id":2},
			{"update_id":3,"channel_post":{"message_id":11,"caption":"подпись"}}
		]`,
	})
	pub := newTestPublisher(t, srv)

	msgs, err := pub.RecentMessages(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, []catalog.ChannelMessage{
		{ID: 10, Text: "пост"},
		{ID: 11, Text: "подпись"},
	}, msgs)

	require.EqualValues(t, -100, (*calls)[0].payload["offset"])
}

func TestAPIErrorSurfaced(t *testing.T) {
	t.Parallel()

	srv, _ := newBotServer(t, nil)
	pub := newTestPublisher(t, srv)

	_, err := pub.SendText(context.Background(), "привет", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "method not stubbed")
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{ChatID: "-1"}, nil)
	require.Error(t, err)
	_, err = New(Config{Token: "123:abc"}, nil)
	require.Error(t, err)
}

package relay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/signaling"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(NewMemoryStore(DefaultTTL, nil), nil).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func publishJSON(t *testing.T, srv *httptest.Server, msg signaling.Message) *http.Response {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/signal", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPublishPollRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	offer := signaling.NewMessage("Happy-Ramen-Guitar", "sender", signaling.TypeOffer,
		json.RawMessage(`{"sdp":"v=0..."}`))
	resp := publishJSON(t, srv, offer)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// codes are case-normalized, so the receiver polls with different casing
	resp, err := http.Get(srv.URL + "/api/signal?code=happy-ramen-guitar&session=receiver&since=0")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msgs []signaling.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, signaling.TypeOffer, msgs[0].Type)
	assert.Equal(t, "sender", msgs[0].SessionID)
}

func TestPublishValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := publishJSON(t, srv, signaling.Message{Type: signaling.TypeOffer})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(srv.URL+"/api/signal", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPollRequiresParams(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/signal?code=only-code")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPollSelfExclusionOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	publishJSON(t, srv, signaling.NewMessage("code-a-b", "sender", signaling.TypeOffer, nil))

	resp, err := http.Get(srv.URL + "/api/signal?code=code-a-b&session=sender&since=0")
	require.NoError(t, err)
	defer resp.Body.Close()

	var msgs []signaling.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	assert.Empty(t, msgs, "publisher must not receive its own message back")
}

func TestWebSocketPush(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + srv.URL[len("http"):] + "/ws?code=happy-ramen-guitar&session=receiver"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the subscription a moment to register before publishing
	time.Sleep(50 * time.Millisecond)

	publishJSON(t, srv, signaling.NewMessage("happy-ramen-guitar", "sender", signaling.TypeOffer,
		json.RawMessage(`{"sdp":"v=0..."}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg signaling.Message
	require.NoError(t, msgpack.Unmarshal(data, &msg))
	assert.Equal(t, signaling.TypeOffer, msg.Type)
	assert.Equal(t, "sender", msg.SessionID)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

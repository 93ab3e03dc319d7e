package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LemmyAI/ideaparty/internal/protocol"
)

func mustEnvelope(t *testing.T, event string, payload any) protocol.Envelope {
	t.Helper()
	env, err := protocol.NewEnvelope(event, payload)
	require.NoError(t, err)
	return env
}

func TestMockTransport_Channels(t *testing.T) {
	mock := NewMockTransport()
	mock.Join("1000", "a")
	mock.Join("1000", "b")
	mock.Join("2000", "c")

	env := mustEnvelope(t, protocol.EventUpdateTimer, protocol.Timer{SecondsRemaining: 3})
	require.NoError(t, mock.Broadcast("1000", env))

	assert.Len(t, mock.SentTo("a"), 1)
	assert.Len(t, mock.SentTo("b"), 1)
	assert.Empty(t, mock.SentTo("c"))

	mock.Leave("1000", "a")
	assert.Equal(t, []string{"b"}, mock.Members("1000"))

	mock.Clear()
	assert.Empty(t, mock.SentMessages())
}

func TestMockTransport_Handlers(t *testing.T) {
	mock := NewMockTransport()

	var connected, token, disconnected, event string
	mock.OnConnect(func(connID, sessionToken string) {
		connected, token = connID, sessionToken
	})
	mock.OnMessage(func(connID string, env protocol.Envelope) {
		event = env.Event
	})
	mock.OnDisconnect(func(connID string) {
		disconnected = connID
	})

	mock.Join("1000", "a")
	mock.SimulateConnect("a", "tok")
	mock.SimulateMessage("a", mustEnvelope(t, protocol.EventLeaveRoom, protocol.RoomRef{RoomCode: "1000"}))
	mock.SimulateDisconnect("a")

	assert.Equal(t, "a", connected)
	assert.Equal(t, "tok", token)
	assert.Equal(t, protocol.EventLeaveRoom, event)
	assert.Equal(t, "a", disconnected)
	assert.Empty(t, mock.Members("1000"), "disconnect leaves every channel")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, int64(64<<10), cfg.MaxMessageSize)
	assert.Equal(t, 15*time.Second, cfg.PingInterval)
}

type wsHarness struct {
	transport *WebSocket
	server    *httptest.Server
	connects  chan [2]string
	messages  chan protocol.Envelope
	drops     chan string
}

func newWSHarness(t *testing.T, cfg Config) *wsHarness {
	t.Helper()
	h := &wsHarness{
		transport: NewWebSocket(cfg, []string{"http://localhost:3000"}),
		connects:  make(chan [2]string, 8),
		messages:  make(chan protocol.Envelope, 8),
		drops:     make(chan string, 8),
	}
	h.transport.OnConnect(func(connID, token string) { h.connects <- [2]string{connID, token} })
	h.transport.OnMessage(func(connID string, env protocol.Envelope) { h.messages <- env })
	h.transport.OnDisconnect(func(connID string) { h.drops <- connID })

	h.server = httptest.NewServer(h.transport)
	t.Cleanup(func() {
		h.server.Close()
		_ = h.transport.Close()
	})
	return h
}

func (h *wsHarness) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
	var zero T
	return zero
}

func TestWebSocket_RoundTrip(t *testing.T) {
	h := newWSHarness(t, DefaultConfig())
	client := h.dial(t, "session=tok-1")

	conn := recv(t, h.connects)
	assert.Equal(t, "tok-1", conn[1])
	connID := conn[0]

	env := mustEnvelope(t, protocol.EventCreateRoom, protocol.CreateRoom{Username: "alice"})
	frame, err := protocol.JSON{}.Encode(env)
	require.NoError(t, err)
	require.NoError(t, client.WriteMessage(websocket.TextMessage, frame))

	got := recv(t, h.messages)
	assert.Equal(t, protocol.EventCreateRoom, got.Event)

	require.NoError(t, h.transport.Unicast(connID, mustEnvelope(t, protocol.EventRoomCreated, protocol.RoomRef{RoomCode: "1000"})))
	h.transport.Join("1000", connID)
	require.NoError(t, h.transport.Broadcast("1000", mustEnvelope(t, protocol.EventUpdatePlayerList, []string{"alice"})))

	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	first, err := protocol.JSON{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.EventRoomCreated, first.Event)

	_, data, err = client.ReadMessage()
	require.NoError(t, err)
	second, err := protocol.JSON{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.EventUpdatePlayerList, second.Event)
	assert.JSONEq(t, `["alice"]`, string(second.Data))

	require.NoError(t, client.Close())
	assert.Equal(t, connID, recv(t, h.drops))
	assert.Zero(t, h.transport.ConnCount())
	assert.ErrorIs(t, h.transport.Unicast(connID, first), ErrUnknownConn)
}

func TestWebSocket_ProtoCodec(t *testing.T) {
	h := newWSHarness(t, DefaultConfig())
	client := h.dial(t, "codec=proto")

	conn := recv(t, h.connects)
	assert.Empty(t, conn[1])

	require.NoError(t, h.transport.Unicast(conn[0], mustEnvelope(t, protocol.EventSession, protocol.Session{SessionToken: "abc"})))

	msgType, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)

	env, err := protocol.Proto{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.EventSession, env.Event)
	assert.JSONEq(t, `{"sessionToken":"abc"}`, string(env.Data))
}

func TestWebSocket_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	h := newWSHarness(t, cfg)
	client := h.dial(t, "")
	recv(t, h.connects)

	frame, err := protocol.JSON{}.Encode(mustEnvelope(t, protocol.EventGetPlayerList, protocol.RoomRef{RoomCode: "1"}))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, client.WriteMessage(websocket.TextMessage, frame))
	}
	require.NoError(t, client.Close())
	recv(t, h.drops)

	assert.Len(t, h.messages, 1, "only the burst gets through")
}

func TestWebSocket_RejectsUnknownCodec(t *testing.T) {
	h := newWSHarness(t, DefaultConfig())
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?codec=xml"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	h := newWSHarness(t, DefaultConfig())
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:3000")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.Close()
}

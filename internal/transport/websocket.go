package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/LemmyAI/ideaparty/internal/protocol"
)

var (
	ErrUnknownConn = errors.New("unknown connection")
	ErrSendBuffer  = errors.New("send buffer full")
	ErrClosed      = errors.New("transport closed")
)

// WebSocket implements Transport over gorilla/websocket. It is an
// http.Handler: mount it on the upgrade route.
//
// Query parameters on the upgrade request:
//
//	session  previously issued session token (optional)
//	codec    "json" (default, text frames) or "proto" (binary frames)
type WebSocket struct {
	config   Config
	upgrader websocket.Upgrader

	handlers struct {
		message    MessageHandler
		connect    ConnectHandler
		disconnect DisconnectHandler
	}

	mu       sync.RWMutex
	conns    map[string]*wsConn
	channels map[string]map[string]struct{}
	closed   bool

	wg sync.WaitGroup
}

type wsConn struct {
	id      string
	ws      *websocket.Conn
	codec   protocol.Codec
	send    chan []byte
	limiter *rate.Limiter
	done    chan struct{}
	once    sync.Once
}

// NewWebSocket creates a websocket transport. Browser upgrades are accepted
// only from allowedOrigins; an empty list or "*" accepts any origin.
func NewWebSocket(config Config, allowedOrigins []string) *WebSocket {
	return &WebSocket{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		conns:    make(map[string]*wsConn),
		channels: make(map[string]map[string]struct{}),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// OnMessage registers a handler for incoming events.
func (t *WebSocket) OnMessage(handler MessageHandler) {
	t.handlers.message = handler
}

// OnConnect registers a handler for new connections.
func (t *WebSocket) OnConnect(handler ConnectHandler) {
	t.handlers.connect = handler
}

// OnDisconnect registers a handler for disconnections.
func (t *WebSocket) OnDisconnect(handler DisconnectHandler) {
	t.handlers.disconnect = handler
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (t *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	codec, err := protocol.CodecByName(q.Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := &wsConn{
		id:    uuid.NewString(),
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, t.config.SendBufferSize),
		done:  make(chan struct{}),
	}
	if t.config.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(t.config.RateLimit), t.config.RateBurst)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = ws.Close()
		return
	}
	t.conns[c.id] = c
	t.wg.Add(1)
	t.mu.Unlock()

	slog.Debug("ws connected", "conn", c.id, "codec", codec.Name(), "remote", r.RemoteAddr)

	if t.handlers.connect != nil {
		t.handlers.connect(c.id, q.Get("session"))
	}

	go t.writeLoop(c)
	t.readLoop(c)

	t.drop(c)
	if t.handlers.disconnect != nil {
		t.handlers.disconnect(c.id)
	}
	slog.Debug("ws disconnected", "conn", c.id)
}

func (t *WebSocket) readLoop(c *wsConn) {
	c.ws.SetReadLimit(t.config.MaxMessageSize)
	if t.config.PingInterval > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(2 * t.config.PingInterval))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(2 * t.config.PingInterval))
		})
	}

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("ws read failed", "conn", c.id, "err", err)
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			slog.Warn("ws rate limited", "conn", c.id)
			continue
		}

		env, err := c.codec.Decode(data)
		if err != nil {
			slog.Debug("ws bad frame", "conn", c.id, "err", err)
			continue
		}

		if t.handlers.message != nil {
			t.handlers.message(c.id, env)
		}
	}
}

func (t *WebSocket) writeLoop(c *wsConn) {
	defer t.wg.Done()

	var pings <-chan time.Time
	if t.config.PingInterval > 0 {
		ticker := time.NewTicker(t.config.PingInterval)
		defer ticker.Stop()
		pings = ticker.C
	}

	msgType := websocket.TextMessage
	if c.codec.Binary() {
		msgType = websocket.BinaryMessage
	}

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
			if err := c.ws.WriteMessage(msgType, frame); err != nil {
				slog.Debug("ws write failed", "conn", c.id, "err", err)
				c.close()
				return
			}
		case <-pings:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.config.WriteTimeout)); err != nil {
				c.close()
				return
			}
		}
	}
}

// drop forgets c and removes it from every channel.
func (t *WebSocket) drop(c *wsConn) {
	c.close()

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, c.id)
	for name, members := range t.channels {
		delete(members, c.id)
		if len(members) == 0 {
			delete(t.channels, name)
		}
	}
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// enqueue hands a frame to c's writer without blocking the caller.
func (c *wsConn) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrUnknownConn
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBuffer
	}
}

// Join adds a connection to a named channel. Unknown connections are ignored.
func (t *WebSocket) Join(channel, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conns[connID]; !ok {
		return
	}
	members, ok := t.channels[channel]
	if !ok {
		members = make(map[string]struct{})
		t.channels[channel] = members
	}
	members[connID] = struct{}{}
}

// Leave removes a connection from a named channel.
func (t *WebSocket) Leave(channel, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if members, ok := t.channels[channel]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(t.channels, channel)
		}
	}
}

// Broadcast sends env to a snapshot of the channel's members. Per-member
// failures are logged and skipped.
func (t *WebSocket) Broadcast(channel string, env protocol.Envelope) error {
	t.mu.RLock()
	targets := make([]*wsConn, 0, len(t.channels[channel]))
	for id := range t.channels[channel] {
		if c, ok := t.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	t.mu.RUnlock()

	// Encode once per codec in use.
	frames := make(map[string][]byte, 2)
	for _, c := range targets {
		frame, ok := frames[c.codec.Name()]
		if !ok {
			var err error
			frame, err = c.codec.Encode(env)
			if err != nil {
				return err
			}
			frames[c.codec.Name()] = frame
		}
		if err := c.enqueue(frame); err != nil {
			slog.Warn("broadcast dropped", "channel", channel, "conn", c.id, "event", env.Event, "err", err)
		}
	}
	return nil
}

// Unicast sends env to one connection.
func (t *WebSocket) Unicast(connID string, env protocol.Envelope) error {
	t.mu.RLock()
	c, ok := t.conns[connID]
	t.mu.RUnlock()
	if !ok {
		return ErrUnknownConn
	}
	frame, err := c.codec.Encode(env)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

// ConnCount returns the number of open connections.
func (t *WebSocket) ConnCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}

// Close closes every connection and waits for their writers to exit.
// New upgrades are refused afterwards.
func (t *WebSocket) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.closed = true
	conns := make([]*wsConn, 0, len(t.conns))
	for _, c := range t.conns {
		conns = append(conns, c)
	}
	t.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	t.wg.Wait()
	return nil
}

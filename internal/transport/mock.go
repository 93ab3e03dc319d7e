package transport

import (
	"sort"
	"sync"

	"github.com/LemmyAI/ideaparty/internal/protocol"
)

// MockTransport is a mock implementation for testing.
// Broadcasts are recorded once per recipient, so tests can ask what a given
// connection saw.
type MockTransport struct {
	mu       sync.Mutex
	channels map[string]map[string]struct{}
	sent     []MockMessage
	handlers struct {
		message    MessageHandler
		connect    ConnectHandler
		disconnect DisconnectHandler
	}
}

// MockMessage records one delivered event.
type MockMessage struct {
	ConnID    string
	Channel   string // empty for unicast
	Envelope  protocol.Envelope
	Broadcast bool
}

// NewMockTransport creates a new mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		channels: make(map[string]map[string]struct{}),
	}
}

// Join adds connID to channel.
func (t *MockTransport) Join(channel, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.channels[channel]
	if !ok {
		members = make(map[string]struct{})
		t.channels[channel] = members
	}
	members[connID] = struct{}{}
}

// Leave removes connID from channel.
func (t *MockTransport) Leave(channel, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if members, ok := t.channels[channel]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(t.channels, channel)
		}
	}
}

// Broadcast records env for every current member of channel.
func (t *MockTransport) Broadcast(channel string, env protocol.Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.channels[channel]))
	for id := range t.channels[channel] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t.sent = append(t.sent, MockMessage{ConnID: id, Channel: channel, Envelope: env, Broadcast: true})
	}
	return nil
}

// Unicast records env for connID.
func (t *MockTransport) Unicast(connID string, env protocol.Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, MockMessage{ConnID: connID, Envelope: env})
	return nil
}

// OnMessage registers a handler.
func (t *MockTransport) OnMessage(handler MessageHandler) {
	t.handlers.message = handler
}

// OnConnect registers a handler.
func (t *MockTransport) OnConnect(handler ConnectHandler) {
	t.handlers.connect = handler
}

// OnDisconnect registers a handler.
func (t *MockTransport) OnDisconnect(handler DisconnectHandler) {
	t.handlers.disconnect = handler
}

// Close does nothing in mock.
func (t *MockTransport) Close() error {
	return nil
}

// --- Test helpers ---

// SimulateConnect simulates a client connecting with an optional token.
func (t *MockTransport) SimulateConnect(connID, sessionToken string) {
	if t.handlers.connect != nil {
		t.handlers.connect(connID, sessionToken)
	}
}

// SimulateMessage simulates receiving an event.
func (t *MockTransport) SimulateMessage(connID string, env protocol.Envelope) {
	if t.handlers.message != nil {
		t.handlers.message(connID, env)
	}
}

// SimulateDisconnect simulates a client disconnecting. The connection also
// drops out of every channel, as a real transport would.
func (t *MockTransport) SimulateDisconnect(connID string) {
	t.mu.Lock()
	for name, members := range t.channels {
		delete(members, connID)
		if len(members) == 0 {
			delete(t.channels, name)
		}
	}
	t.mu.Unlock()

	if t.handlers.disconnect != nil {
		t.handlers.disconnect(connID)
	}
}

// SentMessages returns all delivered messages.
func (t *MockTransport) SentMessages() []MockMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]MockMessage{}, t.sent...)
}

// SentTo returns the messages delivered to connID, in order.
func (t *MockTransport) SentTo(connID string) []MockMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []MockMessage
	for _, m := range t.sent {
		if m.ConnID == connID {
			out = append(out, m)
		}
	}
	return out
}

// Members returns the sorted members of channel.
func (t *MockTransport) Members(channel string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.channels[channel]))
	for id := range t.channels[channel] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear clears all recorded messages.
func (t *MockTransport) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = t.sent[:0]
}

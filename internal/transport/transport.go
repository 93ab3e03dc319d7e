// Package transport provides a network abstraction layer.
// This allows swapping websocket or mock implementations without changing game logic.
package transport

import (
	"time"

	"github.com/LemmyAI/ideaparty/internal/protocol"
)

// Transport is the channel capability the game core depends on.
type Transport interface {
	// Join adds a connection to a named channel.
	Join(channel, connID string)

	// Leave removes a connection from a named channel.
	Leave(channel, connID string)

	// Broadcast sends env to every connection currently in channel.
	// Delivery is best effort per connection.
	Broadcast(channel string, env protocol.Envelope) error

	// Unicast sends env to one connection.
	Unicast(connID string, env protocol.Envelope) error

	// OnMessage registers a handler for incoming events.
	OnMessage(handler MessageHandler)

	// OnConnect registers a handler for new connections.
	OnConnect(handler ConnectHandler)

	// OnDisconnect registers a handler for disconnections.
	OnDisconnect(handler DisconnectHandler)

	// Close shuts down the transport.
	Close() error
}

// MessageHandler is called when an event is received.
type MessageHandler func(connID string, env protocol.Envelope)

// ConnectHandler is called when a new client connects. sessionToken is the
// token the client presented, empty on a first visit.
type ConnectHandler func(connID, sessionToken string)

// DisconnectHandler is called when a client disconnects.
type DisconnectHandler func(connID string)

// Config holds transport configuration.
type Config struct {
	MaxMessageSize int64         `yaml:"max_message_size"`
	SendBufferSize int           `yaml:"send_buffer"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RateLimit      float64       `yaml:"rate_limit"` // inbound events per second, 0 disables
	RateBurst      int           `yaml:"rate_burst"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxMessageSize: 64 << 10,
		SendBufferSize: 64,
		PingInterval:   15 * time.Second,
		WriteTimeout:   5 * time.Second,
		RateLimit:      10,
		RateBurst:      20,
	}
}

package game

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/LemmyAI/ideaparty/internal/protocol"
	"github.com/LemmyAI/ideaparty/internal/room"
	"github.com/LemmyAI/ideaparty/internal/schedule"
	"github.com/LemmyAI/ideaparty/internal/transport"
)

// ErrStopped is returned by Do once the engine has stopped.
var ErrStopped = errors.New("engine stopped")

// Config holds game engine configuration.
type Config struct {
	Room            room.Config
	WritingTicks    int           // countdown length before ideas are requested
	TickInterval    time.Duration // time between countdown ticks
	DisconnectGrace time.Duration // how long a dropped connection may take to come back
	InboxSize       int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Room:            room.DefaultConfig(),
		WritingTicks:    30,
		TickInterval:    time.Second,
		DisconnectGrace: 500 * time.Millisecond,
		InboxSize:       1024,
	}
}

// Engine runs the event loop. Every state change happens on the loop
// goroutine; transport and timer callbacks only post work to it.
type Engine struct {
	config    Config
	state     *State
	transport transport.Transport
	sched     schedule.Scheduler

	inbox   chan func()
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	stopped bool

	grace     map[string]schedule.Task // by connection id
	sweep     schedule.Task
	startedAt time.Time
}

// NewEngine creates an engine bound to tr and registers its handlers.
// Nothing is processed until Start.
func NewEngine(config Config, tr transport.Transport, sched schedule.Scheduler) *Engine {
	if config.InboxSize <= 0 {
		config.InboxSize = DefaultConfig().InboxSize
	}
	e := &Engine{
		config:    config,
		state:     NewState(config.Room, sched.Now),
		transport: tr,
		sched:     sched,
		inbox:     make(chan func(), config.InboxSize),
		stopCh:    make(chan struct{}),
		grace:     make(map[string]schedule.Task),
	}

	tr.OnConnect(func(connID, token string) {
		e.post(func() { e.handleConnect(connID, token) })
	})
	tr.OnDisconnect(func(connID string) {
		e.post(func() { e.handleDisconnect(connID) })
	})
	tr.OnMessage(func(connID string, env protocol.Envelope) {
		e.post(func() { e.handleMessage(connID, env) })
	})
	return e
}

// Start begins the event loop.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running || e.stopped {
		return
	}
	e.running = true
	e.startedAt = e.sched.Now()

	e.wg.Add(1)
	go e.loop()

	if e.config.Room.RoomTTL > 0 && e.config.Room.CleanupPeriod > 0 {
		e.sweep = e.sched.Every(e.config.Room.CleanupPeriod, func() {
			e.post(e.sweepRooms)
		})
	}
	slog.Info("🎮 Engine started",
		"writing_ticks", e.config.WritingTicks,
		"tick_interval", e.config.TickInterval,
		"grace", e.config.DisconnectGrace)
}

// Stop stops the event loop and cancels every scheduled task. Work still
// queued is discarded.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()

	e.wg.Wait()

	if e.sweep != nil {
		e.sweep.Stop()
	}
	for _, t := range e.grace {
		t.Stop()
	}
	for _, r := range e.state.Rooms.AllRooms() {
		r.StopTimer()
	}
	slog.Info("🛑 Engine stopped")
}

func (e *Engine) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case fn := <-e.inbox:
			fn()
		}
	}
}

// post queues fn for the loop. It blocks while the inbox is full and drops
// fn once the engine has stopped.
func (e *Engine) post(fn func()) {
	select {
	case <-e.stopCh:
	case e.inbox <- fn:
	}
}

// Do runs fn on the loop and waits for it. Everything posted before Do has
// been handled by the time fn runs.
func (e *Engine) Do(fn func(*State)) error {
	done := make(chan struct{})
	e.post(func() {
		defer close(done)
		fn(e.state)
	})
	select {
	case <-done:
		return nil
	case <-e.stopCh:
		return ErrStopped
	}
}

// Stats is a point-in-time summary for the status endpoint.
type Stats struct {
	Rooms      int           `json:"rooms"`
	Players    int           `json:"players"`
	Sessions   int           `json:"sessions"`
	Uptime     time.Duration `json:"uptime"`
	OldestRoom time.Duration `json:"oldest_room"` // age of the longest-lived open room
}

// Stats reads the counters on the loop.
func (e *Engine) Stats() (Stats, error) {
	var st Stats
	err := e.Do(func(s *State) {
		now := e.sched.Now()
		st = Stats{
			Rooms:    s.Rooms.Count(),
			Players:  s.Players.Count(),
			Sessions: s.Sessions.Count(),
			Uptime:   now.Sub(e.startedAt),
		}
		for _, r := range s.Rooms.AllRooms() {
			if age := now.Sub(r.CreatedAt); age > st.OldestRoom {
				st.OldestRoom = age
			}
		}
	})
	return st, err
}

func (e *Engine) sweepRooms() {
	for _, r := range e.state.Rooms.Sweep() {
		slog.Info("🧹 Room reclaimed", "room", r.Code, "phase", r.Phase)
	}
}

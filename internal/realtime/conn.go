// Package realtime maintains the single persistent push channel to a room.
// It owns transport state only — sockets, reconnect counters — and never
// inspects payload semantics beyond envelope parsing. Subscribers register
// interest through On/Off, decoupled from the connection lifecycle.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// State is the synchronous view of the channel lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Lifecycle event kinds, alongside the message kind for inbound envelopes.
const (
	EventOpen    = "open"
	EventMessage = "message"
	EventError   = "error"
	EventClose   = "close"
)

// Event is delivered to subscribers. Envelope is set for message events,
// Err for error events.
type Event struct {
	Kind     string
	Envelope Envelope
	Err      error
}

// Handler receives events in transport delivery order.
type Handler func(Event)

// WS is the minimal socket surface the connection needs. *websocket.Conn
// satisfies it; tests substitute a scripted fake.
type WS interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a websocket to a channel URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (WS, error)
}

type gorillaDialer struct{}

func (gorillaDialer) Dial(ctx context.Context, url string) (WS, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

const (
	maxReconnectAttempts = 5
	// Linear, not exponential: expected outages are short (server restart,
	// network blip) and REST resynchronization covers the rest.
	defaultBaseDelay = time.Second
)

// Conn maintains at most one logical connection per (room, credential) pair.
type Conn struct {
	dialer    Dialer
	clock     clockwork.Clock
	log       zerolog.Logger
	baseDelay time.Duration

	mu       sync.Mutex
	writeMu  sync.Mutex
	state    State
	ws       WS
	roomID   string
	url      string
	attempts int
	gen      int // connection generation; bumps invalidate stale read loops
	retry    clockwork.Timer
	handlers map[string][]Handler
}

// Option configures a Conn.
type Option func(*Conn)

// WithDialer substitutes the websocket dialer (tests).
func WithDialer(d Dialer) Option {
	return func(c *Conn) { c.dialer = d }
}

// WithClock substitutes the backoff clock (tests).
func WithClock(clk clockwork.Clock) Option {
	return func(c *Conn) { c.clock = clk }
}

// WithBaseDelay overrides the backoff unit.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Conn) { c.baseDelay = d }
}

// New creates a disconnected Conn. One instance is constructed per process
// lifetime and injected into whichever view needs it.
func New(log zerolog.Logger, opts ...Option) *Conn {
	c := &Conn{
		dialer:    gorillaDialer{},
		clock:     clockwork.NewRealClock(),
		log:       log,
		baseDelay: defaultBaseDelay,
		handlers:  make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// On subscribes a handler to an event kind. Handlers for a kind run in
// registration order; message handlers run in transport delivery order.
func (c *Conn) On(kind string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = append(c.handlers[kind], h)
}

// Off removes every handler subscribed to an event kind.
func (c *Conn) Off(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, kind)
}

// State returns the current channel state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the channel is open.
func (c *Conn) IsConnected() bool {
	return c.State() == StateOpen
}

// Attempts returns the reconnect attempts consumed so far. Callers can pair
// it with State to detect the terminal give-up condition.
func (c *Conn) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect idempotently establishes the channel for a room. A live channel
// for a different room is closed first with a normal-closure code. Every
// explicit Connect resets the reconnect-attempt counter.
func (c *Conn) Connect(ctx context.Context, roomID, channelURL string) error {
	c.mu.Lock()
	if c.roomID == roomID && (c.state == StateOpen || c.state == StateConnecting) {
		c.mu.Unlock()
		return nil
	}
	c.closeSocketLocked()
	c.roomID = roomID
	c.url = channelURL
	c.attempts = 0
	c.cancelRetryLocked()
	c.mu.Unlock()

	return c.dial(ctx)
}

// dial performs one connection attempt for the currently associated room.
func (c *Conn) dial(ctx context.Context) error {
	c.mu.Lock()
	if c.roomID == "" {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	url := c.url
	c.mu.Unlock()

	ws, err := c.dialer.Dial(ctx, url)

	c.mu.Lock()
	if gen != c.gen || c.roomID == "" {
		// Superseded by a newer Connect or an explicit Disconnect.
		c.mu.Unlock()
		if err == nil {
			ws.Close() //nolint:errcheck // socket is unwanted
		}
		return nil
	}
	if err != nil {
		c.state = StateDisconnected
		roomID := c.roomID
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("channel dial failed")
		c.emit(Event{Kind: EventError, Err: err})
		c.scheduleReconnect()
		return err
	}
	c.ws = ws
	c.state = StateOpen
	c.attempts = 0
	roomID := c.roomID
	c.mu.Unlock()

	c.log.Info().Str("room_id", roomID).Msg("channel open")
	c.emit(Event{Kind: EventOpen})
	go c.readLoop(gen, ws)
	return nil
}

// Send serializes and transmits only if the channel is currently open;
// otherwise the message is silently dropped. No queueing — outbound
// delivery carries no guarantees.
func (c *Conn) Send(v any) {
	c.mu.Lock()
	ws := c.ws
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || ws == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.emit(Event{Kind: EventError, Err: err})
		return
	}
	c.writeMu.Lock()
	err = ws.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.emit(Event{Kind: EventError, Err: err})
	}
}

// Disconnect tears the channel down gracefully, clears the room association
// and neutralizes the reconnect policy. Idempotent and safe from any state.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	wasActive := c.ws != nil || c.state == StateConnecting
	c.roomID = ""
	c.url = ""
	c.attempts = maxReconnectAttempts
	c.cancelRetryLocked()
	c.state = StateClosing
	c.closeSocketLocked()
	c.state = StateClosed
	c.mu.Unlock()

	if wasActive {
		c.emit(Event{Kind: EventClose})
	}
}

// closeSocketLocked closes any live socket with a normal-closure frame and
// invalidates its read loop. Caller must hold c.mu.
func (c *Conn) closeSocketLocked() {
	c.gen++
	if c.ws == nil {
		return
	}
	frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.writeMu.Lock()
	c.ws.WriteMessage(websocket.CloseMessage, frame) //nolint:errcheck // best-effort goodbye
	c.writeMu.Unlock()
	c.ws.Close() //nolint:errcheck
	c.ws = nil
}

func (c *Conn) cancelRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

// readLoop pumps inbound frames until the socket dies. Malformed payloads
// are dropped without surfacing an error event.
func (c *Conn) readLoop(gen int, ws WS) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		env, ok := parseEnvelope(data)
		if !ok {
			c.log.Debug().Msg("dropping malformed push payload")
			continue
		}
		c.emit(Event{Kind: EventMessage, Envelope: env})
	}

	c.mu.Lock()
	if gen != c.gen {
		// A newer connection or an explicit teardown already owns the state.
		c.mu.Unlock()
		return
	}
	c.ws = nil
	c.state = StateDisconnected
	roomID := c.roomID
	c.mu.Unlock()

	c.log.Warn().Str("room_id", roomID).Msg("channel closed unexpectedly")
	c.emit(Event{Kind: EventClose})
	c.scheduleReconnect()
}

// scheduleReconnect applies the bounded linear backoff policy after an
// unexpected close or failed dial.
func (c *Conn) scheduleReconnect() {
	c.mu.Lock()
	if c.roomID == "" {
		c.mu.Unlock()
		return
	}
	if c.attempts >= maxReconnectAttempts {
		// Out of attempts: terminal. REST resync is the fallback from here.
		c.state = StateClosed
		c.mu.Unlock()
		c.log.Error().Msg("reconnect attempts exhausted")
		return
	}
	c.attempts++
	attempt := c.attempts
	delay := time.Duration(attempt) * c.baseDelay
	c.retry = c.clock.AfterFunc(delay, func() {
		c.dial(context.Background()) //nolint:errcheck // failure reschedules itself
	})
	c.mu.Unlock()
	c.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnect scheduled")
}

// emit delivers an event to subscribers of its kind, in registration order.
func (c *Conn) emit(ev Event) {
	c.mu.Lock()
	subs := make([]Handler, len(c.handlers[ev.Kind]))
	copy(subs, c.handlers[ev.Kind])
	c.mu.Unlock()
	for _, h := range subs {
		h(ev)
	}
}

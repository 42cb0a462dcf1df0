package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSocketClosed = errors.New("socket closed")

// fakeWS is a scripted socket: the test feeds inbound frames through in and
// simulates an unexpected drop by calling Close.
type fakeWS struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeWS() *fakeWS {
	return &fakeWS{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeWS) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.in:
		return websocket.TextMessage, data, nil
	case <-f.closed:
		return 0, nil, errSocketClosed
	}
}

func (f *fakeWS) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, data)
	return nil
}

func (f *fakeWS) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeWS) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

// fakeDialer fails the first failUntil dials, then hands out fake sockets.
type fakeDialer struct {
	mu        sync.Mutex
	failUntil int
	dials     atomic.Int32
	conns     []*fakeWS
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (WS, error) {
	n := int(d.dials.Add(1))
	if n <= d.failUntil {
		return nil, errors.New("dial refused")
	}
	ws := newFakeWS()
	d.mu.Lock()
	d.conns = append(d.conns, ws)
	d.mu.Unlock()
	return ws, nil
}

func (d *fakeDialer) lastConn() *fakeWS {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func newTestConn(d *fakeDialer, clk clockwork.Clock) *Conn {
	return New(zerolog.Nop(), WithDialer(d), WithClock(clk), WithBaseDelay(time.Second))
}

func TestConnectDispatchesEnvelopesInOrder(t *testing.T) {
	d := &fakeDialer{}
	c := newTestConn(d, clockwork.NewFakeClock())

	opened := make(chan struct{}, 1)
	messages := make(chan Envelope, 16)
	c.On(EventOpen, func(Event) { opened <- struct{}{} })
	c.On(EventMessage, func(ev Event) { messages <- ev.Envelope })

	require.NoError(t, c.Connect(context.Background(), "room-1", "ws://test/ws/room/room-1/"))
	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("no open event")
	}
	assert.True(t, c.IsConnected())

	ws := d.lastConn()
	ws.in <- []byte(`{"type":"room_update","room":{"id":"room-1"}}`)
	ws.in <- []byte(`this is not json`)                             // dropped silently
	ws.in <- []byte(`{"untyped":"frame"}`)                          // dropped: no type
	ws.in <- []byte(`{"type":"round_advancing_notification","seconds_left":3}`)

	first := <-messages
	assert.Equal(t, KindRoomUpdate, first.Type)
	second := <-messages
	assert.Equal(t, KindRoundAdvancing, second.Type)

	var payload RoundAdvancingPayload
	require.NoError(t, second.Decode(&payload))
	assert.Equal(t, 3, payload.SecondsLeft)

	select {
	case extra := <-messages:
		t.Fatalf("malformed frame surfaced as event: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectIsIdempotentForSameRoom(t *testing.T) {
	d := &fakeDialer{}
	c := newTestConn(d, clockwork.NewFakeClock())

	require.NoError(t, c.Connect(context.Background(), "room-1", "ws://test/1"))
	require.NoError(t, c.Connect(context.Background(), "room-1", "ws://test/1"))
	assert.Equal(t, int32(1), d.dials.Load())
}

func TestConnectToNewRoomForceClosesOldChannel(t *testing.T) {
	d := &fakeDialer{}
	c := newTestConn(d, clockwork.NewFakeClock())

	require.NoError(t, c.Connect(context.Background(), "room-1", "ws://test/1"))
	old := d.lastConn()

	require.NoError(t, c.Connect(context.Background(), "room-2", "ws://test/2"))
	assert.Equal(t, int32(2), d.dials.Load())
	assert.True(t, c.IsConnected())

	// The old socket got a graceful close frame, not an abrupt drop.
	require.Eventually(t, func() bool { return old.writeCount() > 0 }, time.Second, 10*time.Millisecond)
	select {
	case <-old.closed:
	default:
		t.Fatal("old socket not closed on room switch")
	}
}

func TestSendDropsSilentlyWhenNotOpen(t *testing.T) {
	d := &fakeDialer{}
	c := newTestConn(d, clockwork.NewFakeClock())

	// Not connected: no panic, no dial, no error event.
	errs := make(chan error, 1)
	c.On(EventError, func(ev Event) { errs <- ev.Err })
	c.Send(map[string]string{"type": "ping"})
	assert.Equal(t, int32(0), d.dials.Load())
	select {
	case err := <-errs:
		t.Fatalf("unexpected error event: %v", err)
	default:
	}

	require.NoError(t, c.Connect(context.Background(), "room-1", "ws://test/1"))
	c.Send(map[string]string{"type": "ping"})
	require.Eventually(t, func() bool { return d.lastConn().writeCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestReconnectIsLinearAndBounded(t *testing.T) {
	d := &fakeDialer{failUntil: 1 << 30} // never succeeds
	clk := clockwork.NewFakeClock()
	c := newTestConn(d, clk)

	// The explicit connect fails and starts the retry ladder.
	require.Error(t, c.Connect(context.Background(), "room-1", "ws://test/1"))

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		clk.BlockUntil(1) // retry timer registered
		assert.Equal(t, attempt, c.Attempts())
		clk.Advance(time.Duration(attempt) * time.Second)
		want := int32(attempt + 1) // explicit dial + retries so far
		require.Eventually(t, func() bool { return d.dials.Load() == want }, time.Second, time.Millisecond,
			"attempt %d did not redial", attempt)
	}

	// A 6th automatic attempt must never be scheduled.
	require.Eventually(t, func() bool { return c.State() == StateClosed }, time.Second, time.Millisecond)
	clk.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(maxReconnectAttempts+1), d.dials.Load())
	assert.Equal(t, maxReconnectAttempts, c.Attempts())
}

func TestSuccessfulOpenResetsAttempts(t *testing.T) {
	d := &fakeDialer{failUntil: 2}
	clk := clockwork.NewFakeClock()
	c := newTestConn(d, clk)

	require.Error(t, c.Connect(context.Background(), "room-1", "ws://test/1"))

	clk.BlockUntil(1)
	clk.Advance(time.Second) // retry 1: fails
	clk.BlockUntil(1)
	clk.Advance(2 * time.Second) // retry 2: succeeds

	require.Eventually(t, func() bool { return c.IsConnected() }, time.Second, time.Millisecond)
	assert.Equal(t, 0, c.Attempts(), "successful open must reset the attempt counter")
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	d := &fakeDialer{failUntil: 1 << 30}
	clk := clockwork.NewFakeClock()
	c := newTestConn(d, clk)

	require.Error(t, c.Connect(context.Background(), "room-1", "ws://test/1"))
	clk.BlockUntil(1) // retry pending

	c.Disconnect()
	clk.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), d.dials.Load(), "no dial after explicit disconnect")
	assert.Equal(t, StateClosed, c.State())
}

func TestCloseAfterDisconnectSchedulesNothing(t *testing.T) {
	d := &fakeDialer{}
	clk := clockwork.NewFakeClock()
	c := newTestConn(d, clk)

	require.NoError(t, c.Connect(context.Background(), "room-1", "ws://test/1"))
	ws := d.lastConn()

	c.Disconnect()
	assert.Equal(t, StateClosed, c.State())

	// A late close from the dead socket's read loop must not revive anything.
	ws.Close() //nolint:errcheck
	clk.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), d.dials.Load())
	assert.Equal(t, StateClosed, c.State())

	// Disconnect is idempotent from any state.
	c.Disconnect()
	assert.Equal(t, StateClosed, c.State())
}

func TestUnexpectedCloseTriggersReconnect(t *testing.T) {
	d := &fakeDialer{}
	clk := clockwork.NewFakeClock()
	c := newTestConn(d, clk)

	closes := make(chan struct{}, 1)
	c.On(EventClose, func(Event) { closes <- struct{}{} })

	require.NoError(t, c.Connect(context.Background(), "room-1", "ws://test/1"))
	d.lastConn().Close() //nolint:errcheck // simulate server drop

	select {
	case <-closes:
	case <-time.After(time.Second):
		t.Fatal("no close event after socket drop")
	}

	clk.BlockUntil(1)
	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return c.IsConnected() }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), d.dials.Load())
}

func TestOffRemovesSubscribers(t *testing.T) {
	d := &fakeDialer{}
	c := newTestConn(d, clockwork.NewFakeClock())

	got := make(chan Envelope, 4)
	c.On(EventMessage, func(ev Event) { got <- ev.Envelope })
	c.Off(EventMessage)

	require.NoError(t, c.Connect(context.Background(), "room-1", "ws://test/1"))
	d.lastConn().in <- []byte(`{"type":"room_deleted_notification"}`)

	select {
	case env := <-got:
		t.Fatalf("handler fired after Off: %+v", env)
	case <-time.After(50 * time.Millisecond):
	}
}

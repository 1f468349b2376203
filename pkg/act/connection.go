package act

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/sumitelequin/actgo/pkg/actwire"
)

// State is a Connection's lifecycle state. Disconnected is terminal:
// an instance that reaches it never returns to Connected.
type State int8

const (
	StateUnknown State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// StateChangeFunc observes every Connection state transition.
type StateChangeFunc func(old, new State, err error)

// ResponseFunc receives one fully decoded, inspector-run Response.
// It is invoked on the connection's single read-loop goroutine, which
// is this library's event loop: framing, dispatch, and every caller
// callback run there.
type ResponseFunc func(actwire.Response)

// Connection is a single framed TCP stream carrying ACT's
// length-prefixed protobuf-wire Request/Response traffic. Only
// Connection may write to its socket; reads are owned by its single
// internal read-loop goroutine, which also drives every inspector and
// dispatch callback, matching the cooperative single-threaded model
// the rest of the package assumes.
type Connection struct {
	cfg Config

	writeMu sync.Mutex
	conn    net.Conn

	stateMu sync.Mutex
	state   State

	onResponse    ResponseFunc
	onStateChange []StateChangeFunc

	inspect *inspectors

	disconnectOnce sync.Once
	disconnectCh   chan struct{}
	disconnectErr  error

	stringer func(*Connection) string
}

// NewConnection builds an unconnected Connection. onResponse is
// invoked for every decoded, inspected Response; it runs on the
// read-loop goroutine started by Connect.
func NewConnection(cfg Config, onResponse ResponseFunc) *Connection {
	return &Connection{
		cfg:          cfg,
		state:        StateUnknown,
		onResponse:   onResponse,
		inspect:      newInspectors(),
		disconnectCh: make(chan struct{}),
	}
}

// Inspectors exposes the hook registration surface.
func (c *Connection) Inspectors() *inspectors { return c.inspect }

// SetStringer overrides how this connection renders in String; pass
// nil to restore the default "host:port" form.
func (c *Connection) SetStringer(fn func(*Connection) string) { c.stringer = fn }

func (c *Connection) String() string {
	if c.stringer != nil {
		return c.stringer(c)
	}
	return c.cfg.addr()
}

// AddStateChangeHandler registers a callback invoked on every state
// transition, additive like the DexQuery observer lists.
func (c *Connection) AddStateChangeHandler(fn StateChangeFunc) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.onStateChange = append(c.onStateChange, fn)
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Connection) setState(new State, err error) {
	c.stateMu.Lock()
	old := c.state
	c.state = new
	handlers := append([]StateChangeFunc(nil), c.onStateChange...)
	c.stateMu.Unlock()

	if old == new && new != StateDisconnected {
		// Only fire on an actual change, except Disconnected may
		// legitimately be observed more than once during teardown.
		return
	}
	c.cfg.Logger.Log(LevelDebug, "connection state change", "old", old, "new", new, "err", err)
	for _, h := range handlers {
		h(old, new, err)
	}
	if new == StateDisconnected {
		c.disconnectOnce.Do(func() {
			c.disconnectErr = err
			close(c.disconnectCh)
		})
	}
}

// Connect dials the configured address, transitions to Connecting and
// then Connected or Disconnected, and on success starts the read
// loop. It is one of the few operations that may block; everything
// else returns immediately and delivers results via callbacks.
func (c *Connection) Connect() error {
	if s := c.State(); s == StateConnecting || s == StateConnected {
		return ErrAlreadyConnecting
	}
	c.setState(StateConnecting, nil)
	conn, err := c.cfg.Dialer.Dial("tcp", c.cfg.addr())
	if err != nil {
		c.setState(StateDisconnected, err)
		return err
	}
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.setState(StateConnected, nil)
	go c.readLoop(conn)
	return nil
}

// WaitOnDisconnect blocks until the connection has reached
// Disconnected, returning the error (if any) that caused it.
func (c *Connection) WaitOnDisconnect() error {
	<-c.disconnectCh
	return c.disconnectErr
}

// Disconnected returns a channel closed exactly once the connection
// reaches Disconnected, for callers that want to select on it
// alongside other events instead of blocking in WaitOnDisconnect.
func (c *Connection) Disconnected() <-chan struct{} { return c.disconnectCh }

// Send frames req as uint32_le length || payload, runs outgoing byte
// and Request inspectors, and writes atomically to the socket. It is
// non-blocking with respect to the read loop: callers never wait on a
// response here.
func (c *Connection) Send(req actwire.Request) error {
	switch c.State() {
	case StateDisconnected:
		return ErrDisconnected
	case StateConnected:
	default:
		return ErrNotConnected
	}
	payload := req.AppendTo(nil)
	framed := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(framed[:4], uint32(len(payload)))
	copy(framed[4:], payload)

	c.inspect.runOutgoingRequest(req)
	c.inspect.runOutgoingBytes(framed)

	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	_, err := conn.Write(framed)
	c.writeMu.Unlock()
	if err != nil {
		c.setState(StateDisconnected, err)
		return err
	}
	return nil
}

// readLoop is the connection's event-loop goroutine: it owns the
// growable reassembly buffer and is the only goroutine that ever
// calls onResponse or an incoming inspector.
func (c *Connection) readLoop(conn net.Conn) {
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			buf = c.drainFrames(buf)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.setState(StateDisconnected, nil)
			} else {
				c.setState(StateDisconnected, err)
			}
			return
		}
	}
}

// drainFrames extracts as many complete frames from buf as possible,
// delivering each, and returns the remaining undecoded tail. A
// frame-parse failure is logged and that single frame discarded;
// framing continues at the next length-prefixed boundary (the length
// field is trusted, the stream is never re-synced by scanning).
func (c *Connection) drainFrames(buf []byte) []byte {
	for {
		if len(buf) < 4 {
			return buf
		}
		n := binary.LittleEndian.Uint32(buf[:4])
		if uint64(len(buf)) < 4+uint64(n) {
			return buf
		}
		frame := buf[4 : 4+n]
		c.inspect.runIncomingBytes(buf[:4+n])

		var resp actwire.Response
		if err := resp.ReadFrom(frame); err != nil {
			c.cfg.Logger.Log(LevelWarn, "discarding unparsable frame", "len", n, "err", err)
		} else {
			c.inspect.runIncomingResponse(resp)
			if c.onResponse != nil {
				c.onResponse(resp)
			}
		}
		buf = buf[4+n:]
	}
}

// Close closes the underlying socket, if any, forcing the read loop
// to observe an error and transition to Disconnected.
func (c *Connection) Close() error {
	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()
	if conn == nil {
		c.setState(StateDisconnected, nil)
		return nil
	}
	return conn.Close()
}

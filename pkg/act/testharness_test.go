package act

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/sumitelequin/actgo/pkg/actwire"
)

// fakeServer is the test double standing in for the ACT server: it
// owns the far end of an in-memory net.Pipe, can read the next
// framed Request the Session sends, and can push framed Responses
// back on its own schedule.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
}

func newTestSession(t *testing.T, opts ...Opt) (*Session, *fakeServer) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	cfg := NewConfig(append([]Opt{WithDialer(&pipeDialer{conn: clientSide})}, opts...)...)
	s := NewSession(cfg)
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return s, &fakeServer{t: t, conn: serverSide}
}

func (f *fakeServer) readRequest() actwire.Request {
	f.t.Helper()
	lenBuf := make([]byte, 4)
	if _, err := readFull(f.conn, lenBuf); err != nil {
		f.t.Fatalf("fakeServer: read length: %v", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf)
	payload := make([]byte, n)
	if _, err := readFull(f.conn, payload); err != nil {
		f.t.Fatalf("fakeServer: read payload: %v", err)
	}
	var req actwire.Request
	if err := req.ReadFrom(payload); err != nil {
		f.t.Fatalf("fakeServer: decode request: %v", err)
	}
	return req
}

func (f *fakeServer) writeResponse(resp actwire.Response) {
	f.t.Helper()
	payload := resp.AppendTo(nil)
	framed := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(framed[:4], uint32(len(payload)))
	copy(framed[4:], payload)
	if _, err := f.conn.Write(framed); err != nil {
		f.t.Fatalf("fakeServer: write response: %v", err)
	}
}

// waitForDex blocks until q has applied at least one TableUpdate,
// dumping the query's materialised rows via go-spew on timeout so a
// failing assertion doesn't need a second run under a debugger.
func waitForDex(t *testing.T, q *DexQuery) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.UpdateCount() >= 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if q.UpdateCount() < 1 {
		t.Fatalf("no TableUpdate applied before timeout; query state:\n%s", spew.Sdump(q.Rows()))
	}
}

// waitFor polls cond until it's true or the timeout elapses, failing
// the test on timeout. Tests use this instead of a fixed sleep
// because callbacks run asynchronously on the Connection's read-loop
// goroutine.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition not met before timeout")
	}
}

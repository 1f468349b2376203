package act

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/sumitelequin/actgo/pkg/actwire"
)

// recordingLogger captures log messages so tests can assert which
// taps actually fired.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Log(_ Level, msg string, _ ...any) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.msgs {
		if m == msg {
			n++
		}
	}
	return n
}

func TestInspectorHelperSelectiveStart(t *testing.T) {
	logger := &recordingLogger{}
	c, server := newConnectedPair(t, nil)
	defer c.Close()
	c.cfg.Logger = logger

	h := NewInspectorHelper(c)
	h.Start(true, false, false, false)

	req := actwire.Request{
		SubProtocolType: actwire.SubProtoAct,
		ActRequest:      &actwire.ActRequest{RequestType: actwire.ReqLogout, ClientId: 1},
	}
	done := make(chan error, 1)
	go func() { done <- c.Send(req) }()
	lenBuf := make([]byte, 4)
	if _, err := readFull(server, lenBuf); err != nil {
		t.Fatalf("read length prefix: %v", err)
	}
	payload := make([]byte, binary.LittleEndian.Uint32(lenBuf))
	if _, err := readFull(server, payload); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got := logger.count("request"); got != 1 {
		t.Errorf("request tap fired %d times, want 1", got)
	}
	if got := logger.count("sent"); got != 0 {
		t.Errorf("outgoing-data tap fired %d times, want 0 (not enabled)", got)
	}

	// Restarting with a different selection replaces, not stacks.
	h.Start(false, false, false, true)
	go func() { done <- c.Send(req) }()
	if _, err := readFull(server, lenBuf); err != nil {
		t.Fatalf("read length prefix: %v", err)
	}
	payload = make([]byte, binary.LittleEndian.Uint32(lenBuf))
	if _, err := readFull(server, payload); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got := logger.count("request"); got != 1 {
		t.Errorf("request tap fired %d times after restart, want still 1", got)
	}
	if got := logger.count("sent"); got != 1 {
		t.Errorf("outgoing-data tap fired %d times after restart, want 1", got)
	}

	h.Stop()
	if got := len(c.inspect.outgoingBytes) + len(c.inspect.incomingBytes) +
		len(c.inspect.outgoingRequest) + len(c.inspect.incomingResponse); got != 0 {
		t.Errorf("%d inspectors still registered after Stop, want 0", got)
	}
}

func TestInspectorHelperStopWithoutStart(t *testing.T) {
	c, _ := newConnectedPair(t, nil)
	defer c.Close()
	h := NewInspectorHelper(c)
	h.Stop() // must be a no-op
	if len(c.inspect.outgoingRequest) != 0 {
		t.Error("Stop without Start registered inspectors")
	}
}

package act

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/sumitelequin/actgo/pkg/actwire"
)

// pipeDialer.Dial hands back one end of an in-memory net.Pipe instead
// of dialing a real socket.
type pipeDialer struct {
	conn net.Conn
}

func (d *pipeDialer) Dial(network, address string) (net.Conn, error) {
	return d.conn, nil
}

func newConnectedPair(t *testing.T, onResponse ResponseFunc) (*Connection, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	c := NewConnection(NewConfig(WithDialer(&pipeDialer{conn: clientSide})), onResponse)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c, serverSide
}

func TestConnectionSendNotConnectedFails(t *testing.T) {
	c := NewConnection(NewConfig(), nil)
	if err := c.Send(actwire.Request{}); err != ErrNotConnected {
		t.Fatalf("Send before Connect = %v, want ErrNotConnected", err)
	}
}

func TestConnectionSendFramesAndWrites(t *testing.T) {
	c, server := newConnectedPair(t, nil)
	defer c.Close()

	req := actwire.Request{
		SubProtocolType: actwire.SubProtoAct,
		ActRequest: &actwire.ActRequest{
			RequestType: actwire.ReqLogin,
			ClientId:    1,
		},
	}
	done := make(chan error, 1)
	go func() { done <- c.Send(req) }()

	lenBuf := make([]byte, 4)
	if _, err := readFull(server, lenBuf); err != nil {
		t.Fatalf("read length prefix: %v", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf)
	payload := make([]byte, n)
	if _, err := readFull(server, payload); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send: %v", err)
	}

	var got actwire.Request
	if err := got.ReadFrom(payload); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if got.SubProtocolType != actwire.SubProtoAct || got.ActRequest == nil || got.ActRequest.ClientId != 1 {
		t.Errorf("round-tripped request mismatch: %+v", got)
	}
}

func readFull(c net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// TestFramingSplitAcrossChunks delivers two frames across an
// arbitrary chunk boundary; they must be reassembled into exactly two
// Responses, in order.
func TestFramingSplitAcrossChunks(t *testing.T) {
	var got []actwire.Response
	c, server := newConnectedPair(t, func(r actwire.Response) {
		got = append(got, r)
	})
	defer c.Close()

	r1 := actwire.Response{
		SubProtocolType: actwire.SubProtoAct,
		ActResponse:     &actwire.ActResponse{ResponseType: actwire.RespLogin},
	}
	r2 := actwire.Response{
		SubProtocolType: actwire.SubProtoDex,
		DexResponse:     &actwire.DexResponse{ResponseType: actwire.RespStartQuery, ClientId: 9},
	}
	p1 := r1.AppendTo(nil)
	p2 := r2.AppendTo(nil)

	var stream []byte
	stream = appendFrame(stream, p1)
	stream = appendFrame(stream, p2)

	// Split at an arbitrary, non-frame-aligned boundary to prove
	// reassembly does not depend on chunk alignment.
	mid := len(stream) / 2
	if mid == 0 {
		mid = 1
	}

	writeDone := make(chan struct{})
	go func() {
		server.Write(stream[:mid])
		time.Sleep(5 * time.Millisecond)
		server.Write(stream[mid:])
		close(writeDone)
	}()
	<-writeDone

	deadline := time.Now().Add(2 * time.Second)
	for len(got) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if len(got) != 2 {
		t.Fatalf("got %d responses, want 2", len(got))
	}
	if got[0].SubProtocolType != actwire.SubProtoAct {
		t.Errorf("first response sub-protocol = %v, want ACT", got[0].SubProtocolType)
	}
	if got[1].SubProtocolType != actwire.SubProtoDex || got[1].DexResponse.ClientId != 9 {
		t.Errorf("second response mismatch: %+v", got[1])
	}
}

func appendFrame(stream, payload []byte) []byte {
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(payload)))
	stream = append(stream, lenBuf...)
	stream = append(stream, payload...)
	return stream
}

func TestConnectionConnectTwiceFails(t *testing.T) {
	c, _ := newConnectedPair(t, nil)
	defer c.Close()
	if err := c.Connect(); err != ErrAlreadyConnecting {
		t.Fatalf("second Connect() = %v, want ErrAlreadyConnecting", err)
	}
}

func TestConnectionSendAfterDisconnectFails(t *testing.T) {
	c, server := newConnectedPair(t, nil)
	server.Close()
	select {
	case <-c.Disconnected():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Disconnected")
	}
	if err := c.Send(actwire.Request{}); err != ErrDisconnected {
		t.Fatalf("Send after disconnect = %v, want ErrDisconnected", err)
	}
}

func TestConnectionStateTransitionsOnClose(t *testing.T) {
	c, server := newConnectedPair(t, nil)
	var seen []State
	c.AddStateChangeHandler(func(old, new State, err error) {
		seen = append(seen, new)
	})
	server.Close()
	select {
	case <-c.Disconnected():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Disconnected")
	}
	if c.State() != StateDisconnected {
		t.Errorf("State() = %v, want Disconnected", c.State())
	}
}

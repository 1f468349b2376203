package act

import (
	"sync"
	"testing"

	"github.com/sumitelequin/actgo/pkg/actwire"
)

func TestSessionTraceIDStampedOnConstruction(t *testing.T) {
	s1 := NewSession(NewConfig())
	s2 := NewSession(NewConfig())
	if s1.TraceID() == "" {
		t.Fatal("TraceID() empty, want a stamped uuid")
	}
	if s1.TraceID() == s2.TraceID() {
		t.Errorf("two sessions share a trace id: %q", s1.TraceID())
	}
}

func TestSessionLogonSuccess(t *testing.T) {
	s, server := newTestSession(t, WithCredentials("trader1", "hunter2"), WithAppName("blotter"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		req := server.readRequest()
		if req.SubProtocolType != actwire.SubProtoAct || req.ActRequest.RequestType != actwire.ReqLogin {
			t.Errorf("unexpected login request: %+v", req)
			return
		}
		if req.ActRequest.LoginRequest.Username != "trader1" {
			t.Errorf("username = %q, want trader1", req.ActRequest.LoginRequest.Username)
		}
		server.writeResponse(actwire.Response{
			SubProtocolType: actwire.SubProtoAct,
			SessionId:       555,
			ActResponse: &actwire.ActResponse{
				ResponseType:  actwire.RespLogin,
				LoginResponse: &actwire.ActLoginResponse{User: "trader1"},
				Connections:   []actwire.ServerConnectionWire{{Name: "primary", Status: "UP"}},
			},
		})
	}()

	resp, err := s.Logon()
	<-done
	if err != nil {
		t.Fatalf("Logon: %v", err)
	}
	if resp.User != "trader1" {
		t.Errorf("resp.User = %q", resp.User)
	}
	if !s.Authenticated() {
		t.Error("Authenticated() = false after successful login")
	}
	if got := s.SessionID(); got != 555 {
		t.Errorf("SessionID() = %d, want the envelope's server-assigned 555", got)
	}
	conns := s.ServerConnections()
	if len(conns) != 1 || conns[0].Name != "primary" {
		t.Errorf("ServerConnections() = %+v", conns)
	}
}

func TestSessionLogonFailure(t *testing.T) {
	s, server := newTestSession(t, WithCredentials("baduser", "wrong"))

	go func() {
		server.readRequest()
		server.writeResponse(actwire.Response{
			SubProtocolType: actwire.SubProtoAct,
			ActResponse: &actwire.ActResponse{
				ResponseType:    actwire.RespLogin,
				OperationStatus: actwire.OperationStatus{ErrorMessage: "bad credentials"},
			},
		})
	}()

	_, err := s.Logon()
	if err == nil {
		t.Fatal("expected Logon to fail")
	}
	if s.Authenticated() {
		t.Error("Authenticated() = true after rejected login")
	}
}

func TestSessionLogonOnlyOnce(t *testing.T) {
	s, server := newTestSession(t)
	go func() {
		server.readRequest()
		server.writeResponse(actwire.Response{
			SubProtocolType: actwire.SubProtoAct,
			ActResponse:     &actwire.ActResponse{ResponseType: actwire.RespLogin},
		})
	}()
	if _, err := s.Logon(); err != nil {
		t.Fatalf("first Logon: %v", err)
	}
	if _, err := s.Logon(); err != ErrLogonFailed {
		t.Errorf("second Logon() = %v, want ErrLogonFailed", err)
	}
}

func TestActSubSessionClientIDMonotonic(t *testing.T) {
	a := newActSubSession(&Session{cfg: NewConfig()})
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, a.nextClientID())
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("client-ids not strictly increasing: %v", ids)
		}
	}
	if ids[0] != 1 {
		t.Errorf("first client-id = %d, want 1 (increment-then-use)", ids[0])
	}
}

func TestAutoControlSendAndAck(t *testing.T) {
	s, server := newTestSession(t)

	var mu sync.Mutex
	var gotClientID int64
	var gotErr string
	doneCh := make(chan struct{})
	sendErrCh := make(chan error, 1)
	go func() {
		_, err := s.AutoControl().SendAutomationUpdates(
			[]actwire.ProductAutomationUpdate{{Product: "ESZ4"}},
			func(clientID int64, errMsg string, resp actwire.AutoControlResponse) {
				mu.Lock()
				gotClientID = clientID
				gotErr = errMsg
				mu.Unlock()
				close(doneCh)
			},
		)
		sendErrCh <- err
	}()

	req := server.readRequest()
	if err := <-sendErrCh; err != nil {
		t.Fatalf("SendAutomationUpdates: %v", err)
	}
	if req.SubProtocolType != actwire.SubProtoAutoControl {
		t.Fatalf("unexpected sub-protocol: %v", req.SubProtocolType)
	}
	update := req.AutoControlRequest.AutomationUpdates[0]
	if update.NewIId == "" {
		t.Error("expected a minted NewIId")
	}
	server.writeResponse(actwire.Response{
		SubProtocolType: actwire.SubProtoAutoControl,
		AutoControlResponse: &actwire.AutoControlResponse{
			ResponseType: actwire.RespAutoControlUpdate,
			ClientId:     req.AutoControlRequest.ClientId,
		},
	})

	<-doneCh
	mu.Lock()
	defer mu.Unlock()
	if gotClientID != req.AutoControlRequest.ClientId {
		t.Errorf("callback client-id = %d, want %d", gotClientID, req.AutoControlRequest.ClientId)
	}
	if gotErr != "" {
		t.Errorf("unexpected error: %q", gotErr)
	}
}

func TestAlgoCreateDirectAction(t *testing.T) {
	s, server := newTestSession(t)

	doneCh := make(chan actwire.AlgoResponse, 1)
	sendErrCh := make(chan error, 1)
	go func() {
		_, err := s.Algo().CreateDirectAction(
			actwire.CreateDirectActionRequest{DirectActionName: "vwap", BaseInstrument: "ESZ4"},
			func(clientID int64, errMsg string, resp actwire.AlgoResponse) {
				doneCh <- resp
			},
		)
		sendErrCh <- err
	}()

	req := server.readRequest()
	if err := <-sendErrCh; err != nil {
		t.Fatalf("CreateDirectAction: %v", err)
	}
	if req.AlgoRequest.RequestType != actwire.ReqCreateDirectAction {
		t.Fatalf("unexpected request type: %v", req.AlgoRequest.RequestType)
	}
	server.writeResponse(actwire.Response{
		SubProtocolType: actwire.SubProtoAlgo,
		AlgoResponse: &actwire.AlgoResponse{
			ResponseType:               actwire.RespCreateDirectAction,
			ClientId:                   req.AlgoRequest.ClientId,
			CreateDirectActionResponse: &actwire.CreateDirectActionResponse{ActionName: "vwap-1", AutomationStatus: "AUTO"},
		},
	})

	resp := <-doneCh
	if resp.CreateDirectActionResponse == nil || resp.CreateDirectActionResponse.ActionName != "vwap-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSessionStringer(t *testing.T) {
	s := NewSession(NewConfig(WithCredentials("trader1", "x")))
	if got := s.String(); got == "" {
		t.Error("default String() empty")
	}
	s.SetStringer(func(*Session) string { return "desk-session" })
	if got := s.String(); got != "desk-session" {
		t.Errorf("String() = %q, want desk-session", got)
	}

	c := s.Connection()
	c.SetStringer(func(*Connection) string { return "primary-link" })
	if got := c.String(); got != "primary-link" {
		t.Errorf("connection String() = %q, want primary-link", got)
	}
	c.SetStringer(nil)
	if got := c.String(); got == "primary-link" {
		t.Error("nil SetStringer did not restore the default")
	}
}

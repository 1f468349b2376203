package act

import (
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/sumitelequin/actgo/pkg/actwire"
)

// ServerConnection is one entry of the server-reported connection
// list populated on a successful login.
type ServerConnection struct {
	Name   string
	Status string
}

// Property is a name/value pair, used both for session properties
// returned at login and for client properties sent at login.
type Property struct {
	Name  string
	Value string
}

// Session owns exactly one Connection, the caller's credentials, and
// the four sub-sessions, one per sub-protocol. Inbound responses are
// routed by SubProtocolType to the owning sub-session; each
// sub-session correlates further by client-id.
type Session struct {
	cfg     Config
	conn    *Connection
	traceID string

	mu            sync.Mutex
	authenticated bool
	sessionID     int64
	connections   []ServerConnection
	properties    []Property

	act         *ActSubSession
	dex         *DexSubSession
	autoControl *AutoControlSubSession
	algo        *AlgoSubSession

	loginOnce   sync.Once
	loginResult chan loginResult

	stringer func(*Session) string
}

type loginResult struct {
	success bool
	errMsg  string
	resp    *actwire.ActLoginResponse
}

// NewSession builds a Session and its Connection. Connect/Logon must
// be called before any other operation.
func NewSession(cfg Config) *Session {
	s := &Session{
		cfg:         cfg,
		traceID:     uuid.NewString(),
		loginResult: make(chan loginResult, 1),
	}
	s.act = newActSubSession(s)
	s.dex = newDexSubSession(s)
	s.autoControl = newAutoControlSubSession(s)
	s.algo = newAlgoSubSession(s)
	s.conn = NewConnection(cfg, s.dispatch)
	return s
}

// Connection exposes the underlying transport, mainly so callers can
// register inspectors or a state-change handler.
func (s *Session) Connection() *Connection { return s.conn }

// Dex exposes the DEX sub-session for opening live queries.
func (s *Session) Dex() *DexSubSession { return s.dex }

// AutoControl exposes the AutoControl sub-session.
func (s *Session) AutoControl() *AutoControlSubSession { return s.autoControl }

// Algo exposes the Algo sub-session.
func (s *Session) Algo() *AlgoSubSession { return s.algo }

// SessionID returns the server-assigned id populated on login, or 0
// before that.
func (s *Session) SessionID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ServerConnections returns the connection list reported at login.
func (s *Session) ServerConnections() []ServerConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ServerConnection(nil), s.connections...)
}

// SessionProperties returns the property list reported at login.
func (s *Session) SessionProperties() []Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Property(nil), s.properties...)
}

// Authenticated reports whether a successful login response has been
// received.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Connect dials the configured server, blocking until the TCP
// connection is established or fails.
func (s *Session) Connect() error {
	return s.conn.Connect()
}

// dispatch routes an inbound Response by its SubProtocolType to the
// single registered sub-session handler. An unmapped tag is logged
// and dropped.
func (s *Session) dispatch(resp actwire.Response) {
	switch resp.SubProtocolType {
	case actwire.SubProtoAct:
		if resp.ActResponse != nil {
			s.act.handleResponse(resp.SessionId, *resp.ActResponse)
		}
	case actwire.SubProtoDex:
		if resp.DexResponse != nil {
			s.dex.handleResponse(*resp.DexResponse)
		}
	case actwire.SubProtoAutoControl:
		if resp.AutoControlResponse != nil {
			s.autoControl.handleResponse(*resp.AutoControlResponse)
		}
	case actwire.SubProtoAlgo:
		if resp.AlgoResponse != nil {
			s.algo.handleResponse(*resp.AlgoResponse)
		}
	default:
		s.cfg.Logger.Log(LevelWarn, "dropping response for unregistered sub-protocol", "trace_id", s.traceID, "tag", int32(resp.SubProtocolType))
	}
}

// SendRequest frames and writes req on the session's connection.
// Every sub-session routes its outgoing requests through here;
// callers normally use the typed sub-session methods instead.
func (s *Session) SendRequest(req actwire.Request) error {
	return s.conn.Send(req)
}

// TraceID returns the opaque id stamped at session construction, used
// only to correlate this session's log lines across its sub-sessions
// (never sent on the wire).
func (s *Session) TraceID() string { return s.traceID }

// SetStringer overrides how this session renders in String; pass nil
// to restore the default "(conn:sessionID:user)" form.
func (s *Session) SetStringer(fn func(*Session) string) { s.stringer = fn }

func (s *Session) String() string {
	if s.stringer != nil {
		return s.stringer(s)
	}
	return "(" + s.conn.String() + ":" + strconv.FormatInt(s.SessionID(), 10) + ":" + s.cfg.User + ")"
}

// Logon sends an ACT LOGIN request and blocks until the server
// responds. It may only be called once per Session instance;
// subsequent calls return ErrLogonFailed.
func (s *Session) Logon() (*actwire.ActLoginResponse, error) {
	var outerErr error
	called := false
	s.loginOnce.Do(func() {
		called = true
		s.cfg.Logger.Log(LevelInfo, "logon starting", "trace_id", s.traceID, "user", s.cfg.User)
		outerErr = s.act.sendLogin()
	})
	if !called {
		return nil, ErrLogonFailed
	}
	if outerErr != nil {
		return nil, outerErr
	}
	res := <-s.loginResult
	if !res.success {
		s.cfg.Logger.Log(LevelWarn, "logon rejected", "trace_id", s.traceID, "err", res.errMsg)
		return nil, wrapLogonError(res.errMsg)
	}
	s.cfg.Logger.Log(LevelInfo, "logon succeeded", "trace_id", s.traceID, "session_id", s.SessionID())
	return res.resp, nil
}

// Logout sends an ACT LOGOUT request (fire-and-forget, no wait) and
// disconnects the transport.
func (s *Session) Logout() error {
	if err := s.act.sendLogout(); err != nil {
		return err
	}
	return s.conn.Close()
}

// onLoginResponse is the ActSubSession's completion callback invoked
// on the ACT login response.
func (s *Session) onLoginResponse(sessionID int64, errMsg string, resp *actwire.ActLoginResponse, conns []actwire.ServerConnectionWire) {
	if errMsg == "" {
		s.mu.Lock()
		s.authenticated = true
		s.sessionID = sessionID
		if resp != nil {
			s.properties = s.properties[:0]
			for _, p := range resp.Properties {
				s.properties = append(s.properties, Property{Name: p.Name, Value: p.Value})
			}
		}
		s.connections = s.connections[:0]
		for _, c := range conns {
			s.connections = append(s.connections, ServerConnection{Name: c.Name, Status: c.Status})
		}
		s.mu.Unlock()
	}
	select {
	case s.loginResult <- loginResult{success: errMsg == "", errMsg: errMsg, resp: resp}:
	default:
	}
}

func wrapLogonError(msg string) error {
	if msg == "" {
		return ErrLogonFailed
	}
	return &logonError{msg: msg}
}

type logonError struct{ msg string }

func (e *logonError) Error() string { return "act: logon rejected: " + e.msg }
func (e *logonError) Unwrap() error { return ErrLogonFailed }

// --- ACT sub-session ---------------------------------------------------------

// ActSubSession is the request builder and response correlator for
// the ACT (auth/session) sub-protocol: a pure request-builder that
// calls into the owning Session rather than the Session reaching
// into it.
type ActSubSession struct {
	session *Session

	mu       sync.Mutex
	clientID int64
}

func newActSubSession(s *Session) *ActSubSession {
	return &ActSubSession{session: s}
}

// nextClientID increments then returns, so the first minted id is 1;
// every sub-session counter in this package follows this same
// pattern.
func (a *ActSubSession) nextClientID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clientID++
	return a.clientID
}

func (a *ActSubSession) sendLogin() error {
	clientID := a.nextClientID()
	props := make([]actwire.Property, 0, len(a.session.cfg.ClientProperties))
	for _, name := range a.session.cfg.sortedProperties() {
		props = append(props, actwire.Property{Name: name, Value: a.session.cfg.ClientProperties[name]})
	}
	req := actwire.Request{
		SubProtocolType: actwire.SubProtoAct,
		ActRequest: &actwire.ActRequest{
			RequestType: actwire.ReqLogin,
			ClientId:    clientID,
			LoginRequest: &actwire.ActLoginRequest{
				Username:         a.session.cfg.User,
				Password:         a.session.cfg.Password,
				Appname:          a.session.cfg.AppName,
				FailureActions:   a.session.cfg.FailureActions,
				SessionOptions:   a.session.cfg.SessionOptions,
				ClientProperties: props,
			},
		},
	}
	return a.session.SendRequest(req)
}

func (a *ActSubSession) sendLogout() error {
	clientID := a.nextClientID()
	req := actwire.Request{
		SubProtocolType: actwire.SubProtoAct,
		ActRequest: &actwire.ActRequest{
			RequestType: actwire.ReqLogout,
			ClientId:    clientID,
		},
	}
	return a.session.SendRequest(req)
}

// handleResponse dispatches an ActResponse by ResponseType. The ACT
// sub-protocol only has one completion shape (login), so there is no
// per-client-id pending map here, just the one-shot signal owned by
// Session.
func (a *ActSubSession) handleResponse(sessionID int64, resp actwire.ActResponse) {
	switch resp.ResponseType {
	case actwire.RespLogin:
		a.session.onLoginResponse(sessionID, resp.OperationStatus.ErrorMessage, resp.LoginResponse, resp.Connections)
	default:
		a.session.cfg.Logger.Log(LevelWarn, "unhandled ACT response type", "type", int32(resp.ResponseType))
	}
}

// --- AutoControl sub-session -------------------------------------------------

// AutoControlUpdateFunc receives the outcome of one AUTOCONTROL_UPDATE
// request.
type AutoControlUpdateFunc func(clientID int64, errMsg string, resp actwire.AutoControlResponse)

// AutoControlSubSession is the request builder and response
// correlator for the AutoControl sub-protocol.
type AutoControlSubSession struct {
	session *Session

	mu       sync.Mutex
	clientID int64
	pending  map[int64]AutoControlUpdateFunc

	iidMu  sync.Mutex
	iidSeq int64
}

func newAutoControlSubSession(s *Session) *AutoControlSubSession {
	return &AutoControlSubSession{session: s, pending: make(map[int64]AutoControlUpdateFunc)}
}

func (ac *AutoControlSubSession) nextClientID() int64 {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.clientID++
	return ac.clientID
}

// nextIID mints a new client-side automation-update id of the shape
// "<sessionID>:<sequence>".
func (ac *AutoControlSubSession) nextIID() string {
	ac.iidMu.Lock()
	ac.iidSeq++
	seq := ac.iidSeq
	ac.iidMu.Unlock()
	return formatIID(ac.session.SessionID(), seq)
}

func formatIID(sessionID, seq int64) string {
	return strconv.FormatInt(sessionID, 10) + ":" + strconv.FormatInt(seq, 10)
}

// SendAutomationUpdates issues an AUTOCONTROL_UPDATE request carrying
// updates (with NewIId stamped from nextIID for any update that
// doesn't already carry one) and returns its client-id immediately;
// the outcome is delivered to onResult.
func (ac *AutoControlSubSession) SendAutomationUpdates(updates []actwire.ProductAutomationUpdate, onResult AutoControlUpdateFunc) (int64, error) {
	clientID := ac.nextClientID()
	stamped := make([]actwire.ProductAutomationUpdate, len(updates))
	for i, u := range updates {
		if u.NewIId == "" {
			u.NewIId = ac.nextIID()
		}
		stamped[i] = u
	}

	ac.mu.Lock()
	ac.pending[clientID] = onResult
	ac.mu.Unlock()

	req := actwire.Request{
		SubProtocolType: actwire.SubProtoAutoControl,
		AutoControlRequest: &actwire.AutoControlRequest{
			RequestType:       actwire.ReqAutoControlUpdate,
			ClientId:          clientID,
			AutomationUpdates: stamped,
		},
	}
	if err := ac.session.SendRequest(req); err != nil {
		ac.mu.Lock()
		delete(ac.pending, clientID)
		ac.mu.Unlock()
		return clientID, err
	}
	return clientID, nil
}

// handleResponse removes the pending entry on the first response
// carrying a matching client-id, regardless of error.
func (ac *AutoControlSubSession) handleResponse(resp actwire.AutoControlResponse) {
	ac.mu.Lock()
	fn, ok := ac.pending[resp.ClientId]
	delete(ac.pending, resp.ClientId)
	ac.mu.Unlock()
	if !ok {
		ac.session.cfg.Logger.Log(LevelWarn, "autocontrol response for unknown client-id", "client_id", resp.ClientId)
		return
	}
	fn(resp.ClientId, resp.OperationStatus.ErrorMessage, resp)
}

// --- Algo sub-session --------------------------------------------------------

// AlgoResultFunc receives the outcome of one algo request
// (CREATE_DIRECT_ACTION, SET_ALGO_STATUS, or TERMINATE_ALGO).
type AlgoResultFunc func(clientID int64, errMsg string, resp actwire.AlgoResponse)

// AlgoSubSession is the request builder and response correlator for
// the Algo sub-protocol.
type AlgoSubSession struct {
	session *Session

	mu       sync.Mutex
	clientID int64
	pending  map[int64]AlgoResultFunc
}

func newAlgoSubSession(s *Session) *AlgoSubSession {
	return &AlgoSubSession{session: s, pending: make(map[int64]AlgoResultFunc)}
}

func (al *AlgoSubSession) nextClientID() int64 {
	al.mu.Lock()
	defer al.mu.Unlock()
	al.clientID++
	return al.clientID
}

func (al *AlgoSubSession) send(req actwire.AlgoRequest, onResult AlgoResultFunc) (int64, error) {
	al.mu.Lock()
	al.pending[req.ClientId] = onResult
	al.mu.Unlock()

	if err := al.session.SendRequest(actwire.Request{SubProtocolType: actwire.SubProtoAlgo, AlgoRequest: &req}); err != nil {
		al.mu.Lock()
		delete(al.pending, req.ClientId)
		al.mu.Unlock()
		return req.ClientId, err
	}
	return req.ClientId, nil
}

// CreateDirectAction issues a CREATE_DIRECT_ACTION request: a named
// strategy on a base instrument, optionally with additional named
// instruments, input parameters, and an initial action status.
func (al *AlgoSubSession) CreateDirectAction(data actwire.CreateDirectActionRequest, onResult AlgoResultFunc) (int64, error) {
	clientID := al.nextClientID()
	return al.send(actwire.AlgoRequest{
		RequestType:               actwire.ReqCreateDirectAction,
		ClientId:                  clientID,
		CreateDirectActionRequest: &data,
	}, onResult)
}

// SetAlgoStatus issues a SET_ALGO_STATUS request.
func (al *AlgoSubSession) SetAlgoStatus(algoName string, status actwire.AlgoControlStatus, onResult AlgoResultFunc) (int64, error) {
	clientID := al.nextClientID()
	return al.send(actwire.AlgoRequest{
		RequestType:   actwire.ReqSetAlgoStatus,
		ClientId:      clientID,
		AlgoName:      algoName,
		ControlStatus: status,
	}, onResult)
}

// TerminateAlgo issues a TERMINATE_ALGO request.
func (al *AlgoSubSession) TerminateAlgo(algoName string, onResult AlgoResultFunc) (int64, error) {
	clientID := al.nextClientID()
	return al.send(actwire.AlgoRequest{
		RequestType: actwire.ReqTerminateAlgo,
		ClientId:    clientID,
		AlgoName:    algoName,
	}, onResult)
}

// handleResponse removes the pending entry on the first matching
// response.
func (al *AlgoSubSession) handleResponse(resp actwire.AlgoResponse) {
	al.mu.Lock()
	fn, ok := al.pending[resp.ClientId]
	delete(al.pending, resp.ClientId)
	al.mu.Unlock()
	if !ok {
		al.session.cfg.Logger.Log(LevelWarn, "algo response for unknown client-id", "client_id", resp.ClientId)
		return
	}
	fn(resp.ClientId, resp.OperationStatus.ErrorMessage, resp)
}

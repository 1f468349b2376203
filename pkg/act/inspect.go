package act

import "github.com/sumitelequin/actgo/pkg/actwire"

// BytesInspector observes raw framed bytes (length prefix included)
// as they go out or come in.
type BytesInspector func(framed []byte)

// RequestInspector observes every outgoing Request envelope.
type RequestInspector func(actwire.Request)

// ResponseInspector observes every inbound Response envelope, after
// framing but before dispatch.
type ResponseInspector func(actwire.Response)

// inspectors holds the four callable lists: outgoing bytes, incoming
// bytes, outgoing Request, incoming Response. Each is invoked in
// registration order with a copy of the payload. Go disallows
// comparing function values with ==, so every Add* returns an opaque
// handle and Remove* matches on it; removing a handle that was never
// registered (or was already removed) is a no-op.
type inspectors struct {
	outgoingBytes    []handle[BytesInspector]
	incomingBytes    []handle[BytesInspector]
	outgoingRequest  []handle[RequestInspector]
	incomingResponse []handle[ResponseInspector]
	next             int
}

// handle pairs a registered callable with an opaque id so that
// Remove* can test membership by id rather than by comparing func
// values (which Go disallows with ==).
type handle[T any] struct {
	id int
	fn T
}

func newInspectors() *inspectors { return &inspectors{} }

// InspectorHandle identifies a previously registered inspector so it
// can be removed later.
type InspectorHandle int

func (in *inspectors) newID() InspectorHandle {
	in.next++
	return InspectorHandle(in.next)
}

func (in *inspectors) AddOutgoingBytes(fn BytesInspector) InspectorHandle {
	id := in.newID()
	in.outgoingBytes = append(in.outgoingBytes, handle[BytesInspector]{int(id), fn})
	return id
}

func (in *inspectors) AddIncomingBytes(fn BytesInspector) InspectorHandle {
	id := in.newID()
	in.incomingBytes = append(in.incomingBytes, handle[BytesInspector]{int(id), fn})
	return id
}

func (in *inspectors) AddOutgoingRequest(fn RequestInspector) InspectorHandle {
	id := in.newID()
	in.outgoingRequest = append(in.outgoingRequest, handle[RequestInspector]{int(id), fn})
	return id
}

func (in *inspectors) AddIncomingResponse(fn ResponseInspector) InspectorHandle {
	id := in.newID()
	in.incomingResponse = append(in.incomingResponse, handle[ResponseInspector]{int(id), fn})
	return id
}

// removeHandle deletes the entry with id from list, if present, and
// is a no-op otherwise.
func removeHandle[T any](list []handle[T], id InspectorHandle) []handle[T] {
	for i, h := range list {
		if h.id == int(id) {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func (in *inspectors) RemoveOutgoingBytes(id InspectorHandle) {
	in.outgoingBytes = removeHandle(in.outgoingBytes, id)
}

func (in *inspectors) RemoveIncomingBytes(id InspectorHandle) {
	in.incomingBytes = removeHandle(in.incomingBytes, id)
}

func (in *inspectors) RemoveOutgoingRequest(id InspectorHandle) {
	in.outgoingRequest = removeHandle(in.outgoingRequest, id)
}

func (in *inspectors) RemoveIncomingResponse(id InspectorHandle) {
	in.incomingResponse = removeHandle(in.incomingResponse, id)
}

func (in *inspectors) runOutgoingBytes(b []byte) {
	for _, h := range in.outgoingBytes {
		h.fn(append([]byte(nil), b...))
	}
}

func (in *inspectors) runIncomingBytes(b []byte) {
	for _, h := range in.incomingBytes {
		h.fn(append([]byte(nil), b...))
	}
}

func (in *inspectors) runOutgoingRequest(r actwire.Request) {
	for _, h := range in.outgoingRequest {
		h.fn(r)
	}
}

func (in *inspectors) runIncomingResponse(r actwire.Response) {
	for _, h := range in.incomingResponse {
		h.fn(r)
	}
}

// InspectorHelper registers and removes the default logging
// inspectors on a Connection as a unit: Start enables any subset of
// the four taps, Stop removes whatever Start registered.
type InspectorHelper struct {
	conn *Connection

	outBytesID InspectorHandle
	inBytesID  InspectorHandle
	outReqID   InspectorHandle
	inRespID   InspectorHandle
	started    bool
}

// NewInspectorHelper builds a helper bound to conn, not yet started.
func NewInspectorHelper(conn *Connection) *InspectorHelper {
	return &InspectorHelper{conn: conn}
}

// Start registers a logging inspector for each enabled tap. Calling
// Start while already started stops the previous set first, so a
// second call replaces the selection rather than stacking on it.
func (h *InspectorHelper) Start(requests, responses, incomingData, outgoingData bool) {
	if h.started {
		h.Stop()
	}
	logger := h.conn.cfg.Logger
	if requests {
		h.outReqID = h.conn.inspect.AddOutgoingRequest(func(r actwire.Request) {
			logger.Log(LevelInfo, "request", "sub_protocol", r.SubProtocolType.String())
		})
	}
	if responses {
		h.inRespID = h.conn.inspect.AddIncomingResponse(func(r actwire.Response) {
			logger.Log(LevelInfo, "response", "sub_protocol", r.SubProtocolType.String())
		})
	}
	if incomingData {
		h.inBytesID = h.conn.inspect.AddIncomingBytes(func(b []byte) {
			logger.Log(LevelInfo, "received", "bytes", len(b))
		})
	}
	if outgoingData {
		h.outBytesID = h.conn.inspect.AddOutgoingBytes(func(b []byte) {
			logger.Log(LevelInfo, "sent", "bytes", len(b))
		})
	}
	h.started = true
	logger.Log(LevelInfo, "starting inspection",
		"requests", requests, "responses", responses,
		"incoming_data", incomingData, "outgoing_data", outgoingData)
}

// Stop removes whichever inspectors Start registered; calling Stop
// when not started is a no-op. Removing a zero handle is a no-op too
// (see inspectors above), so taps that were never enabled are safe to
// pass through.
func (h *InspectorHelper) Stop() {
	if !h.started {
		return
	}
	h.conn.inspect.RemoveOutgoingBytes(h.outBytesID)
	h.conn.inspect.RemoveIncomingBytes(h.inBytesID)
	h.conn.inspect.RemoveOutgoingRequest(h.outReqID)
	h.conn.inspect.RemoveIncomingResponse(h.inRespID)
	h.outBytesID, h.inBytesID, h.outReqID, h.inRespID = 0, 0, 0, 0
	h.started = false
}

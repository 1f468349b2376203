package act

import (
	"strconv"
	"sync"

	"github.com/sumitelequin/actgo/pkg/actwire"
)

// DexState is a DexQuery's lifecycle state.
type DexState int8

const (
	DexUnknown DexState = iota
	DexStarting
	DexStarted
	DexStartError
	DexColumnsReceived
	DexUpdateError
	DexStopping
	DexStopped
	DexDisconnected
	DexStopError
)

func (s DexState) String() string {
	switch s {
	case DexStarting:
		return "Starting"
	case DexStarted:
		return "Started"
	case DexStartError:
		return "StartError"
	case DexColumnsReceived:
		return "ColumnsReceived"
	case DexUpdateError:
		return "UpdateError"
	case DexStopping:
		return "Stopping"
	case DexStopped:
		return "Stopped"
	case DexDisconnected:
		return "Disconnected"
	case DexStopError:
		return "StopError"
	default:
		return "Unknown"
	}
}

// DexQueryData is the caller-supplied subscription parameters: what
// to query, how often, and whether the result is a one-time snapshot
// or a live feed.
type DexQueryData struct {
	ScopeKeys       []string
	Fields          []string
	FrequencyMs     int32
	Snapshot        bool
	NoTriggerFields []string
	Contexts        []string
}

// DexColumn is one schema entry applied from a TableUpdate's
// ColumnDescriptor list.
type DexColumn struct {
	Name      string
	Type      actwire.VariantType
	IsVector  bool
	CanWrite  bool
	formatter variantValueToStrFunc
	stringer  func(*DexColumn) string
}

// SetStringer overrides how this column renders in String; pass nil
// to restore the default (the column name).
func (c *DexColumn) SetStringer(fn func(*DexColumn) string) { c.stringer = fn }

func (c DexColumn) String() string {
	if c.stringer != nil {
		return c.stringer(&c)
	}
	return c.Name
}

// ToStr renders v (and, for a vector column, vec) using this
// column's text codec, chosen once at schema-apply time.
func (c DexColumn) ToStr(v *actwire.VariantValue, vec []actwire.VariantValue) string {
	if c.formatter == nil {
		return getVariantValueToStrFunc(c.Type)(v, vec)
	}
	return c.formatter(v, vec)
}

// DexRowKey identifies a row within one schema epoch. Two rows are
// the same row iff their DexRowKey values are equal; the struct is
// comparable so it can be used directly as a map key.
type DexRowKey struct {
	Key      string
	Contexts string
}

// dexRowKeyStringer, when set, overrides DexRowKey.String for every
// key. The hook lives at package level rather than on the key itself
// because DexRowKey must stay a plain comparable value to serve as a
// map key.
var dexRowKeyStringer func(DexRowKey) string

// SetDexRowKeyStringer overrides how every DexRowKey renders in
// String; pass nil to restore the default "key" / "key:contexts"
// form.
func SetDexRowKeyStringer(fn func(DexRowKey) string) { dexRowKeyStringer = fn }

func (k DexRowKey) String() string {
	if dexRowKeyStringer != nil {
		return dexRowKeyStringer(k)
	}
	if k.Contexts == "" {
		return k.Key
	}
	return k.Key + ":" + k.Contexts
}

// DexCell is one row/column intersection. UpdateCount equals the
// query's UpdateCount iff this cell was touched by the most recent
// TableUpdate.
type DexCell struct {
	Value       *actwire.VariantValue
	Vector      []actwire.VariantValue
	UpdateCount int64
	stringer    func(*DexCell) string
}

// SetStringer overrides how this cell renders in String; pass nil to
// restore the default (a best-guess rendering of whichever variant
// field the cell holds).
func (c *DexCell) SetStringer(fn func(*DexCell) string) { c.stringer = fn }

func (c DexCell) String() string {
	if c.stringer != nil {
		return c.stringer(&c)
	}
	return guessVariantString(c.Value)
}

// DexRow is one materialised row: a stable RowIndex within the
// current epoch, a stable Key, and exactly one cell per column, in
// column order.
type DexRow struct {
	RowIndex int
	Key      DexRowKey
	Cells    []DexCell
	stringer func(*DexRow) string
}

// SetStringer overrides how this row renders in String; pass nil to
// restore the default (the row key).
func (r *DexRow) SetStringer(fn func(*DexRow) string) { r.stringer = fn }

func (r DexRow) String() string {
	if r.stringer != nil {
		return r.stringer(&r)
	}
	return r.Key.String()
}

// UpdatedCells returns the cells touched at or after sinceUpdateCount,
// in column order.
func (r DexRow) UpdatedCells(sinceUpdateCount int64) []DexCell {
	var out []DexCell
	for _, c := range r.Cells {
		if c.UpdateCount >= sinceUpdateCount {
			out = append(out, c)
		}
	}
	return out
}

func cloneRow(r *DexRow) DexRow {
	return DexRow{
		RowIndex: r.RowIndex,
		Key:      r.Key,
		Cells:    append([]DexCell(nil), r.Cells...),
		stringer: r.stringer,
	}
}

func cloneRows(rows []*DexRow) []DexRow {
	out := make([]DexRow, len(rows))
	for i, r := range rows {
		out[i] = cloneRow(r)
	}
	return out
}

// StateChangeObserver fires on every DexQuery state transition, even
// a repeated transition into the same error state.
type StateChangeObserver func(q *DexQuery, newState DexState, errMsg string, oldState DexState)

// ColumnsReceivedObserver fires once a new epoch's schema has been
// applied.
type ColumnsReceivedObserver func(q *DexQuery, columns []DexColumn)

// UpdateObserver fires after each TableUpdate has been applied.
// newRows are rows appended by this update; newUpdatedRows is every
// appended row plus every pre-existing row that received at least one
// cell in this update, in arrival order.
type UpdateObserver func(q *DexQuery, updateCount int64, numRows int, newRows, newUpdatedRows []*DexRow)

// ResetObserver fires immediately before a schema reset clears the
// table, carrying the table as it stood just before the clear.
type ResetObserver func(q *DexQuery, priorNumRows int, priorRows []DexRow)

// DexQuery represents one live tabular subscription: the query
// parameters, the current schema, and the materialised table fed by
// server TableUpdates. Callers build it with NewDexQuery, register
// observers, then call DexSubSession.Start.
type DexQuery struct {
	data DexQueryData

	mu             sync.Mutex
	state          DexState
	updateCount    int64
	columns        []DexColumn
	rows           []*DexRow
	rowKeyToIndex  map[DexRowKey]int
	rowNumberToKey map[int64]DexRowKey

	clientID int64
	sub      *DexSubSession

	stateObservers   []StateChangeObserver
	columnsObservers []ColumnsReceivedObserver
	updateObservers  []UpdateObserver
	resetObservers   []ResetObserver

	stringer func(*DexQuery) string
}

// NewDexQuery builds a DexQuery in state Unknown, ready for observer
// registration and DexSubSession.Start.
func NewDexQuery(data DexQueryData) *DexQuery {
	return &DexQuery{
		data:           data,
		rowKeyToIndex:  make(map[DexRowKey]int),
		rowNumberToKey: make(map[int64]DexRowKey),
	}
}

// AddStateChangeObserver registers fn additively.
func (q *DexQuery) AddStateChangeObserver(fn StateChangeObserver) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stateObservers = append(q.stateObservers, fn)
}

// AddColumnsReceivedObserver registers fn additively.
func (q *DexQuery) AddColumnsReceivedObserver(fn ColumnsReceivedObserver) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.columnsObservers = append(q.columnsObservers, fn)
}

// AddUpdateObserver registers fn additively.
func (q *DexQuery) AddUpdateObserver(fn UpdateObserver) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.updateObservers = append(q.updateObservers, fn)
}

// AddResetObserver registers fn additively.
func (q *DexQuery) AddResetObserver(fn ResetObserver) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetObservers = append(q.resetObservers, fn)
}

// State returns the query's current lifecycle state.
func (q *DexQuery) State() DexState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// UpdateCount returns the number of TableUpdates applied so far.
func (q *DexQuery) UpdateCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.updateCount
}

// Columns returns a copy of the current schema.
func (q *DexQuery) Columns() []DexColumn {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DexColumn(nil), q.columns...)
}

// Rows returns a snapshot copy of the current materialised table.
func (q *DexQuery) Rows() []DexRow {
	q.mu.Lock()
	defer q.mu.Unlock()
	return cloneRows(q.rows)
}

// Data returns the query's subscription parameters.
func (q *DexQuery) Data() DexQueryData { return q.data }

// SetStringer overrides how this query renders in String; pass nil to
// restore the default "(session:clientID)" form.
func (q *DexQuery) SetStringer(fn func(*DexQuery) string) { q.stringer = fn }

func (q *DexQuery) String() string {
	if q.stringer != nil {
		return q.stringer(q)
	}
	q.mu.Lock()
	sub := q.sub
	clientID := q.clientID
	q.mu.Unlock()
	sess := ""
	if sub != nil {
		sess = sub.session.String()
	}
	return "(" + sess + ":" + strconv.FormatInt(clientID, 10) + ")"
}

// RowByKey returns a snapshot copy of the row with the given key (any
// contexts ignored), if one is materialised.
func (q *DexQuery) RowByKey(key string) (DexRow, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range q.rows {
		if r.Key.Key == key {
			return cloneRow(r), true
		}
	}
	return DexRow{}, false
}

// UpdatedRows returns snapshot copies of every row holding at least
// one cell touched at or after sinceUpdateCount.
func (q *DexQuery) UpdatedRows(sinceUpdateCount int64) []DexRow {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []DexRow
	for _, r := range q.rows {
		for _, c := range r.Cells {
			if c.UpdateCount >= sinceUpdateCount {
				out = append(out, cloneRow(r))
				break
			}
		}
	}
	return out
}

// setState applies a transition and fires every state observer,
// including a repeated transition into the same state.
func (q *DexQuery) setState(newState DexState, errMsg string) {
	q.mu.Lock()
	old := q.state
	q.state = newState
	handlers := append([]StateChangeObserver(nil), q.stateObservers...)
	q.mu.Unlock()
	for _, h := range handlers {
		h(q, newState, errMsg, old)
	}
}

// resolveRowKey reuses the cached key for a known rowNumber alias;
// otherwise it builds one from (key, contexts) and, if rowNumber was
// present, caches it for later aliasing. Callers must hold q.mu.
func (q *DexQuery) resolveRowKey(row actwire.Row) DexRowKey {
	if row.RowNumber != nil {
		if cached, ok := q.rowNumberToKey[*row.RowNumber]; ok {
			return cached
		}
		key := DexRowKey{Key: row.Key, Contexts: row.Contexts}
		q.rowNumberToKey[*row.RowNumber] = key
		return key
	}
	return DexRowKey{Key: row.Key, Contexts: row.Contexts}
}

// applyTableUpdate applies one TableUpdate to the materialised table
// and fires the corresponding observers in a fixed order: reset
// precedes columns-received precedes update, all for the same
// TableUpdate.
func (q *DexQuery) applyTableUpdate(tu actwire.TableUpdate) {
	q.mu.Lock()
	q.updateCount++
	uc := q.updateCount

	if len(tu.ColumnDescriptor) > 0 {
		priorRows := cloneRows(q.rows)
		priorNum := len(priorRows)
		resetObservers := append([]ResetObserver(nil), q.resetObservers...)
		q.mu.Unlock()
		for _, obs := range resetObservers {
			obs(q, priorNum, priorRows)
		}
		q.mu.Lock()

		q.columns = make([]DexColumn, 0, len(tu.ColumnDescriptor))
		for _, cd := range tu.ColumnDescriptor {
			q.columns = append(q.columns, DexColumn{
				Name:      cd.Name,
				Type:      cd.Type,
				IsVector:  cd.IsVector,
				CanWrite:  cd.CanWrite,
				formatter: getVariantValueToStrFunc(cd.Type),
			})
		}
		q.rows = nil
		q.rowKeyToIndex = make(map[DexRowKey]int)
		q.rowNumberToKey = make(map[int64]DexRowKey)

		columnsCopy := append([]DexColumn(nil), q.columns...)
		columnsObservers := append([]ColumnsReceivedObserver(nil), q.columnsObservers...)
		q.mu.Unlock()

		q.setState(DexColumnsReceived, "")
		for _, obs := range columnsObservers {
			obs(q, columnsCopy)
		}
		q.mu.Lock()
	}

	var newRows []*DexRow
	var touchedOrder []*DexRow
	touchedSeen := make(map[int]bool)

	for _, row := range tu.Row {
		key := q.resolveRowKey(row)
		idx, exists := q.rowKeyToIndex[key]
		if !exists {
			idx = len(q.rows)
			r := &DexRow{RowIndex: idx, Key: key, Cells: make([]DexCell, len(q.columns))}
			q.rows = append(q.rows, r)
			q.rowKeyToIndex[key] = idx
			newRows = append(newRows, r)
			// An appended row counts as updated even if this update
			// carried no cells for it.
			touchedSeen[idx] = true
			touchedOrder = append(touchedOrder, r)
		}
		r := q.rows[idx]
		touched := false
		for _, c := range row.Cell {
			if int(c.ColumnNumber) >= len(r.Cells) {
				continue
			}
			cell := &r.Cells[c.ColumnNumber]
			cell.UpdateCount = uc
			switch {
			case c.Value != nil:
				v := *c.Value
				cell.Value = &v
				cell.Vector = nil
			case c.ValueVector != nil:
				cell.Vector = append([]actwire.VariantValue(nil), c.ValueVector...)
				cell.Value = nil
			default:
				cell.Value = nil
				cell.Vector = nil
			}
			touched = true
		}
		if touched && !touchedSeen[idx] {
			touchedSeen[idx] = true
			touchedOrder = append(touchedOrder, r)
		}
	}

	numRows := len(q.rows)
	updateObservers := append([]UpdateObserver(nil), q.updateObservers...)
	q.mu.Unlock()

	for _, obs := range updateObservers {
		obs(q, uc, numRows, newRows, touchedOrder)
	}
}

// Start issues a START_QUERY for q and transitions it to Starting.
func (q *DexQuery) Start(ds *DexSubSession) error {
	q.setState(DexStarting, "")
	return ds.startQuery(q)
}

// Stop issues a STOP_QUERY for q and transitions it to Stopping. It
// is an error to call Stop before Start.
func (q *DexQuery) Stop() error {
	q.mu.Lock()
	sub := q.sub
	q.mu.Unlock()
	if sub == nil {
		return ErrQueryNotRunning
	}
	q.setState(DexStopping, "")
	return sub.stopQuery(q)
}

// UpdateTable issues a client-submitted TABLE_UPDATE against this
// query's scope (an out-of-band cell edit); onAck is invoked once
// with the server's verdict.
func (q *DexQuery) UpdateTable(tu actwire.TableUpdate, onAck func(clientID int64, errMsg string)) (int64, error) {
	q.mu.Lock()
	sub := q.sub
	q.mu.Unlock()
	if sub == nil {
		return 0, ErrQueryNotRunning
	}
	return sub.sendTableUpdate(tu, onAck)
}

// --- DEX sub-session ---------------------------------------------------------

type dexQueryEntry struct {
	query *DexQuery
}

// DexSubSession is the request builder and response correlator for
// the DEX sub-protocol, and the owner of every live DexQuery's
// correlation entry.
type DexSubSession struct {
	session *Session

	mu       sync.Mutex
	clientID int64
	queries  map[int64]*dexQueryEntry
	writes   map[int64]func(clientID int64, errMsg string)
}

func newDexSubSession(s *Session) *DexSubSession {
	return &DexSubSession{
		session: s,
		queries: make(map[int64]*dexQueryEntry),
		writes:  make(map[int64]func(clientID int64, errMsg string)),
	}
}

func (ds *DexSubSession) nextClientID() int64 {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.clientID++
	return ds.clientID
}

// Start is a thin wrapper over q.Start(ds), which transitions q to
// Starting, then builds a START_QUERY request from q.Data() under a
// fresh client-id, registers q's correlation entry, and sends it.
func (ds *DexSubSession) Start(q *DexQuery) error {
	return q.Start(ds)
}

func (ds *DexSubSession) startQuery(q *DexQuery) error {
	clientID := ds.nextClientID()
	q.mu.Lock()
	q.clientID = clientID
	q.sub = ds
	q.mu.Unlock()

	ds.mu.Lock()
	ds.queries[clientID] = &dexQueryEntry{query: q}
	ds.mu.Unlock()

	req := actwire.Request{
		SubProtocolType: actwire.SubProtoDex,
		DexRequest: &actwire.DexRequest{
			RequestType: actwire.ReqStartQuery,
			ClientId:    clientID,
			StartQuery: &actwire.StartQuery{
				ScopeKey:  q.data.ScopeKeys,
				Field:     q.data.Fields,
				Frequency: q.data.FrequencyMs,
				OneTime:   q.data.Snapshot,
				NoTrigger: q.data.NoTriggerFields,
				Context:   q.data.Contexts,
			},
		},
	}
	if err := ds.session.SendRequest(req); err != nil {
		ds.mu.Lock()
		delete(ds.queries, clientID)
		ds.mu.Unlock()
		return err
	}
	return nil
}

func (ds *DexSubSession) stopQuery(q *DexQuery) error {
	q.mu.Lock()
	clientID := q.clientID
	q.mu.Unlock()
	req := actwire.Request{
		SubProtocolType: actwire.SubProtoDex,
		DexRequest: &actwire.DexRequest{
			RequestType: actwire.ReqStopQuery,
			ClientId:    clientID,
		},
	}
	return ds.session.SendRequest(req)
}

func (ds *DexSubSession) sendTableUpdate(tu actwire.TableUpdate, onAck func(clientID int64, errMsg string)) (int64, error) {
	clientID := ds.nextClientID()
	ds.mu.Lock()
	ds.writes[clientID] = onAck
	ds.mu.Unlock()

	req := actwire.Request{
		SubProtocolType: actwire.SubProtoDex,
		DexRequest: &actwire.DexRequest{
			RequestType: actwire.ReqTableUpdate,
			ClientId:    clientID,
			TableUpdate: &tu,
		},
	}
	if err := ds.session.SendRequest(req); err != nil {
		ds.mu.Lock()
		delete(ds.writes, clientID)
		ds.mu.Unlock()
		return clientID, err
	}
	return clientID, nil
}

// handleResponse dispatches a DexResponse by ResponseType.
func (ds *DexSubSession) handleResponse(resp actwire.DexResponse) {
	switch resp.ResponseType {
	case actwire.RespStartQuery:
		ds.mu.Lock()
		entry, ok := ds.queries[resp.ClientId]
		ds.mu.Unlock()
		if !ok {
			ds.session.cfg.Logger.Log(LevelWarn, "start-query ack for unknown client-id", "client_id", resp.ClientId)
			return
		}
		if resp.OperationStatus.HasError() {
			entry.query.setState(DexStartError, resp.OperationStatus.ErrorMessage)
		} else {
			entry.query.setState(DexStarted, "")
		}

	case actwire.RespUpdateTable:
		ds.mu.Lock()
		entry, ok := ds.queries[resp.ClientId]
		ds.mu.Unlock()
		if !ok {
			// Either a genuinely unknown correlation or a snapshot
			// query whose entry was already pruned after its first
			// update; both are dropped silently.
			return
		}
		if resp.TableUpdate != nil {
			entry.query.applyTableUpdate(*resp.TableUpdate)
		}
		if entry.query.data.Snapshot {
			ds.mu.Lock()
			delete(ds.queries, resp.ClientId)
			ds.mu.Unlock()
		}

	case actwire.RespStopQuery:
		ds.mu.Lock()
		entry, ok := ds.queries[resp.ClientId]
		delete(ds.queries, resp.ClientId)
		ds.mu.Unlock()
		if !ok {
			ds.session.cfg.Logger.Log(LevelWarn, "stop-query ack for unknown client-id", "client_id", resp.ClientId)
			return
		}
		if resp.OperationStatus.HasError() {
			entry.query.setState(DexStopError, resp.OperationStatus.ErrorMessage)
		} else {
			entry.query.setState(DexStopped, "")
		}

	case actwire.RespTableUpdate:
		ds.mu.Lock()
		fn, ok := ds.writes[resp.ClientId]
		delete(ds.writes, resp.ClientId)
		ds.mu.Unlock()
		if !ok {
			ds.session.cfg.Logger.Log(LevelWarn, "table-update ack for unknown client-id", "client_id", resp.ClientId)
			return
		}
		fn(resp.ClientId, resp.OperationStatus.ErrorMessage)

	default:
		ds.session.cfg.Logger.Log(LevelWarn, "unhandled DEX response type", "type", int32(resp.ResponseType))
	}
}

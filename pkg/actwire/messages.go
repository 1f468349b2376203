package actwire

// Message catalogue for the ACT wire protocol's four sub-protocols.
// Field numbers are kept self-consistent across the catalogue and
// must not change once a server speaks them. Every type implements
// Message (AppendTo/ReadFrom).

// SubProtocolType tags which of the four payload variants a Request
// or Response envelope carries.
type SubProtocolType int32

const (
	SubProtoAct         SubProtocolType = 1
	SubProtoDex         SubProtocolType = 2
	SubProtoAutoControl SubProtocolType = 3
	SubProtoAlgo        SubProtocolType = 4
)

func (t SubProtocolType) String() string {
	switch t {
	case SubProtoAct:
		return "ACT"
	case SubProtoDex:
		return "DEX"
	case SubProtoAutoControl:
		return "AUTOCONTROL"
	case SubProtoAlgo:
		return "ALGO"
	default:
		return "UNKNOWN"
	}
}

// ActRequestType / ActResponseType
type ActRequestType int32

const (
	ReqLogin  ActRequestType = 1
	ReqLogout ActRequestType = 2
)

type ActResponseType int32

const (
	RespLogin ActResponseType = 1
)

// DexRequestType / DexResponseType
type DexRequestType int32

const (
	ReqStartQuery  DexRequestType = 1
	ReqStopQuery   DexRequestType = 2
	ReqTableUpdate DexRequestType = 3
)

type DexResponseType int32

const (
	RespStartQuery  DexResponseType = 1
	RespStopQuery   DexResponseType = 2
	RespTableUpdate DexResponseType = 3
	RespUpdateTable DexResponseType = 4 // server-pushed TableUpdate
)

// AutoControlRequestType / AutoControlResponseType
type AutoControlRequestType int32

const (
	ReqAutoControlUpdate AutoControlRequestType = 1
)

type AutoControlResponseType int32

const (
	RespAutoControlUpdate AutoControlResponseType = 1
	RespProductAutomation AutoControlResponseType = 2
)

// AlgoRequestType / AlgoResponseType
type AlgoRequestType int32

const (
	ReqCreateDirectAction AlgoRequestType = 1
	ReqSetAlgoStatus      AlgoRequestType = 2
	ReqTerminateAlgo      AlgoRequestType = 3
)

type AlgoResponseType int32

const (
	RespCreateDirectAction AlgoResponseType = 1
	RespSetAlgoStatus      AlgoResponseType = 2
	RespTerminateAlgo      AlgoResponseType = 3
)

// VariantType is the tagged-union discriminant for a cell value.
type VariantType int32

const (
	VarUnknown  VariantType = 0
	VarDouble   VariantType = 1
	VarInt32    VariantType = 2
	VarPrice    VariantType = 3
	VarString   VariantType = 4
	VarQuantity VariantType = 5
)

func (t VariantType) String() string {
	switch t {
	case VarDouble:
		return "VAR_DOUBLE"
	case VarInt32:
		return "VAR_INT32"
	case VarPrice:
		return "VAR_PRICE"
	case VarString:
		return "VAR_STRING"
	case VarQuantity:
		return "VAR_QUANTITY"
	default:
		return "VAR_UNKNOWN"
	}
}

// VariantTypeFromString is the inverse of String, used by the CSV
// Type header row.
func VariantTypeFromString(s string) (VariantType, bool) {
	switch s {
	case "VAR_DOUBLE":
		return VarDouble, true
	case "VAR_INT32":
		return VarInt32, true
	case "VAR_PRICE":
		return VarPrice, true
	case "VAR_STRING":
		return VarString, true
	case "VAR_QUANTITY":
		return VarQuantity, true
	case "VAR_UNKNOWN":
		return VarUnknown, true
	default:
		return VarUnknown, false
	}
}

// AlgoControlStatus is the requested automation state for an algo.
type AlgoControlStatus int32

const (
	ACSUnknown AlgoControlStatus = 0
	ACSOff     AlgoControlStatus = 1
	ACSManual  AlgoControlStatus = 2
	ACSAuto    AlgoControlStatus = 3
)

// --- OperationStatus ---------------------------------------------------

// OperationStatus carries the server's success/failure verdict for a
// response. Empty ErrorMessage means success.
type OperationStatus struct {
	ErrorMessage string
}

func (o OperationStatus) HasError() bool { return len(o.ErrorMessage) > 0 }

func (o OperationStatus) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	if o.ErrorMessage != "" {
		w.AppendString(1, o.ErrorMessage)
	}
	return w.Bytes()
}

func (o *OperationStatus) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		if f.Num == 1 {
			o.ErrorMessage = f.String()
		}
	}
	return r.Err()
}

// --- Property ------------------------------------------------------------

type Property struct {
	Name  string
	Value string
}

func (p Property) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, p.Name)
	w.AppendString(2, p.Value)
	return w.Bytes()
}

func (p *Property) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			p.Name = f.String()
		case 2:
			p.Value = f.String()
		}
	}
	return r.Err()
}

// --- VariantValue ----------------------------------------------------------

// VariantValue is a tagged union over {Double, Int32, Price, String,
// Quantity}, each modeled as an optional field.
type VariantValue struct {
	VarDouble   *float64
	VarInt      *int32
	VarPrice    *int64
	VarString   *string
	VarQuantity *int64
}

func (v *VariantValue) HasField(name string) bool {
	if v == nil {
		return false
	}
	switch name {
	case "varDouble":
		return v.VarDouble != nil
	case "varInt":
		return v.VarInt != nil
	case "varPrice":
		return v.VarPrice != nil
	case "varString":
		return v.VarString != nil
	case "varQuantity":
		return v.VarQuantity != nil
	}
	return false
}

func (v VariantValue) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	if v.VarDouble != nil {
		w.AppendDouble(1, *v.VarDouble)
	}
	if v.VarInt != nil {
		w.AppendSignedVarint(2, int64(*v.VarInt))
	}
	if v.VarPrice != nil {
		w.AppendSignedVarint(3, *v.VarPrice)
	}
	if v.VarString != nil {
		w.AppendString(4, *v.VarString)
	}
	if v.VarQuantity != nil {
		w.AppendSignedVarint(5, *v.VarQuantity)
	}
	return w.Bytes()
}

func (v *VariantValue) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			d := f.Double()
			v.VarDouble = &d
		case 2:
			i := f.Int32()
			v.VarInt = &i
		case 3:
			p := f.Int64()
			v.VarPrice = &p
		case 4:
			s := f.String()
			v.VarString = &s
		case 5:
			q := f.Int64()
			v.VarQuantity = &q
		}
	}
	return r.Err()
}

// --- ColumnDescriptor / Row / Cell -----------------------------------------

type ColumnDescriptor struct {
	Name     string
	Type     VariantType
	IsVector bool
	CanWrite bool
}

func (c ColumnDescriptor) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, c.Name)
	w.AppendVarint(2, uint64(c.Type))
	w.AppendBool(3, c.IsVector)
	w.AppendBool(4, c.CanWrite)
	return w.Bytes()
}

func (c *ColumnDescriptor) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			c.Name = f.String()
		case 2:
			c.Type = VariantType(f.U64)
		case 3:
			c.IsVector = f.Bool()
		case 4:
			c.CanWrite = f.Bool()
		}
	}
	return r.Err()
}

type Cell struct {
	ColumnNumber int32
	Value        *VariantValue
	ValueVector  []VariantValue
}

func (c Cell) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(c.ColumnNumber))
	if c.Value != nil {
		w.AppendMessage(2, *c.Value)
	}
	for _, v := range c.ValueVector {
		w.AppendMessage(3, v)
	}
	return w.Bytes()
}

func (c *Cell) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			c.ColumnNumber = f.Int32()
		case 2:
			var v VariantValue
			if err := v.ReadFrom(f.Buf); err != nil {
				return err
			}
			c.Value = &v
		case 3:
			var v VariantValue
			if err := v.ReadFrom(f.Buf); err != nil {
				return err
			}
			c.ValueVector = append(c.ValueVector, v)
		}
	}
	return r.Err()
}

// Row carries a row key, optional contexts, an optional compact
// RowNumber alias, and its cells.
type Row struct {
	Key       string
	Contexts  string
	RowNumber *int64
	Cell      []Cell
}

func (row Row) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, row.Key)
	w.AppendString(2, row.Contexts)
	if row.RowNumber != nil {
		w.AppendSignedVarint(3, *row.RowNumber)
	}
	for _, c := range row.Cell {
		w.AppendMessage(4, c)
	}
	return w.Bytes()
}

func (row *Row) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			row.Key = f.String()
		case 2:
			row.Contexts = f.String()
		case 3:
			n := f.Int64()
			row.RowNumber = &n
		case 4:
			var c Cell
			if err := c.ReadFrom(f.Buf); err != nil {
				return err
			}
			row.Cell = append(row.Cell, c)
		}
	}
	return r.Err()
}

func (row *Row) HasRowNumber() bool { return row != nil && row.RowNumber != nil }

// TableUpdate is the server push carrying an optional new schema
// (ColumnDescriptor list) and zero or more Rows.
type TableUpdate struct {
	ColumnDescriptor []ColumnDescriptor
	Row              []Row
}

func (t TableUpdate) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	for _, c := range t.ColumnDescriptor {
		w.AppendMessage(1, c)
	}
	for _, r := range t.Row {
		w.AppendMessage(2, r)
	}
	return w.Bytes()
}

func (t *TableUpdate) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			var c ColumnDescriptor
			if err := c.ReadFrom(f.Buf); err != nil {
				return err
			}
			t.ColumnDescriptor = append(t.ColumnDescriptor, c)
		case 2:
			var row Row
			if err := row.ReadFrom(f.Buf); err != nil {
				return err
			}
			t.Row = append(t.Row, row)
		}
	}
	return r.Err()
}

// --- ACT sub-protocol -------------------------------------------------------

type ActLoginRequest struct {
	Username         string
	Password         string
	Appname          string
	FailureActions   []string
	SessionOptions   []string
	ClientProperties []Property
}

func (l ActLoginRequest) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, l.Username)
	w.AppendString(2, l.Password)
	w.AppendString(3, l.Appname)
	for _, fa := range l.FailureActions {
		w.AppendString(4, fa)
	}
	for _, so := range l.SessionOptions {
		w.AppendString(5, so)
	}
	for _, p := range l.ClientProperties {
		w.AppendMessage(6, p)
	}
	return w.Bytes()
}

func (l *ActLoginRequest) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			l.Username = f.String()
		case 2:
			l.Password = f.String()
		case 3:
			l.Appname = f.String()
		case 4:
			l.FailureActions = append(l.FailureActions, f.String())
		case 5:
			l.SessionOptions = append(l.SessionOptions, f.String())
		case 6:
			var p Property
			if err := p.ReadFrom(f.Buf); err != nil {
				return err
			}
			l.ClientProperties = append(l.ClientProperties, p)
		}
	}
	return r.Err()
}

type ServerConnectionWire struct {
	Name   string
	Status string
}

func (s ServerConnectionWire) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, s.Name)
	w.AppendString(2, s.Status)
	return w.Bytes()
}

func (s *ServerConnectionWire) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			s.Name = f.String()
		case 2:
			s.Status = f.String()
		}
	}
	return r.Err()
}

type ActLoginResponse struct {
	User               string
	Version            string
	LinkTime           string
	Node               string
	HasAllocations     bool
	ActProtocolVersion string
	Properties         []Property
}

func (l ActLoginResponse) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, l.User)
	w.AppendString(2, l.Version)
	w.AppendString(3, l.LinkTime)
	w.AppendString(4, l.Node)
	w.AppendBool(5, l.HasAllocations)
	w.AppendString(6, l.ActProtocolVersion)
	for _, p := range l.Properties {
		w.AppendMessage(7, p)
	}
	return w.Bytes()
}

func (l *ActLoginResponse) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			l.User = f.String()
		case 2:
			l.Version = f.String()
		case 3:
			l.LinkTime = f.String()
		case 4:
			l.Node = f.String()
		case 5:
			l.HasAllocations = f.Bool()
		case 6:
			l.ActProtocolVersion = f.String()
		case 7:
			var p Property
			if err := p.ReadFrom(f.Buf); err != nil {
				return err
			}
			l.Properties = append(l.Properties, p)
		}
	}
	return r.Err()
}

type ActRequest struct {
	RequestType  ActRequestType
	ClientId     int64
	LoginRequest *ActLoginRequest
}

func (a ActRequest) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(a.RequestType))
	w.AppendSignedVarint(2, a.ClientId)
	if a.LoginRequest != nil {
		w.AppendMessage(3, *a.LoginRequest)
	}
	return w.Bytes()
}

func (a *ActRequest) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			a.RequestType = ActRequestType(f.U64)
		case 2:
			a.ClientId = f.Int64()
		case 3:
			var l ActLoginRequest
			if err := l.ReadFrom(f.Buf); err != nil {
				return err
			}
			a.LoginRequest = &l
		}
	}
	return r.Err()
}

type ActResponse struct {
	ResponseType    ActResponseType
	OperationStatus OperationStatus
	LoginResponse   *ActLoginResponse
	Connections     []ServerConnectionWire
}

func (a ActResponse) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(a.ResponseType))
	w.AppendMessage(2, a.OperationStatus)
	if a.LoginResponse != nil {
		w.AppendMessage(3, *a.LoginResponse)
	}
	for _, c := range a.Connections {
		w.AppendMessage(4, c)
	}
	return w.Bytes()
}

func (a *ActResponse) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			a.ResponseType = ActResponseType(f.U64)
		case 2:
			if err := a.OperationStatus.ReadFrom(f.Buf); err != nil {
				return err
			}
		case 3:
			var l ActLoginResponse
			if err := l.ReadFrom(f.Buf); err != nil {
				return err
			}
			a.LoginResponse = &l
		case 4:
			var c ServerConnectionWire
			if err := c.ReadFrom(f.Buf); err != nil {
				return err
			}
			a.Connections = append(a.Connections, c)
		}
	}
	return r.Err()
}

// --- DEX sub-protocol --------------------------------------------------------

type StartQuery struct {
	ScopeKey  []string
	Field     []string
	Frequency int32
	OneTime   bool
	NoTrigger []string
	Context   []string
}

func (s StartQuery) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	for _, k := range s.ScopeKey {
		w.AppendString(1, k)
	}
	for _, f := range s.Field {
		w.AppendString(2, f)
	}
	w.AppendVarint(3, uint64(s.Frequency))
	w.AppendBool(4, s.OneTime)
	for _, nt := range s.NoTrigger {
		w.AppendString(5, nt)
	}
	for _, c := range s.Context {
		w.AppendString(6, c)
	}
	return w.Bytes()
}

func (s *StartQuery) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			s.ScopeKey = append(s.ScopeKey, f.String())
		case 2:
			s.Field = append(s.Field, f.String())
		case 3:
			s.Frequency = f.Int32()
		case 4:
			s.OneTime = f.Bool()
		case 5:
			s.NoTrigger = append(s.NoTrigger, f.String())
		case 6:
			s.Context = append(s.Context, f.String())
		}
	}
	return r.Err()
}

type DexRequest struct {
	RequestType DexRequestType
	ClientId    int64
	StartQuery  *StartQuery
	TableUpdate *TableUpdate
}

func (d DexRequest) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(d.RequestType))
	w.AppendSignedVarint(2, d.ClientId)
	if d.StartQuery != nil {
		w.AppendMessage(3, *d.StartQuery)
	}
	if d.TableUpdate != nil {
		w.AppendMessage(4, *d.TableUpdate)
	}
	return w.Bytes()
}

func (d *DexRequest) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			d.RequestType = DexRequestType(f.U64)
		case 2:
			d.ClientId = f.Int64()
		case 3:
			var s StartQuery
			if err := s.ReadFrom(f.Buf); err != nil {
				return err
			}
			d.StartQuery = &s
		case 4:
			var t TableUpdate
			if err := t.ReadFrom(f.Buf); err != nil {
				return err
			}
			d.TableUpdate = &t
		}
	}
	return r.Err()
}

type DexResponse struct {
	ResponseType    DexResponseType
	ClientId        int64
	OperationStatus OperationStatus
	TableUpdate     *TableUpdate
}

func (d DexResponse) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(d.ResponseType))
	w.AppendSignedVarint(2, d.ClientId)
	w.AppendMessage(3, d.OperationStatus)
	if d.TableUpdate != nil {
		w.AppendMessage(4, *d.TableUpdate)
	}
	return w.Bytes()
}

func (d *DexResponse) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			d.ResponseType = DexResponseType(f.U64)
		case 2:
			d.ClientId = f.Int64()
		case 3:
			if err := d.OperationStatus.ReadFrom(f.Buf); err != nil {
				return err
			}
		case 4:
			var t TableUpdate
			if err := t.ReadFrom(f.Buf); err != nil {
				return err
			}
			d.TableUpdate = &t
		}
	}
	return r.Err()
}

// --- AutoControl sub-protocol -----------------------------------------------

type AutomationStatusChange struct {
	AutoControlType  string
	AutomationStatus string
}

func (a AutomationStatusChange) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, a.AutoControlType)
	w.AppendString(2, a.AutomationStatus)
	return w.Bytes()
}

func (a *AutomationStatusChange) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			a.AutoControlType = f.String()
		case 2:
			a.AutomationStatus = f.String()
		}
	}
	return r.Err()
}

type ProductAutomationUpdate struct {
	Product       string
	OldIId        string
	NewIId        string
	StatusChanges []AutomationStatusChange
}

func (p ProductAutomationUpdate) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, p.Product)
	w.AppendString(2, p.OldIId)
	w.AppendString(3, p.NewIId)
	for _, sc := range p.StatusChanges {
		w.AppendMessage(4, sc)
	}
	return w.Bytes()
}

func (p *ProductAutomationUpdate) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			p.Product = f.String()
		case 2:
			p.OldIId = f.String()
		case 3:
			p.NewIId = f.String()
		case 4:
			var sc AutomationStatusChange
			if err := sc.ReadFrom(f.Buf); err != nil {
				return err
			}
			p.StatusChanges = append(p.StatusChanges, sc)
		}
	}
	return r.Err()
}

type AutoControlRequest struct {
	RequestType       AutoControlRequestType
	ClientId          int64
	AutomationUpdates []ProductAutomationUpdate
}

func (a AutoControlRequest) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(a.RequestType))
	w.AppendSignedVarint(2, a.ClientId)
	for _, u := range a.AutomationUpdates {
		w.AppendMessage(3, u)
	}
	return w.Bytes()
}

func (a *AutoControlRequest) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			a.RequestType = AutoControlRequestType(f.U64)
		case 2:
			a.ClientId = f.Int64()
		case 3:
			var u ProductAutomationUpdate
			if err := u.ReadFrom(f.Buf); err != nil {
				return err
			}
			a.AutomationUpdates = append(a.AutomationUpdates, u)
		}
	}
	return r.Err()
}

type AutoControlResponse struct {
	ResponseType    AutoControlResponseType
	ClientId        int64
	OperationStatus OperationStatus
}

func (a AutoControlResponse) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(a.ResponseType))
	w.AppendSignedVarint(2, a.ClientId)
	w.AppendMessage(3, a.OperationStatus)
	return w.Bytes()
}

func (a *AutoControlResponse) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			a.ResponseType = AutoControlResponseType(f.U64)
		case 2:
			a.ClientId = f.Int64()
		case 3:
			if err := a.OperationStatus.ReadFrom(f.Buf); err != nil {
				return err
			}
		}
	}
	return r.Err()
}

// --- Algo sub-protocol --------------------------------------------------------

type NamedInstrument struct {
	Name       string
	Instrument string
}

func (n NamedInstrument) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, n.Name)
	w.AppendString(2, n.Instrument)
	return w.Bytes()
}

func (n *NamedInstrument) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			n.Name = f.String()
		case 2:
			n.Instrument = f.String()
		}
	}
	return r.Err()
}

type CreateDirectActionRequest struct {
	DirectActionName      string
	BaseInstrument        string
	AdditionalInstruments []NamedInstrument
	InputParameters       []Property
	ActionStatus          *string
}

func (c CreateDirectActionRequest) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, c.DirectActionName)
	w.AppendString(2, c.BaseInstrument)
	for _, ai := range c.AdditionalInstruments {
		w.AppendMessage(3, ai)
	}
	for _, ip := range c.InputParameters {
		w.AppendMessage(4, ip)
	}
	if c.ActionStatus != nil {
		w.AppendString(5, *c.ActionStatus)
	}
	return w.Bytes()
}

func (c *CreateDirectActionRequest) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			c.DirectActionName = f.String()
		case 2:
			c.BaseInstrument = f.String()
		case 3:
			var ai NamedInstrument
			if err := ai.ReadFrom(f.Buf); err != nil {
				return err
			}
			c.AdditionalInstruments = append(c.AdditionalInstruments, ai)
		case 4:
			var ip Property
			if err := ip.ReadFrom(f.Buf); err != nil {
				return err
			}
			c.InputParameters = append(c.InputParameters, ip)
		case 5:
			s := f.String()
			c.ActionStatus = &s
		}
	}
	return r.Err()
}

type CreateDirectActionResponse struct {
	ActionName       string
	AutomationStatus string
}

func (c CreateDirectActionResponse) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendString(1, c.ActionName)
	w.AppendString(2, c.AutomationStatus)
	return w.Bytes()
}

func (c *CreateDirectActionResponse) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			c.ActionName = f.String()
		case 2:
			c.AutomationStatus = f.String()
		}
	}
	return r.Err()
}

type AlgoRequest struct {
	RequestType               AlgoRequestType
	ClientId                  int64
	CreateDirectActionRequest *CreateDirectActionRequest
	AlgoName                  string
	ControlStatus             AlgoControlStatus
}

func (a AlgoRequest) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(a.RequestType))
	w.AppendSignedVarint(2, a.ClientId)
	if a.CreateDirectActionRequest != nil {
		w.AppendMessage(3, *a.CreateDirectActionRequest)
	}
	w.AppendString(4, a.AlgoName)
	w.AppendVarint(5, uint64(a.ControlStatus))
	return w.Bytes()
}

func (a *AlgoRequest) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			a.RequestType = AlgoRequestType(f.U64)
		case 2:
			a.ClientId = f.Int64()
		case 3:
			var c CreateDirectActionRequest
			if err := c.ReadFrom(f.Buf); err != nil {
				return err
			}
			a.CreateDirectActionRequest = &c
		case 4:
			a.AlgoName = f.String()
		case 5:
			a.ControlStatus = AlgoControlStatus(f.U64)
		}
	}
	return r.Err()
}

type AlgoResponse struct {
	ResponseType               AlgoResponseType
	ClientId                   int64
	OperationStatus            OperationStatus
	CreateDirectActionResponse *CreateDirectActionResponse
	AlgoName                   string
}

func (a AlgoResponse) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(a.ResponseType))
	w.AppendSignedVarint(2, a.ClientId)
	w.AppendMessage(3, a.OperationStatus)
	if a.CreateDirectActionResponse != nil {
		w.AppendMessage(4, *a.CreateDirectActionResponse)
	}
	w.AppendString(5, a.AlgoName)
	return w.Bytes()
}

func (a *AlgoResponse) ReadFrom(b []byte) error {
	r := NewReader(b)
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			a.ResponseType = AlgoResponseType(f.U64)
		case 2:
			a.ClientId = f.Int64()
		case 3:
			if err := a.OperationStatus.ReadFrom(f.Buf); err != nil {
				return err
			}
		case 4:
			var c CreateDirectActionResponse
			if err := c.ReadFrom(f.Buf); err != nil {
				return err
			}
			a.CreateDirectActionResponse = &c
		case 5:
			a.AlgoName = f.String()
		}
	}
	return r.Err()
}

// --- Envelope ----------------------------------------------------------------

// Request is the outbound envelope: exactly one of the four payload
// fields is set, matching SubProtocolType.
type Request struct {
	SubProtocolType    SubProtocolType
	ActRequest         *ActRequest
	DexRequest         *DexRequest
	AutoControlRequest *AutoControlRequest
	AlgoRequest        *AlgoRequest
}

func (r Request) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(r.SubProtocolType))
	if r.ActRequest != nil {
		w.AppendMessage(2, *r.ActRequest)
	}
	if r.DexRequest != nil {
		w.AppendMessage(3, *r.DexRequest)
	}
	if r.AutoControlRequest != nil {
		w.AppendMessage(4, *r.AutoControlRequest)
	}
	if r.AlgoRequest != nil {
		w.AppendMessage(5, *r.AlgoRequest)
	}
	return w.Bytes()
}

func (r *Request) ReadFrom(b []byte) error {
	rd := NewReader(b)
	for {
		f, ok := rd.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			r.SubProtocolType = SubProtocolType(f.U64)
		case 2:
			var a ActRequest
			if err := a.ReadFrom(f.Buf); err != nil {
				return err
			}
			r.ActRequest = &a
		case 3:
			var d DexRequest
			if err := d.ReadFrom(f.Buf); err != nil {
				return err
			}
			r.DexRequest = &d
		case 4:
			var a AutoControlRequest
			if err := a.ReadFrom(f.Buf); err != nil {
				return err
			}
			r.AutoControlRequest = &a
		case 5:
			var a AlgoRequest
			if err := a.ReadFrom(f.Buf); err != nil {
				return err
			}
			r.AlgoRequest = &a
		}
	}
	return rd.Err()
}

// Response mirrors Request and additionally carries the
// server-assigned SessionId, populated on login response.
type Response struct {
	SubProtocolType     SubProtocolType
	SessionId           int64
	ActResponse         *ActResponse
	DexResponse         *DexResponse
	AutoControlResponse *AutoControlResponse
	AlgoResponse        *AlgoResponse
}

func (r Response) AppendTo(b []byte) []byte {
	w := &Writer{buf: b}
	w.AppendVarint(1, uint64(r.SubProtocolType))
	w.AppendSignedVarint(2, r.SessionId)
	if r.ActResponse != nil {
		w.AppendMessage(3, *r.ActResponse)
	}
	if r.DexResponse != nil {
		w.AppendMessage(4, *r.DexResponse)
	}
	if r.AutoControlResponse != nil {
		w.AppendMessage(5, *r.AutoControlResponse)
	}
	if r.AlgoResponse != nil {
		w.AppendMessage(6, *r.AlgoResponse)
	}
	return w.Bytes()
}

func (r *Response) ReadFrom(b []byte) error {
	rd := NewReader(b)
	for {
		f, ok := rd.Next()
		if !ok {
			break
		}
		switch f.Num {
		case 1:
			r.SubProtocolType = SubProtocolType(f.U64)
		case 2:
			r.SessionId = f.Int64()
		case 3:
			var a ActResponse
			if err := a.ReadFrom(f.Buf); err != nil {
				return err
			}
			r.ActResponse = &a
		case 4:
			var d DexResponse
			if err := d.ReadFrom(f.Buf); err != nil {
				return err
			}
			r.DexResponse = &d
		case 5:
			var a AutoControlResponse
			if err := a.ReadFrom(f.Buf); err != nil {
				return err
			}
			r.AutoControlResponse = &a
		case 6:
			var a AlgoResponse
			if err := a.ReadFrom(f.Buf); err != nil {
				return err
			}
			r.AlgoResponse = &a
		}
	}
	return rd.Err()
}

package act

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/sumitelequin/actgo/pkg/actwire"
)

// ToCSV renders q's current schema and rows as CSV: a "Key" header
// row, an optional "Type" header row, then one data row per
// materialised row.
func ToCSV(w io.Writer, q *DexQuery, withTypeRow bool) error {
	columns := q.Columns()
	rows := q.Rows()

	cw := csv.NewWriter(w)

	keyHeader := make([]string, 0, len(columns)+1)
	keyHeader = append(keyHeader, "Key")
	for _, c := range columns {
		keyHeader = append(keyHeader, c.Name)
	}
	if err := cw.Write(keyHeader); err != nil {
		return err
	}

	if withTypeRow {
		typeHeader := make([]string, 0, len(columns)+1)
		typeHeader = append(typeHeader, "Type")
		for _, c := range columns {
			typeHeader = append(typeHeader, c.Type.String())
		}
		if err := cw.Write(typeHeader); err != nil {
			return err
		}
	}

	for _, row := range rows {
		record := make([]string, 0, len(columns)+1)
		record = append(record, row.Key.Key)
		for i, c := range columns {
			if i >= len(row.Cells) {
				record = append(record, "")
				continue
			}
			cell := row.Cells[i]
			record = append(record, c.ToStr(cell.Value, cell.Vector))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSVTable is the parsed form of a CSV table update: a schema (name +
// variant type per column, in column-index order) and the data rows
// beneath it, each already decoded into VariantValue cells via the
// per-type codec.
type CSVTable struct {
	Columns []CSVColumn
	Rows    []CSVRow
}

// CSVColumn is one parsed column header.
type CSVColumn struct {
	Name string
	Type actwire.VariantType
}

// CSVRow is one parsed data row: its row key plus one decoded cell
// value per column, in column order.
type CSVRow struct {
	Key   string
	Cells []actwire.VariantValue
}

// FromCSV parses a "Key"/"Type"/data CSV. A missing or
// shorter-than-two-row file is rejected with ErrCSVHeaderMismatch.
// Column indices start at 0 on the first column after "Key". An
// unrecognized Type name is an error. encoding/csv accepts both \n
// and \r\n line endings natively.
func FromCSV(r io.Reader) (CSVTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return CSVTable{}, err
	}
	if len(records) < 2 {
		return CSVTable{}, ErrCSVHeaderMismatch
	}

	keyRow := records[0]
	typeRow := records[1]
	if len(keyRow) == 0 || keyRow[0] != "Key" {
		return CSVTable{}, fmt.Errorf("%w: first row must start with \"Key\"", ErrCSVHeaderMismatch)
	}
	if len(typeRow) == 0 || typeRow[0] != "Type" {
		return CSVTable{}, fmt.Errorf("%w: second row must start with \"Type\"", ErrCSVHeaderMismatch)
	}
	if len(keyRow) != len(typeRow) {
		return CSVTable{}, ErrCSVHeaderMismatch
	}

	numCols := len(keyRow) - 1
	columns := make([]CSVColumn, numCols)
	for i := 0; i < numCols; i++ {
		typ, ok := actwire.VariantTypeFromString(typeRow[i+1])
		if !ok {
			return CSVTable{}, fmt.Errorf("act: unknown variant type %q in column %d", typeRow[i+1], i)
		}
		columns[i] = CSVColumn{Name: keyRow[i+1], Type: typ}
	}

	table := CSVTable{Columns: columns}
	for _, rec := range records[2:] {
		if len(rec) != len(keyRow) {
			return CSVTable{}, ErrCSVHeaderMismatch
		}
		row := CSVRow{Key: rec[0], Cells: make([]actwire.VariantValue, numCols)}
		for i := 0; i < numCols; i++ {
			row.Cells[i] = StrToVariantValue(rec[i+1], columns[i].Type)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ToTableUpdate converts a parsed CSVTable into a wire TableUpdate
// carrying a fresh ColumnDescriptor epoch and one Row per data row,
// each cell addressed by its column index: the shape a caller hands
// to DexQuery.UpdateTable after editing a CSV out-of-band.
func (t CSVTable) ToTableUpdate() actwire.TableUpdate {
	tu := actwire.TableUpdate{
		ColumnDescriptor: make([]actwire.ColumnDescriptor, len(t.Columns)),
	}
	for i, c := range t.Columns {
		tu.ColumnDescriptor[i] = actwire.ColumnDescriptor{Name: c.Name, Type: c.Type}
	}
	for _, r := range t.Rows {
		row := actwire.Row{Key: r.Key}
		for i, v := range r.Cells {
			v := v
			row.Cell = append(row.Cell, actwire.Cell{ColumnNumber: int32(i), Value: &v})
		}
		tu.Row = append(tu.Row, row)
	}
	return tu
}

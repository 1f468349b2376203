package act

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitelequin/actgo/pkg/actwire"
)

func TestToCSVWithTypeRow(t *testing.T) {
	s, server := newTestSession(t)
	q := NewDexQuery(DexQueryData{})
	clientID := startTestQuery(t, s, server, q)

	// "size" is declared VAR_INT32 but carries a varQuantity cell:
	// the int32 column formatter renders a quantity field when
	// present, so quantity data rides on an Int32-typed column rather
	// than a VAR_QUANTITY column, which has no formatter of its own
	// (see variant.go).
	pushTableUpdate(server, clientID, actwire.TableUpdate{
		ColumnDescriptor: []actwire.ColumnDescriptor{
			{Name: "bid", Type: actwire.VarPrice},
			{Name: "size", Type: actwire.VarInt32},
		},
		Row: []actwire.Row{
			{Key: "AAPL", Cell: []actwire.Cell{
				{ColumnNumber: 0, Value: &actwire.VariantValue{VarPrice: ptrInt64(12_300_000)}},
				{ColumnNumber: 1, Value: &actwire.VariantValue{VarQuantity: ptrInt64(50_050_000_000)}},
			}},
		},
	})
	waitForDex(t, q)

	var sb strings.Builder
	require.NoError(t, ToCSV(&sb, q, true))
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Lenf(t, lines, 3, "csv output:\n%s", sb.String())
	assert.Equal(t, "Key,bid,size", lines[0])
	assert.Equal(t, "Type,VAR_PRICE,VAR_INT32", lines[1])
	assert.Equal(t, "AAPL,1.2300000,500.50000000", lines[2])
}

func TestToCSVWithoutTypeRow(t *testing.T) {
	s, server := newTestSession(t)
	q := NewDexQuery(DexQueryData{})
	clientID := startTestQuery(t, s, server, q)

	pushTableUpdate(server, clientID, actwire.TableUpdate{
		ColumnDescriptor: []actwire.ColumnDescriptor{{Name: "note", Type: actwire.VarString}},
		Row: []actwire.Row{
			{Key: "AAPL", Cell: []actwire.Cell{{ColumnNumber: 0, Value: strVariant("hi")}}},
		},
	})
	waitForDex(t, q)

	var sb strings.Builder
	if err := ToCSV(&sb, q, false); err != nil {
		t.Fatalf("ToCSV: %v", err)
	}
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (type row omitted):\n%s", len(lines), sb.String())
	}
}

func TestFromCSVRoundTrip(t *testing.T) {
	input := "Key,bid,size\nType,VAR_PRICE,VAR_QUANTITY\nAAPL,1.23,500.5\n"
	table, err := FromCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, table.Columns, 2)
	assert.Equal(t, "bid", table.Columns[0].Name)
	assert.Equal(t, actwire.VarPrice, table.Columns[0].Type)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "AAPL", table.Rows[0].Key)

	price := table.Rows[0].Cells[0]
	require.NotNil(t, price.VarPrice)
	assert.EqualValues(t, 12_300_000, *price.VarPrice)

	qty := table.Rows[0].Cells[1]
	require.NotNil(t, qty.VarQuantity)
	assert.EqualValues(t, 50_050_000_000, *qty.VarQuantity)
}

func TestFromCSVRejectsShortFile(t *testing.T) {
	_, err := FromCSV(strings.NewReader("Key,a\n"))
	if err != ErrCSVHeaderMismatch {
		t.Errorf("FromCSV on single-row input = %v, want ErrCSVHeaderMismatch", err)
	}
}

func TestFromCSVUnknownType(t *testing.T) {
	_, err := FromCSV(strings.NewReader("Key,a\nType,NOT_A_TYPE\nk1,1\n"))
	if err == nil {
		t.Error("expected an error for an unrecognized Type name")
	}
}

func TestFromCSVAcceptsCRLF(t *testing.T) {
	input := "Key,note\r\nType,VAR_STRING\r\nk1,hello\r\n"
	table, err := FromCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("FromCSV with CRLF: %v", err)
	}
	if len(table.Rows) != 1 || *table.Rows[0].Cells[0].VarString != "hello" {
		t.Fatalf("rows = %+v", table.Rows)
	}
}

func ptrInt64(v int64) *int64 { return &v }

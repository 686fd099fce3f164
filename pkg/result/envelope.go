// Package result normalizes statement results and catalog listings into one
// column/row envelope and renders it as text.
package result

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/txn2/mcp-databricks/pkg/statement"
)

const (
	// ErrorColumn names the single column of an error envelope.
	ErrorColumn = "Error"

	// NullCell is the text shown for SQL NULL.
	NullCell = "NULL"
)

// Column is one result column. Order defines display order.
type Column struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name,omitempty"`
}

// Envelope is the uniform result contract. Every row has exactly
// len(Columns) cells. Zero rows is a valid, non-error result.
type Envelope struct {
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// New builds an envelope from column names and rows, padding short rows with
// empty cells and dropping cells beyond the last column.
func New(columns []string, rows [][]string) Envelope {
	cols := make([]Column, len(columns))
	for i, name := range columns {
		cols[i] = Column{Name: name}
	}
	return build(cols, rows)
}

// ErrorEnvelope returns the single-column, single-row envelope used to carry
// an error message through the rendering path.
func ErrorEnvelope(msg string) Envelope {
	return Envelope{
		Columns: []Column{{Name: ErrorColumn}},
		Rows:    [][]string{{msg}},
	}
}

// IsError reports whether e has the error-envelope shape.
func (e Envelope) IsError() bool {
	return len(e.Columns) == 1 && e.Columns[0].Name == ErrorColumn && len(e.Rows) == 1
}

// ColumnNames returns the column names in display order.
func (e Envelope) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

// RowCount returns the number of rows.
func (e Envelope) RowCount() int {
	return len(e.Rows)
}

// FromStatement normalizes a SUCCEEDED statement payload. A nil response or
// missing manifest/result degrades to an empty envelope.
func FromStatement(resp *statement.Response) Envelope {
	if resp == nil {
		return Envelope{Columns: []Column{}, Rows: [][]string{}}
	}

	var cols []Column
	if resp.Manifest != nil {
		cols = make([]Column, 0, len(resp.Manifest.Schema.Columns))
		for _, c := range resp.Manifest.Schema.Columns {
			cols = append(cols, Column{Name: c.Name, TypeName: c.TypeName})
		}
	}

	var data [][]any
	if resp.Result != nil {
		data = resp.Result.DataArray
	}

	return fromCells(cols, data)
}

// FromPayload normalizes a decoded JSON payload shaped like a statement
// response: column names under manifest.schema.columns[].name and rows under
// result.data_array. Anything missing or mistyped is skipped.
func FromPayload(payload map[string]any) Envelope {
	var cols []Column
	if schema, ok := dig(payload, "manifest", "schema").(map[string]any); ok {
		rawCols, _ := schema["columns"].([]any)
		cols = make([]Column, 0, len(rawCols))
		for _, rc := range rawCols {
			m, _ := rc.(map[string]any)
			name, _ := m["name"].(string)
			typeName, _ := m["type_name"].(string)
			cols = append(cols, Column{Name: name, TypeName: typeName})
		}
	}

	rawRows, _ := dig(payload, "result", "data_array").([]any)
	data := make([][]any, 0, len(rawRows))
	for _, rr := range rawRows {
		row, _ := rr.([]any)
		data = append(data, row)
	}

	return fromCells(cols, data)
}

// Normalize accepts any supported result shape and returns its envelope.
// Unknown shapes yield an empty envelope rather than an error.
func Normalize(v any) Envelope {
	switch r := v.(type) {
	case Envelope:
		return build(r.Columns, r.Rows)
	case *Envelope:
		if r == nil {
			return Envelope{Columns: []Column{}, Rows: [][]string{}}
		}
		return build(r.Columns, r.Rows)
	case *statement.Response:
		return FromStatement(r)
	case statement.Response:
		return FromStatement(&r)
	case map[string]any:
		return FromPayload(r)
	case []byte:
		var payload map[string]any
		if err := json.Unmarshal(r, &payload); err != nil {
			return Envelope{Columns: []Column{}, Rows: [][]string{}}
		}
		return FromPayload(payload)
	default:
		return Envelope{Columns: []Column{}, Rows: [][]string{}}
	}
}

// fromCells converts untyped cells to text. Rows wider than the schema get
// positional column names so no data is hidden.
func fromCells(cols []Column, data [][]any) Envelope {
	width := len(cols)
	for _, row := range data {
		width = max(width, len(row))
	}
	for i := len(cols); i < width; i++ {
		cols = append(cols, Column{Name: "_c" + strconv.Itoa(i)})
	}
	if cols == nil {
		cols = []Column{}
	}

	rows := make([][]string, 0, len(data))
	for _, row := range data {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellText(v)
		}
		rows = append(rows, cells)
	}
	return build(cols, rows)
}

// build copies rows and enforces the row width invariant.
func build(cols []Column, rows [][]string) Envelope {
	if cols == nil {
		cols = []Column{}
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(cols))
		copy(cells, row)
		out = append(out, cells)
	}
	return Envelope{Columns: cols, Rows: out}
}

func cellText(v any) string {
	switch c := v.(type) {
	case nil:
		return NullCell
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	case json.Number:
		return c.String()
	default:
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprint(c)
		}
		return string(data)
	}
}

func dig(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[k]
	}
	return cur
}

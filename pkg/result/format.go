package result

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	// Delimiter separates cells in the text rendering.
	Delimiter = " | "

	// NoRows is appended under the header when an envelope has no rows.
	NoRows = "(no rows)"
)

// OutputFormat selects a rendering.
type OutputFormat string

// Supported output formats.
const (
	FormatText     OutputFormat = "text"
	FormatTable    OutputFormat = "table"
	FormatMarkdown OutputFormat = "markdown"
	FormatCSV      OutputFormat = "csv"
	FormatJSON     OutputFormat = "json"
)

// ParseFormat resolves a format name. The empty string selects text.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "table":
		return FormatTable, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, table, markdown, csv or json)", s)
	}
}

// cellEscaper keeps every cell on one line and free of the delimiter.
var cellEscaper = strings.NewReplacer(
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
	"|", `\|`,
)

// escapeCell renders line breaks as a literal \n and pipes as \|.
func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

// joinCells escapes each cell and joins them with Delimiter.
func joinCells(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = escapeCell(c)
	}
	return strings.Join(escaped, Delimiter)
}

// Format renders e as a header line followed by one line per row, cells
// joined by Delimiter. Cells are escaped so a row always renders as exactly
// one line of len(Columns) cells. An envelope with no rows renders the
// header and NoRows.
func Format(e Envelope) string {
	e = Normalize(e)

	lines := make([]string, 0, len(e.Rows)+1)
	lines = append(lines, joinCells(e.ColumnNames()))
	for _, row := range e.Rows {
		lines = append(lines, joinCells(row))
	}
	if len(e.Rows) == 0 {
		lines = append(lines, NoRows)
	}
	return strings.Join(lines, "\n")
}

// FormatAny normalizes v and renders it with Format. It never fails.
func FormatAny(v any) string {
	return Format(Normalize(v))
}

// Render writes e to w in the requested format.
func Render(w io.Writer, e Envelope, format OutputFormat) error {
	e = Normalize(e)

	var out string
	switch format {
	case FormatText, "":
		out = Format(e)
	case FormatTable:
		out = renderTable(e)
	case FormatMarkdown:
		out = newTableWriter(e).RenderMarkdown()
	case FormatCSV:
		out = newTableWriter(e).RenderCSV()
	case FormatJSON:
		data, err := json.MarshalIndent(jsonView(e), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		out = string(data)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	if _, err := io.WriteString(w, out+"\n"); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

// RenderString is Render into a string.
func RenderString(e Envelope, format OutputFormat) (string, error) {
	var b strings.Builder
	if err := Render(&b, e, format); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func renderTable(e Envelope) string {
	tw := newTableWriter(e)
	tw.SetStyle(table.StyleLight)
	return tw.Render() + fmt.Sprintf("\n(%d rows)", len(e.Rows))
}

func newTableWriter(e Envelope) table.Writer {
	tw := table.NewWriter()

	header := make(table.Row, len(e.Columns))
	for i, c := range e.Columns {
		header[i] = c.Name
	}
	tw.AppendHeader(header)

	for _, cells := range e.Rows {
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		tw.AppendRow(row)
	}
	return tw
}

// jsonRecord is the JSON rendering of an envelope.
type jsonRecord struct {
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	RowCount int        `json:"row_count"`
}

func jsonView(e Envelope) jsonRecord {
	return jsonRecord{
		Columns:  e.ColumnNames(),
		Rows:     e.Rows,
		RowCount: len(e.Rows),
	}
}

// Package statement drives SQL statements through the Databricks Statement
// Execution API: submit without waiting, then poll until a terminal state.
//
//nolint:revive // package contains related DTO types
package statement

// State is the lifecycle state reported for a statement.
type State string

// Statement lifecycle states.
const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateCanceled  State = "CANCELED"
	StateClosed    State = "CLOSED"
)

// IsTerminal reports whether no further transitions can occur.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCanceled, StateClosed:
		return true
	default:
		return false
	}
}

// Request is the create-statement body. It is immutable once submitted.
type Request struct {
	Statement   string `json:"statement"`
	WarehouseID string `json:"warehouse_id"`
	WaitTimeout string `json:"wait_timeout"`
	Catalog     string `json:"catalog,omitempty"`
	Schema      string `json:"schema,omitempty"`
	Disposition string `json:"disposition,omitempty"`
	Format      string `json:"format,omitempty"`
}

// Handle identifies a submitted statement.
type Handle struct {
	ID string
}

// ServiceError is the failure detail attached to a FAILED statement.
type ServiceError struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Status is one status snapshot.
type Status struct {
	State State         `json:"state,omitempty"`
	Error *ServiceError `json:"error,omitempty"`
}

// ColumnInfo describes one result column.
type ColumnInfo struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name,omitempty"`
	TypeText string `json:"type_text,omitempty"`
	Position int    `json:"position"`
}

// Schema is the column schema of a result.
type Schema struct {
	ColumnCount int          `json:"column_count,omitempty"`
	Columns     []ColumnInfo `json:"columns,omitempty"`
}

// Manifest describes the shape of a statement result.
type Manifest struct {
	Format        string `json:"format,omitempty"`
	Schema        Schema `json:"schema"`
	TotalRowCount int64  `json:"total_row_count,omitempty"`
	Truncated     bool   `json:"truncated,omitempty"`
}

// ResultData carries the inline rows of a result chunk. Cells are JSON
// strings or null; they stay untyped so odd payloads still decode.
type ResultData struct {
	ChunkIndex int     `json:"chunk_index,omitempty"`
	RowOffset  int64   `json:"row_offset,omitempty"`
	RowCount   int64   `json:"row_count,omitempty"`
	DataArray  [][]any `json:"data_array,omitempty"`
}

// Response is the payload returned by the create and get endpoints. When the
// state is SUCCEEDED it is the success result.
type Response struct {
	StatementID string      `json:"statement_id,omitempty"`
	Status      Status      `json:"status"`
	Manifest    *Manifest   `json:"manifest,omitempty"`
	Result      *ResultData `json:"result,omitempty"`
}

// Handle returns the handle of the statement this response describes.
func (r *Response) Handle() Handle {
	return Handle{ID: r.StatementID}
}

package statement

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when no warehouse can be resolved.
	ErrConfiguration = errors.New("Warehouse ID is required. Set DATABRICKS_SQL_WAREHOUSE_ID " + //nolint:revive,staticcheck // user-facing sentence
		"environment variable or provide it as a parameter")

	// ErrProtocol is returned when the service omits a required field.
	ErrProtocol = errors.New("protocol error")

	// ErrTimeout is returned, wrapped in an *ExecutionError, when polling
	// exhausts its budget before the statement reaches a terminal state.
	ErrTimeout = errors.New("Statement execution timed out") //nolint:revive,staticcheck // user-facing sentence

	// errStillRunning marks a non-terminal poll for the retry loop.
	errStillRunning = errors.New("statement still running")
)

// ExecutionError reports a statement that ended in FAILED, CANCELED or
// CLOSED, or that never finished within the poll budget.
type ExecutionError struct {
	StatementID string
	State       State
	ErrorCode   string
	// Message is the upstream error message, "Unknown error" when absent.
	Message string
	// Polls is the number of status fetches performed.
	Polls int

	err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if errors.Is(e.err, ErrTimeout) {
		return fmt.Sprintf("%s after %d polls", ErrTimeout.Error(), e.Polls)
	}
	return "Statement execution failed: " + e.Message
}

// Unwrap returns ErrTimeout for exhausted polling, nil otherwise.
func (e *ExecutionError) Unwrap() error {
	return e.err
}

// IsTimeout reports whether err is a polling timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func protocolError(detail string) error {
	return fmt.Errorf("%w: %s", ErrProtocol, detail)
}

package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/txn2/mcp-databricks/pkg/audit"
)

// defaultStatsWindow is the lookback when no start time is given.
const defaultStatsWindow = 24 * time.Hour

// ToolStats returns per-tool call counts, error counts and mean duration
// since the given time, busiest tool first. A nil since means the last day.
func (s *Store) ToolStats(ctx context.Context, since *time.Time) ([]audit.ToolStats, error) {
	start := time.Now().Add(-defaultStatsWindow)
	if since != nil {
		start = *since
	}

	query, args, err := psq.Select(
		"tool_name",
		"COUNT(*) AS count",
		"COUNT(*) FILTER (WHERE success = false) AS error_count",
		"COALESCE(AVG(duration_ms), 0) AS avg_duration_ms",
	).From(tableName).
		Where(sq.GtOrEq{"timestamp": start}).
		GroupBy("tool_name").
		OrderBy("count DESC", "tool_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building stats query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tool stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := []audit.ToolStats{}
	for rows.Next() {
		var st audit.ToolStats
		if err := rows.Scan(&st.ToolName, &st.Count, &st.ErrorCount, &st.AvgDurationMS); err != nil {
			return nil, fmt.Errorf("scanning tool stats row: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tool stats rows: %w", err)
	}
	return stats, nil
}

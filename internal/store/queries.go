package store

import (
	"context"
	"database/sql"
	"fmt"

	"agentmetrics/internal/metrics"
)

const sessionColumns = `id, started_at, model, prompt, duration_seconds, tokens_in, tokens_out,
	tokens_cached, cost_usd, issues_claimed, issues_completed, tool_calls,
	tool_errors, final_status, apm, source, messages`

// GetSession returns the session with the given id, or nil when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*metrics.SessionMetrics, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return session, nil
}

// ListRecentSessions returns the most recently started sessions.
func (s *Store) ListRecentSessions(ctx context.Context, limit int) ([]*metrics.SessionMetrics, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*metrics.SessionMetrics
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// GetToolCalls returns a session's reconstructed tool-call records in
// insertion order.
func (s *Store) GetToolCalls(ctx context.Context, sessionID string) ([]metrics.ToolCallMetrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, timestamp, tool_name, duration_ms, success, error_type,
		       tokens_in, tokens_out
		FROM tool_calls WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get tool calls for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var calls []metrics.ToolCallMetrics
	for rows.Next() {
		var call metrics.ToolCallMetrics
		var success int
		var errType sql.NullString

		err := rows.Scan(&call.SessionID, &call.Timestamp, &call.ToolName,
			&call.DurationMS, &success, &errType, &call.TokensIn, &call.TokensOut)
		if err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}

		call.Success = success == 1
		if errType.Valid {
			call.ErrorType = &errType.String
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

// Summary holds run-wide aggregates over all stored sessions.
type Summary struct {
	Sessions       int64
	Completed      int64
	TotalCostUSD   float64
	TokensIn       int64
	TokensOut      int64
	TokensCached   int64
	ToolCalls      int64
	ToolErrors     int64
	TotalDurationS float64
}

// SummaryStats aggregates all stored sessions.
func (s *Store) SummaryStats(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN final_status = 'completed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(cost_usd), 0),
		       COALESCE(SUM(tokens_in), 0),
		       COALESCE(SUM(tokens_out), 0),
		       COALESCE(SUM(tokens_cached), 0),
		       COALESCE(SUM(tool_calls), 0),
		       COALESCE(SUM(tool_errors), 0),
		       COALESCE(SUM(duration_seconds), 0)
		FROM sessions`,
	).Scan(&sum.Sessions, &sum.Completed, &sum.TotalCostUSD, &sum.TokensIn,
		&sum.TokensOut, &sum.TokensCached, &sum.ToolCalls, &sum.ToolErrors,
		&sum.TotalDurationS)
	if err != nil {
		return Summary{}, fmt.Errorf("summary stats: %w", err)
	}
	return sum, nil
}

// ToolErrorCount is one tool's failure count.
type ToolErrorCount struct {
	ToolName string
	Errors   int64
}

// TopErrorTools returns the tools with the most failed calls.
func (s *Store) TopErrorTools(ctx context.Context, limit int) ([]ToolErrorCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool_name, COUNT(*) AS errors
		FROM tool_calls
		WHERE success = 0
		GROUP BY tool_name
		ORDER BY errors DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top error tools: %w", err)
	}
	defer rows.Close()

	var result []ToolErrorCount
	for rows.Next() {
		var tec ToolErrorCount
		if err := rows.Scan(&tec.ToolName, &tec.Errors); err != nil {
			return nil, fmt.Errorf("scan tool errors: %w", err)
		}
		result = append(result, tec)
	}
	return result, rows.Err()
}

// ToolLatency is one tool's average call duration.
type ToolLatency struct {
	ToolName      string
	AvgDurationMS float64
	Calls         int64
}

// SlowestTools returns tools ranked by average call duration.
func (s *Store) SlowestTools(ctx context.Context, limit int) ([]ToolLatency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool_name, AVG(duration_ms) AS avg_ms, COUNT(*) AS calls
		FROM tool_calls
		GROUP BY tool_name
		ORDER BY avg_ms DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("slowest tools: %w", err)
	}
	defer rows.Close()

	var result []ToolLatency
	for rows.Next() {
		var tl ToolLatency
		if err := rows.Scan(&tl.ToolName, &tl.AvgDurationMS, &tl.Calls); err != nil {
			return nil, fmt.Errorf("scan tool latency: %w", err)
		}
		result = append(result, tl)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*metrics.SessionMetrics, error) {
	var session metrics.SessionMetrics
	var apm sql.NullFloat64

	err := row.Scan(&session.ID, &session.StartedAt, &session.Model, &session.Prompt,
		&session.DurationSeconds, &session.TokensIn, &session.TokensOut,
		&session.TokensCached, &session.CostUSD, &session.IssuesClaimed,
		&session.IssuesCompleted, &session.ToolCalls, &session.ToolErrors,
		&session.FinalStatus, &apm, &session.Source, &session.Messages)
	if err != nil {
		return nil, err
	}

	if apm.Valid {
		session.APM = &apm.Float64
	}
	return &session, nil
}

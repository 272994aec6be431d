package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"agentmetrics/internal/metrics"
)

// ErrIngestionFailure marks an atomic write that failed and was rolled
// back; nothing from the unit is observable afterwards.
var ErrIngestionFailure = errors.New("ingestion failure")

// Outcome reports what Ingest did with a session.
type Outcome int

const (
	// Imported means the session and its tool-call records were written.
	Imported Outcome = iota
	// SkippedDuplicate means a session with the same id already existed
	// and no writes were performed.
	SkippedDuplicate
)

func (o Outcome) String() string {
	switch o {
	case Imported:
		return "imported"
	case SkippedDuplicate:
		return "skipped duplicate"
	default:
		return "unknown"
	}
}

// SessionExists reports whether a session with the given id is present.
func (s *Store) SessionExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session %s: %w", id, err)
	}
	return true, nil
}

// Ingest writes one session and its tool-call records as a single
// transaction. Duplicate detection rides on the sessions primary key rather
// than a prior existence check, so concurrent importers cannot race past
// each other: the insert either takes the id or reports the conflict.
func (s *Store) Ingest(ctx context.Context, session *metrics.SessionMetrics, calls []metrics.ToolCallMetrics) (Outcome, error) {
	return WithRetry(ctx, busyRetries, func() (Outcome, error) {
		return s.ingest(ctx, session, calls)
	})
}

func (s *Store) ingest(ctx context.Context, session *metrics.SessionMetrics, calls []metrics.ToolCallMetrics) (Outcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %v", ErrIngestionFailure, err)
	}
	defer func() { _ = tx.Rollback() }()

	var apm sql.NullFloat64
	if session.APM != nil {
		apm = sql.NullFloat64{Float64: *session.APM, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions
		(id, started_at, model, prompt, duration_seconds, tokens_in, tokens_out,
		 tokens_cached, cost_usd, issues_claimed, issues_completed, tool_calls,
		 tool_errors, final_status, apm, source, messages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.StartedAt,
		session.Model,
		session.Prompt,
		session.DurationSeconds,
		session.TokensIn,
		session.TokensOut,
		session.TokensCached,
		session.CostUSD,
		session.IssuesClaimed,
		session.IssuesCompleted,
		session.ToolCalls,
		session.ToolErrors,
		session.FinalStatus,
		apm,
		session.Source,
		session.Messages,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return SkippedDuplicate, nil
		}
		return 0, fmt.Errorf("%w: insert session %s: %v", ErrIngestionFailure, session.ID, err)
	}

	for _, call := range calls {
		var errType sql.NullString
		if call.ErrorType != nil {
			errType = sql.NullString{String: *call.ErrorType, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO tool_calls
			(session_id, timestamp, tool_name, duration_ms, success, error_type,
			 tokens_in, tokens_out)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			call.SessionID,
			call.Timestamp,
			call.ToolName,
			call.DurationMS,
			boolToInt(call.Success),
			errType,
			call.TokensIn,
			call.TokensOut,
		)
		if err != nil {
			return 0, fmt.Errorf("%w: insert tool call for session %s: %v", ErrIngestionFailure, session.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit session %s: %v", ErrIngestionFailure, session.ID, err)
	}
	return Imported, nil
}

// DeleteSession removes a session; its tool_calls rows cascade.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLITE_CONSTRAINT_PRIMARYKEY")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package metrics reconstructs completed tool-call records from a
// trajectory's step sequence and derives the session-level aggregates stored
// for cross-session analytics.
package metrics

// Session termination states.
const (
	StatusCompleted = "completed"
	StatusCrashed   = "crashed"
)

// SessionMetrics is the durable summary of one trajectory document.
type SessionMetrics struct {
	ID              string
	StartedAt       string
	Model           string
	Prompt          string
	DurationSeconds float64
	TokensIn        int64
	TokensOut       int64
	TokensCached    int64
	CostUSD         float64
	IssuesClaimed   int64
	IssuesCompleted int64
	ToolCalls       int64
	ToolErrors      int64
	FinalStatus     string
	APM             *float64
	Source          string
	Messages        int64
}

// ToolCallMetrics is one reconstructed, completed tool invocation.
// ErrorType is nil on success and an opaque marker otherwise; the input
// format carries no granular failure reason.
type ToolCallMetrics struct {
	SessionID  string
	Timestamp  string
	ToolName   string
	DurationMS int64
	Success    bool
	ErrorType  *string
	TokensIn   int64
	TokensOut  int64
}

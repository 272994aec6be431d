// Package trajectory decodes agent execution trajectory documents: one JSON
// document per session, carrying session metadata, usage totals, the run
// result, and a chronological sequence of step events.
package trajectory

// Step type discriminators. Documents may contain other kinds (thinking,
// user/assistant messages); those are carried through but ignored by the
// metrics extraction.
const (
	StepToolCall   = "tool_call"
	StepToolResult = "tool_result"
)

// Usage holds the session-wide token and cost totals reported by the agent.
type Usage struct {
	InputTokens     int64   `json:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens"`
	CacheReadTokens int64   `json:"cache_read_tokens"`
	CostUSD         float64 `json:"cost_usd"`
}

// Result holds the final outcome of the run.
type Result struct {
	DurationMS      int64    `json:"duration_ms"`
	Success         bool     `json:"success"`
	IssuesCompleted int64    `json:"issues_completed"`
	APM             *float64 `json:"apm"`
	NumTurns        int64    `json:"num_turns"`
}

// Step is one timestamped event within a trajectory. Which fields are
// populated depends on StepType: tool_call steps carry Tool, ToolID and the
// running token counters; tool_result steps carry ToolID and Success.
type Step struct {
	StepType  string `json:"step_type"`
	Timestamp string `json:"timestamp"`
	Tool      string `json:"tool,omitempty"`
	ToolID    string `json:"tool_id,omitempty"`
	TokensIn  int64  `json:"tokens_in,omitempty"`
	TokensOut int64  `json:"tokens_out,omitempty"`
	Success   bool   `json:"success,omitempty"`
}

// Trajectory is the decoded form of one trajectory document.
type Trajectory struct {
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	StartedAt string `json:"started_at"`
	Usage     Usage  `json:"usage"`
	Result    Result `json:"result"`
	Steps     []Step `json:"steps"`
}

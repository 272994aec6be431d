package metrics

import (
	"time"
	"unicode/utf8"

	"agentmetrics/internal/trajectory"
)

// errTypeUnknown is the placeholder recorded for failed tool calls; the
// trajectory format does not carry a failure reason.
const errTypeUnknown = "unknown"

// maxPromptLen caps the stored prompt; full prompts can run to tens of
// kilobytes and only the head is useful for analytics.
const maxPromptLen = 500

// pendingCall tracks a tool_call step until its tool_result arrives.
// Entries still pending at the end of the step sequence are discarded.
type pendingCall struct {
	tool      string
	timestamp string
	tokensIn  int64
	tokensOut int64
}

// Extract walks the trajectory's steps once, pairing tool_call steps with
// their tool_result by tool_id, and returns the session summary plus the
// reconstructed tool-call records. The source tag identifies the pipeline
// that produced the trajectory.
//
// ToolCalls counts tool_call steps as observed, not reconstructed records: a
// call whose result never arrives is invisible as a record but still counts.
func Extract(traj *trajectory.Trajectory, source string) (SessionMetrics, []ToolCallMetrics) {
	pending := make(map[string]pendingCall)
	records := []ToolCallMetrics{}

	var toolCalls, toolErrors int64

	for _, step := range traj.Steps {
		switch step.StepType {
		case trajectory.StepToolCall:
			toolCalls++
			// A reused tool_id overwrites the earlier pending entry;
			// the first call never becomes a record.
			pending[step.ToolID] = pendingCall{
				tool:      step.Tool,
				timestamp: step.Timestamp,
				tokensIn:  step.TokensIn,
				tokensOut: step.TokensOut,
			}
		case trajectory.StepToolResult:
			call, ok := pending[step.ToolID]
			if !ok {
				// Result with no matching start is dropped.
				continue
			}
			delete(pending, step.ToolID)

			var errType *string
			if !step.Success {
				toolErrors++
				s := errTypeUnknown
				errType = &s
			}

			records = append(records, ToolCallMetrics{
				SessionID:  traj.SessionID,
				Timestamp:  call.timestamp,
				ToolName:   call.tool,
				DurationMS: durationMS(call.timestamp, step.Timestamp),
				Success:    step.Success,
				ErrorType:  errType,
				TokensIn:   call.tokensIn,
				TokensOut:  call.tokensOut,
			})
		}
	}

	finalStatus := StatusCrashed
	if traj.Result.Success {
		finalStatus = StatusCompleted
	}

	session := SessionMetrics{
		ID:              traj.SessionID,
		StartedAt:       traj.StartedAt,
		Model:           traj.Model,
		Prompt:          truncatePrompt(traj.Prompt),
		DurationSeconds: float64(traj.Result.DurationMS) / 1000.0,
		TokensIn:        traj.Usage.InputTokens,
		TokensOut:       traj.Usage.OutputTokens,
		TokensCached:    traj.Usage.CacheReadTokens,
		CostUSD:         traj.Usage.CostUSD,
		// No distinct claim signal exists in the input; claimed is
		// approximated by completed.
		IssuesClaimed:   traj.Result.IssuesCompleted,
		IssuesCompleted: traj.Result.IssuesCompleted,
		ToolCalls:       toolCalls,
		ToolErrors:      toolErrors,
		FinalStatus:     finalStatus,
		APM:             traj.Result.APM,
		Source:          source,
		Messages:        traj.Result.NumTurns,
	}

	return session, records
}

// durationMS computes the wall-clock difference between two step timestamps.
// A parse failure on either side yields 0 rather than failing the whole
// reconstruction.
func durationMS(start, end string) int64 {
	st, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return 0
	}
	et, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return 0
	}
	ms := et.Sub(st).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

func truncatePrompt(prompt string) string {
	if len(prompt) <= maxPromptLen {
		return prompt
	}
	// Back off to a rune boundary so the cut never leaves invalid UTF-8.
	cut := maxPromptLen
	for cut > 0 && !utf8.RuneStart(prompt[cut]) {
		cut--
	}
	return prompt[:cut] + "..."
}

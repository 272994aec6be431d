package metrics

import (
	"strings"
	"testing"
	"unicode/utf8"

	"agentmetrics/internal/trajectory"
)

func toolCall(tool, toolID, ts string, tokensIn, tokensOut int64) trajectory.Step {
	return trajectory.Step{
		StepType:  trajectory.StepToolCall,
		Tool:      tool,
		ToolID:    toolID,
		Timestamp: ts,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
	}
}

func toolResult(toolID, ts string, success bool) trajectory.Step {
	return trajectory.Step{
		StepType:  trajectory.StepToolResult,
		ToolID:    toolID,
		Timestamp: ts,
		Success:   success,
	}
}

func TestExtract_MatchedCall(t *testing.T) {
	traj := &trajectory.Trajectory{
		SessionID: "s1",
		Model:     "sonnet",
		StartedAt: "2025-12-20T00:00:00Z",
		Result:    trajectory.Result{DurationMS: 2000, Success: true, NumTurns: 3},
		Steps: []trajectory.Step{
			toolCall("Read", "a", "2025-12-20T00:00:00Z", 100, 20),
			toolResult("a", "2025-12-20T00:00:01Z", true),
		},
	}

	session, records := Extract(traj, "autopilot")

	if session.ToolCalls != 1 {
		t.Errorf("ToolCalls = %d, want 1", session.ToolCalls)
	}
	if session.ToolErrors != 0 {
		t.Errorf("ToolErrors = %d, want 0", session.ToolErrors)
	}
	if session.FinalStatus != StatusCompleted {
		t.Errorf("FinalStatus = %q, want %q", session.FinalStatus, StatusCompleted)
	}
	if session.Source != "autopilot" {
		t.Errorf("Source = %q, want %q", session.Source, "autopilot")
	}

	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.ToolName != "Read" {
		t.Errorf("ToolName = %q, want %q", rec.ToolName, "Read")
	}
	if rec.DurationMS != 1000 {
		t.Errorf("DurationMS = %d, want 1000", rec.DurationMS)
	}
	if !rec.Success {
		t.Error("Success = false, want true")
	}
	if rec.ErrorType != nil {
		t.Errorf("ErrorType = %v, want nil", *rec.ErrorType)
	}
	if rec.TokensIn != 100 || rec.TokensOut != 20 {
		t.Errorf("tokens = %d/%d, want 100/20", rec.TokensIn, rec.TokensOut)
	}
	if rec.Timestamp != "2025-12-20T00:00:00Z" {
		t.Errorf("Timestamp = %q, want call-start timestamp", rec.Timestamp)
	}
}

func TestExtract_SubSecondDuration(t *testing.T) {
	traj := &trajectory.Trajectory{
		SessionID: "s1",
		Steps: []trajectory.Step{
			toolCall("Bash", "x", "2025-12-20T00:00:00.000Z", 0, 0),
			toolResult("x", "2025-12-20T00:00:00.250Z", true),
		},
	}

	_, records := Extract(traj, "autopilot")
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].DurationMS != 250 {
		t.Errorf("DurationMS = %d, want 250", records[0].DurationMS)
	}
}

func TestExtract_UnmatchedStartCountedButNotRecorded(t *testing.T) {
	traj := &trajectory.Trajectory{
		SessionID: "s1",
		Steps: []trajectory.Step{
			toolCall("Read", "a", "2025-12-20T00:00:00Z", 0, 0),
		},
	}

	session, records := Extract(traj, "autopilot")
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
	if session.ToolCalls != 1 {
		t.Errorf("ToolCalls = %d, want 1", session.ToolCalls)
	}
	if session.ToolErrors != 0 {
		t.Errorf("ToolErrors = %d, want 0", session.ToolErrors)
	}
}

func TestExtract_ResultWithoutStartDropped(t *testing.T) {
	traj := &trajectory.Trajectory{
		SessionID: "s1",
		Steps: []trajectory.Step{
			toolResult("ghost", "2025-12-20T00:00:01Z", false),
		},
	}

	session, records := Extract(traj, "autopilot")
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
	if session.ToolCalls != 0 || session.ToolErrors != 0 {
		t.Errorf("counts = %d/%d, want 0/0", session.ToolCalls, session.ToolErrors)
	}
}

func TestExtract_FailedCallGetsErrorPlaceholder(t *testing.T) {
	traj := &trajectory.Trajectory{
		SessionID: "s1",
		Steps: []trajectory.Step{
			toolCall("Bash", "b", "2025-12-20T00:00:00Z", 0, 0),
			toolResult("b", "2025-12-20T00:00:02Z", false),
		},
	}

	session, records := Extract(traj, "autopilot")
	if session.ToolErrors != 1 {
		t.Errorf("ToolErrors = %d, want 1", session.ToolErrors)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Success {
		t.Error("Success = true, want false")
	}
	if records[0].ErrorType == nil || *records[0].ErrorType != "unknown" {
		t.Errorf("ErrorType = %v, want \"unknown\"", records[0].ErrorType)
	}
}

func TestExtract_LastStartWinsOnDuplicateToolID(t *testing.T) {
	traj := &trajectory.Trajectory{
		SessionID: "s1",
		Steps: []trajectory.Step{
			toolCall("Read", "dup", "2025-12-20T00:00:00Z", 10, 1),
			toolCall("Write", "dup", "2025-12-20T00:00:05Z", 20, 2),
			toolResult("dup", "2025-12-20T00:00:06Z", true),
		},
	}

	session, records := Extract(traj, "autopilot")
	if session.ToolCalls != 2 {
		t.Errorf("ToolCalls = %d, want 2", session.ToolCalls)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].ToolName != "Write" {
		t.Errorf("ToolName = %q, want %q (second start wins)", records[0].ToolName, "Write")
	}
	if records[0].DurationMS != 1000 {
		t.Errorf("DurationMS = %d, want 1000", records[0].DurationMS)
	}
	if records[0].TokensIn != 20 {
		t.Errorf("TokensIn = %d, want 20", records[0].TokensIn)
	}
}

func TestExtract_BadTimestampYieldsZeroDuration(t *testing.T) {
	cases := []struct {
		name  string
		start string
		end   string
	}{
		{"bad start", "not-a-time", "2025-12-20T00:00:01Z"},
		{"bad end", "2025-12-20T00:00:00Z", "garbage"},
		{"end before start", "2025-12-20T00:00:05Z", "2025-12-20T00:00:01Z"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			traj := &trajectory.Trajectory{
				SessionID: "s1",
				Steps: []trajectory.Step{
					toolCall("Read", "a", tc.start, 0, 0),
					toolResult("a", tc.end, true),
				},
			}
			_, records := Extract(traj, "autopilot")
			if len(records) != 1 {
				t.Fatalf("len(records) = %d, want 1", len(records))
			}
			if records[0].DurationMS != 0 {
				t.Errorf("DurationMS = %d, want 0", records[0].DurationMS)
			}
		})
	}
}

func TestExtract_SessionFields(t *testing.T) {
	apm := 12.0
	traj := &trajectory.Trajectory{
		SessionID: "s9",
		Model:     "opus",
		Prompt:    "do the thing",
		StartedAt: "2025-12-21T10:00:00Z",
		Usage: trajectory.Usage{
			InputTokens:     5000,
			OutputTokens:    800,
			CacheReadTokens: 4000,
			CostUSD:         0.12,
		},
		Result: trajectory.Result{
			DurationMS:      90500,
			Success:         false,
			IssuesCompleted: 3,
			APM:             &apm,
			NumTurns:        17,
		},
	}

	session, _ := Extract(traj, "backfill")

	if session.DurationSeconds != 90.5 {
		t.Errorf("DurationSeconds = %v, want 90.5", session.DurationSeconds)
	}
	if session.FinalStatus != StatusCrashed {
		t.Errorf("FinalStatus = %q, want %q", session.FinalStatus, StatusCrashed)
	}
	if session.IssuesClaimed != 3 || session.IssuesCompleted != 3 {
		t.Errorf("issues = %d/%d, want 3/3", session.IssuesClaimed, session.IssuesCompleted)
	}
	if session.Messages != 17 {
		t.Errorf("Messages = %d, want 17", session.Messages)
	}
	if session.APM == nil || *session.APM != 12.0 {
		t.Errorf("APM = %v, want 12.0", session.APM)
	}
	if session.TokensIn != 5000 || session.TokensOut != 800 || session.TokensCached != 4000 {
		t.Errorf("tokens = %d/%d/%d", session.TokensIn, session.TokensOut, session.TokensCached)
	}
}

func TestExtract_PromptTruncated(t *testing.T) {
	traj := &trajectory.Trajectory{
		SessionID: "s1",
		Prompt:    strings.Repeat("x", 2000),
	}

	session, _ := Extract(traj, "autopilot")
	if len(session.Prompt) != 503 {
		t.Errorf("len(Prompt) = %d, want 503 (500 + ellipsis)", len(session.Prompt))
	}
	if !strings.HasSuffix(session.Prompt, "...") {
		t.Error("expected truncated prompt to end with ellipsis")
	}
}

func TestExtract_PromptTruncationKeepsValidUTF8(t *testing.T) {
	// A 4-byte rune straddling the 500-byte cap must not be split.
	traj := &trajectory.Trajectory{
		SessionID: "s1",
		Prompt:    strings.Repeat("x", 498) + strings.Repeat("\U0001F600", 10),
	}

	session, _ := Extract(traj, "autopilot")
	if !utf8.ValidString(session.Prompt) {
		t.Errorf("truncated prompt is not valid UTF-8: %q", session.Prompt)
	}
	if len(session.Prompt) > maxPromptLen+3 {
		t.Errorf("len(Prompt) = %d, want at most %d", len(session.Prompt), maxPromptLen+3)
	}
	if !strings.HasSuffix(session.Prompt, "...") {
		t.Error("expected truncated prompt to end with ellipsis")
	}
}

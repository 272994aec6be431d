package trajectory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParse_FullDocument(t *testing.T) {
	doc := `{
		"session_id": "sess-1",
		"model": "sonnet",
		"prompt": "fix the build",
		"started_at": "2025-12-20T02:09:41Z",
		"usage": {"input_tokens": 1200, "output_tokens": 340, "cache_read_tokens": 900, "cost_usd": 0.042},
		"result": {"duration_ms": 65000, "success": true, "issues_completed": 2, "apm": 14.5, "num_turns": 9},
		"steps": [
			{"step_type": "tool_call", "tool": "Read", "tool_id": "a", "timestamp": "2025-12-20T02:09:42Z", "tokens_in": 100, "tokens_out": 20},
			{"step_type": "tool_result", "tool_id": "a", "success": true, "timestamp": "2025-12-20T02:09:43Z"},
			{"step_type": "thinking", "timestamp": "2025-12-20T02:09:44Z"}
		]
	}`

	traj, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if traj.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", traj.SessionID, "sess-1")
	}
	if traj.Model != "sonnet" {
		t.Errorf("Model = %q, want %q", traj.Model, "sonnet")
	}
	if traj.Usage.InputTokens != 1200 || traj.Usage.CacheReadTokens != 900 {
		t.Errorf("Usage = %+v", traj.Usage)
	}
	if traj.Usage.CostUSD != 0.042 {
		t.Errorf("CostUSD = %v, want 0.042", traj.Usage.CostUSD)
	}
	if !traj.Result.Success || traj.Result.DurationMS != 65000 || traj.Result.NumTurns != 9 {
		t.Errorf("Result = %+v", traj.Result)
	}
	if traj.Result.APM == nil || *traj.Result.APM != 14.5 {
		t.Errorf("APM = %v, want 14.5", traj.Result.APM)
	}
	if len(traj.Steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(traj.Steps))
	}
	if traj.Steps[0].StepType != StepToolCall || traj.Steps[0].Tool != "Read" || traj.Steps[0].ToolID != "a" {
		t.Errorf("Steps[0] = %+v", traj.Steps[0])
	}
	if traj.Steps[1].StepType != StepToolResult || !traj.Steps[1].Success {
		t.Errorf("Steps[1] = %+v", traj.Steps[1])
	}
	if traj.Steps[2].StepType != "thinking" {
		t.Errorf("Steps[2].StepType = %q", traj.Steps[2].StepType)
	}
}

func TestParse_MissingOptionalFieldsDefault(t *testing.T) {
	traj, err := Parse([]byte(`{"session_id": "s"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if traj.Model != "" || traj.Prompt != "" {
		t.Errorf("expected empty text fields, got model=%q prompt=%q", traj.Model, traj.Prompt)
	}
	if traj.Usage.InputTokens != 0 || traj.Usage.CostUSD != 0 {
		t.Errorf("expected zero usage, got %+v", traj.Usage)
	}
	if traj.Result.Success {
		t.Error("expected result.success to default to false")
	}
	if traj.Result.APM != nil {
		t.Errorf("expected nil APM, got %v", *traj.Result.APM)
	}
	if len(traj.Steps) != 0 {
		t.Errorf("expected no steps, got %d", len(traj.Steps))
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "this is not json"},
		{"truncated", `{"session_id": "s", "steps": [`},
		{"wrong shape", `["a", "b"]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedDocument", tc.data, err)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	if err := os.WriteFile(path, []byte(`{"session_id": "from-file"}`), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	traj, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if traj.SessionID != "from-file" {
		t.Errorf("SessionID = %q, want %q", traj.SessionID, "from-file")
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

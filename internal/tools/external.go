package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"time"
)

type Result struct {
	Tool     string
	Raw      []byte
	Err      error
	Duration time.Duration
}

// RunWithTimeout runs tool in dir and captures stdout. Linters exit non-zero
// when they report problems, so an exit error with output is not a failure.
func RunWithTimeout(ctx context.Context, dir, tool string, args ...string) Result {
	start := time.Now()
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	var exit *exec.ExitError
	if errors.As(err, &exit) && len(out) > 0 && ctx.Err() == nil {
		err = nil
	}
	return Result{Tool: tool, Raw: out, Err: err, Duration: time.Since(start)}
}

// Finding is the tool-independent shape of an external report entry.
type Finding struct {
	RuleID     string  `json:"ruleId"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
	File       string  `json:"file"`
	StartLine  int     `json:"startLine"`
	EndLine    int     `json:"endLine"`
	Message    string  `json:"message"`
}

// Normalize converts the raw output of a known tool.
func Normalize(tool string, raw []byte) ([]Finding, error) {
	switch tool {
	case "cargo-audit":
		return normalizeCargoAudit(raw)
	case "clippy":
		return normalizeClippy(raw)
	default:
		var out []Finding
		err := json.Unmarshal(raw, &out)
		return out, err
	}
}

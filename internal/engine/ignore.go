package engine

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

// suppressionMarker precedes a rule id in an inline suppression comment:
//
//	// sentinel:ignore ANC-V023-TAINTED-FLOW reason="amount bounded by caller"
const suppressionMarker = "sentinel:ignore "

// applyIgnores filters findings based on config ignore rules and inline
// suppression markers. contents supplies file text already in memory.
func applyIgnores(findings []model.Finding, cfg config.Config, contents map[string]string) []model.Finding {
	now := time.Now()
	var out []model.Finding
	for _, f := range findings {
		if isIgnored(f, cfg, now) || hasInlineSuppression(fileText(f.File, contents), f.RuleID, f.StartLine) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isIgnored(f model.Finding, cfg config.Config, now time.Time) bool {
	for _, ig := range cfg.Ignore {
		if ig.Rule != "" && !strings.EqualFold(ig.Rule, f.RuleID) {
			continue
		}
		if ig.Path != "" && !pathMatches(ig.Path, f.File) {
			continue
		}
		if ig.Expires != "" {
			exp, err := time.Parse("2006-01-02", ig.Expires)
			if err == nil && now.After(exp) {
				continue
			}
		}
		return true
	}
	return false
}

// pathMatches accepts a directory prefix or a glob.
func pathMatches(pattern, file string) bool {
	pattern = filepath.ToSlash(pattern)
	file = filepath.ToSlash(file)
	if strings.HasPrefix(file, pattern) {
		return true
	}
	ok, _ := filepath.Match(pattern, file)
	return ok
}

func fileText(path string, contents map[string]string) string {
	if c, ok := contents[filepath.FromSlash(path)]; ok {
		return c
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(b)
}

// hasInlineSuppression looks for a marker naming ruleID from five lines
// above the finding through the line after it.
func hasInlineSuppression(content, ruleID string, startLine int) bool {
	if content == "" || startLine < 1 {
		return false
	}
	lines := strings.Split(content, "\n")
	from := startLine - 1 - 5
	if from < 0 {
		from = 0
	}
	to := startLine
	if to >= len(lines) {
		to = len(lines) - 1
	}
	needle := suppressionMarker + ruleID
	for i := from; i <= to; i++ {
		if strings.Contains(lines[i], needle) {
			return true
		}
	}
	return false
}

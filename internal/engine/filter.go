package engine

import (
	"strings"

	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

// filterBySeverity removes findings below the configured severity threshold
func filterBySeverity(findings []model.Finding, cfg config.Config) []model.Finding {
	threshold := model.ParseSeverity(cfg.SeverityThreshold)
	var out []model.Finding
	for _, f := range findings {
		if model.SeverityGTE(f.Severity, threshold) {
			out = append(out, f)
		}
	}
	return out
}

// filterByPlugins keeps only findings whose RuleID is in cfg.Plugins when the
// list is non-empty. External tool findings are kept when their tool prefix
// ("cargo-audit", "clippy") is listed.
func filterByPlugins(findings []model.Finding, cfg config.Config) []model.Finding {
	if len(cfg.Plugins) == 0 {
		return findings
	}
	allowed := map[string]struct{}{}
	for _, id := range cfg.Plugins {
		allowed[strings.TrimSpace(id)] = struct{}{}
	}
	var out []model.Finding
	for _, f := range findings {
		id := f.RuleID
		if _, ok := allowed[id]; !ok {
			tool, _, found := strings.Cut(id, ":")
			if _, ok := allowed[tool]; !found || !ok {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

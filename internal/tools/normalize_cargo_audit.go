package tools

import (
	"encoding/json"
	"fmt"
)

// cargo audit --json (simplified)
type auditAdvisory struct {
	ID      string `json:"id"`
	Package string `json:"package"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

type auditVuln struct {
	Advisory auditAdvisory `json:"advisory"`
	Package  struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"package"`
}

type auditOut struct {
	Vulnerabilities struct {
		Found bool        `json:"found"`
		List  []auditVuln `json:"list"`
	} `json:"vulnerabilities"`
}

func normalizeCargoAudit(raw []byte) ([]Finding, error) {
	var o auditOut
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	var out []Finding
	for _, v := range o.Vulnerabilities.List {
		out = append(out, Finding{
			RuleID:     v.Advisory.ID,
			Severity:   "high",
			Confidence: 0.9,
			File:       "Cargo.lock",
			StartLine:  1,
			EndLine:    1,
			Message:    fmt.Sprintf("%s %s: %s", v.Package.Name, v.Package.Version, v.Advisory.Title),
		})
	}
	return out, nil
}

package report

import (
	"encoding/json"
	"strings"

	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

// ToolName is reported as the SARIF driver.
const ToolName = "anchor-sentinel"

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string         `json:"id"`
	ShortDescription sarifMessage   `json:"shortDescription"`
	Properties       sarifRuleProps `json:"properties"`
}

type sarifRuleProps struct {
	Tags []string `json:"tags,omitempty"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLoc        `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}
type sarifLoc struct {
	Physical sarifPhys `json:"physicalLocation"`
}
type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}
type sarifArt struct {
	URI string `json:"uri"`
}
type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine,omitempty"`
}

func level(s model.Severity) string {
	switch s {
	case model.SeverityMedium:
		return "warning"
	case model.SeverityHigh, model.SeverityCritical:
		return "error"
	default:
		return "note"
	}
}

// ToSARIF renders findings as a SARIF 2.1.0 log. rules describes the
// built-in detectors; CWE ids are added to each rule's tags.
func ToSARIF(findings []model.Finding, rules []model.RuleMeta) ([]byte, error) {
	driver := sarifDriver{Name: ToolName}
	for _, r := range rules {
		tags := append([]string(nil), r.Tags...)
		if r.CWE != "" {
			tags = append(tags, "external/cwe/"+strings.ToLower(r.CWE))
		}
		driver.Rules = append(driver.Rules, sarifRule{
			ID:               r.ID,
			ShortDescription: sarifMessage{Text: r.Title},
			Properties:       sarifRuleProps{Tags: tags},
		})
	}
	results := make([]sarifResult, 0, len(findings))
	for _, f := range findings {
		start := f.StartLine
		if start < 1 {
			start = 1
		}
		r := sarifResult{
			RuleID:  f.RuleID,
			Level:   level(f.Severity),
			Message: sarifMessage{Text: f.Message},
			Locations: []sarifLoc{{Physical: sarifPhys{
				ArtifactLocation: sarifArt{URI: f.File},
				Region:           sarifRegion{StartLine: start, EndLine: f.EndLine},
			}}},
		}
		if f.Fingerprint != "" {
			r.PartialFingerprints = map[string]string{"sentinel/v1": f.Fingerprint}
		}
		results = append(results, r)
	}
	s := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{{Tool: sarifTool{Driver: driver}, Results: results}},
	}
	return json.MarshalIndent(s, "", "  ")
}

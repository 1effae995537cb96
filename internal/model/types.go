package model

import (
	"strings"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity maps a name to a Severity. Unknown names are low.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

var severityOrder = map[Severity]int{SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3, SeverityCritical: 4}

func SeverityGTE(a, b Severity) bool {
	return severityOrder[a] >= severityOrder[b]
}

type RuleMeta struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	CWE      string   `json:"cwe,omitempty"`
	Tags     []string `json:"tags"`
}

type Finding struct {
	RuleID      string   `json:"ruleId"`
	Severity    Severity `json:"severity"`
	Confidence  float64  `json:"confidence"`
	DetectorID  string   `json:"detectorId"`
	File        string   `json:"file"`
	StartLine   int      `json:"startLine"`
	EndLine     int      `json:"endLine"`
	Snippet     string   `json:"snippet"`
	Entity      string   `json:"entity"`
	Message     string   `json:"message"`
	Rationale   string   `json:"rationale"`
	Remediation string   `json:"remediation"`
	CWE         string   `json:"cwe,omitempty"`
	References  []string `json:"references"`
	Fingerprint string   `json:"fingerprint"`
}

type ScanRequest struct {
	Path       string
	TimeBudget time.Duration
	// ConfigPath overrides the upward search for the config file.
	ConfigPath   string
	BaselinePath string
	// LogLevel overrides the configured level when non-zero.
	LogLevel int
}

type ScanResult struct {
	Findings []Finding     `json:"findings"`
	Files    int           `json:"files"`
	Elapsed  time.Duration `json:"elapsed"`
}

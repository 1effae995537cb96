package report

import (
	"encoding/json"
	"testing"

	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

func TestToSARIF(t *testing.T) {
	findings := []model.Finding{
		{RuleID: "ANC-V023-TAINTED-FLOW", Severity: model.SeverityHigh, File: "programs/vault/src/lib.rs", StartLine: 14, EndLine: 14, Message: "tainted", Fingerprint: "abc"},
		{RuleID: "ANC-V019-LOOP-BOUND", Severity: model.SeverityMedium, File: "programs/vault/src/lib.rs", Message: "loop"},
		{RuleID: "clippy:clippy::integer_arithmetic", Severity: model.SeverityLow, File: "a.rs", StartLine: 2},
	}
	rules := []model.RuleMeta{{ID: "ANC-V023-TAINTED-FLOW", Title: "Tainted flow", CWE: "CWE-20", Tags: []string{"anchor"}}}
	data, err := ToSARIF(findings, rules)
	if err != nil {
		t.Fatal(err)
	}
	var got sarif
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	run := got.Runs[0]
	if run.Tool.Driver.Name != ToolName || len(run.Tool.Driver.Rules) != 1 {
		t.Fatalf("driver = %+v", run.Tool.Driver)
	}
	if tags := run.Tool.Driver.Rules[0].Properties.Tags; len(tags) != 2 || tags[1] != "external/cwe/cwe-20" {
		t.Errorf("tags = %v", tags)
	}
	levels := []string{"error", "warning", "note"}
	for i, r := range run.Results {
		if r.Level != levels[i] {
			t.Errorf("result %d level = %s, want %s", i, r.Level, levels[i])
		}
	}
	if run.Results[0].PartialFingerprints["sentinel/v1"] != "abc" {
		t.Errorf("fingerprint missing: %+v", run.Results[0])
	}
	if run.Results[1].Locations[0].Physical.Region.StartLine != 1 {
		t.Errorf("zero start line not clamped")
	}
}

func TestToSARIFEmpty(t *testing.T) {
	data, err := ToSARIF(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	runs := got["runs"].([]any)
	if res := runs[0].(map[string]any)["results"].([]any); len(res) != 0 {
		t.Errorf("results = %v", res)
	}
}

package plugins

import (
	"context"
	"fmt"

	"github.com/Ramprasad4121/anchor-sentinel/internal/analysis"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

// taintedFlow reports handler arguments and account data that reach a
// transfer or CPI without passing an assertion.
type taintedFlow struct{}

func (d *taintedFlow) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "ANC-V023-TAINTED-FLOW",
		Title:    "Untrusted input reaches a sensitive operation without validation",
		Severity: model.SeverityHigh,
		CWE:      "CWE-20",
		Tags:     []string{"taint", "input-validation"},
	}
}

var sinkDescriptions = map[analysis.SinkKind]string{
	analysis.Transfer:          "token transfer",
	analysis.Invoke:            "cross-program invocation",
	analysis.ArrayIndex:        "array indexing",
	analysis.StateModification: "state modification",
	analysis.UncheckedMath:     "unchecked arithmetic",
}

func (d *taintedFlow) Analyze(ctx context.Context, pc *analysis.ProjectContext) ([]model.Finding, error) {
	var findings []model.Finding
	meta := d.Meta()
	for _, file := range pc.Files {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		for _, h := range pc.Handlers(file) {
			tr := pc.NewTaintTracker(pc.FileContents[file])
			for _, flow := range tr.AnalyzeFunction(h.Fn) {
				// the context receiver itself is covered by account usage checks
				if flow.Source.Kind == analysis.AccountField {
					continue
				}
				sink := sinkDescriptions[flow.Sink]
				f := newFinding(meta, "anchor-tainted-flow", pc, file, flow.Location.Line, h.Fn.Name+"::"+flow.Variable)
				f.Confidence = 0.85
				switch flow.Sink {
				case analysis.Transfer, analysis.Invoke:
				default:
					f.Severity = model.SeverityMedium
				}
				f.Message = fmt.Sprintf("Tainted '%s' flows to %s without validation", flow.Variable, sink)
				f.Rationale = fmt.Sprintf(
					"'%s' comes from %s '%s' and reaches a %s in '%s' without an assertion on any path. Attackers control this value.",
					flow.Variable, flow.Source.Kind, flow.Source.Name, sink, h.Fn.Name)
				f.Remediation = "Validate the value before use, e.g. require!(amount > 0 && amount <= MAX_AMOUNT, ErrorCode::InvalidAmount);"
				if flow.Excerpt != "" {
					f.Snippet = flow.Excerpt
				}
				findings = append(findings, f)
			}
		}
	}
	return findings, nil
}

package plugins

import (
	"context"
	"fmt"

	"github.com/Ramprasad4121/anchor-sentinel/internal/analysis"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

// scopeValidation reports assertions that only run inside a branch while the
// guarded operation runs outside it.
type scopeValidation struct{}

func (d *scopeValidation) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "ANC-V027-SCOPE-VALIDATION",
		Title:    "Validation scoped to a branch does not guard a later operation",
		Severity: model.SeverityHigh,
		CWE:      "CWE-670",
		Tags:     []string{"control-flow", "validation"},
	}
}

func (d *scopeValidation) Analyze(ctx context.Context, pc *analysis.ProjectContext) ([]model.Finding, error) {
	var findings []model.Finding
	meta := d.Meta()
	for _, file := range pc.Files {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		for _, h := range pc.Handlers(file) {
			st := pc.NewScopeTracker()
			st.Analyze(h.Fn)
			for _, v := range st.FindViolations() {
				f := newFinding(meta, "anchor-scope-validation", pc, file, v.Location.Line, h.Fn.Name+"::"+v.Variable)
				f.Confidence = 0.80
				f.Message = fmt.Sprintf("Validation of '%s' does not cover its use in '%s'", v.Variable, h.Fn.Name)
				f.Rationale = v.Explanation
				f.Remediation = "Move the check before the branch so that it dominates the operation, or perform the operation inside the validated block."
				findings = append(findings, f)
			}
		}
	}
	return findings, nil
}

package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ramprasad4121/anchor-sentinel/internal/analysis"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

// uncheckedAccount flags raw account fields that Anchor does not validate
// and that carry no explanation or constraint.
type uncheckedAccount struct{}

func (d *uncheckedAccount) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "ANC-V002-UNCHECKED-ACCOUNT",
		Title:    "Raw account without owner validation",
		Severity: model.SeverityHigh,
		CWE:      "CWE-284",
		Tags:     []string{"access-control", "account-validation"},
	}
}

var validatingConstraints = []string{"owner", "address", "constraint", "has_one", "seeds"}

func documentedCheck(f analysis.FieldInfo) bool {
	for _, doc := range f.Docs {
		if strings.HasPrefix(strings.TrimSpace(doc), "CHECK") {
			return true
		}
	}
	return false
}

func (d *uncheckedAccount) Analyze(ctx context.Context, pc *analysis.ProjectContext) ([]model.Finding, error) {
	var findings []model.Finding
	meta := d.Meta()
	for _, s := range pc.Index.Dump().Structs {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		if !s.IsAccountsContext {
			continue
		}
	fields:
		for _, f := range s.FieldList {
			if f.TypeName != "AccountInfo" && f.TypeName != "UncheckedAccount" {
				continue
			}
			if wellKnownAccounts[f.Name] || documentedCheck(f) {
				continue
			}
			for _, c := range validatingConstraints {
				if f.HasConstraint(c) {
					continue fields
				}
			}
			fd := newFinding(meta, "anchor-unchecked-account", pc, s.File, f.Line, s.Name+"::"+f.Name)
			fd.Confidence = 0.75
			fd.Message = fmt.Sprintf("Account `%s` in `%s` lacks owner validation", f.Name, s.Name)
			fd.Rationale = fmt.Sprintf(
				"`%s` is %s, which Anchor does not deserialize or owner-check, and it has neither a /// CHECK: note nor a validating constraint.",
				f.Name, f.Type)
			fd.Remediation = "Prefer Account<'info, T>; otherwise add an owner, address, seeds or constraint check and document it with /// CHECK:."
			findings = append(findings, fd)
		}
	}
	return findings, nil
}

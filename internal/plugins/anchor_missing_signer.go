package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ramprasad4121/anchor-sentinel/internal/analysis"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
)

// missingSigner flags authority-like accounts in an instruction context that
// contains no signer at all.
type missingSigner struct{}

func (d *missingSigner) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "ANC-V001-MISSING-SIGNER",
		Title:    "Privileged account without signer authorization",
		Severity: model.SeverityCritical,
		CWE:      "CWE-862",
		Tags:     []string{"access-control"},
	}
}

var authorityNames = []string{
	"authority", "owner", "admin", "manager", "operator", "signer",
	"payer", "creator", "initializer", "controller", "governor",
}

func isSigner(f analysis.FieldInfo) bool {
	return f.TypeName == "Signer" || f.HasConstraint("signer")
}

func looksPrivileged(f analysis.FieldInfo) bool {
	name := strings.ToLower(f.Name)
	for _, p := range authorityNames {
		if strings.Contains(name, p) {
			return true
		}
	}
	return f.TypeName == "AccountInfo" && f.HasConstraint("mut")
}

// bindsKey reports whether another field pins name through has_one or a
// constraint comparing its key.
func bindsKey(s *analysis.StructInfo, name string) bool {
	for _, other := range s.FieldList {
		if v, ok := other.ConstraintValue("has_one"); ok && v == name {
			return true
		}
		if v, ok := other.ConstraintValue("constraint"); ok && strings.Contains(v, name) && strings.Contains(v, "key") {
			return true
		}
	}
	return false
}

func (d *missingSigner) Analyze(ctx context.Context, pc *analysis.ProjectContext) ([]model.Finding, error) {
	var findings []model.Finding
	meta := d.Meta()
	for _, s := range contextStructs(pc) {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		hasSigner := false
		for _, f := range s.FieldList {
			if isSigner(f) {
				hasSigner = true
				break
			}
		}
		if hasSigner {
			continue
		}
		for _, f := range s.FieldList {
			if !looksPrivileged(f) || wellKnownAccounts[f.Name] || bindsKey(s, f.Name) {
				continue
			}
			fd := newFinding(meta, "anchor-missing-signer", pc, s.File, f.Line, s.Name+"::"+f.Name)
			fd.Confidence = 0.70
			fd.Message = fmt.Sprintf("Account `%s` in `%s` may require signer authorization", f.Name, s.Name)
			fd.Rationale = fmt.Sprintf(
				"`%s` looks like a privileged account but no account in `%s` is a signer. Any caller can pass an arbitrary key.",
				f.Name, s.Name)
			fd.Remediation = "Use Signer<'info> for the authority, add #[account(signer)], or pin it with has_one on an account that stores the expected key."
			findings = append(findings, fd)
		}
	}
	return findings, nil
}

package plugins

import (
	"context"
	"fmt"

	"github.com/Ramprasad4121/anchor-sentinel/internal/analysis"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
	"github.com/Ramprasad4121/anchor-sentinel/internal/rust"
)

// accountUsage flags context accounts passed to transfers or CPIs, or
// mutated, when nothing in the handler or its accounts struct validates them.
type accountUsage struct{}

func (d *accountUsage) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "ANC-V024-ACCOUNT-USAGE",
		Title:    "Account used in a sensitive operation without validation",
		Severity: model.SeverityHigh,
		CWE:      "CWE-284",
		Tags:     []string{"access-control", "account-substitution"},
	}
}

type accountUse struct {
	name string
	line int
	op   string
}

// checkedAccounts returns the accounts validated by the handler body (any
// assertion or if condition) or by its accounts struct (signers, has_one
// targets and constrained fields).
func checkedAccounts(h analysis.Handler, s *analysis.StructInfo, st *analysis.ScopeTracker) map[string]bool {
	checked := map[string]bool{}
	for name := range st.Validated() {
		checked[name] = true
	}
	rust.Inspect(h.Fn.Body, func(n rust.Node) bool {
		if ifx, ok := n.(*rust.IfExpr); ok && ifx.Cond != nil {
			for _, name := range accountRefs(ifx.Cond, h.Info.ContextArg) {
				checked[name] = true
			}
		}
		return true
	})
	if s == nil {
		return checked
	}
	for _, f := range s.FieldList {
		if isSigner(f) {
			checked[f.Name] = true
		}
		if v, ok := f.ConstraintValue("has_one"); ok {
			checked[v] = true
		}
		for _, c := range []string{"address", "owner", "constraint", "seeds", "has_one"} {
			if f.HasConstraint(c) {
				checked[f.Name] = true
			}
		}
	}
	return checked
}

func usedAccounts(h analysis.Handler) []accountUse {
	recv := h.Info.ContextArg
	var (
		out  []accountUse
		seen = map[accountUse]bool{}
	)
	add := func(names []string, line int, op string) {
		for _, name := range names {
			u := accountUse{name: name, line: line}
			if seen[u] {
				continue
			}
			seen[u] = true
			u.op = op
			out = append(out, u)
		}
	}
	rust.Inspect(h.Fn.Body, func(n rust.Node) bool {
		switch n := n.(type) {
		case *rust.CallExpr:
			if isAccountOperation(n.Callee) {
				for _, a := range n.Args {
					add(accountRefs(a, recv), n.Pos.Line, "transfer or CPI")
				}
			}
		case *rust.MethodCallExpr:
			switch n.Method {
			case "borrow_mut", "try_borrow_mut", "try_borrow_mut_data", "try_borrow_mut_lamports":
				if name, ok := accountRef(n.Recv, recv); ok {
					add([]string{name}, n.Pos.Line, "state modification")
				}
			}
		case *rust.AssignExpr:
			if name, ok := accountRef(n.LHS, recv); ok {
				add([]string{name}, n.Pos.Line, "state assignment")
			}
		}
		return true
	})
	return out
}

func (d *accountUsage) Analyze(ctx context.Context, pc *analysis.ProjectContext) ([]model.Finding, error) {
	var findings []model.Finding
	meta := d.Meta()
	for _, file := range pc.Files {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		for _, h := range pc.Handlers(file) {
			if h.Fn.Body == nil {
				continue
			}
			s, _ := pc.Index.ResolveStruct(h.Info.ContextStruct())
			st := pc.NewScopeTracker()
			st.Analyze(h.Fn)
			checked := checkedAccounts(h, s, st)
			for _, u := range usedAccounts(h) {
				if checked[u.name] || wellKnownAccounts[u.name] {
					continue
				}
				if s != nil {
					if f, ok := s.Field(u.name); ok && f.TypeName == "Program" {
						continue
					}
				}
				fd := newFinding(meta, "anchor-account-usage", pc, file, u.line, h.Fn.Name+"::"+u.name)
				fd.Confidence = 0.75
				fd.Message = fmt.Sprintf("Account '%s' used without validation", u.name)
				fd.Rationale = fmt.Sprintf(
					"Account '%s' is used in a %s in '%s' but is never validated by an assertion, an if condition, a signer type or a has_one constraint. A caller can substitute another account.",
					u.name, u.op, h.Fn.Name)
				fd.Remediation = "Validate the account before use, e.g. require_keys_eq!(ctx.accounts.target.key(), expected, ErrorCode::Unauthorized);"
				findings = append(findings, fd)
			}
		}
	}
	return findings, nil
}

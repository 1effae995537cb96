package plugins

import (
	"strings"

	"github.com/Ramprasad4121/anchor-sentinel/internal/analysis"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
	"github.com/Ramprasad4121/anchor-sentinel/internal/rust"
	"github.com/Ramprasad4121/anchor-sentinel/internal/util"
)

// newFinding fills the location fields shared by every detector. The
// fingerprint hashes the entity and the trimmed source line rather than the
// line number, so baselines survive unrelated edits above the finding.
func newFinding(meta model.RuleMeta, detectorID string, pc *analysis.ProjectContext, file string, line int, entity string) model.Finding {
	content := pc.FileContents[file]
	return model.Finding{
		RuleID:      meta.ID,
		Severity:    meta.Severity,
		DetectorID:  detectorID,
		File:        file,
		StartLine:   line,
		EndLine:     line,
		Snippet:     util.ExtractSnippet(content, line, line, 4),
		Entity:      entity,
		CWE:         meta.CWE,
		Fingerprint: util.Fingerprint(meta.ID, file, 0, 0, entity+"|"+util.Line(content, line)),
	}
}

// contextStructs returns the accounts structs bound by instruction handlers,
// once each, in instruction order.
func contextStructs(pc *analysis.ProjectContext) []*analysis.StructInfo {
	var (
		out  []*analysis.StructInfo
		seen = map[string]bool{}
	)
	for _, in := range pc.Index.ListInstructions() {
		name := in.ContextStruct()
		if seen[name] {
			continue
		}
		seen[name] = true
		if s, ok := pc.Index.ResolveStruct(name); ok {
			out = append(out, s)
		}
	}
	return out
}

// wellKnownAccounts are program and sysvar accounts whose address Anchor
// checks through their type.
var wellKnownAccounts = map[string]bool{
	"system_program":           true,
	"token_program":            true,
	"associated_token_program": true,
	"rent":                     true,
	"clock":                    true,
	"payer":                    true,
}

// accountRef returns NAME for an expression rooted at recv.accounts.NAME,
// e.g. ctx.accounts.vault.to_account_info().
func accountRef(x rust.Expr, recv string) (string, bool) {
	for {
		switch e := x.(type) {
		case *rust.FieldExpr:
			if inner, ok := e.X.(*rust.FieldExpr); ok && inner.Field == "accounts" {
				if id, ok := inner.X.(*rust.Ident); ok && id.Name == recv {
					return e.Field, true
				}
			}
			x = e.X
		case *rust.MethodCallExpr:
			x = e.Recv
		case *rust.UnaryExpr:
			x = e.X
		case *rust.ParenExpr:
			x = e.X
		case *rust.TryExpr:
			x = e.X
		case *rust.IndexExpr:
			x = e.X
		default:
			return "", false
		}
	}
}

// accountRefs collects every recv.accounts.NAME reference inside x.
func accountRefs(x rust.Node, recv string) []string {
	var out []string
	rust.Inspect(x, func(n rust.Node) bool {
		if e, ok := n.(rust.Expr); ok {
			if name, ok := accountRef(e, recv); ok {
				out = append(out, name)
				return false
			}
		}
		return true
	})
	return out
}

// isAccountOperation matches calls that move funds or hand accounts to
// another program.
func isAccountOperation(callee string) bool {
	lower := strings.ToLower(callee)
	for _, op := range []string{"transfer", "invoke", "cpicontext::new", "mint_to", "burn", "close_account", "set_authority"} {
		if strings.Contains(lower, op) {
			return true
		}
	}
	return false
}

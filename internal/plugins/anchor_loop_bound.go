package plugins

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Ramprasad4121/anchor-sentinel/internal/analysis"
	"github.com/Ramprasad4121/anchor-sentinel/internal/model"
	"github.com/Ramprasad4121/anchor-sentinel/internal/rust"
)

// loopBound flags range loops whose upper bound folds to a value above the
// configured threshold. Such loops can exhaust the compute budget.
type loopBound struct{}

func (d *loopBound) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "ANC-V019-LOOP-BOUND",
		Title:    "Loop bound exceeds the compute budget threshold",
		Severity: model.SeverityMedium,
		CWE:      "CWE-834",
		Tags:     []string{"dos", "compute"},
	}
}

func (d *loopBound) Analyze(ctx context.Context, pc *analysis.ProjectContext) ([]model.Finding, error) {
	var findings []model.Finding
	meta := d.Meta()
	limit := big.NewInt(pc.Options.LoopBoundThreshold)
	if limit.Sign() <= 0 {
		limit.SetInt64(1000)
	}
	for _, file := range pc.Files {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		f, ok := pc.Syntax(file)
		if !ok {
			continue
		}
		for _, fn := range f.Functions() {
			if fn.Body == nil {
				continue
			}
			rust.Inspect(fn.Body, func(n rust.Node) bool {
				loop, ok := n.(*rust.LoopExpr)
				if !ok || loop.Kind != rust.For {
					return true
				}
				r, ok := loop.Iter.(*rust.RangeExpr)
				if !ok || r.Hi == nil {
					return true
				}
				hi, ok := pc.Index.Eval(r.Hi)
				if !ok || hi.Cmp(limit) <= 0 {
					return true
				}
				fd := newFinding(meta, "anchor-loop-bound", pc, file, loop.Pos.Line, fn.Name)
				fd.Confidence = 0.70
				fd.Message = fmt.Sprintf("Loop in '%s' runs up to %s iterations", fn.Name, hi)
				fd.Rationale = fmt.Sprintf("The range bound resolves to %s, above the threshold of %s. A transaction executing it can exceed the compute budget.", hi, limit)
				fd.Remediation = "Lower the bound, paginate the work across instructions, or use iter().take(MAX_ITEMS)."
				findings = append(findings, fd)
				return true
			})
		}
	}
	return findings, nil
}

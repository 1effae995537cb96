package engine

import "github.com/Ramprasad4121/anchor-sentinel/internal/model"

const (
	duplicateBoost = 0.1
	crossRuleBoost = 0.05
	maxConfidence  = 0.99
)

// calibrateFindings folds repeated reports of one rule on the same entity
// and line into a single finding at the highest severity seen. Confidence
// is then raised for entities that several distinct rules flag, such as a
// taint flow and a scope violation on the same handler argument.
func calibrateFindings(in []model.Finding) []model.Finding {
	type site struct {
		file   string
		line   int
		rule   string
		entity string
	}
	var (
		order  []site
		merged = map[site]model.Finding{}
		counts = map[site]int{}
	)
	for _, f := range in {
		k := site{file: f.File, line: f.StartLine, rule: f.RuleID, entity: f.Entity}
		counts[k]++
		prev, ok := merged[k]
		if !ok {
			order = append(order, k)
			merged[k] = f
			continue
		}
		if !model.SeverityGTE(prev.Severity, f.Severity) {
			prev.Severity = f.Severity
		}
		prev.Confidence += f.Confidence
		merged[k] = prev
	}

	type entity struct{ file, name string }
	rules := map[entity]map[string]bool{}
	for _, k := range order {
		if k.entity == "" {
			continue
		}
		e := entity{k.file, k.entity}
		if rules[e] == nil {
			rules[e] = map[string]bool{}
		}
		rules[e][k.rule] = true
	}

	out := make([]model.Finding, 0, len(order))
	for _, k := range order {
		f := merged[k]
		if n := counts[k]; n > 1 {
			f.Confidence = f.Confidence/float64(n) + duplicateBoost
		}
		if len(rules[entity{k.file, k.entity}]) > 1 {
			f.Confidence += crossRuleBoost
		}
		if f.Confidence > maxConfidence {
			f.Confidence = maxConfidence
		}
		out = append(out, f)
	}
	return out
}

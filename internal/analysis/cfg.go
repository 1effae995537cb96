package analysis

import (
	"fmt"

	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/rust"
)

// Usage is a name appearing in a sensitive operation at a given nesting depth.
type Usage struct {
	Variable string   `json:"variable"`
	Location rust.Pos `json:"location"`
	Depth    int      `json:"depth"`
}

// ScopeViolation is a usage at a shallower depth than every validation of the
// same name: some path skips the validating branch and still runs the operation.
type ScopeViolation struct {
	Variable        string   `json:"variable"`
	ValidationDepth int      `json:"validationDepth"`
	UsageDepth      int      `json:"usageDepth"`
	Location        rust.Pos `json:"location"`
	Explanation     string   `json:"explanation"`
}

// ScopeTracker is a lightweight control-flow approximation over one function
// body. It compares the lexical depth where a name was asserted with the
// depth where it is used; it does not compute reachability.
type ScopeTracker struct {
	log *config.LogGroup

	depth       int
	validatedAt map[string]int
	usages      []Usage
}

type ScopeOption func(*ScopeTracker)

func WithScopeLogger(l *config.LogGroup) ScopeOption {
	return func(s *ScopeTracker) { s.log = l }
}

func NewScopeTracker(opts ...ScopeOption) *ScopeTracker {
	s := &ScopeTracker{validatedAt: map[string]int{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analyze walks the body of fn starting at depth 0. Each call starts from an
// empty state.
func (s *ScopeTracker) Analyze(fn *rust.FnItem) {
	s.depth = 0
	s.validatedAt = map[string]int{}
	s.usages = nil
	if fn.Body != nil {
		s.visit(fn.Body)
	}
	s.log.Tracef("scope: %s: %d validated name(s), %d usage(s)", fn.Name, len(s.validatedAt), len(s.usages))
}

// ValidationDepth returns the shallowest depth at which name was asserted.
func (s *ScopeTracker) ValidationDepth(name string) (int, bool) {
	d, ok := s.validatedAt[name]
	return d, ok
}

// Validated returns every asserted name with its shallowest depth.
func (s *ScopeTracker) Validated() map[string]int { return s.validatedAt }

func (s *ScopeTracker) Usages() []Usage { return s.usages }

// FindViolations reports every usage whose name was validated only at a
// strictly deeper level. Unvalidated names and equal depths are not reported.
func (s *ScopeTracker) FindViolations() []ScopeViolation {
	var out []ScopeViolation
	for _, u := range s.usages {
		vd, ok := s.validatedAt[u.Variable]
		if !ok || vd <= u.Depth {
			continue
		}
		out = append(out, ScopeViolation{
			Variable:        u.Variable,
			ValidationDepth: vd,
			UsageDepth:      u.Depth,
			Location:        u.Location,
			Explanation: fmt.Sprintf(
				"Variable '%s' checked inside a block (depth %d) but used outside (depth %d). The check does not protect this usage.",
				u.Variable, vd, u.Depth),
		})
	}
	return out
}

func (s *ScopeTracker) validate(name string) {
	if d, ok := s.validatedAt[name]; !ok || s.depth < d {
		s.validatedAt[name] = s.depth
	}
}

func (s *ScopeTracker) use(name string, at rust.Pos) {
	s.usages = append(s.usages, Usage{Variable: name, Location: at, Depth: s.depth})
}

// nested visits n one level deeper.
func (s *ScopeTracker) nested(n rust.Node) {
	if n == nil {
		return
	}
	s.depth++
	s.visit(n)
	s.depth--
}

// branch visits a branch body one level deeper. A block body does not add a
// second level.
func (s *ScopeTracker) branch(x rust.Expr) {
	switch b := x.(type) {
	case nil:
	case *rust.BlockExpr:
		s.nested(b.Block)
	default:
		s.nested(x)
	}
}

func (s *ScopeTracker) visit(n rust.Node) {
	rust.Inspect(n, func(n rust.Node) bool {
		switch n := n.(type) {
		case *rust.IfExpr:
			s.visitExpr(n.Cond)
			if n.Then != nil {
				s.nested(n.Then)
			}
			s.branch(n.Else)
			return false
		case *rust.LoopExpr:
			s.visitExpr(n.Cond)
			s.visitExpr(n.Iter)
			if n.Body != nil {
				s.nested(n.Body)
			}
			return false
		case *rust.BlockExpr:
			if n.Block != nil {
				s.nested(n.Block)
			}
			return false
		case *rust.LetStmt:
			s.visitExpr(n.Value)
			if n.Else != nil {
				s.nested(n.Else)
			}
			return false
		case *rust.MatchExpr:
			s.visitExpr(n.X)
			for _, arm := range n.Arms {
				if arm.Guard != nil {
					s.nested(arm.Guard)
				}
				s.branch(arm.Body)
			}
			return false
		case *rust.ClosureExpr:
			s.branch(n.Body)
			return false
		case *rust.MacroExpr:
			if isAssertion(n.Path) {
				for _, w := range identWords(n.Tokens) {
					if !scopeStopwords[w] {
						s.validate(w)
					}
				}
			}
		case *rust.CallExpr:
			if isSensitiveCall(n.Callee) {
				for _, a := range n.Args {
					for _, name := range tokenNames(a) {
						s.use(name, n.Pos)
					}
				}
			}
		case *rust.MethodCallExpr:
			if n.Method == "borrow_mut" || n.Method == "try_borrow_mut" {
				for _, name := range tokenNames(n.Recv) {
					s.use(name, n.Pos)
				}
			}
		}
		return true
	})
}

func (s *ScopeTracker) visitExpr(x rust.Expr) {
	if x != nil {
		s.visit(x)
	}
}

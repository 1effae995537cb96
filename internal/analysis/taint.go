package analysis

import (
	"strings"

	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/rust"
)

// TaintStatus is the per-name state of the taint tracker. The zero value is
// Unknown, the status of every name the tracker has not seen.
type TaintStatus int

const (
	Unknown TaintStatus = iota
	Clean
	Tainted
	Sanitized
)

func (s TaintStatus) String() string {
	switch s {
	case Clean:
		return "clean"
	case Tainted:
		return "tainted"
	case Sanitized:
		return "sanitized"
	}
	return "unknown"
}

// combine merges the statuses of two operands: Tainted beats Unknown beats Clean.
func combine(a, b TaintStatus) TaintStatus {
	switch {
	case a == Tainted || b == Tainted:
		return Tainted
	case a == Unknown || b == Unknown:
		return Unknown
	}
	return Clean
}

type SourceKind int

const (
	FunctionArgument SourceKind = iota
	AccountField
	DeserializedData
	AccountData
)

func (k SourceKind) String() string {
	switch k {
	case AccountField:
		return "account field"
	case DeserializedData:
		return "deserialized data"
	case AccountData:
		return "account data"
	}
	return "function argument"
}

// TaintSource is the provenance of a tainted value.
type TaintSource struct {
	Kind SourceKind `json:"kind"`
	Name string     `json:"name"`
}

type SinkKind int

const (
	Transfer SinkKind = iota
	Invoke
	ArrayIndex
	StateModification
	UncheckedMath
)

func (k SinkKind) String() string {
	switch k {
	case Invoke:
		return "cross-program invocation"
	case ArrayIndex:
		return "array indexing"
	case StateModification:
		return "state modification"
	case UncheckedMath:
		return "unchecked arithmetic"
	}
	return "token transfer"
}

// TaintedFlow records a tainted, unsanitized name reaching a sink.
type TaintedFlow struct {
	Source   TaintSource `json:"source"`
	Variable string      `json:"variable"`
	Sink     SinkKind    `json:"sink"`
	Location rust.Pos    `json:"location"`
	Excerpt  string      `json:"excerpt"`
}

type flowKey struct {
	name string
	sink SinkKind
	pos  rust.Pos
}

// undoEntry is the state of a name before a branch-local change. Every
// entry is reverted when the branch ends, including names reassigned after
// the guard or assertion sanitized them: the new value was computed from the
// sanitized view and must not outlive the branch.
type undoEntry struct {
	name    string
	status  TaintStatus
	source  TaintSource
	present bool
}

// TaintTracker follows attacker-controlled values through one function body.
// A tracker belongs to the goroutine that created it; create one per function.
type TaintTracker struct {
	lines    []string
	receiver string
	extended bool
	log      *config.LogGroup

	status  map[string]TaintStatus
	sources map[string]TaintSource
	flows   []TaintedFlow
	seen    map[flowKey]bool
	frames  [][]undoEntry
}

type TaintOption func(*TaintTracker)

// WithExtendedSinks enables the ArrayIndex, StateModification and
// UncheckedMath sinks.
func WithExtendedSinks(on bool) TaintOption {
	return func(t *TaintTracker) { t.extended = on }
}

// WithReceiver sets the name of the implicit context receiver, "ctx" by default.
func WithReceiver(name string) TaintOption {
	return func(t *TaintTracker) {
		if name != "" {
			t.receiver = name
		}
	}
}

func WithTaintLogger(l *config.LogGroup) TaintOption {
	return func(t *TaintTracker) { t.log = l }
}

// NewTaintTracker returns a tracker excerpting flows from source.
func NewTaintTracker(source string, opts ...TaintOption) *TaintTracker {
	t := &TaintTracker{
		lines:    strings.Split(source, "\n"),
		receiver: "ctx",
	}
	for _, o := range opts {
		o(t)
	}
	t.reset()
	return t
}

func (t *TaintTracker) reset() {
	t.status = map[string]TaintStatus{}
	t.sources = map[string]TaintSource{}
	t.flows = nil
	t.seen = map[flowKey]bool{}
	t.frames = nil
}

// Seed marks the parameters of fn and the context receiver as tainted
// without visiting the body.
func (t *TaintTracker) Seed(fn *rust.FnItem) {
	for _, p := range fn.Params {
		if p.Name != "" {
			t.set(p.Name, Tainted, TaintSource{Kind: FunctionArgument, Name: p.Name})
		}
	}
	t.set(t.receiver, Tainted, TaintSource{Kind: AccountField, Name: t.receiver})
}

// AnalyzeFunction seeds the parameters of fn and walks its body once,
// returning the flows found. Each call starts from an empty state.
func (t *TaintTracker) AnalyzeFunction(fn *rust.FnItem) []TaintedFlow {
	t.reset()
	t.Seed(fn)
	if fn.Body != nil {
		t.visit(fn.Body)
	}
	t.log.Tracef("taint: %s: %d flow(s)", fn.Name, len(t.flows))
	return t.flows
}

// Status returns the current status of name.
func (t *TaintTracker) Status(name string) TaintStatus { return t.status[name] }

// Source returns the provenance recorded for a tainted name.
func (t *TaintTracker) Source(name string) (TaintSource, bool) {
	s, ok := t.sources[name]
	return s, ok
}

// Flows returns the flows recorded so far.
func (t *TaintTracker) Flows() []TaintedFlow { return t.flows }

func (t *TaintTracker) set(name string, st TaintStatus, src TaintSource) {
	t.status[name] = st
	if st == Tainted {
		t.sources[name] = src
	}
}

// eval computes the aggregate status of x, with the source of its first
// tainted constituent.
func (t *TaintTracker) eval(x rust.Expr) (TaintStatus, TaintSource) {
	switch x := x.(type) {
	case *rust.Ident:
		return t.status[x.Name], t.sources[x.Name]
	case *rust.PathExpr:
		if len(x.Segments) == 0 {
			return Unknown, TaintSource{}
		}
		return t.status[x.Segments[0]], t.sources[x.Segments[0]]
	case *rust.BinaryExpr:
		ls, lsrc := t.eval(x.X)
		rs, rsrc := t.eval(x.Y)
		if ls != Tainted && rs == Tainted {
			lsrc = rsrc
		}
		return combine(ls, rs), lsrc
	case *rust.Lit:
		return Clean, TaintSource{}
	case *rust.CallExpr:
		return Unknown, TaintSource{}
	case *rust.ParenExpr:
		return t.eval(x.X)
	case *rust.UnaryExpr:
		return t.eval(x.X)
	case nil:
		return Unknown, TaintSource{}
	}
	for _, name := range constituents(x) {
		if t.status[name] == Tainted {
			return Tainted, t.sources[name]
		}
	}
	return Unknown, TaintSource{}
}

// binder evaluates value now and returns a function assigning the result
// to names later. Data sources override operand taint.
func (t *TaintTracker) binder(value rust.Expr) func(names []string) {
	st, src := t.eval(value)
	kind, isSource := sourceOf(value)
	return func(names []string) {
		for _, name := range names {
			if isSource {
				t.set(name, Tainted, TaintSource{Kind: kind, Name: name})
				continue
			}
			t.set(name, st, src)
		}
	}
}

func (t *TaintTracker) bind(names []string, value rust.Expr) {
	t.binder(value)(names)
}

func (t *TaintTracker) record(name string, sink SinkKind, at rust.Pos) {
	if t.status[name] != Tainted {
		return
	}
	key := flowKey{name, sink, at}
	if t.seen[key] {
		return
	}
	t.seen[key] = true
	var excerpt string
	if at.Line >= 1 && at.Line <= len(t.lines) {
		excerpt = strings.TrimSpace(t.lines[at.Line-1])
	}
	t.flows = append(t.flows, TaintedFlow{
		Source:   t.sources[name],
		Variable: name,
		Sink:     sink,
		Location: at,
		Excerpt:  excerpt,
	})
}

func (t *TaintTracker) recordAll(xs []rust.Expr, sink SinkKind, at rust.Pos) {
	for _, x := range xs {
		for _, name := range constituents(x) {
			t.record(name, sink, at)
		}
	}
}

// sanitize marks the tainted names as Sanitized. Inside a conditional
// branch the change is logged and reverted when the branch ends.
func (t *TaintTracker) sanitize(names []string) {
	for _, name := range names {
		if t.status[name] != Tainted {
			continue
		}
		t.save(name)
		t.status[name] = Sanitized
	}
}

func (t *TaintTracker) save(name string) {
	if len(t.frames) == 0 {
		return
	}
	st, present := t.status[name]
	top := len(t.frames) - 1
	t.frames[top] = append(t.frames[top], undoEntry{
		name:    name,
		status:  st,
		source:  t.sources[name],
		present: present,
	})
}

func (t *TaintTracker) push() { t.frames = append(t.frames, nil) }

// pop reverts the changes logged since the matching push, newest first.
func (t *TaintTracker) pop() {
	top := len(t.frames) - 1
	undo := t.frames[top]
	t.frames = t.frames[:top]
	for i := len(undo) - 1; i >= 0; i-- {
		u := undo[i]
		if !u.present {
			delete(t.status, u.name)
			delete(t.sources, u.name)
			continue
		}
		t.status[u.name] = u.status
		if u.status == Tainted {
			t.sources[u.name] = u.source
		}
	}
}

// branch visits n as conditionally executed code.
func (t *TaintTracker) branch(n rust.Node) {
	t.push()
	t.visit(n)
	t.pop()
}

func (t *TaintTracker) branchExpr(x rust.Expr) {
	if x != nil {
		t.branch(x)
	}
}

func (t *TaintTracker) visit(n rust.Node) {
	rust.Inspect(n, func(n rust.Node) bool {
		switch n := n.(type) {
		case *rust.LetStmt:
			t.letStmt(n)
			return false
		case *rust.IfExpr:
			t.ifExpr(n)
			return false
		case *rust.LoopExpr:
			t.loop(n)
			return false
		case *rust.MatchExpr:
			t.match(n)
			return false
		case *rust.LetExpr:
			t.visitExpr(n.Value)
			t.bind(n.Names, n.Value)
			return false
		case *rust.AssignExpr:
			t.assign(n)
			return false
		case *rust.ClosureExpr:
			t.branchExpr(n.Body)
			return false
		case *rust.CallExpr:
			for _, sink := range callSinks(n.Callee) {
				t.recordAll(n.Args, sink, n.Pos)
			}
		case *rust.MethodCallExpr:
			if isCheckedMath(n.Method) {
				t.sanitize(constituents(n.Recv))
			}
			if n.Method == "transfer" {
				t.recordAll(n.Args, Transfer, n.Pos)
			}
		case *rust.MacroExpr:
			if isAssertion(n.Path) {
				t.sanitize(identWords(n.Tokens))
			}
		case *rust.IndexExpr:
			if t.extended {
				t.recordAll([]rust.Expr{n.Index}, ArrayIndex, n.Pos)
			}
		}
		return true
	})
}

func (t *TaintTracker) visitExpr(x rust.Expr) {
	if x != nil {
		t.visit(x)
	}
}

// letStmt computes the status of the initializer before walking it, so a
// sanitizer inside the initializer does not clean the binding.
func (t *TaintTracker) letStmt(s *rust.LetStmt) {
	if s.Value != nil {
		assign := t.binder(s.Value)
		t.visitExpr(s.Value)
		assign(s.Names)
	}
	if s.Else != nil {
		t.visit(s.Else)
	}
}

func (t *TaintTracker) assign(a *rust.AssignExpr) {
	st, src := t.eval(a.RHS)
	t.visitExpr(a.RHS)
	t.visitExpr(a.LHS)

	if t.extended {
		switch a.Op {
		case "+=", "-=", "*=":
			t.recordAll([]rust.Expr{a.RHS}, UncheckedMath, a.Pos)
		case "=":
			if isFieldPlace(a.LHS) {
				t.recordAll([]rust.Expr{a.RHS}, StateModification, a.Pos)
			}
		}
	}

	id, ok := a.LHS.(*rust.Ident)
	if !ok {
		return
	}
	if a.Op != "=" {
		prev, psrc := t.status[id.Name], t.sources[id.Name]
		if prev == Tainted {
			st, src = Tainted, psrc
		} else {
			st = combine(prev, st)
		}
	}
	t.set(id.Name, st, src)
}

func isFieldPlace(x rust.Expr) bool {
	switch x := x.(type) {
	case *rust.FieldExpr:
		return true
	case *rust.IndexExpr:
		return isFieldPlace(x.X)
	case *rust.UnaryExpr:
		return x.Op == "*" && isFieldPlace(x.X)
	}
	return false
}

// ifExpr sanitizes the tainted names of the condition for the then-branch
// only. The else branch is visited under the original statuses. The
// condition itself is not walked for sinks.
func (t *TaintTracker) ifExpr(x *rust.IfExpr) {
	t.push()
	// pattern bindings of `if let` take the scrutinee's status before the
	// condition sanitizes it
	for _, le := range letConditions(x.Cond) {
		assign := t.binder(le.Value)
		for _, name := range le.Names {
			t.save(name)
		}
		assign(le.Names)
	}
	t.sanitize(constituents(x.Cond))
	if x.Then != nil {
		t.visit(x.Then)
	}
	t.pop()

	t.branchExpr(x.Else)
}

// letConditions returns the `let` patterns of a condition, including those
// joined by && in a let chain.
func letConditions(x rust.Expr) []*rust.LetExpr {
	switch x := x.(type) {
	case *rust.LetExpr:
		return []*rust.LetExpr{x}
	case *rust.BinaryExpr:
		if x.Op == "&&" {
			return append(letConditions(x.X), letConditions(x.Y)...)
		}
	}
	return nil
}

func (t *TaintTracker) loop(x *rust.LoopExpr) {
	switch x.Kind {
	case rust.For:
		t.visitExpr(x.Iter)
		t.bind(x.Names, x.Iter)
	case rust.While:
		t.visitExpr(x.Cond)
	}
	if x.Body != nil {
		t.branch(x.Body)
	}
}

func (t *TaintTracker) match(x *rust.MatchExpr) {
	t.visitExpr(x.X)
	for _, arm := range x.Arms {
		t.push()
		for _, name := range arm.Names {
			t.save(name)
		}
		t.bind(arm.Names, x.X)
		t.visitExpr(arm.Guard)
		t.visitExpr(arm.Body)
		t.pop()
	}
}

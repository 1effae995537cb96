package rust

import "strings"

// Pos is a 1-based source position.
type Pos struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Node is implemented by every syntax tree node.
type Node interface {
	Position() Pos
}

// Item is a top-level or module-level declaration.
type Item interface {
	Node
	itemNode()
}

// Stmt is a statement inside a block.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression. The set of implementations is closed: walkers
// switch over the concrete types below.
type Expr interface {
	Node
	exprNode()
}

// File is one parsed source file.
type File struct {
	Path   string
	Source string
	Items  []Item
}

// Attribute is an outer attribute such as #[derive(Accounts)] or #[account(mut)].
type Attribute struct {
	Pos  Pos
	Path string // e.g. "account", "derive", "anchor_lang::account"
	Args string // token tree text without the outer delimiters
}

// Name returns the last path segment of the attribute.
func (a Attribute) Name() string {
	if i := strings.LastIndex(a.Path, "::"); i >= 0 {
		return a.Path[i+2:]
	}
	return a.Path
}

// TypeRef is a structural view of a written type.
type TypeRef struct {
	Text      string     `json:"text"`
	Name      string     `json:"name"` // last path segment, "" for non-path types
	Args      []*TypeRef `json:"args,omitempty"`
	Lifetimes []string   `json:"lifetimes,omitempty"`
	Ref       bool       `json:"ref,omitempty"`
}

// String returns the whitespace-normalised source text of the type.
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	return t.Text
}

type StructItem struct {
	Pos    Pos
	Name   string
	Attrs  []Attribute
	Docs   []string
	Fields []*Field
}

type Field struct {
	Pos   Pos
	Name  string
	Type  *TypeRef
	Attrs []Attribute
	Docs  []string
}

type ConstItem struct {
	Pos   Pos
	Name  string
	Type  *TypeRef
	Value Expr
	Raw   string
}

type Param struct {
	Pos  Pos
	Name string // empty when the pattern is not a plain identifier
	Type *TypeRef
}

type FnItem struct {
	Pos     Pos
	Name    string
	Attrs   []Attribute
	Params  []*Param
	HasSelf bool
	Body    *Block
	Public  bool
}

type ModItem struct {
	Pos   Pos
	Name  string
	Attrs []Attribute
	Items []Item
	// Inline is false for `mod foo;` declarations.
	Inline bool
}

type ImplItem struct {
	Pos   Pos
	Type  *TypeRef
	Items []Item
}

func (n *StructItem) Position() Pos { return n.Pos }
func (n *ConstItem) Position() Pos  { return n.Pos }
func (n *FnItem) Position() Pos     { return n.Pos }
func (n *ModItem) Position() Pos    { return n.Pos }
func (n *ImplItem) Position() Pos   { return n.Pos }

func (*StructItem) itemNode() {}
func (*ConstItem) itemNode()  {}
func (*FnItem) itemNode()     {}
func (*ModItem) itemNode()    {}
func (*ImplItem) itemNode()   {}

// Block is a brace-delimited statement list. A trailing expression without
// semicolon is stored as a final ExprStmt with Semi == false.
type Block struct {
	Pos   Pos
	Stmts []Stmt
}

func (b *Block) Position() Pos { return b.Pos }

type LetStmt struct {
	Pos     Pos
	Names   []string // identifiers bound by the pattern
	Pattern string
	Value   Expr // nil for `let x;`
	Else    *Block
}

type ExprStmt struct {
	Pos  Pos
	X    Expr
	Semi bool
}

type ItemStmt struct {
	Pos  Pos
	Item Item
}

func (s *LetStmt) Position() Pos  { return s.Pos }
func (s *ExprStmt) Position() Pos { return s.Pos }
func (s *ItemStmt) Position() Pos { return s.Pos }

func (*LetStmt) stmtNode()  {}
func (*ExprStmt) stmtNode() {}
func (*ItemStmt) stmtNode() {}

type LitKind int

const (
	IntLit LitKind = iota
	FloatLit
	StringLit
	CharLit
	BoolLit
)

type (
	Ident struct {
		Pos  Pos
		Name string
	}

	// PathExpr is a multi-segment path such as token::transfer.
	PathExpr struct {
		Pos      Pos
		Segments []string
	}

	Lit struct {
		Pos   Pos
		Kind  LitKind
		Value string
	}

	FieldExpr struct {
		Pos   Pos
		X     Expr
		Field string
	}

	BinaryExpr struct {
		Pos Pos
		Op  string
		X   Expr
		Y   Expr
	}

	// UnaryExpr covers -x, !x, *x and the reference forms &x, &mut x.
	UnaryExpr struct {
		Pos Pos
		Op  string
		X   Expr
	}

	ParenExpr struct {
		Pos Pos
		X   Expr
	}

	CastExpr struct {
		Pos  Pos
		X    Expr
		Type *TypeRef
	}

	CallExpr struct {
		Pos    Pos
		Fun    Expr
		Callee string // source text of Fun
		Args   []Expr
	}

	MethodCallExpr struct {
		Pos    Pos
		Recv   Expr
		Method string
		Args   []Expr
	}

	MacroExpr struct {
		Pos    Pos
		Path   string
		Tokens string // raw argument tokens without outer delimiters
	}

	// LetExpr is the `let P = V` condition of if-let and while-let.
	LetExpr struct {
		Pos     Pos
		Names   []string
		Pattern string
		Value   Expr
	}

	IfExpr struct {
		Pos  Pos
		Cond Expr
		Then *Block
		Else Expr // *BlockExpr, *IfExpr or nil
	}

	LoopExpr struct {
		Pos   Pos
		Kind  LoopKind
		Cond  Expr     // while condition
		Names []string // for-loop pattern bindings
		Iter  Expr     // for-loop iterator
		Body  *Block
	}

	BlockExpr struct {
		Pos    Pos
		Block  *Block
		Unsafe bool
	}

	MatchExpr struct {
		Pos  Pos
		X    Expr
		Arms []*MatchArm
	}

	// AssignExpr is `=` or a compound assignment such as `+=`.
	AssignExpr struct {
		Pos Pos
		Op  string
		LHS Expr
		RHS Expr
	}

	IndexExpr struct {
		Pos   Pos
		X     Expr
		Index Expr
	}

	TryExpr struct {
		Pos Pos
		X   Expr
	}

	ReturnExpr struct {
		Pos Pos
		X   Expr
	}

	ClosureExpr struct {
		Pos    Pos
		Params []string
		Body   Expr
	}

	RangeExpr struct {
		Pos       Pos
		Lo        Expr
		Hi        Expr
		Inclusive bool
	}

	// OtherExpr holds constructs without analysis semantics (tuples, arrays,
	// struct literals, break/continue, ...). Elems are its sub-expressions.
	OtherExpr struct {
		Pos   Pos
		Kind  string
		Elems []Expr
	}
)

type LoopKind int

const (
	Loop LoopKind = iota
	While
	For
)

type MatchArm struct {
	Pos     Pos
	Names   []string
	Pattern string
	Guard   Expr
	Body    Expr
}

func (x *Ident) Position() Pos          { return x.Pos }
func (x *PathExpr) Position() Pos       { return x.Pos }
func (x *Lit) Position() Pos            { return x.Pos }
func (x *FieldExpr) Position() Pos      { return x.Pos }
func (x *BinaryExpr) Position() Pos     { return x.Pos }
func (x *UnaryExpr) Position() Pos      { return x.Pos }
func (x *ParenExpr) Position() Pos      { return x.Pos }
func (x *CastExpr) Position() Pos       { return x.Pos }
func (x *CallExpr) Position() Pos       { return x.Pos }
func (x *MethodCallExpr) Position() Pos { return x.Pos }
func (x *MacroExpr) Position() Pos      { return x.Pos }
func (x *LetExpr) Position() Pos        { return x.Pos }
func (x *IfExpr) Position() Pos         { return x.Pos }
func (x *LoopExpr) Position() Pos       { return x.Pos }
func (x *BlockExpr) Position() Pos      { return x.Pos }
func (x *MatchExpr) Position() Pos      { return x.Pos }
func (x *AssignExpr) Position() Pos     { return x.Pos }
func (x *IndexExpr) Position() Pos      { return x.Pos }
func (x *TryExpr) Position() Pos        { return x.Pos }
func (x *ReturnExpr) Position() Pos     { return x.Pos }
func (x *ClosureExpr) Position() Pos    { return x.Pos }
func (x *RangeExpr) Position() Pos      { return x.Pos }
func (x *OtherExpr) Position() Pos      { return x.Pos }
func (a *MatchArm) Position() Pos       { return a.Pos }

func (*Ident) exprNode()          {}
func (*PathExpr) exprNode()       {}
func (*Lit) exprNode()            {}
func (*FieldExpr) exprNode()      {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*ParenExpr) exprNode()      {}
func (*CastExpr) exprNode()       {}
func (*CallExpr) exprNode()       {}
func (*MethodCallExpr) exprNode() {}
func (*MacroExpr) exprNode()      {}
func (*LetExpr) exprNode()        {}
func (*IfExpr) exprNode()         {}
func (*LoopExpr) exprNode()       {}
func (*BlockExpr) exprNode()      {}
func (*MatchExpr) exprNode()      {}
func (*AssignExpr) exprNode()     {}
func (*IndexExpr) exprNode()      {}
func (*TryExpr) exprNode()        {}
func (*ReturnExpr) exprNode()     {}
func (*ClosureExpr) exprNode()    {}
func (*RangeExpr) exprNode()      {}
func (*OtherExpr) exprNode()      {}

// Name returns the last segment of the macro path.
func (m *MacroExpr) Name() string {
	if i := strings.LastIndex(m.Path, "::"); i >= 0 {
		return strings.TrimSpace(m.Path[i+2:])
	}
	return m.Path
}

// Last returns the final path segment.
func (p *PathExpr) Last() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}

// String joins the path segments with "::".
func (p *PathExpr) String() string { return strings.Join(p.Segments, "::") }

// Functions returns every function item of the file, including functions
// declared one level deep inside inline modules and impl blocks.
func (f *File) Functions() []*FnItem {
	var out []*FnItem
	for _, it := range f.Items {
		switch it := it.(type) {
		case *FnItem:
			out = append(out, it)
		case *ModItem:
			for _, inner := range it.Items {
				switch inner := inner.(type) {
				case *FnItem:
					out = append(out, inner)
				case *ImplItem:
					out = append(out, implFunctions(inner)...)
				}
			}
		case *ImplItem:
			out = append(out, implFunctions(it)...)
		}
	}
	return out
}

func implFunctions(impl *ImplItem) []*FnItem {
	var out []*FnItem
	for _, it := range impl.Items {
		if fn, ok := it.(*FnItem); ok {
			out = append(out, fn)
		}
	}
	return out
}

// HasAttr reports whether any attribute has the given final path segment.
func HasAttr(attrs []Attribute, name string) bool {
	for _, a := range attrs {
		if a.Name() == name {
			return true
		}
	}
	return false
}

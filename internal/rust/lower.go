package rust

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// lowerer converts tree-sitter nodes into the package's syntax tree.
type lowerer struct {
	src []byte
}

func (l *lowerer) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(l.src)
}

// items lowers the declarations of a source_file or declaration_list.
// Outer attributes and doc comments are siblings preceding the item they
// annotate, so they are buffered until the next declaration.
func (l *lowerer) items(parent *sitter.Node) []Item {
	var (
		out   []Item
		attrs []Attribute
		docs  []string
	)
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		c := parent.NamedChild(i)
		switch c.Type() {
		case "attribute_item":
			attrs = append(attrs, l.attribute(c))
			continue
		case "line_comment", "block_comment":
			if d, ok := docComment(l.text(c)); ok {
				docs = append(docs, d)
			}
			continue
		case "struct_item":
			out = append(out, l.structItem(c, attrs, docs))
		case "const_item":
			out = append(out, l.constItem(c))
		case "function_item":
			out = append(out, l.fnItem(c, attrs))
		case "mod_item":
			out = append(out, l.modItem(c, attrs))
		case "impl_item":
			out = append(out, l.implItem(c))
		}
		attrs, docs = nil, nil
	}
	return out
}

func (l *lowerer) attribute(n *sitter.Node) Attribute {
	a := Attribute{Pos: pos(n)}
	// attribute_item -> attribute (or meta_item in older grammars)
	inner := n.NamedChild(0)
	if inner == nil {
		return a
	}
	if p := inner.NamedChild(0); p != nil {
		a.Path = strings.TrimSpace(l.text(p))
	}
	if args := inner.ChildByFieldName("arguments"); args != nil {
		a.Args = stripDelims(l.text(args))
	} else if v := inner.ChildByFieldName("value"); v != nil {
		a.Args = l.text(v)
	}
	return a
}

func (l *lowerer) structItem(n *sitter.Node, attrs []Attribute, docs []string) *StructItem {
	s := &StructItem{
		Pos:   pos(n),
		Name:  l.text(n.ChildByFieldName("name")),
		Attrs: attrs,
		Docs:  docs,
	}
	body := n.ChildByFieldName("body")
	if body == nil || body.Type() != "field_declaration_list" {
		return s
	}
	var (
		fattrs []Attribute
		fdocs  []string
	)
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "attribute_item":
			fattrs = append(fattrs, l.attribute(c))
		case "line_comment", "block_comment":
			if d, ok := docComment(l.text(c)); ok {
				fdocs = append(fdocs, d)
			}
		case "field_declaration":
			s.Fields = append(s.Fields, &Field{
				Pos:   pos(c),
				Name:  l.text(c.ChildByFieldName("name")),
				Type:  l.typeRef(c.ChildByFieldName("type")),
				Attrs: fattrs,
				Docs:  fdocs,
			})
			fattrs, fdocs = nil, nil
		}
	}
	return s
}

func (l *lowerer) constItem(n *sitter.Node) *ConstItem {
	v := n.ChildByFieldName("value")
	return &ConstItem{
		Pos:   pos(n),
		Name:  l.text(n.ChildByFieldName("name")),
		Type:  l.typeRef(n.ChildByFieldName("type")),
		Value: l.expr(v),
		Raw:   normalizeSpace(l.text(v)),
	}
}

func (l *lowerer) fnItem(n *sitter.Node, attrs []Attribute) *FnItem {
	fn := &FnItem{
		Pos:   pos(n),
		Name:  l.text(n.ChildByFieldName("name")),
		Attrs: attrs,
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "visibility_modifier" {
			fn.Public = true
		}
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			c := params.NamedChild(i)
			switch c.Type() {
			case "self_parameter":
				fn.HasSelf = true
			case "parameter":
				p := &Param{Pos: pos(c), Type: l.typeRef(c.ChildByFieldName("type"))}
				if pat := c.ChildByFieldName("pattern"); pat != nil && pat.Type() == "identifier" {
					p.Name = l.text(pat)
				}
				fn.Params = append(fn.Params, p)
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		fn.Body = l.block(body)
	}
	return fn
}

func (l *lowerer) modItem(n *sitter.Node, attrs []Attribute) *ModItem {
	m := &ModItem{Pos: pos(n), Name: l.text(n.ChildByFieldName("name")), Attrs: attrs}
	if body := n.ChildByFieldName("body"); body != nil {
		m.Inline = true
		m.Items = l.items(body)
	}
	return m
}

func (l *lowerer) implItem(n *sitter.Node) *ImplItem {
	im := &ImplItem{Pos: pos(n), Type: l.typeRef(n.ChildByFieldName("type"))}
	if body := n.ChildByFieldName("body"); body != nil {
		im.Items = l.items(body)
	}
	return im
}

func (l *lowerer) typeRef(n *sitter.Node) *TypeRef {
	if n == nil {
		return nil
	}
	t := &TypeRef{Text: normalizeSpace(l.text(n))}
	switch n.Type() {
	case "generic_type":
		t.Name = lastSegment(l.text(n.ChildByFieldName("type")))
		if args := n.ChildByFieldName("type_arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				c := args.NamedChild(i)
				switch c.Type() {
				case "lifetime":
					t.Lifetimes = append(t.Lifetimes, l.text(c))
				case "type_binding", "trait_bounds", "line_comment", "block_comment":
				default:
					t.Args = append(t.Args, l.typeRef(c))
				}
			}
		}
	case "reference_type":
		if inner := l.typeRef(n.ChildByFieldName("type")); inner != nil {
			t.Name, t.Args, t.Lifetimes = inner.Name, inner.Args, inner.Lifetimes
		}
		t.Ref = true
	case "type_identifier", "primitive_type":
		t.Name = t.Text
	case "scoped_type_identifier":
		t.Name = l.text(n.ChildByFieldName("name"))
	}
	return t
}

// skippedDecls are declaration statements with no meaning for the engines.
var skippedDecls = map[string]bool{
	"use_declaration":          true,
	"enum_item":                true,
	"type_item":                true,
	"static_item":              true,
	"trait_item":               true,
	"macro_definition":         true,
	"extern_crate_declaration": true,
	"union_item":               true,
	"foreign_mod_item":         true,
	"empty_statement":          true,
	"attribute_item":           true,
	"inner_attribute_item":     true,
	"line_comment":             true,
	"block_comment":            true,
	"label":                    true,
}

func (l *lowerer) block(n *sitter.Node) *Block {
	b := &Block{Pos: pos(n)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		t := c.Type()
		switch {
		case skippedDecls[t]:
		case t == "let_declaration":
			b.Stmts = append(b.Stmts, l.letStmt(c))
		case t == "expression_statement":
			inner := firstNonComment(c)
			if inner == nil {
				continue
			}
			semi := c.ChildCount() > 0 && c.Child(int(c.ChildCount())-1).Type() == ";"
			b.Stmts = append(b.Stmts, &ExprStmt{Pos: pos(c), X: l.expr(inner), Semi: semi})
		case t == "struct_item":
			b.Stmts = append(b.Stmts, &ItemStmt{Pos: pos(c), Item: l.structItem(c, nil, nil)})
		case t == "const_item":
			b.Stmts = append(b.Stmts, &ItemStmt{Pos: pos(c), Item: l.constItem(c)})
		case t == "function_item":
			b.Stmts = append(b.Stmts, &ItemStmt{Pos: pos(c), Item: l.fnItem(c, nil)})
		case t == "mod_item", t == "impl_item":
			// nested modules and impls inside a body do not execute
		case t == "macro_invocation":
			b.Stmts = append(b.Stmts, &ExprStmt{Pos: pos(c), X: l.expr(c), Semi: true})
		default:
			b.Stmts = append(b.Stmts, &ExprStmt{Pos: pos(c), X: l.expr(c)})
		}
	}
	return b
}

func (l *lowerer) letStmt(n *sitter.Node) *LetStmt {
	pat := n.ChildByFieldName("pattern")
	s := &LetStmt{
		Pos:     pos(n),
		Names:   l.bindings(pat),
		Pattern: normalizeSpace(l.text(pat)),
		Value:   l.expr(n.ChildByFieldName("value")),
	}
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		s.Else = l.block(alt)
	}
	return s
}

// bindings returns the lower-case identifiers a pattern binds. Capitalised
// identifiers are enum variants or constants, and type positions of
// tuple-struct and struct patterns are skipped.
func (l *lowerer) bindings(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "identifier", "shorthand_field_identifier":
			name := l.text(n)
			if name != "" && name != "_" && !unicode.IsUpper(rune(name[0])) {
				out = append(out, name)
			}
			return
		case "scoped_identifier", "type_identifier", "field_identifier":
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c == nil || !c.IsNamed() || n.FieldNameForChild(i) == "type" {
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func (l *lowerer) args(n *sitter.Node) []Expr {
	if n == nil {
		return nil
	}
	var out []Expr
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "attribute_item", "line_comment", "block_comment":
			continue
		}
		out = append(out, l.expr(c))
	}
	return out
}

func (l *lowerer) expr(n *sitter.Node) Expr {
	if n == nil {
		return nil
	}
	p := pos(n)
	switch n.Type() {
	case "identifier", "self", "crate", "super", "metavariable":
		return &Ident{Pos: p, Name: l.text(n)}
	case "scoped_identifier":
		return &PathExpr{Pos: p, Segments: splitPath(l.text(n))}
	case "generic_function":
		return l.expr(n.ChildByFieldName("function"))
	case "integer_literal":
		return &Lit{Pos: p, Kind: IntLit, Value: l.text(n)}
	case "float_literal":
		return &Lit{Pos: p, Kind: FloatLit, Value: l.text(n)}
	case "string_literal", "raw_string_literal":
		return &Lit{Pos: p, Kind: StringLit, Value: l.text(n)}
	case "char_literal":
		return &Lit{Pos: p, Kind: CharLit, Value: l.text(n)}
	case "boolean_literal":
		return &Lit{Pos: p, Kind: BoolLit, Value: l.text(n)}
	case "field_expression":
		return &FieldExpr{Pos: p, X: l.expr(n.ChildByFieldName("value")), Field: l.text(n.ChildByFieldName("field"))}
	case "binary_expression":
		return &BinaryExpr{
			Pos: p,
			Op:  l.text(n.ChildByFieldName("operator")),
			X:   l.expr(n.ChildByFieldName("left")),
			Y:   l.expr(n.ChildByFieldName("right")),
		}
	case "unary_expression":
		return &UnaryExpr{Pos: p, Op: l.text(n.Child(0)), X: l.expr(n.NamedChild(0))}
	case "reference_expression":
		op := "&"
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "mutable_specifier" {
				op = "&mut"
			}
		}
		return &UnaryExpr{Pos: p, Op: op, X: l.expr(n.ChildByFieldName("value"))}
	case "parenthesized_expression":
		return &ParenExpr{Pos: p, X: l.expr(firstNonComment(n))}
	case "type_cast_expression":
		return &CastExpr{Pos: p, X: l.expr(n.ChildByFieldName("value")), Type: l.typeRef(n.ChildByFieldName("type"))}
	case "call_expression":
		return l.call(n)
	case "macro_invocation":
		m := &MacroExpr{Pos: p, Path: strings.TrimSpace(l.text(n.ChildByFieldName("macro")))}
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			if c := n.NamedChild(i); c.Type() == "token_tree" {
				m.Tokens = stripDelims(l.text(c))
				break
			}
		}
		return m
	case "if_expression":
		return l.ifExpr(n)
	case "if_let_expression":
		pat := n.ChildByFieldName("pattern")
		x := &IfExpr{
			Pos:  p,
			Cond: &LetExpr{Pos: pos(pat), Names: l.bindings(pat), Pattern: normalizeSpace(l.text(pat)), Value: l.expr(n.ChildByFieldName("value"))},
			Then: l.block(n.ChildByFieldName("consequence")),
		}
		x.Else = l.elseClause(n.ChildByFieldName("alternative"))
		return x
	case "let_condition":
		pat := n.ChildByFieldName("pattern")
		return &LetExpr{Pos: p, Names: l.bindings(pat), Pattern: normalizeSpace(l.text(pat)), Value: l.expr(n.ChildByFieldName("value"))}
	case "let_chain":
		var out Expr
		for i := 0; i < int(n.NamedChildCount()); i++ {
			e := l.expr(n.NamedChild(i))
			if out == nil {
				out = e
				continue
			}
			out = &BinaryExpr{Pos: p, Op: "&&", X: out, Y: e}
		}
		return out
	case "while_expression":
		return &LoopExpr{Pos: p, Kind: While, Cond: l.expr(n.ChildByFieldName("condition")), Body: l.blockField(n, "body")}
	case "while_let_expression":
		pat := n.ChildByFieldName("pattern")
		return &LoopExpr{
			Pos:  p,
			Kind: While,
			Cond: &LetExpr{Pos: pos(pat), Names: l.bindings(pat), Pattern: normalizeSpace(l.text(pat)), Value: l.expr(n.ChildByFieldName("value"))},
			Body: l.blockField(n, "body"),
		}
	case "loop_expression":
		return &LoopExpr{Pos: p, Kind: Loop, Body: l.blockField(n, "body")}
	case "for_expression":
		return &LoopExpr{
			Pos:   p,
			Kind:  For,
			Names: l.bindings(n.ChildByFieldName("pattern")),
			Iter:  l.expr(n.ChildByFieldName("value")),
			Body:  l.blockField(n, "body"),
		}
	case "block":
		return &BlockExpr{Pos: p, Block: l.block(n)}
	case "unsafe_block", "async_block", "const_block":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "block" {
				return &BlockExpr{Pos: p, Block: l.block(c), Unsafe: n.Type() == "unsafe_block"}
			}
		}
		return &BlockExpr{Pos: p, Block: &Block{Pos: p}}
	case "match_expression":
		return l.matchExpr(n)
	case "assignment_expression":
		return &AssignExpr{Pos: p, Op: "=", LHS: l.expr(n.ChildByFieldName("left")), RHS: l.expr(n.ChildByFieldName("right"))}
	case "compound_assignment_expr":
		return &AssignExpr{
			Pos: p,
			Op:  l.text(n.ChildByFieldName("operator")),
			LHS: l.expr(n.ChildByFieldName("left")),
			RHS: l.expr(n.ChildByFieldName("right")),
		}
	case "index_expression":
		return &IndexExpr{Pos: p, X: l.expr(n.NamedChild(0)), Index: l.expr(n.NamedChild(1))}
	case "try_expression", "await_expression":
		if n.Type() == "await_expression" {
			return l.expr(n.NamedChild(0))
		}
		return &TryExpr{Pos: p, X: l.expr(n.NamedChild(0))}
	case "return_expression":
		r := &ReturnExpr{Pos: p}
		if n.NamedChildCount() > 0 {
			r.X = l.expr(n.NamedChild(0))
		}
		return r
	case "closure_expression":
		return &ClosureExpr{Pos: p, Params: l.bindings(n.ChildByFieldName("parameters")), Body: l.expr(n.ChildByFieldName("body"))}
	case "range_expression":
		r := &RangeExpr{Pos: p}
		seenOp := false
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if !c.IsNamed() {
				switch c.Type() {
				case "..", "..=", "...":
					seenOp = true
					r.Inclusive = c.Type() != ".."
				}
				continue
			}
			if seenOp {
				r.Hi = l.expr(c)
			} else {
				r.Lo = l.expr(c)
			}
		}
		return r
	}
	return &OtherExpr{Pos: p, Kind: n.Type(), Elems: l.subExprs(n)}
}

func (l *lowerer) call(n *sitter.Node) Expr {
	p := pos(n)
	fun := n.ChildByFieldName("function")
	args := l.args(n.ChildByFieldName("arguments"))
	if fun != nil && fun.Type() == "generic_function" {
		fun = fun.ChildByFieldName("function")
	}
	if fun != nil && fun.Type() == "field_expression" {
		return &MethodCallExpr{
			Pos:    p,
			Recv:   l.expr(fun.ChildByFieldName("value")),
			Method: l.text(fun.ChildByFieldName("field")),
			Args:   args,
		}
	}
	return &CallExpr{Pos: p, Fun: l.expr(fun), Callee: normalizeSpace(l.text(fun)), Args: args}
}

func (l *lowerer) ifExpr(n *sitter.Node) *IfExpr {
	return &IfExpr{
		Pos:  pos(n),
		Cond: l.expr(n.ChildByFieldName("condition")),
		Then: l.blockField(n, "consequence"),
		Else: l.elseClause(n.ChildByFieldName("alternative")),
	}
}

// elseClause accepts either an else_clause wrapper or its direct child.
func (l *lowerer) elseClause(n *sitter.Node) Expr {
	if n == nil {
		return nil
	}
	if n.Type() == "else_clause" {
		n = firstNonComment(n)
		if n == nil {
			return nil
		}
	}
	switch n.Type() {
	case "block":
		return &BlockExpr{Pos: pos(n), Block: l.block(n)}
	case "if_expression":
		return l.ifExpr(n)
	}
	return l.expr(n)
}

func (l *lowerer) matchExpr(n *sitter.Node) *MatchExpr {
	m := &MatchExpr{Pos: pos(n), X: l.expr(n.ChildByFieldName("value"))}
	body := n.ChildByFieldName("body")
	if body == nil {
		return m
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() != "match_arm" && c.Type() != "last_match_arm" {
			continue
		}
		arm := &MatchArm{Pos: pos(c), Body: l.expr(c.ChildByFieldName("value"))}
		if pat := c.ChildByFieldName("pattern"); pat != nil {
			arm.Pattern = normalizeSpace(l.text(pat))
			if g := pat.ChildByFieldName("condition"); g != nil {
				arm.Guard = l.expr(g)
			}
			if inner := firstNonComment(pat); inner != nil && pat.Type() == "match_pattern" {
				arm.Names = l.bindings(inner)
			} else {
				arm.Names = l.bindings(pat)
			}
		}
		m.Arms = append(m.Arms, arm)
	}
	return m
}

func (l *lowerer) blockField(n *sitter.Node, field string) *Block {
	b := n.ChildByFieldName(field)
	if b == nil {
		return &Block{Pos: pos(n)}
	}
	return l.block(b)
}

// exprKinds lists node types lowered by expr; subExprs descends through
// anything else looking for them.
var exprKinds = map[string]bool{
	"identifier": true, "self": true, "scoped_identifier": true, "generic_function": true,
	"integer_literal": true, "float_literal": true, "string_literal": true, "raw_string_literal": true,
	"char_literal": true, "boolean_literal": true, "field_expression": true, "binary_expression": true,
	"unary_expression": true, "reference_expression": true, "parenthesized_expression": true,
	"type_cast_expression": true, "call_expression": true, "macro_invocation": true, "if_expression": true,
	"if_let_expression": true, "while_expression": true, "while_let_expression": true, "loop_expression": true,
	"for_expression": true, "block": true, "unsafe_block": true, "async_block": true, "match_expression": true,
	"assignment_expression": true, "compound_assignment_expr": true, "index_expression": true,
	"try_expression": true, "await_expression": true, "return_expression": true, "closure_expression": true,
	"range_expression": true, "struct_expression": true, "tuple_expression": true, "array_expression": true,
	"break_expression": true, "continue_expression": true, "unit_expression": true,
}

func (l *lowerer) subExprs(n *sitter.Node) []Expr {
	var out []Expr
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch {
		case c.Type() == "label" || c.Type() == "line_comment" || c.Type() == "block_comment":
		case exprKinds[c.Type()]:
			out = append(out, l.expr(c))
		default:
			out = append(out, l.subExprs(c)...)
		}
	}
	return out
}

func firstNonComment(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "line_comment" && c.Type() != "block_comment" {
			return c
		}
	}
	return nil
}

// docComment returns the text of an outer doc comment (/// or /** */).
func docComment(s string) (string, bool) {
	switch {
	case strings.HasPrefix(s, "///") && !strings.HasPrefix(s, "////"):
		return strings.TrimSpace(strings.TrimPrefix(s, "///")), true
	case strings.HasPrefix(s, "/**") && !strings.HasPrefix(s, "/***"):
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "/**"), "*/")), true
	}
	return "", false
}

func stripDelims(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch s[0] {
		case '(', '[', '{':
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func splitPath(s string) []string {
	parts := strings.Split(s, "::")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lastSegment(s string) string {
	segs := splitPath(s)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

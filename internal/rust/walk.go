package rust

// Inspect traverses the tree rooted at n in depth-first order, calling f for
// each node. If f returns false the children of that node are skipped.
// Nested item declarations inside blocks are not descended into.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *Block:
		if n == nil {
			return
		}
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *LetStmt:
		inspectExpr(n.Value, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *ExprStmt:
		inspectExpr(n.X, f)
	case *ItemStmt:
	case *FieldExpr:
		inspectExpr(n.X, f)
	case *BinaryExpr:
		inspectExpr(n.X, f)
		inspectExpr(n.Y, f)
	case *UnaryExpr:
		inspectExpr(n.X, f)
	case *ParenExpr:
		inspectExpr(n.X, f)
	case *CastExpr:
		inspectExpr(n.X, f)
	case *CallExpr:
		inspectExpr(n.Fun, f)
		inspectList(n.Args, f)
	case *MethodCallExpr:
		inspectExpr(n.Recv, f)
		inspectList(n.Args, f)
	case *LetExpr:
		inspectExpr(n.Value, f)
	case *IfExpr:
		inspectExpr(n.Cond, f)
		if n.Then != nil {
			Inspect(n.Then, f)
		}
		inspectExpr(n.Else, f)
	case *LoopExpr:
		inspectExpr(n.Cond, f)
		inspectExpr(n.Iter, f)
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	case *BlockExpr:
		if n.Block != nil {
			Inspect(n.Block, f)
		}
	case *MatchExpr:
		inspectExpr(n.X, f)
		for _, a := range n.Arms {
			Inspect(a, f)
		}
	case *MatchArm:
		inspectExpr(n.Guard, f)
		inspectExpr(n.Body, f)
	case *AssignExpr:
		inspectExpr(n.LHS, f)
		inspectExpr(n.RHS, f)
	case *IndexExpr:
		inspectExpr(n.X, f)
		inspectExpr(n.Index, f)
	case *TryExpr:
		inspectExpr(n.X, f)
	case *ReturnExpr:
		inspectExpr(n.X, f)
	case *ClosureExpr:
		inspectExpr(n.Body, f)
	case *RangeExpr:
		inspectExpr(n.Lo, f)
		inspectExpr(n.Hi, f)
	case *OtherExpr:
		inspectList(n.Elems, f)
	}
}

// inspectExpr guards against typed nil interfaces from optional fields.
func inspectExpr(x Expr, f func(Node) bool) {
	if x == nil {
		return
	}
	Inspect(x, f)
}

func inspectList(xs []Expr, f func(Node) bool) {
	for _, x := range xs {
		inspectExpr(x, f)
	}
}

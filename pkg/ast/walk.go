package ast

// Walk traverses the tree rooted at node in depth-first order. fn is called
// for each node before its children; returning false skips the children.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, s := range n.Statements {
			Walk(s, fn)
		}
	case *Block:
		for _, s := range n.Stmts {
			Walk(s, fn)
		}
	case *AssignStmt:
		Walk(n.Value, fn)
	case *ExprStmt:
		Walk(n.Expr, fn)
	case *IfStmt:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		for _, ei := range n.ElseIfs {
			Walk(ei, fn)
		}
		if n.Else != nil {
			Walk(n.Else, fn)
		}
	case *ElseIf:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)
	case *WhileStmt:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)
	case *ForStmt:
		if n.Init != nil {
			Walk(n.Init, fn)
		}
		if n.Cond != nil {
			Walk(n.Cond, fn)
		}
		if n.Post != nil {
			Walk(n.Post, fn)
		}
		Walk(n.Body, fn)
	case *LoopStmt:
		Walk(n.Body, fn)
	case *ReturnStmt:
		if n.Value != nil {
			Walk(n.Value, fn)
		}
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *UnaryExpr:
		Walk(n.Operand, fn)
	case *FnExpr:
		Walk(n.Body, fn)
	case *CallExpr:
		Walk(n.Callee, fn)
		for _, a := range n.Args {
			Walk(a, fn)
		}
	}
}

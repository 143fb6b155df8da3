// Package validator implements static checks over ScriptyScript programs.
//
// The checks are conservative: a program that passes may still fail at
// runtime, but every reported diagnostic describes code that would fail
// when reached.
package validator

import (
	"fmt"

	"github.com/thomasrohde/scriptyscript/pkg/ast"
	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
)

// Option configures a validation pass.
type Option func(*validator)

// WithGlobals enables undefined-name checking. names lists the bindings
// that exist before the program runs, typically the built-ins.
func WithGlobals(names ...string) Option {
	return func(v *validator) {
		v.checkUnbound = true
		for _, n := range names {
			v.known[n] = true
		}
	}
}

type validator struct {
	diags        []diagnostics.Diagnostic
	known        map[string]bool
	checkUnbound bool
}

// Validate performs semantic analysis on a program and returns diagnostics
// in source order.
func Validate(program *ast.Program, opts ...Option) []diagnostics.Diagnostic {
	v := &validator{known: make(map[string]bool)}
	for _, opt := range opts {
		opt(v)
	}

	if v.checkUnbound {
		v.collectBindings(program)
	}
	for _, stmt := range program.Statements {
		v.validateStmt(stmt, 0)
	}
	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, ""))
}

// collectBindings records every name the program can bind anywhere.
// Bindings are dynamic, so a name assigned in any scope counts as known.
func (v *validator) collectBindings(program *ast.Program) {
	ast.Walk(program, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.AssignStmt:
			v.known[node.Name] = true
		case *ast.FnExpr:
			for _, p := range node.Params {
				v.known[p] = true
			}
		}
		return true
	})
}

// loops counts the enclosing loops within the current function body.
func (v *validator) validateStmt(stmt ast.Stmt, loops int) {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		v.validateExpr(s.Value)

	case *ast.ExprStmt:
		v.validateExpr(s.Expr)

	case *ast.ReturnStmt:
		if s.Value != nil {
			v.validateExpr(s.Value)
		}

	case *ast.BreakStmt:
		if loops == 0 {
			v.addDiag(diagnostics.EControl, "break outside loop", s.Span)
		}

	case *ast.ContinueStmt:
		if loops == 0 {
			v.addDiag(diagnostics.EControl, "continue outside loop", s.Span)
		}

	case *ast.IfStmt:
		v.validateExpr(s.Cond)
		v.validateBlock(s.Then, loops)
		for _, ei := range s.ElseIfs {
			v.validateExpr(ei.Cond)
			v.validateBlock(ei.Body, loops)
		}
		if s.Else != nil {
			v.validateBlock(s.Else, loops)
		}

	case *ast.WhileStmt:
		v.validateExpr(s.Cond)
		v.validateBlock(s.Body, loops+1)

	case *ast.LoopStmt:
		v.validateBlock(s.Body, loops+1)

	case *ast.ForStmt:
		if s.Init != nil {
			v.validateStmt(s.Init, loops)
		}
		if s.Cond != nil {
			v.validateExpr(s.Cond)
		}
		if s.Post != nil {
			v.validateStmt(s.Post, loops)
		}
		v.validateBlock(s.Body, loops+1)

	case *ast.Block:
		v.validateBlock(s, loops)
	}
}

func (v *validator) validateBlock(b *ast.Block, loops int) {
	if b == nil {
		return
	}
	for _, stmt := range b.Stmts {
		v.validateStmt(stmt, loops)
	}
}

func (v *validator) validateExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.IntLiteral, *ast.FloatLiteral, *ast.BoolLiteral, *ast.StrLiteral, *ast.NilLiteral:
		// literals are always valid

	case *ast.Identifier:
		if v.checkUnbound && !v.known[e.Name] {
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("undefined name '%s'", e.Name), e.Span)
		}

	case *ast.BinaryExpr:
		v.validateExpr(e.Left)
		v.validateExpr(e.Right)

	case *ast.UnaryExpr:
		v.validateExpr(e.Operand)

	case *ast.CallExpr:
		v.validateExpr(e.Callee)
		for _, arg := range e.Args {
			v.validateExpr(arg)
		}

	case *ast.FnExpr:
		seen := make(map[string]bool, len(e.Params))
		for _, p := range e.Params {
			if seen[p] {
				v.addDiag(diagnostics.EDupParam, fmt.Sprintf("duplicate parameter '%s'", p), e.Span)
			}
			seen[p] = true
		}
		// A function body starts outside any loop.
		v.validateBlock(e.Body, 0)
	}
}

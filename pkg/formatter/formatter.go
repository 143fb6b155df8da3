// Package formatter implements the ScriptyScript source code formatter.
package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/thomasrohde/scriptyscript/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpAnd: 0, ast.OpOr: 0,
	ast.OpEqEq: 1, ast.OpNeq: 1,
	ast.OpGt: 2, ast.OpLt: 2, ast.OpGtEq: 2, ast.OpLtEq: 2,
	ast.OpAdd: 3, ast.OpSub: 3,
	ast.OpMul: 4, ast.OpDiv: 4, ast.OpMod: 4,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// All binary operators are left-associative.
	if childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints a ScriptyScript AST back to source code.
func Format(program *ast.Program) string {
	if len(program.Statements) == 0 {
		return ""
	}
	lines := make([]string, 0, len(program.Statements))
	for _, s := range program.Statements {
		lines = append(lines, formatStmt(s, 0))
	}
	return strings.Join(lines, "\n") + "\n"
}

func formatBlock(b *ast.Block, depth int) string {
	if b == nil || len(b.Stmts) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{\n")
	for _, s := range b.Stmts {
		sb.WriteString(formatStmt(s, depth+1))
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat(indent, depth))
	sb.WriteString("}")
	return sb.String()
}

func formatStmt(stmt ast.Stmt, depth int) string {
	pad := strings.Repeat(indent, depth)

	switch s := stmt.(type) {
	case *ast.AssignStmt:
		return pad + formatAssign(s, depth) + ";"

	case *ast.ExprStmt:
		return pad + formatExpr(s.Expr, depth) + ";"

	case *ast.ReturnStmt:
		if s.Value == nil {
			return pad + "return;"
		}
		return pad + "return " + formatExpr(s.Value, depth) + ";"

	case *ast.BreakStmt:
		return pad + "break;"

	case *ast.ContinueStmt:
		return pad + "continue;"

	case *ast.IfStmt:
		var sb strings.Builder
		sb.WriteString(pad + "if " + formatExpr(s.Cond, depth) + " " + formatBlock(s.Then, depth))
		for _, ei := range s.ElseIfs {
			sb.WriteString(" else if " + formatExpr(ei.Cond, depth) + " " + formatBlock(ei.Body, depth))
		}
		if s.Else != nil {
			sb.WriteString(" else " + formatBlock(s.Else, depth))
		}
		return sb.String()

	case *ast.WhileStmt:
		return pad + "while " + formatExpr(s.Cond, depth) + " " + formatBlock(s.Body, depth)

	case *ast.LoopStmt:
		return pad + "loop " + formatBlock(s.Body, depth)

	case *ast.ForStmt:
		var init, cond, post string
		if s.Init != nil {
			init = formatAssign(s.Init, depth)
		}
		if s.Cond != nil {
			cond = " " + formatExpr(s.Cond, depth)
		}
		if s.Post != nil {
			post = " " + formatAssign(s.Post, depth)
		}
		return fmt.Sprintf("%sfor (%s;%s;%s) %s", pad, init, cond, post, formatBlock(s.Body, depth))

	case *ast.Block:
		return pad + formatBlock(s, depth)

	default:
		return pad + "/* unknown statement */"
	}
}

func formatAssign(s *ast.AssignStmt, depth int) string {
	return s.Name + " = " + formatExpr(s.Value, depth)
}

func formatExpr(expr ast.Expr, depth int) string {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(e.Value, 10)

	case *ast.FloatLiteral:
		return formatFloatLiteral(e.Value)

	case *ast.BoolLiteral:
		if e.Value {
			return "true"
		}
		return "false"

	case *ast.StrLiteral:
		return quote(e.Value)

	case *ast.NilLiteral:
		return "nil"

	case *ast.Identifier:
		return e.Name

	case *ast.UnaryExpr:
		operand := formatExpr(e.Operand, depth)
		if _, ok := e.Operand.(*ast.BinaryExpr); ok {
			operand = "(" + operand + ")"
		}
		if e.Op == ast.OpNot {
			return "not " + operand
		}
		// A minus directly before a digit would fold into the literal.
		switch e.Operand.(type) {
		case *ast.IntLiteral, *ast.FloatLiteral:
			return "- " + operand
		}
		if strings.HasPrefix(operand, "-") {
			return "- " + operand
		}
		return "-" + operand

	case *ast.BinaryExpr:
		left := formatExpr(e.Left, depth)
		if needsParens(e.Left, e.Op, false) {
			left = "(" + left + ")"
		}
		right := formatExpr(e.Right, depth)
		if needsParens(e.Right, e.Op, true) {
			right = "(" + right + ")"
		}
		return left + " " + string(e.Op) + " " + right

	case *ast.FnExpr:
		return "fn(" + strings.Join(e.Params, ", ") + ") " + formatBlock(e.Body, depth)

	case *ast.CallExpr:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = formatExpr(a, depth)
		}
		return formatExpr(e.Callee, depth) + "(" + strings.Join(args, ", ") + ")"

	default:
		return "nil"
	}
}

// formatFloatLiteral renders v so that it lexes back as a float literal.
// The literal grammar has no signed exponent, so small magnitudes are
// written out in positional form.
func formatFloatLiteral(v float64) string {
	if math.IsInf(v, 1) {
		return "1e999"
	}
	if math.IsInf(v, -1) {
		return "-1e999"
	}
	if math.IsNaN(v) {
		return "nil"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// quote produces a string literal using only the escapes the lexer accepts.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r <= 0xFFFF && !unicode.IsPrint(r) {
				fmt.Fprintf(&sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// HasComments reports whether source contains comments, which the formatter
// does not preserve.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		c := source[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(source) && (source[i+1] == '/' || source[i+1] == '*'):
			return true
		}
	}
	return false
}

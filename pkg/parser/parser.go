// Package parser implements the ScriptyScript parser.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/scriptyscript/pkg/ast"
	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
	"github.com/thomasrohde/scriptyscript/pkg/lexer"
)

// ParseError reports the first position at which the source stopped
// matching the grammar.
type ParseError struct {
	Diag     diagnostics.Diagnostic
	Offset   int
	Line     int
	Col      int
	Expected []string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Diag.Message)
}

// Diagnostic returns the diagnostic form of the error.
func (e *ParseError) Diagnostic() diagnostics.Diagnostic {
	return e.Diag
}

// Incomplete reports whether the source ended before the construct being
// parsed was finished. The REPL uses it to ask for a continuation line.
func (e *ParseError) Incomplete() bool {
	if e.Found == "end of input" {
		return true
	}
	return e.Diag.Code == diagnostics.ELex && strings.HasPrefix(e.Diag.Message, "unterminated")
}

type parser struct {
	tokens []lexer.Token
	pos    int
	err    *ParseError
}

// Parse tokenizes source and parses it into an AST. Parsing is
// all-or-nothing: on failure the program is nil and the error is a
// *ParseError.
func Parse(source, filename string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		var le *lexer.LexError
		if errors.As(err, &le) {
			pe := &ParseError{Diag: le.Diag, Offset: le.Offset, Expected: le.Expected}
			if le.Diag.Span != nil {
				pe.Line, pe.Col = le.Diag.Span.StartLine, le.Diag.Span.StartCol
			}
			return nil, pe
		}
		return nil, &ParseError{Diag: diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.fail(tok, fmt.Sprintf("expected %s, found %s", lexer.Describe(typ), found(tok)), lexer.Describe(typ))
		return tok, false
	}
	return p.advance(), true
}

// fail records the first parse error; later errors are consequences of it.
func (p *parser) fail(tok lexer.Token, msg string, expected ...string) {
	if p.err != nil {
		return
	}
	span := tok.Span
	p.err = &ParseError{
		Diag:     diagnostics.MakeDiag(diagnostics.EParse, msg, &span, expectedHint(expected)),
		Offset:   span.Offset,
		Line:     span.StartLine,
		Col:      span.StartCol,
		Expected: expected,
		Found:    found(tok),
	}
}

func found(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "end of input"
	}
	if tok.Type == lexer.TokStringLit {
		return strconv.Quote(tok.Value)
	}
	return "'" + tok.Value + "'"
}

func expectedHint(expected []string) string {
	if len(expected) < 2 {
		return ""
	}
	return "expected one of: " + strings.Join(expected, ", ")
}

func (p *parser) spanFrom(start ast.Span) ast.Span {
	prev := start
	if p.pos > 0 {
		prev = p.tokens[p.pos-1].Span
	}
	return p.spanFromTo(start, prev)
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		Offset:    start.Offset,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

var expressionStart = []string{"literal", "identifier", "'fn'", "'('", "'-'", "'not'"}

var statementStart = append([]string{"'if'", "'while'", "'for'", "'loop'", "'break'", "'continue'", "'return'"}, expressionStart...)

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span

	var stmts []ast.Stmt
	for p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}

	return &ast.Program{
		Span:       p.spanFromTo(startSpan, p.current().Span),
		Statements: stmts,
	}
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokIdent:
		if p.peekAt(1) == lexer.TokEquals {
			s := p.parseAssign()
			if s == nil || !p.expectSemicolon() {
				return nil
			}
			s.Span = p.spanFrom(s.Span)
			return s
		}
	case lexer.TokReturn:
		return p.parseReturnStmt()
	case lexer.TokBreak:
		tok := p.advance()
		if !p.expectSemicolon() {
			return nil
		}
		return &ast.BreakStmt{Span: p.spanFrom(tok.Span)}
	case lexer.TokContinue:
		tok := p.advance()
		if !p.expectSemicolon() {
			return nil
		}
		return &ast.ContinueStmt{Span: p.spanFrom(tok.Span)}
	case lexer.TokIf:
		return p.parseIfStmt()
	case lexer.TokWhile:
		return p.parseWhileStmt()
	case lexer.TokLoop:
		return p.parseLoopStmt()
	case lexer.TokFor:
		return p.parseForStmt()
	}

	if !p.startsExpression() {
		tok := p.current()
		p.fail(tok, fmt.Sprintf("unexpected %s, expected a statement", found(tok)), statementStart...)
		return nil
	}
	return p.parseExprStmt()
}

func (p *parser) expectSemicolon() bool {
	_, ok := p.expect(lexer.TokSemicolon)
	return ok
}

// parseAssign parses `identifier '=' expr` without the terminating ';' so the
// for-loop header can reuse it.
func (p *parser) parseAssign() *ast.AssignStmt {
	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokEquals); !ok {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.AssignStmt{
		Span:  p.spanFromTo(nameTok.Span, value.NodeSpan()),
		Name:  nameTok.Value,
		Value: value,
	}
}

func (p *parser) parseReturnStmt() ast.Stmt {
	start := p.advance() // consume 'return'
	var value ast.Expr
	if p.peek() != lexer.TokSemicolon {
		value = p.parseExpr()
		if value == nil {
			return nil
		}
	}
	if !p.expectSemicolon() {
		return nil
	}
	return &ast.ReturnStmt{Span: p.spanFrom(start.Span), Value: value}
}

func (p *parser) parseExprStmt() ast.Stmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	if !p.expectSemicolon() {
		return nil
	}
	return &ast.ExprStmt{Span: p.spanFrom(expr.NodeSpan()), Expr: expr}
}

func (p *parser) parseIfStmt() ast.Stmt {
	start := p.advance() // consume 'if'
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}

	stmt := &ast.IfStmt{Cond: cond, Then: then}
	for p.peek() == lexer.TokElse {
		elseTok := p.advance()
		if p.peek() == lexer.TokIf {
			p.advance()
			c := p.parseExpr()
			if c == nil {
				return nil
			}
			body := p.parseBlock()
			if body == nil {
				return nil
			}
			stmt.ElseIfs = append(stmt.ElseIfs, &ast.ElseIf{
				Span: p.spanFrom(elseTok.Span),
				Cond: c,
				Body: body,
			})
			continue
		}
		stmt.Else = p.parseBlock()
		if stmt.Else == nil {
			return nil
		}
		break
	}
	stmt.Span = p.spanFrom(start.Span)
	return stmt
}

func (p *parser) parseWhileStmt() ast.Stmt {
	start := p.advance() // consume 'while'
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{Span: p.spanFrom(start.Span), Cond: cond, Body: body}
}

func (p *parser) parseLoopStmt() ast.Stmt {
	start := p.advance() // consume 'loop'
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.LoopStmt{Span: p.spanFrom(start.Span), Body: body}
}

func (p *parser) parseForStmt() ast.Stmt {
	start := p.advance() // consume 'for'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}

	stmt := &ast.ForStmt{}
	if p.peek() != lexer.TokSemicolon {
		if stmt.Init = p.parseAssign(); stmt.Init == nil {
			return nil
		}
	}
	if !p.expectSemicolon() {
		return nil
	}
	if p.peek() != lexer.TokSemicolon {
		if stmt.Cond = p.parseExpr(); stmt.Cond == nil {
			return nil
		}
	}
	if !p.expectSemicolon() {
		return nil
	}
	if p.peek() != lexer.TokRParen {
		if stmt.Post = p.parseAssign(); stmt.Post == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	if stmt.Body = p.parseBlock(); stmt.Body == nil {
		return nil
	}
	stmt.Span = p.spanFrom(start.Span)
	return stmt
}

// --- Block ---

func (p *parser) parseBlock() *ast.Block {
	open, ok := p.expect(lexer.TokLBrace)
	if !ok {
		return nil
	}
	block := &ast.Block{}
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	if _, ok := p.expect(lexer.TokRBrace); !ok {
		return nil
	}
	block.Span = p.spanFrom(open.Span)
	return block
}

// --- Expressions ---

func (p *parser) startsExpression() bool {
	switch p.peek() {
	case lexer.TokIntLit, lexer.TokFloatLit, lexer.TokStringLit,
		lexer.TokTrue, lexer.TokFalse, lexer.TokNil,
		lexer.TokIdent, lexer.TokFn, lexer.TokLParen,
		lexer.TokMinus, lexer.TokPlus, lexer.TokNot:
		return true
	}
	return false
}

func (p *parser) parseExpr() ast.Expr {
	return p.parseLogical()
}

// --- Precedence climbing ---

func (p *parser) parseLogical() ast.Expr {
	left := p.parseEquality()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokAnd:
			op = ast.OpAnd
		case lexer.TokOr:
			op = ast.OpOr
		default:
			return left
		}
		p.advance()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokEqEq:
			op = ast.OpEqEq
		case lexer.TokBangEq:
			op = ast.OpNeq
		default:
			return left
		}
		p.advance()
		right := p.parseRelational()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseRelational() ast.Expr {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokGt:
			op = ast.OpGt
		case lexer.TokLt:
			op = ast.OpLt
		case lexer.TokGtEq:
			op = ast.OpGtEq
		case lexer.TokLtEq:
			op = ast.OpLtEq
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		case lexer.TokPercent:
			op = ast.OpMod
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseUnary() ast.Expr {
	switch p.peek() {
	case lexer.TokMinus, lexer.TokPlus:
		sign := p.current()
		next := p.tokens[min(p.pos+1, len(p.tokens)-1)]
		// A sign touching a numeric literal belongs to the literal.
		if (next.Type == lexer.TokIntLit || next.Type == lexer.TokFloatLit) && next.Span.Offset == sign.Span.Offset+1 {
			p.advance()
			return p.parseNumber(sign.Value, sign.Span)
		}
		if sign.Type == lexer.TokPlus {
			p.fail(sign, "unexpected '+', expected an expression", expressionStart...)
			return nil
		}
		p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{
			Span:    p.spanFromTo(sign.Span, operand.NodeSpan()),
			Op:      ast.OpNeg,
			Operand: operand,
		}
	case lexer.TokNot:
		start := p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{
			Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
			Op:      ast.OpNot,
			Operand: operand,
		}
	}
	return p.parsePrimary()
}

// parseNumber consumes the numeric literal at the cursor. sign is "", "+"
// or "-"; signSpan is where the literal begins.
func (p *parser) parseNumber(sign string, signSpan ast.Span) ast.Expr {
	tok := p.advance()
	span := tok.Span
	if sign != "" {
		span = p.spanFromTo(signSpan, tok.Span)
	}

	if tok.Type == lexer.TokFloatLit {
		val, err := strconv.ParseFloat(sign+tok.Value, 64)
		var numErr *strconv.NumError
		if err != nil && !(errors.As(err, &numErr) && numErr.Err == strconv.ErrRange) {
			p.fail(tok, fmt.Sprintf("invalid float literal '%s%s'", sign, tok.Value))
			return nil
		}
		return &ast.FloatLiteral{Span: span, Value: val}
	}

	digits, base := tok.Value, 10
	switch {
	case strings.HasPrefix(digits, "0x"):
		digits, base = digits[2:], 16
	case strings.HasPrefix(digits, "0b"):
		digits, base = digits[2:], 2
	}
	if sign == "-" {
		digits = "-" + digits
	}
	val, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		p.fail(tok, fmt.Sprintf("integer literal '%s%s' out of range", sign, tok.Value))
		return nil
	}
	return &ast.IntLiteral{Span: span, Value: val}
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.peek() {
	case lexer.TokLParen:
		// Grouped expression
		p.advance()
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokIntLit, lexer.TokFloatLit:
		return p.parseNumber("", ast.Span{})

	case lexer.TokStringLit:
		tok := p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokTrue:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: true}

	case lexer.TokFalse:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: false}

	case lexer.TokNil:
		tok := p.advance()
		return &ast.NilLiteral{Span: tok.Span}

	case lexer.TokFn:
		return p.parseFnExpr()

	case lexer.TokIdent:
		return p.parseIdentOrCall()

	default:
		tok := p.current()
		p.fail(tok, fmt.Sprintf("unexpected %s, expected an expression", found(tok)), expressionStart...)
		return nil
	}
}

func (p *parser) parseIdentOrCall() ast.Expr {
	nameTok := p.advance()
	ident := &ast.Identifier{Span: nameTok.Span, Name: nameTok.Value}
	if p.peek() != lexer.TokLParen {
		return ident
	}

	p.advance() // consume '('
	var args []ast.Expr
	if p.peek() != lexer.TokRParen {
		for {
			arg := p.parseExpr()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.peek() != lexer.TokComma {
				break
			}
			p.advance()
		}
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	return &ast.CallExpr{
		Span:   p.spanFrom(nameTok.Span),
		Callee: ident,
		Args:   args,
	}
}

func (p *parser) parseFnExpr() ast.Expr {
	start := p.advance() // consume 'fn'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}

	var params []string
	if p.peek() != lexer.TokRParen {
		for {
			paramTok, ok := p.expect(lexer.TokIdent)
			if !ok {
				return nil
			}
			params = append(params, paramTok.Value)
			if p.peek() != lexer.TokComma {
				break
			}
			p.advance()
		}
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.FnExpr{
		Span:   p.spanFrom(start.Span),
		Params: params,
		Body:   body,
	}
}

// Package lexer implements the ScriptyScript tokenizer.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/scriptyscript/pkg/ast"
	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokIf TokenType = iota
	TokElse
	TokWhile
	TokFor
	TokLoop
	TokBreak
	TokContinue
	TokReturn
	TokFn
	TokClass
	TokAnd
	TokOr
	TokNot
	TokTrue
	TokFalse
	TokNil

	// Literals
	TokIntLit
	TokFloatLit
	TokStringLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace    // {
	TokRBrace    // }
	TokLParen    // (
	TokRParen    // )
	TokComma     // ,
	TokSemicolon // ;
	TokEquals    // =

	// Comparison operators
	TokGtEq   // >=
	TokLtEq   // <=
	TokEqEq   // ==
	TokBangEq // !=
	TokGt     // >
	TokLt     // <

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %

	// Special
	TokEOF
)

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

var keywords = map[string]TokenType{
	"if":       TokIf,
	"else":     TokElse,
	"while":    TokWhile,
	"for":      TokFor,
	"loop":     TokLoop,
	"break":    TokBreak,
	"continue": TokContinue,
	"return":   TokReturn,
	"fn":       TokFn,
	"class":    TokClass,
	"and":      TokAnd,
	"or":       TokOr,
	"not":      TokNot,
	"true":     TokTrue,
	"false":    TokFalse,
	"nil":      TokNil,
}

// IsKeyword reports whether word is reserved and cannot be used as an identifier.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startPos, startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		Offset:    startPos,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() error {
	for !s.atEnd() {
		ch := s.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			s.advance()
		case ch == '/' && s.peekAt(1) == '/':
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		case ch == '/' && s.peekAt(1) == '*':
			startPos, startLine, startCol := s.pos, s.line, s.col
			s.advance()
			s.advance()
			closed := false
			for !s.atEnd() {
				if s.peek() == '*' && s.peekAt(1) == '/' {
					s.advance()
					s.advance()
					closed = true
					break
				}
				s.advance()
			}
			if !closed {
				return s.lexError(startPos, startLine, startCol, "unterminated block comment", "'*/'")
			}
		default:
			return nil
		}
	}
	return nil
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isBinDigit(ch byte) bool {
	return ch == '0' || ch == '1'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) scanString() (Token, error) {
	startPos, startLine, startCol := s.pos, s.line, s.col
	s.advance() // consume opening "

	var buf strings.Builder
	for !s.atEnd() {
		ch := s.peek()
		if ch == '"' {
			s.advance() // consume closing "
			return Token{
				Type:  TokStringLit,
				Value: buf.String(),
				Span:  s.span(startPos, startLine, startCol),
			}, nil
		}
		if ch == '\\' {
			escPos, escLine, escCol := s.pos, s.line, s.col
			s.advance() // consume backslash
			if s.atEnd() {
				return Token{}, s.lexError(startPos, startLine, startCol, "unterminated string literal", `'"'`)
			}
			esc := s.advance()
			switch esc {
			case '"':
				buf.WriteByte('"')
			case '\\':
				buf.WriteByte('\\')
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'u':
				// \uXXXX, exactly four hex digits
				for i := 0; i < 4; i++ {
					if !isHexDigit(s.peekAt(i)) {
						return Token{}, s.lexError(escPos, escLine, escCol, "invalid unicode escape: expected 4 hex digits", "hex digit")
					}
				}
				hexStr := s.source[s.pos : s.pos+4]
				codepoint, err := strconv.ParseUint(hexStr, 16, 32)
				if err != nil || !utf8.ValidRune(rune(codepoint)) {
					return Token{}, s.lexError(escPos, escLine, escCol, "invalid unicode escape: surrogate code point", "hex digit")
				}
				buf.WriteRune(rune(codepoint))
				for i := 0; i < 4; i++ {
					s.advance()
				}
			default:
				return Token{}, s.lexError(escPos, escLine, escCol,
					fmt.Sprintf("invalid escape character: \\%c", esc),
					`'\"'`, `'\\'`, `'\n'`, `'\r'`, `'\t'`, `'\u'`)
			}
			continue
		}

		r, size := utf8.DecodeRuneInString(s.source[s.pos:])
		if r == utf8.RuneError && size == 1 {
			return Token{}, s.lexError(s.pos, s.line, s.col, "invalid UTF-8 character in string")
		}
		buf.WriteRune(r)
		for i := 0; i < size; i++ {
			s.advance()
		}
	}
	return Token{}, s.lexError(startPos, startLine, startCol, "unterminated string literal", `'"'`)
}

// scanNumber recognizes, in order: scientific notation, float, binary, hex
// and decimal integer literals. The sign is handled by the parser.
func (s *scanner) scanNumber() Token {
	startPos, startLine, startCol := s.pos, s.line, s.col

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}
	intPart := s.source[startPos:s.pos]

	hasFrac := false
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		hasFrac = true
		s.advance() // consume '.'
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	if (s.peek() == 'e' || s.peek() == 'E') && isDigit(s.peekAt(1)) {
		s.advance() // consume e/E
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
		return Token{Type: TokFloatLit, Value: s.source[startPos:s.pos], Span: s.span(startPos, startLine, startCol)}
	}

	if hasFrac {
		return Token{Type: TokFloatLit, Value: s.source[startPos:s.pos], Span: s.span(startPos, startLine, startCol)}
	}

	if intPart == "0" {
		switch {
		case s.peek() == 'b' && isBinDigit(s.peekAt(1)):
			s.advance()
			for !s.atEnd() && isBinDigit(s.peek()) {
				s.advance()
			}
		case s.peek() == 'x' && isHexDigit(s.peekAt(1)):
			s.advance()
			for !s.atEnd() && isHexDigit(s.peek()) {
				s.advance()
			}
		}
	}

	return Token{Type: TokIntLit, Value: s.source[startPos:s.pos], Span: s.span(startPos, startLine, startCol)}
}

func (s *scanner) scanIdentOrKeyword() Token {
	startPos, startLine, startCol := s.pos, s.line, s.col

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]
	if tokType, ok := keywords[text]; ok {
		return Token{
			Type:  tokType,
			Value: text,
			Span:  s.span(startPos, startLine, startCol),
		}
	}

	return Token{
		Type:  TokIdent,
		Value: text,
		Span:  s.span(startPos, startLine, startCol),
	}
}

func (s *scanner) lexError(pos, line, col int, msg string, expected ...string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, Offset: pos, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag, Offset: pos, Expected: expected}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag     diagnostics.Diagnostic
	Offset   int
	Expected []string
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

func (s *scanner) single(typ TokenType, text string) Token {
	startPos, startLine, startCol := s.pos, s.line, s.col
	for range text {
		s.advance()
	}
	return Token{Type: typ, Value: text, Span: s.span(startPos, startLine, startCol)}
}

func (s *scanner) nextToken() (Token, error) {
	if err := s.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.pos, s.line, s.col),
		}, nil
	}

	ch := s.peek()

	switch ch {
	case '{':
		return s.single(TokLBrace, "{"), nil
	case '}':
		return s.single(TokRBrace, "}"), nil
	case '(':
		return s.single(TokLParen, "("), nil
	case ')':
		return s.single(TokRParen, ")"), nil
	case ',':
		return s.single(TokComma, ","), nil
	case ';':
		return s.single(TokSemicolon, ";"), nil
	case '+':
		return s.single(TokPlus, "+"), nil
	case '-':
		return s.single(TokMinus, "-"), nil
	case '*':
		return s.single(TokStar, "*"), nil
	case '%':
		return s.single(TokPercent, "%"), nil
	case '/':
		return s.single(TokSlash, "/"), nil
	case '=':
		if s.peekAt(1) == '=' {
			return s.single(TokEqEq, "=="), nil
		}
		return s.single(TokEquals, "="), nil
	case '!':
		if s.peekAt(1) == '=' {
			return s.single(TokBangEq, "!="), nil
		}
		startPos, startLine, startCol := s.pos, s.line, s.col
		s.advance()
		return Token{}, s.lexError(startPos, startLine, startCol, "unexpected character '!'", "'!='")
	case '>':
		if s.peekAt(1) == '=' {
			return s.single(TokGtEq, ">="), nil
		}
		return s.single(TokGt, ">"), nil
	case '<':
		if s.peekAt(1) == '=' {
			return s.single(TokLtEq, "<="), nil
		}
		return s.single(TokLt, "<"), nil
	case '"':
		return s.scanString()
	}

	if isDigit(ch) {
		return s.scanNumber(), nil
	}

	if isAlpha(ch) {
		return s.scanIdentOrKeyword(), nil
	}

	startPos, startLine, startCol := s.pos, s.line, s.col
	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	return Token{}, s.lexError(startPos, startLine, startCol, fmt.Sprintf("unexpected character '%c'", r))
}

// Tokenize breaks source code into a slice of tokens.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}

// Describe returns a human-readable name for a token type, used in
// "expected ..." messages.
func Describe(t TokenType) string {
	switch t {
	case TokLBrace:
		return "'{'"
	case TokRBrace:
		return "'}'"
	case TokLParen:
		return "'('"
	case TokRParen:
		return "')'"
	case TokComma:
		return "','"
	case TokSemicolon:
		return "';'"
	case TokEquals:
		return "'='"
	case TokIdent:
		return "identifier"
	case TokStringLit:
		return "string"
	case TokIntLit:
		return "integer"
	case TokFloatLit:
		return "float"
	case TokEOF:
		return "end of input"
	case TokGtEq:
		return "'>='"
	case TokLtEq:
		return "'<='"
	case TokEqEq:
		return "'=='"
	case TokBangEq:
		return "'!='"
	case TokGt:
		return "'>'"
	case TokLt:
		return "'<'"
	case TokPlus:
		return "'+'"
	case TokMinus:
		return "'-'"
	case TokStar:
		return "'*'"
	case TokSlash:
		return "'/'"
	case TokPercent:
		return "'%'"
	}
	for word, kw := range keywords {
		if kw == t {
			return "'" + word + "'"
		}
	}
	return fmt.Sprintf("token(%d)", t)
}

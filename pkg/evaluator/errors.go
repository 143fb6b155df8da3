package evaluator

import (
	"fmt"

	"github.com/thomasrohde/scriptyscript/pkg/ast"
	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
)

// RuntimeError aborts evaluation. Scripts cannot catch it; it propagates to
// whoever called Execute.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic returns the diagnostic form of the error.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

// Errorf builds a RuntimeError without a span; the evaluator fills in the
// span of the call site when a built-in returns one.
func Errorf(code, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func errAt(code string, span ast.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: &span}
}

// ExitError is returned when a script calls exit(). It is not a failure.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// SignalKind identifies how a statement finished.
type SignalKind int

const (
	SignalNormal SignalKind = iota
	SignalBreak
	SignalContinue
	SignalReturn
)

func (k SignalKind) String() string {
	switch k {
	case SignalBreak:
		return "break"
	case SignalContinue:
		return "continue"
	case SignalReturn:
		return "return"
	default:
		return "normal"
	}
}

// Signal is the outcome of executing a statement. For SignalNormal, Value
// is the statement's own value; for SignalReturn it is the returned value.
type Signal struct {
	Kind  SignalKind
	Value Value

	span ast.Span // where break, continue or return was executed
}

func normal(v Value) Signal {
	return Signal{Kind: SignalNormal, Value: v}
}

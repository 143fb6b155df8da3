package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/thomasrohde/scriptyscript/pkg/ast"
	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
)

// InputFunc writes prompt and reads one line without its line terminator.
// ok is false once input is exhausted.
type InputFunc func(prompt string) (line string, ok bool, err error)

// Options configures program execution.
type Options struct {
	Stdout io.Writer
	Input  InputFunc
	Limits Limits
	Logger *slog.Logger
}

// Call is what a built-in sees of the call that invoked it.
type Call struct {
	Ctx    context.Context
	Env    *Env // the caller's environment
	Span   ast.Span
	Stdout io.Writer
	Input  InputFunc
	Name   string

	ev *evaluator
}

// Exec evaluates program in a new child scope of the caller's environment
// and returns the value of its last statement, or the value it returns.
func (c *Call) Exec(program *ast.Program) (Value, error) {
	ev := c.ev
	if !ev.depth.enter() {
		ev.depth.leave()
		return nil, errAt(diagnostics.EStack, c.Span, "maximum call depth %d exceeded", ev.depth.max)
	}
	defer ev.depth.leave()

	sig, err := ev.executeStmts(program.Statements, c.Env.Child())
	if err != nil {
		return nil, err
	}
	return ev.finish(sig)
}

type evaluator struct {
	ctx    context.Context
	opts   Options
	logger *slog.Logger
	depth  depthTracker
}

func newEvaluator(ctx context.Context, opts Options) *evaluator {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Input == nil {
		opts.Input = func(string) (string, bool, error) { return "", false, nil }
	}
	if opts.Limits.MaxCallDepth == 0 {
		opts.Limits.MaxCallDepth = DefaultMaxCallDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &evaluator{
		ctx:    ctx,
		opts:   opts,
		logger: logger,
		depth:  depthTracker{max: opts.Limits.MaxCallDepth},
	}
}

// Execute runs program in env and returns the value of the last statement
// executed, or the value of a top-level return. Errors are *RuntimeError or,
// when the script calls exit(), *ExitError.
func Execute(ctx context.Context, program *ast.Program, env *Env, opts Options) (Value, error) {
	ev := newEvaluator(ctx, opts)
	sig, err := ev.executeStmts(program.Statements, env)
	if err != nil {
		return nil, err
	}
	return ev.finish(sig)
}

// finish converts the signal that ended a program into its result.
func (ev *evaluator) finish(sig Signal) (Value, error) {
	switch sig.Kind {
	case SignalBreak, SignalContinue:
		return nil, errAt(diagnostics.EControl, sig.span, "%s outside loop", sig.Kind)
	}
	if sig.Value == nil {
		return NilValue{}, nil
	}
	return sig.Value, nil
}

func (ev *evaluator) checkCtx(span ast.Span) error {
	if err := ev.ctx.Err(); err != nil {
		return errAt(diagnostics.ECancelled, span, "execution cancelled: %v", err)
	}
	return nil
}

// --- Statements ---

func (ev *evaluator) executeStmts(stmts []ast.Stmt, env *Env) (Signal, error) {
	var last Value = NilValue{}
	for _, stmt := range stmts {
		sig, err := ev.execStmt(stmt, env)
		if err != nil {
			return Signal{}, err
		}
		if sig.Kind != SignalNormal {
			return sig, nil
		}
		last = sig.Value
	}
	return normal(last), nil
}

func (ev *evaluator) execStmt(stmt ast.Stmt, env *Env) (Signal, error) {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		val, err := ev.evalAssign(s, env)
		if err != nil {
			return Signal{}, err
		}
		return normal(val), nil

	case *ast.ExprStmt:
		val, err := ev.evalExpr(s.Expr, env)
		if err != nil {
			return Signal{}, err
		}
		return normal(val), nil

	case *ast.Block:
		return ev.executeStmts(s.Stmts, env)

	case *ast.IfStmt:
		return ev.execIf(s, env)

	case *ast.WhileStmt:
		return ev.execWhile(s, env)

	case *ast.LoopStmt:
		return ev.execLoop(s, env)

	case *ast.ForStmt:
		return ev.execFor(s, env)

	case *ast.BreakStmt:
		return Signal{Kind: SignalBreak, span: s.Span}, nil

	case *ast.ContinueStmt:
		return Signal{Kind: SignalContinue, span: s.Span}, nil

	case *ast.ReturnStmt:
		var val Value = NilValue{}
		if s.Value != nil {
			v, err := ev.evalExpr(s.Value, env)
			if err != nil {
				return Signal{}, err
			}
			val = v
		}
		return Signal{Kind: SignalReturn, Value: val, span: s.Span}, nil
	}

	span := stmt.NodeSpan()
	return Signal{}, errAt(diagnostics.EType, span, "unknown statement type: %s", stmt.Kind())
}

// evalAssign evaluates the right-hand side fully before binding the name.
func (ev *evaluator) evalAssign(s *ast.AssignStmt, env *Env) (Value, error) {
	val, err := ev.evalAssignValue(s, env)
	if err != nil {
		return nil, err
	}
	env.Assign(s.Name, val)
	return val, nil
}

func (ev *evaluator) evalAssignValue(s *ast.AssignStmt, env *Env) (Value, error) {
	val, err := ev.evalExpr(s.Value, env)
	if err != nil {
		return nil, err
	}
	if c, ok := val.(*Closure); ok && c.Name == "" {
		if _, isFn := s.Value.(*ast.FnExpr); isFn {
			c.Name = s.Name
		}
	}
	return val, nil
}

func (ev *evaluator) execIf(s *ast.IfStmt, env *Env) (Signal, error) {
	cond, err := ev.evalExpr(s.Cond, env)
	if err != nil {
		return Signal{}, err
	}
	if Truthiness(cond) {
		return ev.executeStmts(s.Then.Stmts, env)
	}
	for _, ei := range s.ElseIfs {
		c, err := ev.evalExpr(ei.Cond, env)
		if err != nil {
			return Signal{}, err
		}
		if Truthiness(c) {
			return ev.executeStmts(ei.Body.Stmts, env)
		}
	}
	if s.Else != nil {
		return ev.executeStmts(s.Else.Stmts, env)
	}
	return normal(NilValue{}), nil
}

func (ev *evaluator) execWhile(s *ast.WhileStmt, env *Env) (Signal, error) {
	for {
		if err := ev.checkCtx(s.Span); err != nil {
			return Signal{}, err
		}
		cond, err := ev.evalExpr(s.Cond, env)
		if err != nil {
			return Signal{}, err
		}
		if !Truthiness(cond) {
			return normal(NilValue{}), nil
		}
		sig, err := ev.executeStmts(s.Body.Stmts, env)
		if err != nil {
			return Signal{}, err
		}
		switch sig.Kind {
		case SignalBreak:
			return normal(NilValue{}), nil
		case SignalReturn:
			return sig, nil
		}
	}
}

func (ev *evaluator) execLoop(s *ast.LoopStmt, env *Env) (Signal, error) {
	for {
		if err := ev.checkCtx(s.Span); err != nil {
			return Signal{}, err
		}
		sig, err := ev.executeStmts(s.Body.Stmts, env)
		if err != nil {
			return Signal{}, err
		}
		switch sig.Kind {
		case SignalBreak:
			return normal(NilValue{}), nil
		case SignalReturn:
			return sig, nil
		}
	}
}

// execFor binds init once in a fresh scope shared by every iteration, so
// the loop variable does not leak. The increment runs after each
// iteration, including one ended by continue.
func (ev *evaluator) execFor(s *ast.ForStmt, env *Env) (Signal, error) {
	scope := env.Child()
	if s.Init != nil {
		val, err := ev.evalAssignValue(s.Init, scope)
		if err != nil {
			return Signal{}, err
		}
		scope.Define(s.Init.Name, val)
	}

	for {
		if err := ev.checkCtx(s.Span); err != nil {
			return Signal{}, err
		}
		if s.Cond != nil {
			cond, err := ev.evalExpr(s.Cond, scope)
			if err != nil {
				return Signal{}, err
			}
			if !Truthiness(cond) {
				return normal(NilValue{}), nil
			}
		}

		sig, err := ev.executeStmts(s.Body.Stmts, scope)
		if err != nil {
			return Signal{}, err
		}
		switch sig.Kind {
		case SignalBreak:
			return normal(NilValue{}), nil
		case SignalReturn:
			return sig, nil
		}

		if s.Post != nil {
			if _, err := ev.evalAssign(s.Post, scope); err != nil {
				return Signal{}, err
			}
		}
	}
}

// --- Expressions ---

func (ev *evaluator) evalExpr(expr ast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return IntValue{Value: e.Value}, nil

	case *ast.FloatLiteral:
		return FloatValue{Value: e.Value}, nil

	case *ast.StrLiteral:
		return StrValue{Value: e.Value}, nil

	case *ast.BoolLiteral:
		return BoolValue{Value: e.Value}, nil

	case *ast.NilLiteral:
		return NilValue{}, nil

	case *ast.Identifier:
		val, ok := env.Get(e.Name)
		if !ok {
			return nil, errAt(diagnostics.EUnbound, e.Span, "undefined name '%s'", e.Name)
		}
		return val, nil

	case *ast.UnaryExpr:
		return ev.evalUnary(e, env)

	case *ast.BinaryExpr:
		return ev.evalBinary(e, env)

	case *ast.FnExpr:
		return &Closure{Params: e.Params, Body: e.Body, Env: env}, nil

	case *ast.CallExpr:
		return ev.evalCall(e, env)
	}

	span := expr.NodeSpan()
	return nil, errAt(diagnostics.EType, span, "unknown expression type: %s", expr.Kind())
}

func (ev *evaluator) evalUnary(e *ast.UnaryExpr, env *Env) (Value, error) {
	operand, err := ev.evalExpr(e.Operand, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpNot:
		return BoolValue{Value: !Truthiness(operand)}, nil
	case ast.OpNeg:
		switch v := operand.(type) {
		case IntValue:
			return IntValue{Value: -v.Value}, nil
		case FloatValue:
			return FloatValue{Value: -v.Value}, nil
		}
		return nil, errAt(diagnostics.EType, e.Span, "bad operand type for unary -: %s", TypeName(operand))
	}
	return nil, errAt(diagnostics.EType, e.Span, "unknown unary operator: %s", e.Op)
}

func (ev *evaluator) evalBinary(e *ast.BinaryExpr, env *Env) (Value, error) {
	left, err := ev.evalExpr(e.Left, env)
	if err != nil {
		return nil, err
	}

	// and/or do not evaluate the right operand when the left decides.
	switch e.Op {
	case ast.OpAnd:
		if !Truthiness(left) {
			return BoolValue{Value: false}, nil
		}
		right, err := ev.evalExpr(e.Right, env)
		if err != nil {
			return nil, err
		}
		return BoolValue{Value: Truthiness(right)}, nil
	case ast.OpOr:
		if Truthiness(left) {
			return BoolValue{Value: true}, nil
		}
		right, err := ev.evalExpr(e.Right, env)
		if err != nil {
			return nil, err
		}
		return BoolValue{Value: Truthiness(right)}, nil
	}

	right, err := ev.evalExpr(e.Right, env)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case ast.OpEqEq:
		return BoolValue{Value: Equal(left, right)}, nil
	case ast.OpNeq:
		return BoolValue{Value: !Equal(left, right)}, nil
	case ast.OpLt, ast.OpLtEq, ast.OpGt, ast.OpGtEq:
		return compare(e.Op, left, right, e.Span)
	}
	return arith(e.Op, left, right, e.Span)
}

func arith(op ast.BinaryOp, left, right Value, span ast.Span) (Value, error) {
	if op == ast.OpAdd {
		_, ls := left.(StrValue)
		_, rs := right.(StrValue)
		if ls || rs {
			return StrValue{Value: Stringify(left) + Stringify(right)}, nil
		}
	}

	li, lInt := left.(IntValue)
	ri, rInt := right.(IntValue)
	if lInt && rInt {
		a, b := li.Value, ri.Value
		switch op {
		case ast.OpAdd:
			return IntValue{Value: a + b}, nil
		case ast.OpSub:
			return IntValue{Value: a - b}, nil
		case ast.OpMul:
			return IntValue{Value: a * b}, nil
		case ast.OpDiv:
			if b == 0 {
				return nil, errAt(diagnostics.EDivZero, span, "division by zero")
			}
			return IntValue{Value: a / b}, nil
		case ast.OpMod:
			if b == 0 {
				return nil, errAt(diagnostics.EDivZero, span, "modulo by zero")
			}
			return IntValue{Value: a % b}, nil
		}
	}

	a, b, ok := numericPair(left, right)
	if !ok {
		return nil, errAt(diagnostics.EType, span, "unsupported operand types for %s: %s and %s", op, TypeName(left), TypeName(right))
	}
	switch op {
	case ast.OpAdd:
		return FloatValue{Value: a + b}, nil
	case ast.OpSub:
		return FloatValue{Value: a - b}, nil
	case ast.OpMul:
		return FloatValue{Value: a * b}, nil
	case ast.OpDiv:
		if b == 0 {
			return nil, errAt(diagnostics.EDivZero, span, "division by zero")
		}
		return FloatValue{Value: a / b}, nil
	case ast.OpMod:
		if b == 0 {
			return nil, errAt(diagnostics.EDivZero, span, "modulo by zero")
		}
		return FloatValue{Value: math.Mod(a, b)}, nil
	}
	return nil, errAt(diagnostics.EType, span, "unknown operator: %s", op)
}

func compare(op ast.BinaryOp, left, right Value, span ast.Span) (Value, error) {
	var cmp int
	li, lInt := left.(IntValue)
	ri, rInt := right.(IntValue)
	ls, lStr := left.(StrValue)
	rs, rStr := right.(StrValue)

	switch {
	case lInt && rInt:
		cmp = compareOrdered(li.Value, ri.Value)
	case lStr && rStr:
		cmp = compareOrdered(ls.Value, rs.Value)
	default:
		a, b, ok := numericPair(left, right)
		if !ok {
			return nil, errAt(diagnostics.EType, span, "cannot compare %s and %s with %s", TypeName(left), TypeName(right), op)
		}
		if math.IsNaN(a) || math.IsNaN(b) {
			return BoolValue{Value: false}, nil
		}
		cmp = compareOrdered(a, b)
	}

	var result bool
	switch op {
	case ast.OpLt:
		result = cmp < 0
	case ast.OpLtEq:
		result = cmp <= 0
	case ast.OpGt:
		result = cmp > 0
	case ast.OpGtEq:
		result = cmp >= 0
	}
	return BoolValue{Value: result}, nil
}

func compareOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// --- Calls ---

func (ev *evaluator) evalCall(e *ast.CallExpr, env *Env) (Value, error) {
	callee, err := ev.evalExpr(e.Callee, env)
	if err != nil {
		return nil, err
	}

	args := make([]Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := ev.evalExpr(a, env)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	switch fn := callee.(type) {
	case *Closure:
		return ev.callClosure(fn, args, e.Span)
	case *NativeFunction:
		return ev.callNative(fn, args, e.Span, env)
	}
	return nil, errAt(diagnostics.ENotCallable, e.Span, "value of type %s is not callable", TypeName(callee))
}

func (ev *evaluator) callClosure(fn *Closure, args []Value, span ast.Span) (Value, error) {
	if len(args) != len(fn.Params) {
		return nil, errAt(diagnostics.EArity, span, "%s expects %d argument(s), got %d", Stringify(fn), len(fn.Params), len(args))
	}
	if err := ev.checkCtx(span); err != nil {
		return nil, err
	}
	if !ev.depth.enter() {
		ev.depth.leave()
		return nil, errAt(diagnostics.EStack, span, "maximum call depth %d exceeded", ev.depth.max)
	}
	defer ev.depth.leave()

	if ev.logger.Enabled(ev.ctx, slog.LevelDebug) {
		ev.logger.DebugContext(ev.ctx, "call", "fn", fn.Name, "args", len(args), "depth", ev.depth.depth, "line", span.StartLine)
	}

	frame := NewEnv(fn.Env)
	for i, name := range fn.Params {
		frame.Define(name, args[i])
	}

	sig, err := ev.executeStmts(fn.Body.Stmts, frame)
	if err != nil {
		return nil, err
	}
	switch sig.Kind {
	case SignalReturn:
		return sig.Value, nil
	case SignalBreak, SignalContinue:
		return nil, errAt(diagnostics.EControl, sig.span, "%s outside loop", sig.Kind)
	}
	return NilValue{}, nil
}

func (ev *evaluator) callNative(fn *NativeFunction, args []Value, span ast.Span, env *Env) (Value, error) {
	if len(args) < fn.MinArgs || (fn.MaxArgs >= 0 && len(args) > fn.MaxArgs) {
		return nil, errAt(diagnostics.EArity, span, "%s expects %s, got %d", fn.Name, arityText(fn.MinArgs, fn.MaxArgs), len(args))
	}

	call := &Call{
		Ctx:    ev.ctx,
		Env:    env,
		Span:   span,
		Stdout: ev.opts.Stdout,
		Input:  ev.opts.Input,
		Name:   fn.Name,
		ev:     ev,
	}
	val, err := fn.Fn(call, args)
	if err != nil {
		var rtErr *RuntimeError
		if errors.As(err, &rtErr) {
			if rtErr.Span == nil {
				rtErr.Span = &span
			}
			return nil, rtErr
		}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, exitErr
		}
		return nil, errAt(diagnostics.EBuiltin, span, "%s: %v", fn.Name, err)
	}
	if val == nil {
		return NilValue{}, nil
	}
	return val, nil
}

func arityText(lo, hi int) string {
	switch {
	case hi < 0:
		return fmt.Sprintf("at least %d argument(s)", lo)
	case lo == hi:
		return fmt.Sprintf("%d argument(s)", lo)
	}
	return fmt.Sprintf("%d to %d arguments", lo, hi)
}

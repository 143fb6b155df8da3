package evaluator_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
	"github.com/thomasrohde/scriptyscript/pkg/parser"
	"github.com/thomasrohde/scriptyscript/pkg/stdlib"
)

// --- helpers ---

type result struct {
	val    evaluator.Value
	stdout string
	err    error
}

// runWith parses and executes source in a fresh root environment.
func runWith(t *testing.T, src string, opts evaluator.Options) result {
	t.Helper()
	prog, err := parser.Parse(src, "test.ss")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var out bytes.Buffer
	if opts.Stdout == nil {
		opts.Stdout = &out
	}
	val, err := evaluator.Execute(context.Background(), prog, stdlib.NewRootEnv(), opts)
	return result{val: val, stdout: out.String(), err: err}
}

func run(t *testing.T, src string) result {
	t.Helper()
	return runWith(t, src, evaluator.Options{})
}

// mustRun is like run but also fails on runtime errors.
func mustRun(t *testing.T, src string) result {
	t.Helper()
	res := run(t, src)
	if res.err != nil {
		t.Fatalf("unexpected runtime error: %v", res.err)
	}
	return res
}

func expectInt(t *testing.T, val evaluator.Value, expected int64) {
	t.Helper()
	n, ok := val.(evaluator.IntValue)
	if !ok {
		t.Fatalf("expected int %d, got %s %s", expected, evaluator.TypeName(val), evaluator.Stringify(val))
	}
	if n.Value != expected {
		t.Errorf("got %d, want %d", n.Value, expected)
	}
}

func expectFloat(t *testing.T, val evaluator.Value, expected float64) {
	t.Helper()
	f, ok := val.(evaluator.FloatValue)
	if !ok {
		t.Fatalf("expected float %v, got %s %s", expected, evaluator.TypeName(val), evaluator.Stringify(val))
	}
	if f.Value != expected {
		t.Errorf("got %v, want %v", f.Value, expected)
	}
}

func expectBool(t *testing.T, val evaluator.Value, expected bool) {
	t.Helper()
	b, ok := val.(evaluator.BoolValue)
	if !ok {
		t.Fatalf("expected bool %v, got %s %s", expected, evaluator.TypeName(val), evaluator.Stringify(val))
	}
	if b.Value != expected {
		t.Errorf("got %v, want %v", b.Value, expected)
	}
}

func expectString(t *testing.T, val evaluator.Value, expected string) {
	t.Helper()
	s, ok := val.(evaluator.StrValue)
	if !ok {
		t.Fatalf("expected string %q, got %s %s", expected, evaluator.TypeName(val), evaluator.Stringify(val))
	}
	if s.Value != expected {
		t.Errorf("got %q, want %q", s.Value, expected)
	}
}

func expectNil(t *testing.T, val evaluator.Value) {
	t.Helper()
	if _, ok := val.(evaluator.NilValue); !ok {
		t.Fatalf("expected nil, got %s %s", evaluator.TypeName(val), evaluator.Stringify(val))
	}
}

// expectCode asserts err is a *RuntimeError with the given code.
func expectCode(t *testing.T, err error, code string) *evaluator.RuntimeError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected runtime error %s, got none", code)
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if rtErr.Code != code {
		t.Errorf("got code %s (%s), want %s", rtErr.Code, rtErr.Message, code)
	}
	return rtErr
}

// --- arithmetic and operators ---

func TestPrecedence(t *testing.T) {
	expectInt(t, mustRun(t, "1 + 2 * 3 - 4 / 2;").val, 5)
	expectInt(t, mustRun(t, "- -5;").val, 5)
	expectInt(t, mustRun(t, "(1 + 2) * 3;").val, 9)
	expectInt(t, mustRun(t, "2 * -3;").val, -6)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"7 / 2;", int64(3)},
		{"-7 / 2;", int64(-3)},
		{"7 % 3;", int64(1)},
		{"7.0 / 2;", 3.5},
		{"1 + 2.5;", 3.5},
		{"5.5 % 2;", 1.5},
		{"0x10 + 0b11;", int64(19)},
		{"1e3 - 1;", 999.0},
		{`"ab" + "cd";`, "abcd"},
		{`"n=" + 1;`, "n=1"},
		{`1.5 + "x";`, "1.5x"},
		{`"v: " + nil;`, "v: nil"},
		{`"t" + true;`, "ttrue"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			val := mustRun(t, tt.src).val
			switch want := tt.want.(type) {
			case int64:
				expectInt(t, val, want)
			case float64:
				expectFloat(t, val, want)
			case string:
				expectString(t, val, want)
			}
		})
	}
}

func TestComparison(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"1 == 1.0;", true},
		{"1 != 2;", true},
		{`"1" == 1;`, false},
		{"nil == nil;", true},
		{"nil == false;", false},
		{`"a" < "b";`, true},
		{"2 >= 2;", true},
		{"1.5 < 2;", true},
		{"3 > 10;", false},
		{"true == true;", true},
		{"print == print;", true},
		{"print == exec;", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectBool(t, mustRun(t, tt.src).val, tt.want)
		})
	}
}

func TestLogicalShortCircuit(t *testing.T) {
	expectBool(t, mustRun(t, "false and undefined_fn();").val, false)
	expectBool(t, mustRun(t, "true or undefined_fn();").val, true)
	expectBool(t, mustRun(t, "0 and \"\";").val, true)
	expectBool(t, mustRun(t, "nil or false;").val, false)
	expectBool(t, mustRun(t, "not nil;").val, true)
	expectBool(t, mustRun(t, "not 0;").val, false)
}

func TestTruthinessInConditions(t *testing.T) {
	res := mustRun(t, `
r = "";
if 0 { r = r + "zero "; }
if "" { r = r + "empty "; }
if nil { r = r + "nil "; } else { r = r + "else"; }
r;`)
	expectString(t, res.val, "zero empty else")
}

// --- functions and scope ---

func TestRecursion(t *testing.T) {
	res := mustRun(t, `
fib = fn(n) { if n <= 1 { return n; } else { return fib(n-1) + fib(n-2); } };
fib(9);`)
	expectInt(t, res.val, 34)
}

func TestClosureCapturesLiveEnvironment(t *testing.T) {
	res := mustRun(t, `
make = fn() {
  c = 0;
  return fn() { c = c + 1; return c; };
};
a = make();
a(); a();
b = make();
b();
a();`)
	expectInt(t, res.val, 3)
}

func TestClosureSeesLaterBindings(t *testing.T) {
	res := mustRun(t, `
get = fn() { return later; };
later = 7;
get();`)
	expectInt(t, res.val, 7)
}

func TestScopeMutatesOuterBinding(t *testing.T) {
	res := mustRun(t, `
x = 1;
f = fn() { x = 2; };
f();
x;`)
	expectInt(t, res.val, 2)
}

func TestScopeParameterShadowsOuterBinding(t *testing.T) {
	res := mustRun(t, `
x = 1;
f = fn(x) { x = 5; return x; };
r = f(0);
x * 10 + r;`)
	expectInt(t, res.val, 15)
}

func TestLocalBindingDoesNotLeak(t *testing.T) {
	res := run(t, `
f = fn() { y = 3; };
f();
y;`)
	expectCode(t, res.err, diagnostics.EUnbound)
}

func TestFunctionWithoutReturnYieldsNil(t *testing.T) {
	expectNil(t, mustRun(t, "f = fn() { 1 + 1; }; f();").val)
	expectNil(t, mustRun(t, "f = fn() { return; }; f();").val)
}

func TestClosureName(t *testing.T) {
	res := mustRun(t, `add = fn(a, b) { return a + b; }; to_string(add);`)
	expectString(t, res.val, "<fn add(a, b)>")
}

// --- control flow ---

func TestLoopBreak(t *testing.T) {
	res := mustRun(t, `
counter = 0;
loop {
  counter = counter + 1;
  if counter == 3 { break; }
}
counter;`)
	expectInt(t, res.val, 3)
}

func TestWhileContinue(t *testing.T) {
	res := mustRun(t, `
i = 0; odd = 0;
while i < 10 {
  i = i + 1;
  if i % 2 == 0 { continue; }
  odd = odd + 1;
}
odd;`)
	expectInt(t, res.val, 5)
}

func TestForContinueRunsIncrement(t *testing.T) {
	res := mustRun(t, `
steps = 0;
step = fn(x) { steps = steps + 1; return x + 1; };
body = 0;
for (i = 0; i < 5; i = step(i)) {
  if i == 2 { continue; }
  body = body + 1;
}
steps * 10 + body;`)
	expectInt(t, res.val, 54)
}

func TestForBreakSkipsIncrement(t *testing.T) {
	res := mustRun(t, `
steps = 0;
step = fn(x) { steps = steps + 1; return x + 1; };
for (i = 0; i < 5; i = step(i)) {
  if i == 1 { break; }
}
steps;`)
	expectInt(t, res.val, 1)
}

func TestForScope(t *testing.T) {
	expectCode(t, run(t, "for (i = 0; i < 3; i = i + 1) { } i;").err, diagnostics.EUnbound)

	res := mustRun(t, `
total = 0;
for (i = 0; i < 4; i = i + 1) { total = total + i; }
total;`)
	expectInt(t, res.val, 6)
}

func TestForWithoutClauses(t *testing.T) {
	res := mustRun(t, `
n = 0;
for (;;) { n = n + 1; if n == 4 { break; } }
n;`)
	expectInt(t, res.val, 4)
}

func TestElseIfChain(t *testing.T) {
	src := `
classify = fn(n) {
  if n < 0 { return "neg"; } else if n == 0 { return "zero"; } else if n < 10 { return "small"; } else { return "big"; }
};
classify(-1) + classify(0) + classify(5) + classify(50);`
	expectString(t, mustRun(t, src).val, "negzerosmallbig")
}

func TestReturnFromInsideLoop(t *testing.T) {
	res := mustRun(t, `
find = fn(limit) { i = 0; loop { if i * i > limit { return i; } i = i + 1; } };
find(50);`)
	expectInt(t, res.val, 8)
}

func TestTopLevelReturnEndsProgram(t *testing.T) {
	res := mustRun(t, `x = 1; return x + 1; print("unreachable");`)
	expectInt(t, res.val, 2)
	if res.stdout != "" {
		t.Errorf("expected no output, got %q", res.stdout)
	}
}

func TestProgramValueIsLastStatement(t *testing.T) {
	expectInt(t, mustRun(t, "x = 1; x + 41;").val, 42)
	expectInt(t, mustRun(t, "x = 9;").val, 9)
	expectNil(t, mustRun(t, "").val)
}

// --- built-ins ---

func TestBuiltins(t *testing.T) {
	expectInt(t, mustRun(t, "round(6.5);").val, 7)
	expectInt(t, mustRun(t, "round(-2.5);").val, -3)
	expectInt(t, mustRun(t, "abs(-5);").val, 5)
	expectBool(t, mustRun(t, "max(5, 15, 10) == 15;").val, true)
	expectBool(t, mustRun(t, `int("6") + 5 == 11;`).val, true)
	expectBool(t, mustRun(t, `int("abc") == nil;`).val, true)
}

func TestPrint(t *testing.T) {
	res := mustRun(t, `print("a", 1, 2.5, nil, true); print(); print(1.0, 0.1 + 0.2);`)
	want := "a 1 2.5 nil true\n\n1 0.30000000000000004\n"
	if res.stdout != want {
		t.Errorf("got %q, want %q", res.stdout, want)
	}
}

func TestInput(t *testing.T) {
	lines := []string{"alice"}
	var prompts []string
	opts := evaluator.Options{Input: func(prompt string) (string, bool, error) {
		prompts = append(prompts, prompt)
		if len(lines) == 0 {
			return "", false, nil
		}
		line := lines[0]
		lines = lines[1:]
		return line, true, nil
	}}

	res := runWith(t, `name = input("who? "); rest = input(); "hi " + name + " " + rest;`, opts)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	expectString(t, res.val, "hi alice nil")
	if len(prompts) != 2 || prompts[0] != "who? " || prompts[1] != "" {
		t.Errorf("got prompts %q", prompts)
	}
}

func TestExit(t *testing.T) {
	res := run(t, `print("before"); exit(3); print("after");`)
	var exitErr *evaluator.ExitError
	if !errors.As(res.err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", res.err, res.err)
	}
	if exitErr.Code != 3 {
		t.Errorf("got exit code %d, want 3", exitErr.Code)
	}
	if res.stdout != "before\n" {
		t.Errorf("got stdout %q", res.stdout)
	}
}

func TestExitFromNestedCall(t *testing.T) {
	res := run(t, `f = fn() { loop { exit(); } }; f();`)
	var exitErr *evaluator.ExitError
	if !errors.As(res.err, &exitErr) || exitErr.Code != 0 {
		t.Fatalf("expected exit code 0, got %v", res.err)
	}
}

func TestExec(t *testing.T) {
	expectInt(t, mustRun(t, `x = 10; exec("y = x + 1; y * 2;");`).val, 22)
	expectInt(t, mustRun(t, `x = 1; exec("x = 5;"); x;`).val, 5)
	expectInt(t, mustRun(t, `exec("return 4; 5;");`).val, 4)
	expectCode(t, run(t, `exec("z = 1;"); z;`).err, diagnostics.EUnbound)
	expectCode(t, run(t, `exec("break;");`).err, diagnostics.EControl)

	res := mustRun(t, `exec("x = ;");`)
	if s, ok := res.val.(evaluator.StrValue); !ok || s.Value == "" {
		t.Errorf("expected parse error message string, got %s", evaluator.Stringify(res.val))
	}
}

func TestExecSeesCallerLocals(t *testing.T) {
	res := mustRun(t, `
f = fn(a) { return exec("a * 3;"); };
f(4);`)
	expectInt(t, res.val, 12)
}

// --- runtime errors ---

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"int division by zero", "1 / 0;", diagnostics.EDivZero},
		{"float division by zero", "1.5 / 0.0;", diagnostics.EDivZero},
		{"modulo by zero", "5 % 0;", diagnostics.EDivZero},
		{"undefined call", "undefined_fn();", diagnostics.EUnbound},
		{"undefined name", "y = x + 1;", diagnostics.EUnbound},
		{"string minus int", `"a" - 1;`, diagnostics.EType},
		{"negate string", `-"a";`, diagnostics.EType},
		{"compare mixed", `1 < "2";`, diagnostics.EType},
		{"closure arity", "f = fn(a) { }; f(1, 2);", diagnostics.EArity},
		{"builtin arity", "abs();", diagnostics.EArity},
		{"max needs two", "max(1);", diagnostics.EArity},
		{"not callable", "x = 1; x();", diagnostics.ENotCallable},
		{"top-level break", "break;", diagnostics.EControl},
		{"continue escapes function", "f = fn() { continue; }; loop { f(); }", diagnostics.EControl},
		{"builtin type error", `abs("x");`, diagnostics.EType},
		{"exit with string", `exit("no");`, diagnostics.EType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, run(t, tt.src).err, tt.code)
		})
	}
}

func TestRuntimeErrorSpan(t *testing.T) {
	rtErr := expectCode(t, run(t, "x = 1;\ny = x / 0;").err, diagnostics.EDivZero)
	if rtErr.Span == nil || rtErr.Span.StartLine != 2 {
		t.Errorf("got span %+v, want line 2", rtErr.Span)
	}
	if d := rtErr.Diagnostic(); d.Code != diagnostics.EDivZero || d.Span == nil {
		t.Errorf("got diagnostic %+v", d)
	}

	rtErr = expectCode(t, run(t, "\n\nabs(nil);").err, diagnostics.EType)
	if rtErr.Span == nil || rtErr.Span.StartLine != 3 {
		t.Errorf("builtin error span %+v, want line 3", rtErr.Span)
	}
}

func TestErrorStopsEvaluation(t *testing.T) {
	res := run(t, `print("one"); 1 / 0; print("two");`)
	expectCode(t, res.err, diagnostics.EDivZero)
	if res.stdout != "one\n" {
		t.Errorf("got stdout %q", res.stdout)
	}
}

func TestCallDepthLimit(t *testing.T) {
	res := runWith(t, "f = fn(n) { return f(n + 1); }; f(0);", evaluator.Options{
		Limits: evaluator.Limits{MaxCallDepth: 50},
	})
	expectCode(t, res.err, diagnostics.EStack)

	res = runWith(t, "f = fn(n) { if n == 0 { return 0; } return f(n - 1); }; f(40);", evaluator.Options{
		Limits: evaluator.Limits{MaxCallDepth: 50},
	})
	if res.err != nil {
		t.Fatalf("unexpected error within limit: %v", res.err)
	}
}

func TestCancelledContext(t *testing.T) {
	prog, err := parser.Parse("loop { }", "test.ss")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = evaluator.Execute(ctx, prog, stdlib.NewRootEnv(), evaluator.Options{})
	expectCode(t, err, diagnostics.ECancelled)
}

func TestSharedEnvironmentAcrossExecutions(t *testing.T) {
	env := stdlib.NewRootEnv()
	for _, src := range []string{"x = 40;", "inc = fn() { x = x + 1; };", "inc(); inc();"} {
		prog, err := parser.Parse(src, "repl")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := evaluator.Execute(context.Background(), prog, env, evaluator.Options{}); err != nil {
			t.Fatal(err)
		}
	}
	val, _ := env.Get("x")
	expectInt(t, val, 42)
}

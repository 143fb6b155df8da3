package formatter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/thomasrohde/scriptyscript/pkg/ast"
	"github.com/thomasrohde/scriptyscript/pkg/parser"
)

var astOpts = cmp.Options{
	cmpopts.IgnoreTypes(ast.Span{}),
	cmpopts.EquateEmpty(),
}

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(src, "test.ss")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return prog
}

func TestFormatOutput(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", ""},
		{"assign", "x=1+2*3;", "x = 1 + 2 * 3;\n"},
		{"grouping kept", "x = (1 + 2) * 3;", "x = (1 + 2) * 3;\n"},
		{"redundant parens dropped", "x = (a * b) + c;", "x = a * b + c;\n"},
		{"right assoc parens", "x = a - (b - c);", "x = a - (b - c);\n"},
		{"logical", "ok = a and not b or c;", "ok = a and not b or c;\n"},
		{"negated literal", "x = - 5;", "x = - 5;\n"},
		{"signed literal", "x = -5;", "x = -5;\n"},
		{"double neg", "x = - -5;", "x = - -5;\n"},
		{"float", "y = 2.0;", "y = 2.0;\n"},
		{"scientific", "y = 1.5e3;", "y = 1500.0;\n"},
		{"hex", "y = 0xff;", "y = 255;\n"},
		{"string escapes", `s = "a\"b\\c\n\t";`, `s = "a\"b\\c\n\t";` + "\n"},
		{"bare return", "return;", "return;\n"},
		{"call", "print(1,\"a\" ,x);", "print(1, \"a\", x);\n"},
		{
			"fn",
			"add = fn(a,b){return a+b;};",
			"add = fn(a, b) {\n  return a + b;\n};\n",
		},
		{
			"empty fn",
			"f = fn() {};",
			"f = fn() {};\n",
		},
		{
			"if chain",
			"if a { x = 1; } else if b { x = 2; } else { x = 3; }",
			"if a {\n  x = 1;\n} else if b {\n  x = 2;\n} else {\n  x = 3;\n}\n",
		},
		{
			"for",
			"for(i=0;i<3;i=i+1){print(i);}",
			"for (i = 0; i < 3; i = i + 1) {\n  print(i);\n}\n",
		},
		{
			"for empty header",
			"for (;;) { break; }",
			"for (;;) {\n  break;\n}\n",
		},
		{
			"loop in while",
			"while true { loop { continue; } }",
			"while true {\n  loop {\n    continue;\n  }\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(mustParse(t, tt.src))
			if got != tt.want {
				t.Errorf("Format mismatch\n got: %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	sources := []string{
		"x = 1 + 2 * 3 - 4 / 2 % 3;",
		"x = (1 + 2) * (3 - 4);",
		"x = a - (b - c) - d;",
		"x = not (a and b) or c == d != e;",
		"x = -5; y = - 5; z = - -5; w = -x; v = - - x;",
		"x = -9223372036854775808;",
		"x = 0.5; y = -0.0; z = 1e999; w = 0.000001;",
		`s = "tab\tnl\nquote\"bs\\ \u0001 é";`,
		"fib = fn(n) { if n < 2 { return n; } return fib(n - 1) + fib(n - 2); }; print(fib(9));",
		"i = 0; loop { i = i + 1; if i >= 3 { break; } }",
		"for (i = 0; i < 10; i = i + 1) { if i % 2 == 0 { continue; } print(i); }",
		"make = fn() { c = 0; return fn() { c = c + 1; return c; }; };",
		"if x > 1 { a(); } else if x > 0 { b(); } else { c(); }",
		"while not done { done = step(); }",
		"print(true, false, nil);",
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			first := mustParse(t, src)
			formatted := Format(first)
			second := mustParse(t, formatted)
			if diff := cmp.Diff(first, second, astOpts); diff != "" {
				t.Errorf("AST changed after formatting (-before +after):\n%s\nformatted:\n%s", diff, formatted)
			}
			if again := Format(second); again != formatted {
				t.Errorf("formatting is not idempotent:\n%s\nvs\n%s", formatted, again)
			}
		})
	}
}

func TestFormatFloatLiteral(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2.0"},
		{0.25, "0.25"},
		{-1.5, "-1.5"},
		{1e21, "1000000000000000000000.0"},
	}
	for _, tt := range tests {
		if got := formatFloatLiteral(tt.in); got != tt.want {
			t.Errorf("formatFloatLiteral(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHasComments(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"x = 1;", false},
		{"x = 1; // note", true},
		{"/* block */ x = 1;", true},
		{`s = "http://example.com";`, false},
		{`s = "a\"//b";`, false},
		{"x = 4 / 2;", false},
	}
	for _, tt := range tests {
		if got := HasComments(tt.src); got != tt.want {
			t.Errorf("HasComments(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

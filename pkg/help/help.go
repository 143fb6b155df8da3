// Package help holds the ScriptyScript quick reference and topic pages shown
// by `ss help` and the REPL's :help command.
package help

import (
	"fmt"
	"strings"

	"github.com/thomasrohde/scriptyscript/pkg/stdlib"
)

// Version is reported in the quick reference and by `ss --version`.
const Version = "v0.3"

// QUICKREF is the short overview printed by `ss help` with no topic.
const QUICKREF = `ScriptyScript ` + Version + ` quick reference

  x = 1 + 2 * 3;              assignment declares on first use
  if x > 5 { ... } else { }   if / else if / else
  while cond { ... }          loop { ... }   for (i = 0; i < n; i = i + 1) { ... }
  break; continue; return v;
  add = fn(a, b) { return a + b; };   closures capture their scope
  print("n =", add(1, 2));

Values: int float string bool nil function
Falsy:  nil and false only

Topics (ss help <topic>):
  syntax types flow functions builtins diagnostics repl examples
`

// TopicList is the display order of the help topics.
var TopicList = []string{"syntax", "types", "flow", "functions", "builtins", "diagnostics", "repl", "examples"}

// Topics maps topic names to their content.
var Topics = map[string]string{
	"syntax": `SYNTAX

Statements end with ';' except block statements (if, while, loop, for).
Comments: // to end of line, /* block */.

Literals
  42  -7  0b1010  0xFF        integers (64-bit)
  3.14  2.5e3  1E9            floats
  "text\n"                    strings; escapes \" \\ \n \r \t \uXXXX
  true false nil

Operators, lowest to highest precedence
  and or
  == !=
  < <= > >=
  + -
  * / %
  -x  not x
Parentheses group: (1 + 2) * 3
`,

	"types": `TYPES

  int       64-bit signed integer; int / int truncates
  float     64-bit IEEE float; any float operand promotes the result
  string    immutable text; + with a string operand concatenates
  bool      true or false
  nil       absence of a value
  function  closures from fn(...) { ... } and built-ins

Equality compares int and float numerically; other mixed kinds are unequal.
Only nil and false are falsy; 0 and "" are truthy.
`,

	"flow": `CONTROL FLOW

  if cond { ... } else if other { ... } else { ... }
  while cond { ... }
  loop { ... }                       runs until break or return
  for (i = 0; i < 10; i = i + 1) { ... }

break leaves the innermost loop. continue starts the next iteration; in a
for loop the increment still runs. The for header's variable is scoped to
the loop. return leaves the current function, or ends the program at top
level.
`,

	"functions": `FUNCTIONS

  square = fn(x) { return x * x; };
  square(4);                          16

Functions are values. Calling one runs its body in a new scope whose parent
is the scope where fn was evaluated, so closures see and update captured
variables:

  counter = fn() { n = 0; return fn() { n = n + 1; return n; }; };
  next = counter(); next(); next();   2

A function without return yields nil. Argument counts must match exactly.
`,

	"diagnostics": `DIAGNOSTICS

  E_LEX          malformed token (bad escape, unterminated string or comment)
  E_PARSE        syntax error; lists the expected tokens
  E_UNBOUND      name is not defined
  E_TYPE         operand or argument of the wrong type
  E_ARITY        wrong number of arguments
  E_DIV_ZERO     integer or float division or modulo by zero
  E_NOT_CALLABLE calling a value that is not a function
  E_CONTROL      break or continue outside a loop
  E_STACK        call depth limit exceeded
  E_DUP_PARAM    a function lists the same parameter twice (ss check)
  E_IO           reading input or writing output failed
  E_BUILTIN      a built-in failed unexpectedly
  E_CANCELLED    execution was interrupted

Exit codes: 2 for parse errors, 4 for runtime errors, n for exit(n).
`,

	"repl": `REPL

Start with 'ss' or 'ss repl'. Each line is a full program run in one
persistent scope, so definitions carry over. The value of a trailing
expression is echoed unless it is nil.

  :help [topic]   show help
  :quit           leave (Ctrl-D works too)

An unfinished input (open block or string) continues on a '... ' prompt.
Ctrl-C discards it; during evaluation Ctrl-C cancels the running program.

Configuration is read from --config, else ./.ss.yaml, else
~/.config/scriptyscript/config.yaml:

  repl:
    prompt: "ss> "
    history_file: ~/.ss_history
    history_limit: 1000
  log:
    level: warn        # debug, info, warn, error
    format: text       # text or json
  limits:
    max_call_depth: 10000
  builtins:
    deny: [exec]       # names removed from the global scope
`,

	"examples": `EXAMPLES

  fib = fn(n) {
    if n < 2 { return n; }
    return fib(n - 1) + fib(n - 2);
  };
  print(fib(20));

  total = 0;
  for (i = 1; i <= 100; i = i + 1) {
    if i % 3 == 0 or i % 5 == 0 { total = total + i; }
  }
  print("sum:", total);

  name = input("name? ");
  if name != nil { print("hello, " + name); }
`,
}

// The builtins page is generated from the registry docs.
func init() {
	Topics["builtins"] = BuiltinsIndex()
}

// MatchTopic resolves a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	default:
		return "", "", fmt.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
	}
}

// BuiltinsIndex lists every default built-in with its documentation line.
func BuiltinsIndex() string {
	r := stdlib.NewRegistry()
	stdlib.RegisterDefaults(r)

	var sb strings.Builder
	sb.WriteString("BUILT-INS\n\n")
	names := r.Names()
	for _, name := range names {
		fmt.Fprintf(&sb, "  %-10s %s\n", name, r.Get(name).Doc)
	}
	fmt.Fprintf(&sb, "\nTotal: %d functions\n", len(names))
	return sb.String()
}

package stdlib

import (
	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
)

// RegisterDefaults adds all built-ins.
func RegisterDefaults(r *Registry) {
	// I/O
	r.Register(Fn{Name: "print", MinArgs: 0, MaxArgs: Variadic, Execute: builtinPrint,
		Doc: "print(values...) writes the values separated by spaces and a newline"})
	r.Register(Fn{Name: "input", MinArgs: 0, MaxArgs: 1, Execute: builtinInput,
		Doc: "input(prompt) writes prompt and reads one line; nil at end of input"})
	r.Register(Fn{Name: "exit", MinArgs: 0, MaxArgs: 1, Execute: builtinExit,
		Doc: "exit(code) stops the program with the given status (default 0)"})

	// Conversions
	r.Register(Fn{Name: "to_string", MinArgs: 1, MaxArgs: 1, Execute: builtinToString,
		Doc: "to_string(value) returns the printed form of value"})
	r.Register(Fn{Name: "string", MinArgs: 1, MaxArgs: 1, Execute: builtinToString,
		Doc: "string(value) is an alias of to_string"})
	r.Register(Fn{Name: "int", MinArgs: 1, MaxArgs: 1, Execute: builtinInt,
		Doc: "int(value) converts to an integer; a string must be plain decimal digits, else nil"})
	r.Register(Fn{Name: "float", MinArgs: 1, MaxArgs: 1, Execute: builtinFloat,
		Doc: "float(value) converts to a float; nil if a string does not parse"})

	// Math
	r.Register(Fn{Name: "max", MinArgs: 2, MaxArgs: Variadic, Execute: builtinMax,
		Doc: "max(a, b, ...) returns the largest number; the last one wins a tie"})
	r.Register(Fn{Name: "min", MinArgs: 2, MaxArgs: Variadic, Execute: builtinMin,
		Doc: "min(a, b, ...) returns the smallest number; the last one wins a tie"})
	r.Register(Fn{Name: "round", MinArgs: 1, MaxArgs: 1, Execute: builtinRound,
		Doc: "round(x) rounds to the nearest integer, halves away from zero"})
	r.Register(Fn{Name: "abs", MinArgs: 1, MaxArgs: 1, Execute: builtinAbs,
		Doc: "abs(x) returns the absolute value"})

	// Meta
	r.Register(Fn{Name: "exec", MinArgs: 1, MaxArgs: 1, Execute: builtinExec,
		Doc: "exec(code) runs code in a child scope and returns its last value"})
}

func typeError(call *evaluator.Call, want string, got evaluator.Value) error {
	return evaluator.Errorf(diagnostics.EType, "%s: expected %s, got %s", call.Name, want, evaluator.TypeName(got))
}

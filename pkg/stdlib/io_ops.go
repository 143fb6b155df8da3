package stdlib

import (
	"io"
	"strings"

	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
)

// print(values...) → nil
func builtinPrint(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = evaluator.Stringify(a)
	}
	if _, err := io.WriteString(call.Stdout, strings.Join(parts, " ")+"\n"); err != nil {
		return nil, evaluator.Errorf(diagnostics.EIO, "print: %v", err)
	}
	return evaluator.NewNil(), nil
}

// input(prompt) → string | nil
func builtinInput(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	prompt := ""
	if len(args) == 1 {
		prompt = evaluator.Stringify(args[0])
	}
	line, ok, err := call.Input(prompt)
	if err != nil {
		return nil, evaluator.Errorf(diagnostics.EIO, "input: %v", err)
	}
	if !ok {
		return evaluator.NewNil(), nil
	}
	return evaluator.NewString(strings.TrimRight(line, "\r\n")), nil
}

// exit(code) never returns a value; it unwinds with *evaluator.ExitError.
func builtinExit(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	if len(args) == 0 {
		return nil, &evaluator.ExitError{Code: 0}
	}
	switch v := args[0].(type) {
	case evaluator.NilValue:
		return nil, &evaluator.ExitError{Code: 0}
	case evaluator.IntValue:
		return nil, &evaluator.ExitError{Code: int(v.Value)}
	}
	return nil, typeError(call, "int", args[0])
}

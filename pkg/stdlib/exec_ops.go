package stdlib

import (
	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
	"github.com/thomasrohde/scriptyscript/pkg/parser"
)

// ExecFilename names source passed to exec() in diagnostics.
const ExecFilename = "<exec>"

// exec(code) → value of the last statement. Source that does not parse
// yields the parse error message as a string instead of aborting the caller.
func builtinExec(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	code, ok := args[0].(evaluator.StrValue)
	if !ok {
		return nil, typeError(call, "string", args[0])
	}
	prog, err := parser.Parse(code.Value, ExecFilename)
	if err != nil {
		return evaluator.NewString(err.Error()), nil
	}
	return call.Exec(prog)
}

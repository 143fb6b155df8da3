package stdlib

import (
	"math"
	"strconv"

	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
)

// to_string(value) → string
func builtinToString(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	return evaluator.NewString(evaluator.Stringify(args[0])), nil
}

// int(value) → int | nil
func builtinInt(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	switch v := args[0].(type) {
	case evaluator.IntValue:
		return v, nil
	case evaluator.FloatValue:
		t := math.Trunc(v.Value)
		if math.IsNaN(t) || t < math.MinInt64 || t >= math.MaxInt64 {
			return evaluator.NewNil(), nil
		}
		return evaluator.NewInt(int64(t)), nil
	case evaluator.BoolValue:
		if v.Value {
			return evaluator.NewInt(1), nil
		}
		return evaluator.NewInt(0), nil
	case evaluator.StrValue:
		// Only plain decimal digits: no sign, no surrounding whitespace.
		n, err := strconv.ParseUint(v.Value, 10, 64)
		if err != nil || n > math.MaxInt64 {
			return evaluator.NewNil(), nil
		}
		return evaluator.NewInt(int64(n)), nil
	case evaluator.NilValue:
		return v, nil
	}
	return nil, typeError(call, "number, string or bool", args[0])
}

// float(value) → float | nil
func builtinFloat(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	switch v := args[0].(type) {
	case evaluator.IntValue:
		return evaluator.NewFloat(float64(v.Value)), nil
	case evaluator.FloatValue:
		return v, nil
	case evaluator.BoolValue:
		if v.Value {
			return evaluator.NewFloat(1), nil
		}
		return evaluator.NewFloat(0), nil
	case evaluator.StrValue:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return evaluator.NewNil(), nil
		}
		return evaluator.NewFloat(f), nil
	case evaluator.NilValue:
		return v, nil
	}
	return nil, typeError(call, "number, string or bool", args[0])
}

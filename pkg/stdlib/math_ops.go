package stdlib

import (
	"math"

	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
)

// max(a, b, ...) → the largest argument, unchanged
func builtinMax(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	return extremum(call, args, func(a, b float64) bool { return a > b })
}

// min(a, b, ...) → the smallest argument, unchanged
func builtinMin(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	return extremum(call, args, func(a, b float64) bool { return a < b })
}

// extremum scans from the last argument backwards and keeps the current best
// unless an earlier argument strictly beats it, so on a tie the last
// argument wins.
func extremum(call *evaluator.Call, args []evaluator.Value, better func(a, b float64) bool) (evaluator.Value, error) {
	last := len(args) - 1
	best := args[last]
	bestNum, ok := evaluator.ToFloat(best)
	if !ok {
		return nil, typeError(call, "number", best)
	}
	for i := last - 1; i >= 0; i-- {
		n, ok := evaluator.ToFloat(args[i])
		if !ok {
			return nil, typeError(call, "number", args[i])
		}
		if better(n, bestNum) {
			best, bestNum = args[i], n
		}
	}
	return best, nil
}

// round(x) → int
func builtinRound(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	switch v := args[0].(type) {
	case evaluator.IntValue:
		return v, nil
	case evaluator.FloatValue:
		r := math.Round(v.Value)
		if math.IsNaN(r) || r < math.MinInt64 || r >= math.MaxInt64 {
			return nil, evaluator.Errorf(diagnostics.EType, "round: %s is out of integer range", evaluator.Stringify(v))
		}
		return evaluator.NewInt(int64(r)), nil
	}
	return nil, typeError(call, "number", args[0])
}

// abs(x) → number
func builtinAbs(call *evaluator.Call, args []evaluator.Value) (evaluator.Value, error) {
	switch v := args[0].(type) {
	case evaluator.IntValue:
		if v.Value == math.MinInt64 {
			return nil, evaluator.Errorf(diagnostics.EType, "abs: %d is out of integer range", v.Value)
		}
		if v.Value < 0 {
			return evaluator.NewInt(-v.Value), nil
		}
		return v, nil
	case evaluator.FloatValue:
		return evaluator.NewFloat(math.Abs(v.Value)), nil
	}
	return nil, typeError(call, "number", args[0])
}

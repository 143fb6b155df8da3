// Package evaluator implements the ScriptyScript tree-walking evaluator.
package evaluator

import (
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/scriptyscript/pkg/ast"
)

// Value is the interface for all runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// NilValue represents nil.
type NilValue struct{}

func (NilValue) value() {}

// BoolValue represents a boolean value.
type BoolValue struct {
	Value bool
}

func (BoolValue) value() {}

// IntValue represents a 64-bit signed integer.
type IntValue struct {
	Value int64
}

func (IntValue) value() {}

// FloatValue represents a 64-bit float.
type FloatValue struct {
	Value float64
}

func (FloatValue) value() {}

// StrValue represents a string value.
type StrValue struct {
	Value string
}

func (StrValue) value() {}

// Closure is a user-defined function together with the environment it was
// created in. Env is a live reference: bindings added to it after the
// closure was created are visible inside the body.
type Closure struct {
	Name   string // name of the first binding, empty for anonymous functions
	Params []string
	Body   *ast.Block
	Env    *Env
}

func (*Closure) value() {}

// NativeFunction is a built-in implemented in Go. MaxArgs of -1 means variadic.
type NativeFunction struct {
	Name    string
	MinArgs int
	MaxArgs int
	Fn      NativeFn
}

func (*NativeFunction) value() {}

// NativeFn is the Go implementation of a built-in.
type NativeFn func(call *Call, args []Value) (Value, error)

// NewNil creates a nil value.
func NewNil() Value {
	return NilValue{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return BoolValue{Value: b}
}

// NewInt creates an integer value.
func NewInt(n int64) Value {
	return IntValue{Value: n}
}

// NewFloat creates a float value.
func NewFloat(f float64) Value {
	return FloatValue{Value: f}
}

// NewString creates a string value.
func NewString(s string) Value {
	return StrValue{Value: s}
}

// Truthiness returns the boolean interpretation of a value.
// Only nil and false are falsy; 0 and "" are truthy.
func Truthiness(v Value) bool {
	switch val := v.(type) {
	case NilValue:
		return false
	case BoolValue:
		return val.Value
	default:
		return true
	}
}

// TypeName returns the user-facing name of the value's kind.
func TypeName(v Value) string {
	switch v.(type) {
	case NilValue:
		return "nil"
	case BoolValue:
		return "bool"
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StrValue:
		return "string"
	case *Closure:
		return "function"
	case *NativeFunction:
		return "builtin"
	default:
		return "unknown"
	}
}

// Stringify renders a value the way print and to_string show it.
func Stringify(v Value) string {
	switch val := v.(type) {
	case NilValue:
		return "nil"
	case BoolValue:
		if val.Value {
			return "true"
		}
		return "false"
	case IntValue:
		return strconv.FormatInt(val.Value, 10)
	case FloatValue:
		return formatFloat(val.Value)
	case StrValue:
		return val.Value
	case *Closure:
		name := val.Name
		if name == "" {
			name = "anonymous"
		}
		return "<fn " + name + "(" + strings.Join(val.Params, ", ") + ")>"
	case *NativeFunction:
		return "<builtin " + val.Name + ">"
	default:
		return "<unknown>"
	}
}

// formatFloat prints the shortest decimal that round-trips, without an
// exponent, so 1.0 prints as "1" and 0.1 as "0.1".
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Equal implements == . Integers and floats compare numerically; values of
// different kinds are never equal; functions compare by identity.
func Equal(a, b Value) bool {
	if af, bf, ok := numericPair(a, b); ok {
		if ai, aok := a.(IntValue); aok {
			if bi, bok := b.(IntValue); bok {
				return ai.Value == bi.Value
			}
		}
		return af == bf
	}

	switch av := a.(type) {
	case NilValue:
		_, ok := b.(NilValue)
		return ok
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av.Value == bv.Value
	case StrValue:
		bv, ok := b.(StrValue)
		return ok && av.Value == bv.Value
	case *Closure:
		bv, ok := b.(*Closure)
		return ok && av == bv
	case *NativeFunction:
		bv, ok := b.(*NativeFunction)
		return ok && av == bv
	}
	return false
}

// ToFloat returns the numeric value of an int or float.
func ToFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case IntValue:
		return float64(val.Value), true
	case FloatValue:
		return val.Value, true
	}
	return 0, false
}

func numericPair(a, b Value) (float64, float64, bool) {
	af, aok := ToFloat(a)
	bf, bok := ToFloat(b)
	return af, bf, aok && bok
}

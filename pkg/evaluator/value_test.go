package evaluator_test

import (
	"math"
	"testing"

	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
)

func TestTruthiness(t *testing.T) {
	tests := []struct {
		value    evaluator.Value
		expected bool
	}{
		{evaluator.NewNil(), false},
		{evaluator.NewBool(false), false},
		{evaluator.NewBool(true), true},
		{evaluator.NewInt(0), true},
		{evaluator.NewFloat(0), true},
		{evaluator.NewString(""), true},
		{&evaluator.Closure{}, true},
	}

	for i, tt := range tests {
		if got := evaluator.Truthiness(tt.value); got != tt.expected {
			t.Errorf("case %d (%s): got %v, want %v", i, evaluator.Stringify(tt.value), got, tt.expected)
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		value    evaluator.Value
		expected string
	}{
		{evaluator.NewNil(), "nil"},
		{evaluator.NewBool(true), "true"},
		{evaluator.NewInt(-42), "-42"},
		{evaluator.NewFloat(1), "1"},
		{evaluator.NewFloat(2.5), "2.5"},
		{evaluator.NewFloat(1e21), "1000000000000000000000"},
		{evaluator.NewFloat(math.Inf(-1)), "-inf"},
		{evaluator.NewFloat(math.NaN()), "NaN"},
		{evaluator.NewString("raw \"text\""), "raw \"text\""},
		{&evaluator.Closure{Params: []string{"x"}}, "<fn anonymous(x)>"},
		{&evaluator.NativeFunction{Name: "print"}, "<builtin print>"},
	}

	for _, tt := range tests {
		if got := evaluator.Stringify(tt.value); got != tt.expected {
			t.Errorf("got %q, want %q", got, tt.expected)
		}
	}
}

func TestEqual(t *testing.T) {
	c := &evaluator.Closure{}
	tests := []struct {
		a, b     evaluator.Value
		expected bool
	}{
		{evaluator.NewInt(1), evaluator.NewFloat(1), true},
		{evaluator.NewInt(math.MaxInt64), evaluator.NewInt(math.MaxInt64 - 1), false},
		{evaluator.NewString("a"), evaluator.NewString("a"), true},
		{evaluator.NewString("1"), evaluator.NewInt(1), false},
		{evaluator.NewNil(), evaluator.NewBool(false), false},
		{evaluator.NewNil(), evaluator.NewNil(), true},
		{c, c, true},
		{c, &evaluator.Closure{}, false},
	}

	for i, tt := range tests {
		if got := evaluator.Equal(tt.a, tt.b); got != tt.expected {
			t.Errorf("case %d: Equal(%s, %s) = %v, want %v", i,
				evaluator.Stringify(tt.a), evaluator.Stringify(tt.b), got, tt.expected)
		}
	}
}

func TestTypeName(t *testing.T) {
	names := map[string]evaluator.Value{
		"nil":      evaluator.NewNil(),
		"bool":     evaluator.NewBool(true),
		"int":      evaluator.NewInt(1),
		"float":    evaluator.NewFloat(1),
		"string":   evaluator.NewString(""),
		"function": &evaluator.Closure{},
		"builtin":  &evaluator.NativeFunction{},
	}
	for want, v := range names {
		if got := evaluator.TypeName(v); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestEnvAssignRules(t *testing.T) {
	root := evaluator.NewEnv(nil)
	root.Define("x", evaluator.NewInt(1))
	child := root.Child()

	// Assigning an existing outer name mutates the outer frame.
	child.Assign("x", evaluator.NewInt(2))
	if v, _ := root.Get("x"); !evaluator.Equal(v, evaluator.NewInt(2)) {
		t.Errorf("root x = %s, want 2", evaluator.Stringify(v))
	}

	// Assigning a new name binds it in the current frame only.
	child.Assign("y", evaluator.NewInt(3))
	if root.Has("y") {
		t.Error("y leaked into the root frame")
	}
	if !child.Has("y") {
		t.Error("y missing from the child frame")
	}

	// Define shadows.
	child.Define("x", evaluator.NewInt(9))
	if v, _ := root.Get("x"); !evaluator.Equal(v, evaluator.NewInt(2)) {
		t.Errorf("root x = %s after shadowing, want 2", evaluator.Stringify(v))
	}
	if child.Parent() != root {
		t.Error("child parent mismatch")
	}

	names := child.Names()
	if len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Errorf("got names %v, want [x y]", names)
	}
}

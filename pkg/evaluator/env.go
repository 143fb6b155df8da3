package evaluator

import "sort"

// Env is one frame of the scope chain. Frames are shared by pointer, so a
// closure and its defining scope see each other's writes.
type Env struct {
	bindings map[string]Value
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]Value),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Parent returns the enclosing frame, or nil for the root.
func (e *Env) Parent() *Env {
	return e.parent
}

// Get looks up a variable by name, traversing parent scopes.
func (e *Env) Get(name string) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		if val, ok := f.bindings[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// Define binds a variable in this frame, shadowing any outer binding.
func (e *Env) Define(name string, val Value) {
	e.bindings[name] = val
}

// Assign updates the nearest frame that already binds name. If no frame
// does, the name is defined in this frame.
func (e *Env) Assign(name string, val Value) {
	for f := e; f != nil; f = f.parent {
		if _, ok := f.bindings[name]; ok {
			f.bindings[name] = val
			return
		}
	}
	e.bindings[name] = val
}

// Has checks whether a variable is defined in this scope or any parent.
func (e *Env) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Names returns every visible name, sorted.
func (e *Env) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for f := e; f != nil; f = f.parent {
		for name := range f.bindings {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// LocalNames returns the names bound in this frame only, sorted.
func (e *Env) LocalNames() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package stdlib provides the ScriptyScript built-in function registry.
package stdlib

import (
	"sort"

	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
)

// Variadic marks a built-in that accepts any number of arguments past MinArgs.
const Variadic = -1

// Fn represents a built-in function.
type Fn struct {
	Name    string
	MinArgs int
	MaxArgs int
	Doc     string
	Execute evaluator.NativeFn
}

// Registry holds registered built-in functions.
type Registry struct {
	fns map[string]*Fn
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*Fn),
	}
}

// Register adds a built-in to the registry.
func (r *Registry) Register(fn Fn) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a built-in by name.
func (r *Registry) Get(name string) *Fn {
	return r.fns[name]
}

// All returns all registered built-ins.
func (r *Registry) All() map[string]*Fn {
	return r.fns
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install binds every registered built-in, except those named in deny, as a
// native function in env.
func (r *Registry) Install(env *evaluator.Env, deny ...string) {
	denied := make(map[string]bool, len(deny))
	for _, name := range deny {
		denied[name] = true
	}
	for name, fn := range r.fns {
		if denied[name] {
			continue
		}
		env.Define(name, &evaluator.NativeFunction{
			Name:    fn.Name,
			MinArgs: fn.MinArgs,
			MaxArgs: fn.MaxArgs,
			Fn:      fn.Execute,
		})
	}
}

// NewRootEnv returns a root environment holding the default built-ins.
func NewRootEnv(deny ...string) *evaluator.Env {
	r := NewRegistry()
	RegisterDefaults(r)
	env := evaluator.NewEnv(nil)
	r.Install(env, deny...)
	return env
}

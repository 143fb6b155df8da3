// Package runtime provides the top-level ScriptyScript runtime orchestrator.
package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/thomasrohde/scriptyscript/pkg/ast"
	"github.com/thomasrohde/scriptyscript/pkg/config"
	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
	"github.com/thomasrohde/scriptyscript/pkg/formatter"
	"github.com/thomasrohde/scriptyscript/pkg/parser"
	"github.com/thomasrohde/scriptyscript/pkg/stdlib"
	"github.com/thomasrohde/scriptyscript/pkg/validator"
)

// SessionFilename names REPL input in diagnostics.
const SessionFilename = "<repl>"

// Result holds the outcome of a program execution.
type Result struct {
	Value    evaluator.Value
	RunID    string
	Duration time.Duration

	// Echo reports whether an interactive shell should print Value: the
	// input ended in an expression statement with a non-nil value.
	Echo bool
}

// Runtime wires together all ScriptyScript components for program execution.
type Runtime struct {
	stdlib *stdlib.Registry
	stdout io.Writer
	input  evaluator.InputFunc
	logger *slog.Logger
	limits evaluator.Limits
	deny   []string
	runID  string
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdlib sets the built-in registry.
func WithStdlib(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.stdlib = r
	}
}

// WithStdout sets where print() writes.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithStdin makes input() read lines from r, writing prompts to stdout.
func WithStdin(r io.Reader) Option {
	return func(rt *Runtime) {
		rt.input = readerInput(r, func() io.Writer { return rt.stdout })
	}
}

// WithInput sets the line source used by input().
func WithInput(fn evaluator.InputFunc) Option {
	return func(rt *Runtime) {
		rt.input = fn
	}
}

// WithLogger sets the host logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithLimits sets execution limits.
func WithLimits(l evaluator.Limits) Option {
	return func(rt *Runtime) {
		rt.limits = l
	}
}

// WithDisabledBuiltins removes the named built-ins from the root environment.
func WithDisabledBuiltins(names ...string) Option {
	return func(rt *Runtime) {
		rt.deny = append(rt.deny, names...)
	}
}

// WithRunID fixes the run ID instead of generating one per run.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithConfig applies the limits and denied built-ins of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		rt.limits.MaxCallDepth = cfg.Limits.MaxCallDepth
		rt.deny = append(rt.deny, cfg.Builtins.Deny...)
	}
}

// New creates a new Runtime with the given options.
// By default the standard built-ins are registered, output is discarded and
// input() reports end of input.
func New(opts ...Option) *Runtime {
	stdlibReg := stdlib.NewRegistry()
	stdlib.RegisterDefaults(stdlibReg)

	rt := &Runtime{
		stdlib: stdlibReg,
		stdout: io.Discard,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		limits: evaluator.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Builtins returns the names bound in the root environment.
func (rt *Runtime) Builtins() []string {
	denied := make(map[string]bool, len(rt.deny))
	for _, name := range rt.deny {
		denied[name] = true
	}
	var names []string
	for _, name := range rt.stdlib.Names() {
		if !denied[name] {
			names = append(names, name)
		}
	}
	return names
}

// Run parses and executes a program in a fresh environment.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	return rt.run(ctx, source, filename, rt.globals(), rt.nextRunID())
}

func (rt *Runtime) run(ctx context.Context, source, filename string, env *evaluator.Env, runID string) (*Result, error) {
	logger := rt.logger.With("run_id", runID)
	start := time.Now()
	logger.Debug("run start", "file", filename, "bytes", len(source))

	program, err := parser.Parse(source, filename)
	if err != nil {
		logger.Debug("run end", "duration", time.Since(start), "error", err)
		return nil, newDiagnosticError(err)
	}

	value, err := evaluator.Execute(ctx, program, env, rt.execOptions(logger))
	res := &Result{Value: value, RunID: runID, Duration: time.Since(start)}
	if err != nil {
		logger.Debug("run end", "duration", res.Duration, "error", err)
		return res, err
	}
	res.Echo = endsInExpression(program) && !isNil(value)
	logger.Debug("run end", "duration", res.Duration, "result", evaluator.TypeName(value))
	return res, nil
}

// Check parses and validates a program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, err := parser.Parse(source, filename)
	if err != nil {
		return newDiagnosticError(err).Diagnostics
	}
	return validator.Validate(program, validator.WithGlobals(rt.Builtins()...))
}

// Format parses and formats a program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, err := parser.Parse(source, filename)
	if err != nil {
		return "", newDiagnosticError(err)
	}
	return formatter.Format(program), nil
}

// globals returns a frame for top-level bindings, parented to the frame
// holding the built-ins.
func (rt *Runtime) globals() *evaluator.Env {
	root := evaluator.NewEnv(nil)
	rt.stdlib.Install(root, rt.deny...)
	return root.Child()
}

func (rt *Runtime) nextRunID() string {
	if rt.runID != "" {
		return rt.runID
	}
	return uuid.NewString()
}

func (rt *Runtime) execOptions(logger *slog.Logger) evaluator.Options {
	return evaluator.Options{
		Stdout: rt.stdout,
		Input:  rt.input,
		Limits: rt.limits,
		Logger: logger,
	}
}

// Session evaluates successive inputs against one persistent environment.
type Session struct {
	rt  *Runtime
	env *evaluator.Env
	id  string
	n   int
}

// NewSession starts an interactive session.
func (rt *Runtime) NewSession() *Session {
	s := &Session{rt: rt, env: rt.globals(), id: rt.nextRunID()}
	rt.logger.Debug("session start", "session_id", s.id)
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Eval runs source in the session's environment. Bindings made by earlier
// inputs stay visible; a failed input keeps whatever it assigned before
// the error.
func (s *Session) Eval(ctx context.Context, source string) (*Result, error) {
	s.n++
	return s.rt.run(ctx, source, SessionFilename, s.env, fmt.Sprintf("%s/%d", s.id, s.n))
}

// Names lists the bindings the session has defined, in sorted order.
func (s *Session) Names() []string {
	return s.env.LocalNames()
}

// Lookup returns the value bound to name, including built-ins.
func (s *Session) Lookup(name string) (evaluator.Value, bool) {
	return s.env.Get(name)
}

func endsInExpression(program *ast.Program) bool {
	if len(program.Statements) == 0 {
		return false
	}
	_, ok := program.Statements[len(program.Statements)-1].(*ast.ExprStmt)
	return ok
}

func isNil(v evaluator.Value) bool {
	_, ok := v.(evaluator.NilValue)
	return v == nil || ok
}

// readerInput adapts r to an InputFunc. out is resolved per call so the
// prompt follows the runtime's current stdout.
func readerInput(r io.Reader, out func() io.Writer) evaluator.InputFunc {
	br := bufio.NewReader(r)
	return func(prompt string) (string, bool, error) {
		if prompt != "" {
			if _, err := io.WriteString(out(), prompt); err != nil {
				return "", false, errors.Wrap(err, "write prompt")
			}
		}
		line, err := br.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", false, errors.Wrap(err, "read input")
			}
			if line == "" {
				return "", false, nil
			}
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		return line, true, nil
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
	Err         error
}

func newDiagnosticError(err error) *DiagnosticError {
	var d diagnostics.Diagnoser
	if errors.As(err, &d) {
		return &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{d.Diagnostic()}, Err: err}
	}
	return &DiagnosticError{
		Diagnostics: []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EParse, err.Error(), nil, "")},
		Err:         err,
	}
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Unwrap returns the underlying parse error.
func (e *DiagnosticError) Unwrap() error {
	return e.Err
}

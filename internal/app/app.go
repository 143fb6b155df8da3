// Package app implements the ss command line: file runner, REPL, checker,
// formatter and help.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	goruntime "runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/thomasrohde/scriptyscript/pkg/config"
	"github.com/thomasrohde/scriptyscript/pkg/diagnostics"
	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
	"github.com/thomasrohde/scriptyscript/pkg/formatter"
	"github.com/thomasrohde/scriptyscript/pkg/help"
	"github.com/thomasrohde/scriptyscript/pkg/runtime"
	"github.com/thomasrohde/scriptyscript/pkg/stdlib"
)

// Process exit codes. A script calling exit(n) exits with n.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitParse   = 2
	ExitRuntime = 4
)

// Streams are the process's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type app struct {
	streams Streams
	cfg     *config.Config
	stdlib  *stdlib.Registry
	logger  *slog.Logger
	json    bool
}

// Main runs the command line described by args (including the program
// name) and returns the process exit code.
func Main(ctx context.Context, args []string, streams Streams) int {
	a := &app{streams: streams, cfg: config.Default()}
	err := a.newCLI().RunContext(ctx, args)
	if err == nil {
		return ExitOK
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	fmt.Fprintln(streams.Err, "error:", err)
	return ExitFailure
}

func (a *app) newCLI() *cli.App {
	return &cli.App{
		Name:      "ss",
		Usage:     "run ScriptyScript programs",
		UsageText: "ss [global options] [FILE]\n   ss [global options] command [arguments...]",
		Version:   help.Version,
		Reader:    a.streams.In,
		Writer:    a.streams.Out,
		ErrWriter: a.streams.Err,
		// Exit codes are resolved by Main.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML configuration file",
				EnvVars: []string{"SS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "host log level: debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "host log format: text or json",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print diagnostics as JSON",
			},
		},
		Before: a.before,
		Action: func(c *cli.Context) error {
			switch c.NArg() {
			case 0:
				return a.repl(c)
			case 1:
				return a.runFile(c, c.Args().First())
			default:
				return a.usageError(c, "expected at most one FILE argument")
			}
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "run a program file",
				ArgsUsage: "FILE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return a.usageError(c, "run expects exactly one FILE")
					}
					return a.runFile(c, c.Args().First())
				},
			},
			{
				Name:   "repl",
				Usage:  "start the interactive shell",
				Action: a.repl,
			},
			{
				Name:      "check",
				Usage:     "parse and validate files without running them",
				ArgsUsage: "FILE...",
				Action:    a.check,
			},
			{
				Name:      "fmt",
				Usage:     "print files in canonical form",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "write",
						Aliases: []string{"w"},
						Usage:   "rewrite the files in place",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "rewrite files even though their comments will be dropped",
					},
				},
				Action: a.format,
			},
			{
				Name:      "help",
				Usage:     "show the quick reference or a help topic",
				ArgsUsage: "[TOPIC]",
				Action:    a.help,
			},
		},
	}
}

func (a *app) before(c *cli.Context) error {
	a.json = c.Bool("json")
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	cfg, err := config.Load(c.String("config"), wd)
	if err != nil {
		return a.configError(err)
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return a.configError(err)
	}

	reg := stdlib.NewRegistry()
	stdlib.RegisterDefaults(reg)
	if err := cfg.CheckBuiltins(reg.Names()); err != nil {
		return a.configError(err)
	}

	a.cfg = cfg
	a.stdlib = reg
	a.logger = cfg.NewLogger(a.streams.Err)
	a.logger.Debug("config loaded", "source", cfg.Source)
	return nil
}

func (a *app) configError(err error) error {
	a.printDiags([]diagnostics.Diagnostic{
		diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "see `ss help repl` for configuration keys"),
	})
	return cli.Exit("", ExitFailure)
}

func (a *app) newRuntime(opts ...runtime.Option) *runtime.Runtime {
	base := []runtime.Option{
		runtime.WithConfig(a.cfg),
		runtime.WithLogger(a.logger),
		runtime.WithStdout(a.streams.Out),
	}
	if a.stdlib != nil {
		base = append(base, runtime.WithStdlib(a.stdlib))
	}
	return runtime.New(append(base, opts...)...)
}

func (a *app) runFile(c *cli.Context, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		a.printDiags([]diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", path), nil, ""),
		})
		return cli.Exit("", ExitFailure)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	rt := a.newRuntime(runtime.WithStdin(a.streams.In))
	_, err = rt.Run(ctx, string(source), path)
	return a.exitFor(err)
}

// exitFor reports err and converts it to the matching exit status.
func (a *app) exitFor(err error) error {
	if err == nil {
		return nil
	}
	var ee *evaluator.ExitError
	if errors.As(err, &ee) {
		return cli.Exit("", ee.Code)
	}
	var de *runtime.DiagnosticError
	if errors.As(err, &de) {
		a.printDiags(de.Diagnostics)
		return cli.Exit("", ExitParse)
	}
	var re *evaluator.RuntimeError
	if errors.As(err, &re) {
		a.printDiags([]diagnostics.Diagnostic{re.Diagnostic()})
		return cli.Exit("", ExitRuntime)
	}
	return a.fail(ExitFailure, err)
}

// printError reports err without deciding an exit status.
func (a *app) printError(err error) {
	var de *runtime.DiagnosticError
	var d diagnostics.Diagnoser
	switch {
	case errors.As(err, &de):
		a.printDiags(de.Diagnostics)
	case errors.As(err, &d):
		a.printDiags([]diagnostics.Diagnostic{d.Diagnostic()})
	default:
		fmt.Fprintln(a.streams.Err, "error:", err)
	}
}

func (a *app) printDiags(diags []diagnostics.Diagnostic) {
	fmt.Fprintln(a.streams.Err, diagnostics.FormatDiagnostics(diags, !a.json))
}

func (a *app) fail(code int, err error) error {
	fmt.Fprintln(a.streams.Err, "error:", err)
	return cli.Exit("", code)
}

func (a *app) usageError(c *cli.Context, msg string) error {
	fmt.Fprintf(a.streams.Err, "error: %s\n\n", msg)
	_ = cli.ShowAppHelp(c)
	return cli.Exit("", ExitFailure)
}

// readAll reads paths concurrently and returns their contents in order.
func readAll(ctx context.Context, paths []string) ([]string, error) {
	sources := make([]string, len(paths))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "cannot read file %s", path)
			}
			sources[i] = string(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

func (a *app) check(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return a.usageError(c, "check expects at least one FILE")
	}
	sources, err := readAll(c.Context, paths)
	if err != nil {
		return a.fail(ExitFailure, err)
	}

	rt := a.newRuntime()
	results := make([][]diagnostics.Diagnostic, len(paths))
	g, _ := errgroup.WithContext(c.Context)
	for i := range paths {
		g.Go(func() error {
			results[i] = rt.Check(sources[i], paths[i])
			return nil
		})
	}
	_ = g.Wait()

	var all []diagnostics.Diagnostic
	for _, diags := range results {
		all = append(all, diags...)
	}
	a.logger.Debug("check done", "files", len(paths), "diagnostics", len(all))

	if len(all) == 0 {
		if a.json {
			fmt.Fprintln(a.streams.Out, "[]")
		} else {
			fmt.Fprintln(a.streams.Out, "No errors found.")
		}
		return nil
	}
	a.printDiags(all)
	return cli.Exit("", ExitParse)
}

func (a *app) format(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return a.usageError(c, "fmt expects at least one FILE")
	}
	sources, err := readAll(c.Context, paths)
	if err != nil {
		return a.fail(ExitFailure, err)
	}

	rt := a.newRuntime()
	write := c.Bool("write")
	status := ExitOK
	for i, path := range paths {
		formatted, err := rt.Format(sources[i], path)
		if err != nil {
			a.printError(err)
			status = ExitParse
			continue
		}
		if formatter.HasComments(sources[i]) {
			if write && !c.Bool("force") {
				fmt.Fprintf(a.streams.Err, "%s: contains comments, which fmt would drop; use --force to rewrite anyway\n", path)
				status = ExitFailure
				continue
			}
			fmt.Fprintf(a.streams.Err, "warning: %s: comments are not preserved by the formatter\n", path)
		}
		if !write {
			fmt.Fprint(a.streams.Out, formatted)
			continue
		}
		if formatted == sources[i] {
			continue
		}
		if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
			fmt.Fprintln(a.streams.Err, "error:", errors.Wrapf(err, "write %s", path))
			status = ExitFailure
		}
	}
	if status != ExitOK {
		return cli.Exit("", status)
	}
	return nil
}

func (a *app) help(c *cli.Context) error {
	if c.NArg() == 0 {
		fmt.Fprint(a.streams.Out, help.QUICKREF)
		return nil
	}
	topic := strings.Join(c.Args().Slice(), " ")
	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(a.streams.Err, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return cli.Exit("", ExitFailure)
	}
	fmt.Fprint(a.streams.Out, content)
	return nil
}

package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/thomasrohde/scriptyscript/pkg/evaluator"
	"github.com/thomasrohde/scriptyscript/pkg/help"
	"github.com/thomasrohde/scriptyscript/pkg/parser"
	"github.com/thomasrohde/scriptyscript/pkg/runtime"
)

const continuationPrompt = "... "

// errAborted is returned by a lineReader when the user interrupts the
// current line.
var errAborted = errors.New("prompt aborted")

// lineReader is the part of liner.State the REPL loop uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// linerReader maps liner's abort error onto errAborted.
type linerReader struct {
	*liner.State
}

func (l linerReader) Prompt(prompt string) (string, error) {
	line, err := l.State.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", errAborted
	}
	return line, err
}

func (a *app) repl(c *cli.Context) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := a.cfg.HistoryPath()
	if histPath != "" && a.cfg.REPL.HistoryLimit > 0 {
		if err := loadHistory(ln, histPath, a.cfg.REPL.HistoryLimit); err != nil {
			a.logger.Debug("history not loaded", "path", histPath, "error", err)
		}
		defer func() {
			if err := saveHistory(ln, histPath, a.cfg.REPL.HistoryLimit); err != nil {
				a.logger.Warn("history not saved", "path", histPath, "error", err)
			}
		}()
	}

	return a.replLoop(c.Context, linerReader{ln})
}

// replLoop reads inputs until end of input or :quit. Each input is a full
// program evaluated in one session.
func (a *app) replLoop(ctx context.Context, lr lineReader) error {
	rt := a.newRuntime(runtime.WithInput(func(prompt string) (string, bool, error) {
		line, err := lr.Prompt(prompt)
		switch {
		case err == nil:
			return line, true, nil
		case errors.Is(err, io.EOF), errors.Is(err, errAborted):
			return "", false, nil
		default:
			return "", false, err
		}
	}))
	sess := rt.NewSession()
	a.logger.Debug("repl start", "session_id", sess.ID())

	fmt.Fprintf(a.streams.Out, "ScriptyScript %s. Type :help for help, :quit to exit.\n", help.Version)
	for {
		src, err := readInput(lr, a.cfg.REPL.Prompt)
		if errors.Is(err, errAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(a.streams.Out)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return a.fail(ExitFailure, err)
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		lr.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if quit := a.replCommand(trimmed); quit {
				return nil
			}
			continue
		}

		evalCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		res, err := sess.Eval(evalCtx, src)
		stop()
		if err != nil {
			var ee *evaluator.ExitError
			if errors.As(err, &ee) {
				return cli.Exit("", ee.Code)
			}
			a.printError(err)
			continue
		}
		if res.Echo {
			fmt.Fprintln(a.streams.Out, evaluator.Stringify(res.Value))
		}
	}
}

// readInput reads one complete input, prompting for continuation lines
// while the source so far ends in the middle of a construct.
func readInput(lr lineReader, prompt string) (string, error) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = continuationPrompt
		}
		line, err := lr.Prompt(p)
		if err != nil {
			if errors.Is(err, io.EOF) && b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, nil
		}
		_, perr := parser.Parse(src, runtime.SessionFilename)
		var pe *parser.ParseError
		if errors.As(perr, &pe) && pe.Incomplete() && strings.TrimSpace(src) != "" {
			continue
		}
		return src, nil
	}
}

// replCommand runs a colon command and reports whether the REPL should exit.
func (a *app) replCommand(cmd string) bool {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		if len(fields) == 1 {
			fmt.Fprint(a.streams.Out, help.QUICKREF)
			return false
		}
		_, content, err := help.MatchTopic(strings.Join(fields[1:], " "))
		if err != nil {
			fmt.Fprintf(a.streams.Out, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
			return false
		}
		fmt.Fprint(a.streams.Out, content)
	default:
		fmt.Fprintf(a.streams.Out, "unknown command %s. Type :help or :quit.\n", fields[0])
	}
	return false
}

// history is the part of liner.State that persists REPL history.
type history interface {
	ReadHistory(r io.Reader) (int, error)
	WriteHistory(w io.Writer) (int, error)
}

// loadHistory feeds the newest limit entries of the history file to h.
func loadHistory(h history, path string, limit int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = h.ReadHistory(strings.NewReader(lastLines(string(data), limit)))
	return errors.Wrap(err, "read history")
}

// saveHistory writes the newest limit entries of h to the history file.
func saveHistory(h history, path string, limit int) error {
	var buf bytes.Buffer
	if _, err := h.WriteHistory(&buf); err != nil {
		return errors.Wrap(err, "write history")
	}
	return os.WriteFile(path, []byte(lastLines(buf.String(), limit)), 0o600)
}

// lastLines keeps the newest limit non-empty lines of a history dump.
func lastLines(s string, limit int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSuffix(line, "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

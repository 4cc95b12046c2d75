// Package cliapp is the external CLI surface of spec §6: "interactive
// (terminal UI), execute <query>, or a positional query argument; absent
// arguments enter interactive mode. Exit codes: 0 success, 1 parse error,
// 2 execution error." Results are carried in a single Output value (exit
// code plus any error) rather than calling os.Exit deep in a call stack.
package cliapp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/termfx/fql/internal/engine"
	"github.com/termfx/fql/internal/keyval"
	"github.com/termfx/fql/internal/parser"
)

// Exit codes per spec §6.
const (
	ExitSuccess   = 0
	ExitParseErr  = 1
	ExitExecErr   = 2
)

// Output is the uniform result of running one CLI operation.
type Output struct {
	Text     string
	ExitCode int
	Err      error
}

// RunQuery parses src, executes it against eng, and renders the result as
// text. A parse failure exits 1; an execution failure exits 2.
func RunQuery(eng *engine.Engine, src string) Output {
	q, err := parser.Parse(src)
	if err != nil {
		return Output{ExitCode: ExitParseErr, Err: err}
	}

	res, err := eng.Execute(context.Background(), q)
	if err != nil {
		return Output{ExitCode: ExitExecErr, Err: err}
	}

	text, err := renderResult(res)
	if err != nil {
		return Output{ExitCode: ExitExecErr, Err: err}
	}
	return Output{Text: text, ExitCode: ExitSuccess}
}

func renderResult(res engine.Result) (string, error) {
	switch res.Kind {
	case engine.RWritten:
		return "OK\n", nil
	case engine.RCleared:
		return "OK (cleared)\n", nil
	case engine.RStamped:
		return "OK (versionstamped)\n", nil
	case engine.RSingle:
		if res.Pair == nil {
			return "(no match)\n", nil
		}
		return formatPair(*res.Pair) + "\n", nil
	case engine.RStream:
		var b strings.Builder
		n := 0
		for item := range res.Items {
			if item.Err != nil {
				if n > 0 {
					fmt.Fprintf(&b, "... %d pair(s) yielded before error\n", n)
				}
				return b.String(), item.Err
			}
			b.WriteString(formatPair(item.Pair))
			b.WriteByte('\n')
			n++
		}
		if n == 0 {
			return "(no matches)\n", nil
		}
		return b.String(), nil
	case engine.RListing:
		return strings.Join(res.Listing, "\n") + "\n", nil
	default:
		return "", fmt.Errorf("cliapp: unhandled result kind %d", res.Kind)
	}
}

func formatPair(kv keyval.KeyValue) string {
	return parser.Format(keyval.Query{Kind: keyval.QKeyValue, KeyValue: kv})
}

// Interactive runs a read-eval-print loop over in, writing results and
// prompts to out, until EOF or an "exit"/"quit" line.
func Interactive(eng *engine.Engine, in io.Reader, out io.Writer) int {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "fql> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(out, "fql> ")
			continue
		}
		if line == "exit" || line == "quit" {
			return ExitSuccess
		}
		res := RunQuery(eng, line)
		if res.Err != nil {
			fmt.Fprintf(out, "error: %v\n", res.Err)
		} else {
			fmt.Fprint(out, res.Text)
		}
		fmt.Fprint(out, "fql> ")
	}
	return ExitSuccess
}

// FormatQuery parses src and reformats it to canonical FQL text. If check
// is true and src is not already canonical, it returns a unified diff and
// exits 1 instead of rewriting anything, rather than silently accepting
// non-canonical input.
func FormatQuery(src string, check bool) Output {
	q, err := parser.Parse(src)
	if err != nil {
		return Output{ExitCode: ExitParseErr, Err: err}
	}
	canonical := parser.Format(q)

	if !check || canonical == src {
		return Output{Text: canonical + "\n", ExitCode: ExitSuccess}
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(src),
		B:        difflib.SplitLines(canonical),
		FromFile: "input",
		ToFile:   "canonical",
		Context:  2,
	}
	text, derr := difflib.GetUnifiedDiffString(diff)
	if derr != nil {
		return Output{ExitCode: ExitExecErr, Err: derr}
	}
	return Output{Text: text, ExitCode: ExitParseErr, Err: fmt.Errorf("input is not in canonical form")}
}

// Package engine evaluates plate description scripts. It wraps zygomys in a
// sandboxed environment and produces a PlateGraph from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/lamina/pkg/graph"
	"github.com/chazu/lamina/pkg/logging"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or a blocking graph
// validation finding.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandbox so results are deterministic.
type Engine struct {
	// Timeout bounds each evaluation; zero means EvalTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{Timeout: EvalTimeout}
}

// Evaluate runs a plate script and returns the plate graph it builds.
//
// Return semantics:
//   - On success: returns graph + nil errors + nil error
//   - On parse/eval/validation failure: returns nil graph + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*graph.PlateGraph, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		g, evalErrs, err := e.evaluate(source)
		ch <- evalResult{graph: g, errors: evalErrs, err: err}
	}()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	return waitWithTimeout(ch, gen, &e.mu, &e.generation, timeout)
}

func (e *Engine) evaluate(source string) (*graph.PlateGraph, []EvalError, error) {
	// Empty source is a valid program that produces an empty plate.
	if strings.TrimSpace(source) == "" {
		return graph.New(), nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	g := graph.New()
	registerBuiltins(env, g)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	var evalErrs []EvalError
	for _, v := range graph.Validate(g) {
		if v.Severity == graph.SeverityWarning {
			logging.Logger().Warn("plate validation", "finding", v.Error())
			continue
		}
		evalErrs = append(evalErrs, EvalError{Message: v.Error()})
	}
	if len(evalErrs) > 0 {
		return nil, evalErrs, nil
	}
	return g, nil, nil
}

// linePattern matches the "Error on line N: " header zygomys puts on
// parse and runtime errors.
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*`)

// linePatternShort matches a leading "line N: " header.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*`)

// parseZygomysError converts a zygomys error into EvalError values. The
// line header is lifted into EvalError.Line; the rest of the text, which
// may span several lines, becomes the message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if loc := re.FindStringSubmatchIndex(msg); loc != nil {
			line, _ := strconv.Atoi(msg[loc[2]:loc[3]])
			rest := msg[:loc[0]] + msg[loc[1]:]
			return []EvalError{{Line: line, Message: strings.TrimSpace(rest)}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

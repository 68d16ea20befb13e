// Package engine provides the Lisp evaluation engine for phantom assembly
// scripts. It wraps zygomys in a sandboxed environment and produces a
// graph.Assembly from user source code.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/blockphantom/pkg/graph"
	"github.com/chazu/blockphantom/pkg/phantom"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code. Err holds the
// underlying assembly error when a builtin failed, so callers can match it
// with errors.Is.
type EvalError struct {
	Line    int
	Col     int
	Message string
	Err     error
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func (e EvalError) Unwrap() error { return e.Err }

// EvalResult bundles an evaluation with the validation of its assembly.
type EvalResult struct {
	Assembly *graph.Assembly
	Errors   []EvalError
	Findings []graph.ValidationError
}

// OK reports whether the script ran and the assembly has no error findings.
func (r EvalResult) OK() bool {
	return r.Assembly != nil && len(r.Errors) == 0 && !graph.HasErrors(r.Findings)
}

// Engine wraps the zygomys interpreter for assembly scripts.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh assembly for determinism.
type Engine struct {
	kit     *phantom.Kit
	timeout time.Duration
	logger  *slog.Logger

	mu         sync.Mutex
	generation uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the hard limit for a single evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger handed to every assembly the engine builds.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine whose scripts build blocks from kit.
func NewEngine(kit *phantom.Kit, opts ...Option) *Engine {
	e := &Engine{
		kit:     kit,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the evaluation time limit.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// Evaluate takes Lisp source code and produces a new Assembly.
//
// Return semantics:
//   - On success: returns assembly + nil errors + nil error
//   - On parse/eval failure: returns nil assembly + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*graph.Assembly, []EvalError, error) {
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

		a, evalErrs, err := e.evaluate(source)
		ch <- evalResult{assembly: a, errors: evalErrs, err: err}
	}()

	return e.waitWithTimeout(ch, gen)
}

// Check evaluates source and validates the resulting assembly.
func (e *Engine) Check(source string) (EvalResult, error) {
	a, evalErrs, err := e.Evaluate(source)
	if err != nil {
		return EvalResult{}, err
	}
	res := EvalResult{Assembly: a, Errors: evalErrs}
	if a != nil {
		res.Findings = graph.Validate(a)
	}
	return res, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*graph.Assembly, []EvalError, error) {
	a := graph.New(e.kit, graph.WithLogger(e.logger))

	// Empty source is a valid program that produces an empty assembly.
	if strings.TrimSpace(source) == "" {
		return a, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	var failed builtinFailure
	registerBuiltins(env, a, &failed)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}

	if _, err := env.Run(); err != nil {
		evalErrs := parseZygomysError(err)
		if failed.err != nil {
			evalErrs[0].Err = failed.err
		}
		return nil, evalErrs, nil
	}

	e.logger.Debug("script evaluated", "nodes", a.NodeCount(), "joins", len(a.Joins()))
	return a, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// zygomys formats parse errors as "Error on line N: <details>\n".
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

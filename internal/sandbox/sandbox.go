// Package sandbox executes code artifacts under a wall-clock timeout.
//
// The contract is narrow on purpose: run code, capture output, report
// errors and timeouts as structured results. In-code failures are data,
// not pipeline errors. Only an unsupported or disallowed language
// rejects the operation.
//
// Go snippets run in an embedded yaegi interpreter; other languages run
// in an interpreter subprocess. Subprocesses are killed on timeout. The
// interpreter cannot be preempted mid-statement, so its timeout is
// cooperative: the result is abandoned and reported as a timeout while
// the evaluation goroutine winds down on its own.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Output is the structured result of one execution.
type Output struct {
	Stdout   string        `json:"output"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

// interpreters maps language tags to subprocess command lines reading
// the program from stdin.
var interpreters = map[string][]string{
	"python":     {"python3", "-"},
	"javascript": {"node", "-"},
	"js":         {"node", "-"},
	"sh":         {"sh", "-s"},
	"bash":       {"bash", "-s"},
}

// Runner executes code artifacts.
type Runner struct {
	timeout time.Duration
	allowed map[string]bool
	logger  *slog.Logger
}

// NewRunner creates a Runner. allowed lists the permitted language
// tags; an empty list permits none.
func NewRunner(timeout time.Duration, allowed []string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[string]bool, len(allowed))
	for _, l := range allowed {
		m[strings.ToLower(l)] = true
	}
	return &Runner{timeout: timeout, allowed: m, logger: logger}
}

// Run executes code in the given language and returns its captured
// output. Returns an error only when the language is unsupported or
// not allowed by configuration; execution failures and timeouts are
// reported inside Output.
func (r *Runner) Run(ctx context.Context, code, language string) (Output, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if !r.allowed[lang] {
		return Output{}, fmt.Errorf("language %q is not allowed", language)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	var out Output
	switch {
	case lang == "go" || lang == "golang":
		out = runGo(ctx, code)
	default:
		argv, ok := interpreters[lang]
		if !ok {
			return Output{}, fmt.Errorf("no interpreter for language %q", language)
		}
		out = runSubprocess(ctx, argv, code)
	}
	out.Duration = time.Since(start)

	r.logger.Debug("sandbox run finished",
		"language", lang,
		"duration", out.Duration,
		"timed_out", out.TimedOut)
	return out, nil
}

// runGo evaluates a Go snippet in a yaegi interpreter with the
// standard library available. Evaluation happens on its own goroutine
// so the caller can abandon it at the deadline.
func runGo(ctx context.Context, code string) Output {
	var stdout, stderr bytes.Buffer
	i := interp.New(interp.Options{Stdout: &stdout, Stderr: &stderr})
	if err := i.Use(stdlib.Symbols); err != nil {
		return Output{Err: fmt.Sprintf("loading interpreter symbols: %v", err)}
	}

	done := make(chan Output, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- Output{Stdout: stdout.String(), Err: fmt.Sprintf("panic: %v", p)}
			}
		}()

		_, err := i.EvalWithContext(ctx, code)
		o := Output{Stdout: stdout.String()}
		if msg := stderr.String(); msg != "" {
			o.Err = msg
		}
		if err != nil {
			o.Err = err.Error()
		}
		done <- o
	}()

	select {
	case o := <-done:
		if ctx.Err() != nil {
			o.TimedOut = true
		}
		return o
	case <-ctx.Done():
		return Output{Err: "execution timed out", TimedOut: true}
	}
}

// runSubprocess feeds code to an interpreter over stdin. The process
// is killed when the deadline passes.
func runSubprocess(ctx context.Context, argv []string, code string) Output {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(code)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	o := Output{Stdout: stdout.String()}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		o.Err = "execution timed out"
		o.TimedOut = true
	case err != nil:
		o.Err = err.Error()
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			o.Err = msg
		}
	}
	return o
}

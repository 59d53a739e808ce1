package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/koopa0/artivault/internal/config"
	"github.com/koopa0/artivault/internal/sandbox"
)

// extensionLanguages infers the language tag from a file extension
// when -lang is not given.
var extensionLanguages = map[string]string{
	".go":  "go",
	".py":  "python",
	".js":  "javascript",
	".sh":  "sh",
	".bsh": "bash",
}

// runRun executes a code file (or stdin with "-") in the sandbox.
func runRun(args []string) error {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	lang := flags.String("lang", "", "language of the code")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parsing run flags: %w", err)
	}

	if flags.NArg() != 1 {
		return errors.New("run: exactly one code file is required (- for stdin)")
	}
	input := flags.Arg(0)

	code, err := readCode(input)
	if err != nil {
		return err
	}

	language := *lang
	if language == "" {
		language = extensionLanguages[strings.ToLower(filepath.Ext(input))]
	}
	if language == "" {
		return errors.New("run: language not given and not inferable from the file extension")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := sandbox.NewRunner(sandboxTimeout(cfg), cfg.Sandbox.AllowedLanguages, slog.Default())
	out, err := runner.Run(ctx, code, language)
	if err != nil {
		return fmt.Errorf("running code: %w", err)
	}

	fmt.Print(out.Stdout)
	if out.Err != "" {
		fmt.Fprintln(os.Stderr, out.Err)
	}
	if out.TimedOut {
		return fmt.Errorf("execution timed out after %s", out.Duration.Round(time.Millisecond))
	}
	if out.Err != "" {
		return errors.New("execution failed")
	}
	return nil
}

func readCode(input string) (string, error) {
	if input == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading code from stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", input, err)
	}
	return string(raw), nil
}

// sandboxTimeout converts the configured limit to a duration.
func sandboxTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Sandbox.TimeoutMs) * time.Millisecond
}

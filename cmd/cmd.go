// Package cmd provides the artivault CLI commands.
//
// Commands:
//   - extract: package artifacts from conversation export files
//   - serve: HTTP API server with inbox watching
//   - run: execute a code artifact in the sandbox
//
// Signal handling and graceful shutdown are implemented for all
// long-running commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute is the main entry point for the artivault CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "extract":
		return runExtract(os.Args[2:])
	case "serve":
		return runServe()
	case "run":
		return runRun(os.Args[2:])
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("artivault - Package conversation artifacts into ZIP archives")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  artivault extract [flags] <export.html>...  Extract and package artifacts")
	fmt.Println("  artivault serve [addr]                      Start HTTP API server (default: 127.0.0.1:8750)")
	fmt.Println("  artivault run [flags] <file>                Execute a code artifact in the sandbox")
	fmt.Println("  artivault --version                         Show version information")
	fmt.Println("  artivault --help                            Show this help")
	fmt.Println()
	fmt.Println("Extract flags:")
	fmt.Println("  -o <dir>             Output directory (- writes the archive to stdout)")
	fmt.Println("  -conversation <name> Group files under a conversation folder")
	fmt.Println("  -no-stitch           Keep artifact versions as separate files")
	fmt.Println()
	fmt.Println("Run flags:")
	fmt.Println("  -lang <language>     Language of the code (default: inferred from extension)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY       Optional: enables model-backed title suggestion")
	fmt.Println("  DEBUG                Optional: enable debug logging")
	fmt.Println()
	fmt.Println("Learn more: https://github.com/koopa0/artivault")
}

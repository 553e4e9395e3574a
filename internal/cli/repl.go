package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isInitialized() bool
	Init(ctx context.Context) error
	Trips(ctx context.Context) error
	Documents(ctx context.Context) error
	Profiles(ctx context.Context) error
	Funds(ctx context.Context) error
	Snapshot(ctx context.Context) error
	Stats(ctx context.Context) error
	Audit(ctx context.Context) error
	Export(ctx context.Context) error
	Import(ctx context.Context) error
	Purge(ctx context.Context) error
	Reset(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop over the store.
//
// It reads a line from the provided scanner, parses the first token as
// the command, and dispatches to methods on 'a'. Unknown commands are
// reported back to the user. The loop exits on scanner EOF or when the
// user types "exit" or "quit".
//
// Before "init" selects an owner, only init/reset/exit are available;
// every other command needs the owner context.
//
// Any errors returned by command handlers are ignored here; handlers
// should log their own errors. This keeps the REPL loop resilient and
// focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("tv> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isInitialized() {
				printlnFn("Available commands: trips, docs, profiles, funds, snapshot, stats, audit, export, import, purge, reset, exit")
			} else {
				printlnFn("Available commands: init, reset, exit")
			}

		case "init":
			_ = a.Init(ctx)

		case "trips":
			_ = withOwner(ctx, a, a.Trips)

		case "docs":
			_ = withOwner(ctx, a, a.Documents)

		case "profiles":
			_ = withOwner(ctx, a, a.Profiles)

		case "funds":
			_ = withOwner(ctx, a, a.Funds)

		case "snapshot":
			_ = withOwner(ctx, a, a.Snapshot)

		case "stats":
			_ = withOwner(ctx, a, a.Stats)

		case "audit":
			_ = withOwner(ctx, a, a.Audit)

		case "export":
			_ = withOwner(ctx, a, a.Export)

		case "import":
			_ = withOwner(ctx, a, a.Import)

		case "purge":
			_ = withOwner(ctx, a, a.Purge)

		case "reset":
			_ = a.Reset(ctx)

		case "exit", "quit":
			return

		default:
			printlnFn(fmt.Sprintf("Unknown command: %s (try 'help')", cmd))
		}
	}
}

func withOwner(ctx context.Context, a execIface, fn func(context.Context) error) error {
	if !a.isInitialized() {
		printlnFn("No owner selected. Run 'init' first.")
		return nil
	}
	return fn(ctx)
}

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
	isUnlocked() bool
	SetPIN(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Add(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context) error
	Thumb(ctx context.Context) error
	Delete(ctx context.Context) error
	Stats(ctx context.Context) error
	Sweep(ctx context.Context) error
	Recover(ctx context.Context) error
	ResetPIN(ctx context.Context) error
	Destroy(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the photo vault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands while locked: setpin, unlock, recover, resetpin, exit.
// Commands while unlocked additionally: add, list, show, thumb, delete,
// stats, sweep, lock, destroy.
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("pv %s> ", statusFn()))
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
			if a.isUnlocked() {
				printlnFn("Available commands: add, (l)ist, show, thumb, delete, stats, sweep, setpin, lock, destroy, exit")
			} else {
				printlnFn("Available commands: setpin, unlock, recover, resetpin, exit")
			}

		case "setpin":
			_ = a.SetPIN(ctx)

		case "unlock":
			_ = a.Unlock(ctx)

		case "lock":
			_ = a.Lock(ctx)

		case "add":
			_ = a.Add(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "show":
			_ = a.Show(ctx)

		case "thumb":
			_ = a.Thumb(ctx)

		case "delete":
			_ = a.Delete(ctx)

		case "stats":
			_ = a.Stats(ctx)

		case "sweep":
			_ = a.Sweep(ctx)

		case "recover":
			_ = a.Recover(ctx)

		case "resetpin":
			_ = a.ResetPIN(ctx)

		case "destroy":
			_ = a.Destroy(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

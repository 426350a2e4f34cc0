package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a stub.
type execIface interface {
	AddBook(ctx context.Context) error
	AddEntry(ctx context.Context) error
	Books(ctx context.Context) error
	List(ctx context.Context) error
	Delete(ctx context.Context) error
	Restore(ctx context.Context) error
	Conflicts(ctx context.Context) error
	Resolve(ctx context.Context) error
	Undo(ctx context.Context) error
	Sync(ctx context.Context) error
	Summary(ctx context.Context) error
}

const helpText = "Available commands: addbook, add, books, (l)ist, del, restore, " +
	"conflicts, resolve, undo, sync, summary, exit"

// runREPL reads a line from the scanner, parses the first token as the
// command and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF, on ctx cancellation, or
// when the user types "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers log their
// own errors. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "moneta> %s > \n", statusFn())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			fmt.Fprintln(w, helpText)

		case "addbook":
			_ = a.AddBook(ctx)

		case "add":
			_ = a.AddEntry(ctx)

		case "books":
			_ = a.Books(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "del":
			_ = a.Delete(ctx)

		case "restore":
			_ = a.Restore(ctx)

		case "conflicts":
			_ = a.Conflicts(ctx)

		case "resolve":
			_ = a.Resolve(ctx)

		case "undo":
			_ = a.Undo(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "summary":
			_ = a.Summary(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", parts[0])
		}
	}
}

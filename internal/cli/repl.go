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
	hasCode(ctx context.Context) bool
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	SetCode(ctx context.Context) error
	ChangeCode(ctx context.Context) error
	ResetStore(ctx context.Context) error
	ListChannels(ctx context.Context) error
	CreateChannel(ctx context.Context) error
	EditChannel(ctx context.Context) error
	DeleteChannels(ctx context.Context) error
	ToggleFavorite(ctx context.Context) error
	BindSource(ctx context.Context) error
	Send(ctx context.Context) error
	Read(ctx context.Context) error
	Ack(ctx context.Context) error
	Visibility(ctx context.Context) error
	Export(ctx context.Context) error
	Import(ctx context.Context) error
	touch(ctx context.Context)
}

// runREPL starts a simple read-eval-print loop for the Cryptool CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Locked:
//	  - help           - show available commands
//	  - set-code       - set the initial access code
//	  - unlock         - enter the access code
//	  - exit | quit    - leave the program
//
//	Unlocked:
//	  - help           - show available commands
//	  - channels       - list channels
//	  - create | edit | delete | favorite | source
//	  - send | read | ack | visibility
//	  - export | import
//	  - change-code    - re-key the store
//	  - reset          - wipe everything
//	  - lock           - end the session
//	  - exit | quit    - leave the program
//
// Errors returned by command handlers are printed here; handlers report
// their own domain-specific details. Every dispatched command also records
// activity so the session timeout slides.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	locked := map[string]func(context.Context) error{
		"set-code": a.SetCode,
		"unlock":   a.Unlock,
	}
	unlocked := map[string]func(context.Context) error{
		"channels":    a.ListChannels,
		"create":      a.CreateChannel,
		"edit":        a.EditChannel,
		"delete":      a.DeleteChannels,
		"favorite":    a.ToggleFavorite,
		"source":      a.BindSource,
		"send":        a.Send,
		"read":        a.Read,
		"ack":         a.Ack,
		"visibility":  a.Visibility,
		"export":      a.Export,
		"import":      a.Import,
		"change-code": a.ChangeCode,
		"reset":       a.ResetStore,
		"lock":        a.Lock,
	}

	for {
		printlnFn(fmt.Sprintf("cryptool %s> ", statusFn()))
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
				printlnFn("Available commands: channels, create, edit, delete, favorite, source, send, read, ack, visibility, export, import, change-code, reset, lock, exit")
			} else if a.hasCode(ctx) {
				printlnFn("Available commands: unlock, exit")
			} else {
				printlnFn("Available commands: set-code, exit")
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			handler, gated := unlocked[cmd]
			if !gated {
				var known bool
				handler, known = locked[cmd]
				if !known {
					printlnFn("Unknown command:", cmd)
					continue
				}
			}
			if gated && !a.isUnlocked() {
				printlnFn("The store is locked. Use 'unlock' first.")
				continue
			}
			if err := handler(ctx); err != nil {
				printlnFn("Error:", err.Error())
			}
			a.touch(ctx)
		}
	}
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it
// with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to
// operate. The real App type satisfies this interface; tests can provide
// a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Browse(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Cart(ctx context.Context, args []string) error
	Wishlist(ctx context.Context, args []string) error
	Login(ctx context.Context) error
	Signup(ctx context.Context) error
	Forgot(ctx context.Context) error
	Reset(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
}

// runREPL starts the read–eval–print loop for the storefront CLI.
//
// It reads a line from the provided scanner, parses the first token as
// the command, and dispatches to methods on 'a'. Unknown commands are
// reported back to the user. The loop exits on scanner EOF or when the
// user types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers
// print their own messages. This keeps the loop resilient and focused on
// I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("craft %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: browse, show <id>, cart [list|add <id>|rm <id>|clear], wish [list|add <id>|rm <id>|clear], logout, exit")
			} else {
				printlnFn("Available commands: browse, show <id>, cart add <id>, wish add <id>, login, signup, forgot, reset <token|link>, verify <token|link>, exit")
			}

		case "browse":
			_ = a.Browse(ctx)

		case "show":
			_ = a.Show(ctx, args)

		case "cart":
			_ = a.Cart(ctx, args)

		case "wish", "wishlist":
			_ = a.Wishlist(ctx, args)

		case "login":
			_ = a.Login(ctx)

		case "signup", "register":
			_ = a.Signup(ctx)

		case "forgot":
			_ = a.Forgot(ctx)

		case "reset":
			_ = a.Reset(ctx, args)

		case "verify":
			_ = a.Verify(ctx, args)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

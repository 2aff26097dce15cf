package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Status(ctx context.Context) error
	Check(ctx context.Context) error
}

// runREPL starts a read–eval–print loop.
//
// It reads a line from r, parses the first token as the command and
// dispatches to a. The loop exits on EOF or on "exit"/"quit". Commands read
// their own prompts from the same reader, so r must not be wrapped in another
// buffering reader.
//
//	Not logged in: help, register, login, status, exit
//	Logged in:     help, whoami, status, check, logout, exit
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "ak %s> ", statusFn())
		line, readErr := r.ReadString('\n')
		if readErr != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if readErr != nil {
				return
			}
			continue
		}

		var err error
		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: whoami, status, check, logout, exit")
			} else {
				fmt.Fprintln(w, "Available commands: register, login, status, exit")
			}
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "whoami", "me":
			err = a.WhoAmI(ctx)
		case "status":
			err = a.Status(ctx)
		case "check":
			err = a.Check(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(w, "error:", err)
		}
		if readErr != nil {
			return
		}
	}
}

func (a *App) statusLine() string {
	s := ""
	if u := a.store.CurrentUser(); u != nil && a.isLoggedIn() {
		s = u.Username + " "
	}
	s += string(a.Mode())
	if s != "" {
		s = fmt.Sprintf("(%s) ", s)
	}
	return s
}

// Repl restores the session, starts the connectivity watcher and blocks in
// the REPL until the user exits or ctx is canceled.
func (a *App) Repl(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to authkeeper (type 'help' for commands)")

	if a.store.CheckAuth(ctx) {
		a.probe(ctx)
		if a.Mode() == ModeOnline && !a.authService.CheckAuth(ctx) {
			fmt.Fprintln(a.out, "Stored session was rejected by the server, please log in again")
		}
	}

	if a.config.OnlineCheckInterval > 0 {
		go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}

	runREPL(ctx, a, a.statusLine, a.reader, a.out)
}

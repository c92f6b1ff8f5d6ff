package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	Me(ctx context.Context) error
	Update(ctx context.Context, args []string) error
	Avatar(ctx context.Context, args []string) error
	Delete(ctx context.Context) error
	Task(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: signup, login, exit"
	helpLoggedIn  = "Available commands: me, update k=v..., avatar <path>|rm, task add|list|done|rm, logout, logoutall, delete, exit"
)

// runREPL reads one command per line and dispatches it. Command errors are
// printed and the loop continues; EOF, "exit" or "quit" end it.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("tk %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
		case "signup", "register":
			cmdErr = a.Signup(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "logoutall":
			cmdErr = a.LogoutAll(ctx)
		case "me":
			cmdErr = a.Me(ctx)
		case "update":
			cmdErr = a.Update(ctx, args)
		case "avatar":
			cmdErr = a.Avatar(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx)
		case "task", "t":
			cmdErr = a.Task(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr.Error())
		}
	}
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests use a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Verify(ctx context.Context, args []string) error
	ForgotPassword(ctx context.Context) error
	Me(ctx context.Context) error
	Deactivate(ctx context.Context) error
	Reactivate(ctx context.Context) error
	Upload(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Shared(ctx context.Context, args []string) error
	Share(ctx context.Context, args []string) error
	View(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Respond(ctx context.Context, args []string, status models.ShareStatus) error
	Revoke(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: register, login, verify, forgot, reactivate, exit"
	helpLoggedIn  = "Available commands: me, upload, (l)ist, shared, share, view, download, accept, reject, revoke, delete, verify, deactivate, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them
// until EOF, "exit" or "quit". Handler errors are reported by the handlers
// themselves, so the loop ignores them. Prompts inside handlers read from
// the same reader, which keeps buffered input in order.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("dv %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "verify":
			_ = a.Verify(ctx, args)
		case "forgot":
			_ = a.ForgotPassword(ctx)
		case "me":
			_ = a.Me(ctx)
		case "deactivate":
			_ = a.Deactivate(ctx)
		case "reactivate":
			_ = a.Reactivate(ctx)

		case "upload":
			_ = a.Upload(ctx, args)
		case "l", "list":
			_ = a.List(ctx)
		case "shared":
			_ = a.Shared(ctx, args)
		case "share":
			_ = a.Share(ctx, args)
		case "view":
			_ = a.View(ctx, args)
		case "download":
			_ = a.Download(ctx, args)
		case "accept":
			_ = a.Respond(ctx, args, models.ShareStatusAccepted)
		case "reject":
			_ = a.Respond(ctx, args, models.ShareStatusRevoked)
		case "revoke":
			_ = a.Revoke(ctx, args)
		case "delete":
			_ = a.Delete(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. The real App
// satisfies it; tests provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Albums(ctx context.Context) error
	Open(ctx context.Context, args []string) error
	Select(ctx context.Context, args []string) error
	Toggle(ctx context.Context, args []string) error
	Extend(ctx context.Context, args []string) error
	SelectAll(ctx context.Context) error
	Clear(ctx context.Context) error
	Selected(ctx context.Context) error
	Upload(ctx context.Context, args []string) error
	NewAlbum(ctx context.Context) error
	AddTo(ctx context.Context, args []string) error
	RemoveFromAlbum(ctx context.Context) error
	Delete(ctx context.Context) error
}

const helpText = `Available commands:
  (l)ist              list files in the current view
  albums              list albums
  open <id>|all       switch the view to an album or to every file
  select <name>       select only this file
  toggle <name>       add or remove one file from the selection
  extend <name>       select from the last selected file to this one
  all | clear         select every visible file / nothing
  selected            show the selection
  upload <path>       upload a file into the current view
  newalbum            create an album
  addto <id> [id...]  add the selection to albums
  remove              remove the selection from the open album
  delete              delete selected files uploaded from this client
  exit | quit         leave the program`

// runREPL reads one command per line from reader and dispatches it to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
// Errors returned by command handlers are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gallery %s> ", statusFn()))
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
			printlnFn(helpText)
		case "l", "list":
			cmdErr = a.List(ctx)
		case "albums":
			cmdErr = a.Albums(ctx)
		case "open":
			cmdErr = a.Open(ctx, args)
		case "select":
			cmdErr = a.Select(ctx, args)
		case "toggle":
			cmdErr = a.Toggle(ctx, args)
		case "extend":
			cmdErr = a.Extend(ctx, args)
		case "all":
			cmdErr = a.SelectAll(ctx)
		case "clear":
			cmdErr = a.Clear(ctx)
		case "selected":
			cmdErr = a.Selected(ctx)
		case "upload":
			cmdErr = a.Upload(ctx, args)
		case "newalbum":
			cmdErr = a.NewAlbum(ctx)
		case "addto":
			cmdErr = a.AddTo(ctx, args)
		case "remove":
			cmdErr = a.RemoveFromAlbum(ctx)
		case "delete":
			cmdErr = a.Delete(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr.Error())
		}
		if errors.Is(err, io.EOF) {
			return
		}
	}
}

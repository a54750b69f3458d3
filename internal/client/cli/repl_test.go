package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
	args  [][]string
	fail  bool
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	if f.fail {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeExec) List(context.Context) error                 { return f.record("list", nil) }
func (f *fakeExec) Albums(context.Context) error               { return f.record("albums", nil) }
func (f *fakeExec) Open(_ context.Context, a []string) error   { return f.record("open", a) }
func (f *fakeExec) Select(_ context.Context, a []string) error { return f.record("select", a) }
func (f *fakeExec) Toggle(_ context.Context, a []string) error { return f.record("toggle", a) }
func (f *fakeExec) Extend(_ context.Context, a []string) error { return f.record("extend", a) }
func (f *fakeExec) SelectAll(context.Context) error            { return f.record("all", nil) }
func (f *fakeExec) Clear(context.Context) error                { return f.record("clear", nil) }
func (f *fakeExec) Selected(context.Context) error             { return f.record("selected", nil) }
func (f *fakeExec) Upload(_ context.Context, a []string) error { return f.record("upload", a) }
func (f *fakeExec) NewAlbum(context.Context) error             { return f.record("newalbum", nil) }
func (f *fakeExec) AddTo(_ context.Context, a []string) error  { return f.record("addto", a) }
func (f *fakeExec) RemoveFromAlbum(context.Context) error      { return f.record("remove", nil) }
func (f *fakeExec) Delete(context.Context) error               { return f.record("delete", nil) }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i], _ = v.(string)
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	captureOutput(t)

	input := strings.Join([]string{
		"help",
		"l",
		"",
		"open 3",
		"select a.png",
		"extend c.png",
		"toggle b.png",
		"all",
		"clear",
		"addto 1 2",
		"remove",
		"exit",
		"list",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "(all)" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{"list", "open", "select", "extend", "toggle", "all", "clear", "addto", "remove"}, exec.calls)
	assert.Equal(t, []string{"3"}, exec.args[1])
	assert.Equal(t, []string{"1", "2"}, exec.args[7])
}

func TestRunREPL_ReportsErrorsAndUnknownCommands(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{fail: true}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("delete\nfrobnicate\nquit\n")))

	assert.Equal(t, []string{"delete"}, exec.calls)
	assert.Contains(t, *out, "Error: boom")
	assert.Contains(t, *out, "Unknown command: frobnicate")
	assert.Contains(t, *out, "Bye!")
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	captureOutput(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("albums")))

	assert.Equal(t, []string{"albums"}, exec.calls)
}

package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
}

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeExec) AddBook(context.Context) error   { return f.record("addbook") }
func (f *fakeExec) AddEntry(context.Context) error  { return f.record("add") }
func (f *fakeExec) Books(context.Context) error     { return f.record("books") }
func (f *fakeExec) List(context.Context) error      { return f.record("list") }
func (f *fakeExec) Delete(context.Context) error    { return f.record("del") }
func (f *fakeExec) Restore(context.Context) error   { return f.record("restore") }
func (f *fakeExec) Conflicts(context.Context) error { return f.record("conflicts") }
func (f *fakeExec) Resolve(context.Context) error   { return f.record("resolve") }
func (f *fakeExec) Undo(context.Context) error      { return f.record("undo") }
func (f *fakeExec) Sync(context.Context) error      { return f.record("sync") }
func (f *fakeExec) Summary(context.Context) error   { return f.record("summary") }

func TestRunREPL_DispatchesCommands(t *testing.T) {
	input := strings.NewReader(strings.Join([]string{
		"help",
		"addbook",
		"add",
		"books",
		"l",
		"list",
		"del",
		"restore",
		"conflicts",
		"resolve",
		"undo",
		"sync",
		"summary",
		"",
		"frobnicate",
		"exit",
		"add", // never reached
	}, "\n"))

	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), exec, func() string { return "u1 (offline)" },
		bufio.NewScanner(input), &out)

	assert.Equal(t, []string{
		"addbook", "add", "books", "list", "list", "del", "restore",
		"conflicts", "resolve", "undo", "sync", "summary",
	}, exec.calls)
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
	assert.Contains(t, out.String(), "Bye!")
}

func TestRunREPL_ExitsOnEOF(t *testing.T) {
	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), exec, func() string { return "" },
		bufio.NewScanner(strings.NewReader("list\n")), &out)

	assert.Equal(t, []string{"list"}, exec.calls)
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(ctx, exec, func() string { return "" },
		bufio.NewScanner(strings.NewReader("list\nexit\n")), &out)

	assert.Empty(t, exec.calls)
}

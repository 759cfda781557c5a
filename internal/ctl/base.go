package ctl

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/cli"

	"github.com/maruel/jsonstore/internal/apiclient"
)

// defaultServer is used when neither -server nor JSONSTORE_SERVER is set.
const defaultServer = "http://localhost:8080"

// baseCommand holds the flags and plumbing shared by every command.
type baseCommand struct {
	UI    cli.Ui
	stdin io.Reader

	flagServer  string
	flagTimeout time.Duration
	flagRetries uint64
}

func (c *baseCommand) flagSet(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.SetOutput(io.Discard)
	server := os.Getenv("JSONSTORE_SERVER")
	if server == "" {
		server = defaultServer
	}
	f.StringVar(&c.flagServer, "server", server, "Server URL. Defaults to $JSONSTORE_SERVER.")
	f.DurationVar(&c.flagTimeout, "timeout", 30*time.Second, "Overall deadline of the command.")
	f.Uint64Var(&c.flagRetries, "retries", 5, "Retries on transient failures.")
	return f
}

// parse parses args and checks the positional argument count.
func (c *baseCommand) parse(f *flag.FlagSet, args []string, nargs int) ([]string, bool) {
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return nil, false
	}
	if f.NArg() != nargs {
		c.UI.Error(fmt.Sprintf("expected %d argument(s), got %d", nargs, f.NArg()))
		return nil, false
	}
	return f.Args(), true
}

func (c *baseCommand) client() (*apiclient.Client, context.Context, context.CancelFunc, error) {
	cl, err := apiclient.New(c.flagServer, apiclient.WithRetries(c.flagRetries))
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.flagTimeout)
	return cl, ctx, cancel, nil
}

// readJSON returns arg, or stdin when arg is "-".
func (c *baseCommand) readJSON(arg string) (json.RawMessage, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		if data, err = io.ReadAll(c.stdin); err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON: %s", strings.TrimSpace(string(data)))
	}
	return data, nil
}

func (c *baseCommand) parseID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		c.UI.Error(fmt.Sprintf("invalid document id %q: %v", s, err))
		return uuid.Nil, false
	}
	return id, true
}

// output prints v as indented JSON.
func (c *baseCommand) output(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		c.UI.Error(fmt.Sprintf("failed to encode output: %v", err))
		return 1
	}
	c.UI.Output(string(data))
	return 0
}

func (c *baseCommand) fail(err error) int {
	c.UI.Error(err.Error())
	return 1
}

// help appends the flag defaults to usage.
func help(usage string, f *flag.FlagSet) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(usage))
	b.WriteString("\n\nOptions:\n\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "  -%s=%s\n      %s\n\n", fl.Name, fl.DefValue, fl.Usage)
	})
	return strings.TrimRight(b.String(), "\n")
}

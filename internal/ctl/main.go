// Package ctl implements jsonstorectl, the command line client of the
// jsonstore server.
package ctl

import (
	"bufio"
	"io"
	"os"

	"github.com/mitchellh/cli"
)

// Version is reported by -version.
var Version = "dev"

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}
	return run(args, ui, os.Stdin)
}

func run(args []string, ui cli.Ui, stdin io.Reader) int {
	cliName := args[0]
	if len(args) == 2 && (args[1] == "-version" || args[1] == "-v") {
		args = []string{cliName, "version"}
	}
	c := &cli.CLI{
		Name:     cliName,
		Args:     args[1:],
		Version:  Version,
		Commands: commands(ui, stdin),
	}
	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	return exitCode
}

func commands(ui cli.Ui, stdin io.Reader) map[string]cli.CommandFactory {
	base := func() *baseCommand {
		return &baseCommand{UI: ui, stdin: stdin}
	}
	return map[string]cli.CommandFactory{
		"get":          func() (cli.Command, error) { return &GetCommand{baseCommand: base()}, nil },
		"create":       func() (cli.Command, error) { return &CreateCommand{baseCommand: base()}, nil },
		"patch":        func() (cli.Command, error) { return &PatchCommand{baseCommand: base()}, nil },
		"merge":        func() (cli.Command, error) { return &MergeCommand{baseCommand: base()}, nil },
		"delete":       func() (cli.Command, error) { return &DeleteCommand{baseCommand: base()}, nil },
		"search":       func() (cli.Command, error) { return &SearchCommand{baseCommand: base()}, nil },
		"delete-where": func() (cli.Command, error) { return &DeleteWhereCommand{baseCommand: base()}, nil },
		"count":        func() (cli.Command, error) { return &CountCommand{baseCommand: base()}, nil },
		"health":       func() (cli.Command, error) { return &HealthCommand{baseCommand: base()}, nil },
		"version": func() (cli.Command, error) {
			return &VersionCommand{UI: ui}, nil
		},
	}
}

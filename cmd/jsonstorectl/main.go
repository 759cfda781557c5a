// Command jsonstorectl is a command line client for the jsonstore server.
package main

import (
	"os"

	"github.com/maruel/jsonstore/internal/ctl"
)

func main() {
	os.Exit(ctl.Main(os.Args))
}

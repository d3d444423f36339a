// worthctl is the operations CLI for a WorthWatch ledger: validate the
// documents, roll the latest month forward, run the snapshot pipeline
// offline, and render a terminal report.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&validateCmd{}, "ledger")
	commander.Register(&rolloverCmd{}, "ledger")
	commander.Register(&buildCmd{}, "dashboard")
	commander.Register(&reportCmd{}, "dashboard")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

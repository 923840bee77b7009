// Command pocket-ledger manages a personal ledger of accounts, transactions and savings
// goals from the terminal, and can serve the same ledger over a local HTTP API.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "Path to the configuration file (default ./pocket-ledger.yaml when present)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&summaryCmd{}, "ledger")
	commander.Register(&accountsCmd{}, "ledger")
	commander.Register(&statementCmd{}, "ledger")
	commander.Register(&addCmd{}, "ledger")
	commander.Register(&rmCmd{}, "ledger")

	commander.Register(&goalsCmd{}, "goals")
	commander.Register(&goalAddCmd{}, "goals")
	commander.Register(&contributeCmd{}, "goals")
	commander.Register(&goalRmCmd{}, "goals")

	commander.Register(&profileCmd{}, "profile")
	commander.Register(&exportCmd{}, "data")
	commander.Register(&serveCmd{}, "server")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

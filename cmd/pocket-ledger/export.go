package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"pocket-ledger/pkg/ledger"

	"github.com/google/subcommands"
)

// export is the document written by the export command.
type export struct {
	Profile      ledger.UserProfile   `json:"userProfile"`
	Summary      ledger.Summary       `json:"summary"`
	Accounts     []ledger.Account     `json:"accounts"`
	Transactions []ledger.Transaction `json:"transactions"`
	Goals        []ledger.Goal        `json:"goals"`
}

type exportCmd struct{}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the whole ledger as JSON to stdout" }
func (*exportCmd) Usage() string {
	return `pocket-ledger export > backup.json

  Writes accounts, transactions, goals, profile and the derived summary as one
  indented JSON document.
`
}

func (*exportCmd) SetFlags(f *flag.FlagSet) {}

func (*exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	doc := export{
		Profile:      a.store.Profile(),
		Summary:      a.store.Summary(),
		Accounts:     a.store.Accounts(),
		Transactions: a.store.Transactions(),
		Goals:        a.store.Goals(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

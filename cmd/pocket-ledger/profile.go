package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type profileCmd struct {
	name string
}

func (*profileCmd) Name() string     { return "profile" }
func (*profileCmd) Synopsis() string { return "show or change the display name" }
func (*profileCmd) Usage() string {
	return `pocket-ledger profile [-name <display name>]
`
}

func (c *profileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "New display name.")
}

func (c *profileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if c.name != "" {
		if err := a.settle(ctx, a.store.UpdateProfile(ctx, c.name)); err != nil {
			return fail(err)
		}
	}
	fmt.Println(a.store.Profile().DisplayName)
	return subcommands.ExitSuccess
}

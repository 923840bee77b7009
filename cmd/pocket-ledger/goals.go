package main

import (
	"context"
	"flag"
	"os"

	"pocket-ledger/pkg/ledger"

	"github.com/google/subcommands"
)

type goalsCmd struct{}

func (*goalsCmd) Name() string             { return "goals" }
func (*goalsCmd) Synopsis() string         { return "list savings goals and their progress" }
func (*goalsCmd) Usage() string            { return "pocket-ledger goals\n" }
func (*goalsCmd) SetFlags(f *flag.FlagSet) {}

func (*goalsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	printGoals(os.Stdout, a.store.Goals(), a.store.TotalSaved())
	return subcommands.ExitSuccess
}

type goalAddCmd struct {
	name   string
	target string
	term   int
	unit   string
	icon   string
}

func (*goalAddCmd) Name() string     { return "goal-add" }
func (*goalAddCmd) Synopsis() string { return "create a savings goal" }
func (*goalAddCmd) Usage() string {
	return `pocket-ledger goal-add -name <text> -target <value> -term <n> [-unit months|years] [-icon <emoji>]
`
}

func (c *goalAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Goal name.")
	f.StringVar(&c.target, "target", "", "Target amount, greater than zero.")
	f.IntVar(&c.term, "term", 12, "Term length.")
	f.StringVar(&c.unit, "unit", "months", "Term unit: months (meses) or years (anos).")
	f.StringVar(&c.icon, "icon", "", "Icon; defaults to "+ledger.DefaultGoalIcon+".")
}

func (c *goalAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	target, err := ledger.ParseAmount(c.target)
	if err != nil {
		return fail(err)
	}
	unit, err := ledger.ParseTermUnit(c.unit)
	if err != nil {
		return fail(err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	g, err := a.store.AddGoal(ctx, ledger.GoalInput{
		Name:         c.name,
		TargetAmount: target,
		TermValue:    c.term,
		TermUnit:     unit,
		IconTag:      c.icon,
	})
	if err := a.settle(ctx, err); err != nil {
		return fail(err)
	}
	printGoals(os.Stdout, []ledger.Goal{g}, a.store.TotalSaved())
	return subcommands.ExitSuccess
}

type contributeCmd struct {
	goal   string
	amount string
}

func (*contributeCmd) Name() string     { return "contribute" }
func (*contributeCmd) Synopsis() string { return "put money toward a goal" }
func (*contributeCmd) Usage() string {
	return `pocket-ledger contribute -goal <id> -amount <value>

  Only positive amounts are accepted; goals cannot be withdrawn from.
`
}

func (c *contributeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.goal, "goal", "", "Goal id, see 'goals'.")
	f.StringVar(&c.amount, "amount", "", "Amount, greater than zero.")
}

func (c *contributeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := ledger.ParseAmount(c.amount)
	if err != nil {
		return fail(err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	_, err = a.store.AddGoalContribution(ctx, c.goal, amount)
	if err := a.settle(ctx, err); err != nil {
		return fail(err)
	}
	if g, ok := a.store.Goal(c.goal); ok {
		printGoals(os.Stdout, []ledger.Goal{g}, a.store.TotalSaved())
	}
	return subcommands.ExitSuccess
}

type goalRmCmd struct {
	id string
}

func (*goalRmCmd) Name() string     { return "goal-rm" }
func (*goalRmCmd) Synopsis() string { return "delete a goal and its history" }
func (*goalRmCmd) Usage() string    { return "pocket-ledger goal-rm -id <goal id>\n" }

func (c *goalRmCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Goal id, see 'goals'.")
}

func (c *goalRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if err := a.settle(ctx, a.store.RemoveGoal(ctx, c.id)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

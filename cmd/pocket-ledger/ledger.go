package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"pocket-ledger/pkg/ledger"

	"github.com/google/subcommands"
)

type summaryCmd struct{}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show total balance, income, expenses and savings" }
func (*summaryCmd) Usage() string {
	return `pocket-ledger summary

  Shows the balance across all accounts, the total income and expenses, and the
  total saved toward goals.
`
}

func (*summaryCmd) SetFlags(f *flag.FlagSet) {}

func (*summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	printSummary(os.Stdout, a.store.Profile(), a.store.Summary(), a.store.TotalSaved())
	return subcommands.ExitSuccess
}

type accountsCmd struct{}

func (*accountsCmd) Name() string             { return "accounts" }
func (*accountsCmd) Synopsis() string         { return "list accounts and their balances" }
func (*accountsCmd) Usage() string            { return "pocket-ledger accounts\n" }
func (*accountsCmd) SetFlags(f *flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	printAccounts(os.Stdout, a.store.Accounts())
	return subcommands.ExitSuccess
}

type statementCmd struct {
	account string
}

func (*statementCmd) Name() string     { return "statement" }
func (*statementCmd) Synopsis() string { return "list transactions, most recent first" }
func (*statementCmd) Usage() string {
	return `pocket-ledger statement [-account <id>]

  Lists every transaction, or only those of one account.
`
}

func (c *statementCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Only list transactions of this account id.")
}

func (c *statementCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if c.account == "" {
		printTransactions(os.Stdout, a.store.Transactions())
		return subcommands.ExitSuccess
	}
	if _, ok := a.store.Account(c.account); !ok {
		return fail(fmt.Errorf("%w: %q", ledger.ErrUnknownAccount, c.account))
	}
	printTransactions(os.Stdout, a.store.AccountTransactions(c.account))
	return subcommands.ExitSuccess
}

type addCmd struct {
	amount  string
	desc    string
	kind    string
	account string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record an income or expense" }
func (*addCmd) Usage() string {
	return `pocket-ledger add -amount <value> -desc <text> -kind <income|expense> -account <id>

  Records a transaction and updates the account balance. Amounts accept a comma
  as decimal separator, e.g. 1.234,56.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "Amount, greater than zero.")
	f.StringVar(&c.desc, "desc", "", "Description.")
	f.StringVar(&c.kind, "kind", "expense", "income (entrada) or expense (saída).")
	f.StringVar(&c.account, "account", "", "Account id, see 'accounts'.")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := ledger.ParseAmount(c.amount)
	if err != nil {
		return fail(err)
	}
	kind, err := ledger.ParseTransactionKind(c.kind)
	if err != nil {
		return fail(err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	tx, err := a.store.AddTransaction(ctx, amount, c.desc, kind, c.account)
	if err := a.settle(ctx, err); err != nil {
		return fail(err)
	}
	printTransactions(os.Stdout, []ledger.Transaction{tx})
	return subcommands.ExitSuccess
}

type rmCmd struct {
	id    int64
	noAsk bool
}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "remove a transaction" }
func (*rmCmd) Usage() string {
	return `pocket-ledger rm -id <transaction id> [-y]

  Removes a transaction and reverses its effect on the account balance. Unless -y
  is given, offers to undo the removal for a few seconds.
`
}

func (c *rmCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction id, see 'statement'.")
	f.BoolVar(&c.noAsk, "y", false, "Do not offer to undo.")
}

func (c *rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	undo, err := a.store.RemoveTransaction(ctx, c.id)
	if err := a.settle(ctx, err); err != nil {
		return fail(err)
	}
	if c.noAsk {
		return subcommands.ExitSuccess
	}

	if !confirm(os.Stdin, os.Stdout, "Desfazer? [s/N] ", time.Until(undo.ExpiresAt)) {
		return subcommands.ExitSuccess
	}
	_, err = a.store.UndoRemove(ctx, undo.TransactionID)
	if err := a.settle(ctx, err); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

// confirm asks a yes/no question and waits at most timeout for the answer.
func confirm(in io.Reader, out io.Writer, prompt string, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	fmt.Fprint(out, prompt)

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(in).ReadString('\n')
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()

	select {
	case a := <-answer:
		return a == "s" || a == "sim" || a == "y" || a == "yes"
	case <-time.After(timeout):
		fmt.Fprintln(out)
		return false
	}
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"pocket-ledger/pkg/ledger"

	"github.com/Rhymond/go-money"
)

// brl renders an amount as Brazilian reais, e.g. "R$1.234,56".
func brl(a ledger.Amount) string {
	return money.New(a.Cents(), money.BRL).Display()
}

// signedBRL renders a transaction with the sign of its balance effect.
func signedBRL(tx ledger.Transaction) string {
	if tx.Kind == ledger.Income {
		return "+" + brl(tx.Amount)
	}
	return "-" + brl(tx.Amount)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printSummary(w io.Writer, profile ledger.UserProfile, s ledger.Summary, saved ledger.Amount) {
	fmt.Fprintf(w, "Olá, %s\n\n", profile.DisplayName)
	t := newTable(w)
	fmt.Fprintf(t, "Saldo total\t%s\n", brl(s.TotalBalance))
	fmt.Fprintf(t, "Entradas\t%s\n", brl(s.TotalIncome))
	fmt.Fprintf(t, "Saídas\t%s\n", brl(s.TotalExpense))
	fmt.Fprintf(t, "Economia total\t%s\n", brl(saved))
	t.Flush()
}

func printAccounts(w io.Writer, accounts []ledger.Account) {
	t := newTable(w)
	fmt.Fprintln(t, "ID\tCONTA\tSALDO")
	for _, a := range accounts {
		fmt.Fprintf(t, "%s\t%s\t%s\n", a.ID, a.Name, brl(a.Balance))
	}
	t.Flush()
}

func printTransactions(w io.Writer, txs []ledger.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "Nenhuma movimentação.")
		return
	}
	t := newTable(w)
	fmt.Fprintln(t, "ID\tDATA\tCONTA\tDESCRIÇÃO\tVALOR")
	for _, tx := range txs {
		fmt.Fprintf(t, "%d\t%s\t%s\t%s\t%s\n", tx.ID, tx.DisplayDate, tx.AccountID, tx.Description, signedBRL(tx))
	}
	t.Flush()
}

func termLabel(g ledger.Goal) string {
	switch {
	case g.TermUnit == ledger.Years && g.TermValue == 1:
		return "1 ano"
	case g.TermUnit == ledger.Years:
		return fmt.Sprintf("%d anos", g.TermValue)
	case g.TermValue == 1:
		return "1 mês"
	default:
		return fmt.Sprintf("%d meses", g.TermValue)
	}
}

func printGoals(w io.Writer, goals []ledger.Goal, saved ledger.Amount) {
	if len(goals) == 0 {
		fmt.Fprintln(w, "Nenhuma meta.")
		return
	}
	t := newTable(w)
	fmt.Fprintln(t, "ID\tMETA\tPRAZO\tGUARDADO\tALVO\tPROGRESSO")
	for _, g := range goals {
		fmt.Fprintf(t, "%s\t%s %s\t%s\t%s\t%s\t%d%%\n",
			g.ID, g.IconTag, g.Name, termLabel(g), brl(g.Accumulated), brl(g.TargetAmount), g.Progress())
	}
	t.Flush()
	fmt.Fprintf(w, "\nEconomia total: %s\n", brl(saved))
}

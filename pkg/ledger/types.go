package ledger

import (
	"fmt"
	"time"
)

type BankKind string

const (
	BankNubank   BankKind = "nubank"
	BankBB       BankKind = "bb"
	BankBradesco BankKind = "bradesco"
	BankWallet   BankKind = "wallet"
)

type TransactionKind string

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

// ParseTransactionKind accepts the English names and the pt-BR labels.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch s {
	case "income", "entrada", "receita":
		return Income, nil
	case "expense", "saida", "saída", "despesa":
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

type TermUnit string

const (
	Months TermUnit = "months"
	Years  TermUnit = "years"
)

func (u TermUnit) Valid() bool {
	return u == Months || u == Years
}

// ParseTermUnit accepts the English names and the pt-BR plural labels.
func ParseTermUnit(s string) (TermUnit, error) {
	switch s {
	case "months", "meses", "mes", "mês":
		return Months, nil
	case "years", "anos", "ano":
		return Years, nil
	}
	return "", fmt.Errorf("%w: unknown term unit %q", ErrInvalidTerm, s)
}

// Account balances change only through transactions.
type Account struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	BankKind BankKind `json:"bankKind"`
	Balance  Amount   `json:"balance"`
	ColorTag string   `json:"colorTag"`
}

type Transaction struct {
	// ID is the creation time in Unix milliseconds, bumped to stay strictly increasing.
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      Amount          `json:"amount"`
	Kind        TransactionKind `json:"kind"`
	AccountID   string          `json:"accountId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	DisplayDate string          `json:"displayDate"`
}

// Signed is the transaction's effect on its account balance.
func (t Transaction) Signed() Amount {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

type GoalContribution struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurredAt"`
	Amount     Amount    `json:"amount"`
}

// Goal is a savings target. Accumulated always equals CarriedOver plus the sum of
// History. CarriedOver is non-zero only for records upgraded from a legacy shape whose
// running total had no matching history.
type Goal struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	TargetAmount  Amount             `json:"targetAmount"`
	TermValue     int                `json:"termValue"`
	TermUnit      TermUnit           `json:"termUnit"`
	IconTag       string             `json:"iconTag"`
	Accumulated   Amount             `json:"accumulated"`
	CarriedOver   Amount             `json:"carriedOver"`
	History       []GoalContribution `json:"history"`
	SchemaVersion int                `json:"schemaVersion"`
}

// Progress is the completion percentage, capped at 100. A target of zero or less counts
// as 1.
func (g Goal) Progress() int {
	target := g.TargetAmount
	if !target.IsPositive() {
		target = A(1)
	}
	p := g.Accumulated.Percent(target)
	switch {
	case p > 100:
		return 100
	case p < 0:
		return 0
	}
	return int(p)
}

func (g Goal) historySum() Amount {
	total := Zero
	for _, c := range g.History {
		total = total.Add(c.Amount)
	}
	return total
}

func (g Goal) clone() Goal {
	g.History = append([]GoalContribution(nil), g.History...)
	if g.History == nil {
		g.History = []GoalContribution{}
	}
	return g
}

// GoalInput holds the caller-supplied fields of a new goal.
type GoalInput struct {
	Name         string
	TargetAmount Amount
	TermValue    int
	TermUnit     TermUnit
	IconTag      string
}

type UserProfile struct {
	DisplayName string `json:"displayName"`
}

// Summary is derived from accounts and transactions on every call and never stored.
type Summary struct {
	TotalBalance Amount `json:"totalBalance"`
	TotalIncome  Amount `json:"totalIncome"`
	TotalExpense Amount `json:"totalExpense"`
}

// Undo identifies a removal that can still be reverted with UndoRemove.
type Undo struct {
	TransactionID int64     `json:"transactionId"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

const (
	DefaultDisplayName = "Visitante"
	DefaultGoalName    = "Sem nome"
	DefaultGoalIcon    = "🎯"
)

// SeedAccounts returns the accounts every new ledger starts with.
func SeedAccounts() []Account {
	return []Account{
		{ID: "1", Name: "Nubank", BankKind: BankNubank, ColorTag: "purple"},
		{ID: "2", Name: "Banco do Brasil", BankKind: BankBB, ColorTag: "yellow"},
		{ID: "3", Name: "Bradesco", BankKind: BankBradesco, ColorTag: "red"},
		{ID: "4", Name: "Carteira", BankKind: BankWallet, ColorTag: "gray"},
	}
}

var monthAbbrev = [...]string{"", "jan.", "fev.", "mar.", "abr.", "mai.", "jun.", "jul.", "ago.", "set.", "out.", "nov.", "dez."}

// DisplayDate renders t as a pt-BR short date, e.g. "18 de out.".
func DisplayDate(t time.Time) string {
	return fmt.Sprintf("%02d de %s", t.Day(), monthAbbrev[t.Month()])
}

package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Goal record schemas, oldest first. Records are upgraded one step at a time until
// they reach CurrentGoalSchema.
//
//	0: {id?, nome, valor, gastoAtual?, prazo?, unidade?, icone?}
//	1: {id?, name, valorTotal, prazo, unidade, icone, gastoAtual, history?}
//	2: Goal as defined in this package
const CurrentGoalSchema = 2

type decodeResult struct {
	records  int
	migrated int
	skipped  int
}

func isNullJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeRecords splits a JSON array into its elements. Anything but an array is corrupt.
func decodeRecords(data []byte) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	return raw, nil
}

type goalV0 struct {
	ID         string           `json:"id"`
	Nome       string           `json:"nome"`
	Name       string           `json:"name"`
	Valor      Amount           `json:"valor"`
	GastoAtual *Amount          `json:"gastoAtual"`
	Prazo      legacyInt        `json:"prazo"`
	Unidade    string           `json:"unidade"`
	Icone      string           `json:"icone"`
	History    []contributionV1 `json:"history"`
}

type goalV1 struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	ValorTotal Amount           `json:"valorTotal"`
	Prazo      legacyInt        `json:"prazo"`
	Unidade    string           `json:"unidade"`
	Icone      string           `json:"icone"`
	GastoAtual *Amount          `json:"gastoAtual"`
	History    []contributionV1 `json:"history"`
}

// legacyInt decodes a number that older clients wrote as an integer, a float or a
// numeric string. Anything else decodes as 0 so the rest of the record survives.
type legacyInt int

func (n *legacyInt) UnmarshalJSON(data []byte) error {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.Trim(string(bytes.TrimSpace(data)), `"`)))
	if err != nil {
		*n = 0
		return nil
	}
	*n = legacyInt(d.Round(0).IntPart())
	return nil
}

type contributionV1 struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Amount Amount `json:"amount"`
}

// goalSchema guesses the schema of a goal record from its field names.
func goalSchema(fields map[string]json.RawMessage) int {
	if v, ok := fields["schemaVersion"]; ok {
		var n int
		if json.Unmarshal(v, &n) == nil && n > 0 {
			return n
		}
	}
	has := func(names ...string) bool {
		for _, name := range names {
			if _, ok := fields[name]; ok {
				return true
			}
		}
		return false
	}
	switch {
	case has("targetAmount", "accumulated"):
		return 2
	case has("valorTotal"):
		return 1
	case has("nome", "valor"):
		return 0
	default:
		return 1
	}
}

func upgradeGoalV0(g goalV0) goalV1 {
	name := g.Nome
	if name == "" {
		name = g.Name
	}
	return goalV1{
		ID:         g.ID,
		Name:       name,
		ValorTotal: g.Valor,
		Prazo:      g.Prazo,
		Unidade:    g.Unidade,
		Icone:      g.Icone,
		GastoAtual: g.GastoAtual,
		History:    g.History,
	}
}

func upgradeGoalV1(g goalV1, newID func() string) Goal {
	out := Goal{
		ID:            g.ID,
		Name:          strings.TrimSpace(g.Name),
		TargetAmount:  g.ValorTotal,
		TermValue:     int(g.Prazo),
		TermUnit:      legacyTermUnit(g.Unidade),
		IconTag:       g.Icone,
		History:       make([]GoalContribution, 0, len(g.History)),
		SchemaVersion: CurrentGoalSchema,
	}
	if out.ID == "" {
		out.ID = newID()
	}
	if out.Name == "" {
		out.Name = DefaultGoalName
	}
	if out.IconTag == "" {
		out.IconTag = DefaultGoalIcon
	}

	for _, c := range g.History {
		id := c.ID
		if id == "" {
			id = newID()
		}
		at, _ := time.Parse(time.RFC3339Nano, c.Date)
		out.History = append(out.History, GoalContribution{ID: id, OccurredAt: at, Amount: c.Amount})
	}

	sum := out.historySum()
	out.Accumulated = sum
	if g.GastoAtual != nil {
		out.Accumulated = *g.GastoAtual
	}
	out.CarriedOver = out.Accumulated.Sub(sum)
	return out
}

// repairGoal fills defaults on a current-schema record and restores the accumulated
// invariant. It reports whether anything changed.
func repairGoal(g *Goal, newID func() string) bool {
	changed := false
	if g.ID == "" {
		g.ID = newID()
		changed = true
	}
	if strings.TrimSpace(g.Name) == "" {
		g.Name = DefaultGoalName
		changed = true
	}
	if g.IconTag == "" {
		g.IconTag = DefaultGoalIcon
		changed = true
	}
	if !g.TermUnit.Valid() {
		g.TermUnit = legacyTermUnit(string(g.TermUnit))
		changed = true
	}
	if g.History == nil {
		g.History = []GoalContribution{}
	}
	if want := g.CarriedOver.Add(g.historySum()); !g.Accumulated.Equal(want) {
		g.Accumulated = want
		changed = true
	}
	g.SchemaVersion = CurrentGoalSchema
	return changed
}

func legacyTermUnit(s string) TermUnit {
	u, err := ParseTermUnit(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return Months
	}
	return u
}

func decodeGoals(data []byte, newID func() string) ([]Goal, decodeResult, error) {
	var res decodeResult
	raw, err := decodeRecords(data)
	if err != nil {
		return nil, res, err
	}

	goals := make([]Goal, 0, len(raw))
	for _, rec := range raw {
		g, migrated, err := decodeGoal(rec, newID)
		if err != nil {
			res.skipped++
			continue
		}
		if migrated {
			res.migrated++
		}
		goals = append(goals, g)
	}
	res.records = len(goals)
	return goals, res, nil
}

func decodeGoal(rec json.RawMessage, newID func() string) (Goal, bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec, &fields); err != nil || fields == nil {
		return Goal{}, false, fmt.Errorf("goal record is not an object")
	}

	switch schema := goalSchema(fields); schema {
	case 0:
		var v0 goalV0
		if err := json.Unmarshal(rec, &v0); err != nil {
			return Goal{}, false, err
		}
		return upgradeGoalV1(upgradeGoalV0(v0), newID), true, nil
	case 1:
		var v1 goalV1
		if err := json.Unmarshal(rec, &v1); err != nil {
			return Goal{}, false, err
		}
		return upgradeGoalV1(v1, newID), true, nil
	case CurrentGoalSchema:
		var g Goal
		if err := json.Unmarshal(rec, &g); err != nil {
			return Goal{}, false, err
		}
		_, versioned := fields["schemaVersion"]
		changed := repairGoal(&g, newID)
		return g, changed || !versioned, nil
	default:
		return Goal{}, false, fmt.Errorf("unsupported goal schema %d", schema)
	}
}

type accountRecord struct {
	Account
	Bank  string `json:"bank"`
	Color string `json:"color"`
}

func decodeAccounts(data []byte) ([]Account, decodeResult, error) {
	var res decodeResult
	raw, err := decodeRecords(data)
	if err != nil {
		return nil, res, err
	}

	accounts := make([]Account, 0, len(raw))
	for _, rec := range raw {
		var r accountRecord
		if err := json.Unmarshal(rec, &r); err != nil || r.ID == "" {
			res.skipped++
			continue
		}
		a := r.Account
		migrated := false
		if a.BankKind == "" && r.Bank != "" {
			a.BankKind = BankKind(r.Bank)
			migrated = true
		}
		if a.ColorTag == "" && r.Color != "" {
			a.ColorTag = colorTag(r.Color)
			migrated = true
		}
		if migrated {
			res.migrated++
		}
		accounts = append(accounts, a)
	}
	res.records = len(accounts)
	return accounts, res, nil
}

// colorTag reduces a style class such as "bg-purple-600" to "purple".
func colorTag(class string) string {
	parts := strings.Split(strings.TrimPrefix(class, "bg-"), "-")
	return parts[0]
}

type transactionRecord struct {
	Transaction
	Type string `json:"type"`
	Date string `json:"date"`
}

func decodeTransactions(data []byte) ([]Transaction, decodeResult, error) {
	var res decodeResult
	raw, err := decodeRecords(data)
	if err != nil {
		return nil, res, err
	}

	txs := make([]Transaction, 0, len(raw))
	for _, rec := range raw {
		var r transactionRecord
		if err := json.Unmarshal(rec, &r); err != nil {
			res.skipped++
			continue
		}
		t := r.Transaction
		migrated := false
		if t.Kind == "" && r.Type != "" {
			t.Kind = TransactionKind(r.Type)
			migrated = true
		}
		if t.OccurredAt.IsZero() && r.Date != "" {
			if at, err := time.Parse(time.RFC3339Nano, r.Date); err == nil {
				t.OccurredAt = at
			}
			migrated = true
		}
		if t.DisplayDate == "" && !t.OccurredAt.IsZero() {
			t.DisplayDate = DisplayDate(t.OccurredAt.Local())
			migrated = true
		}
		if t.ID == 0 || !t.Kind.Valid() || !t.Amount.IsPositive() {
			res.skipped++
			continue
		}
		if migrated {
			res.migrated++
		}
		txs = append(txs, t)
	}
	res.records = len(txs)
	return txs, res, nil
}

type profileRecord struct {
	UserProfile
	Name string `json:"name"`
}

func decodeProfile(data []byte) (UserProfile, decodeResult, error) {
	var r profileRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return UserProfile{}, decodeResult{}, fmt.Errorf("decode profile: %w", err)
	}

	res := decodeResult{records: 1}
	p := r.UserProfile
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.DisplayName == "" && strings.TrimSpace(r.Name) != "" {
		p.DisplayName = strings.TrimSpace(r.Name)
		res.migrated = 1
	}
	if p.DisplayName == "" {
		p.DisplayName = DefaultDisplayName
	}
	return p, res, nil
}

package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pocket-ledger/pkg/logging"

	"go.uber.org/zap"
)

// pendingUndo is a removed transaction that may still be restored.
type pendingUndo struct {
	tx        Transaction
	expiresAt time.Time
}

// AddTransaction records income or expense on an account and applies it to the
// account's balance. The transaction is placed first in Transactions.
func (s *Store) AddTransaction(ctx context.Context, amount Amount, description string, kind TransactionKind, accountID string) (Transaction, error) {
	start := time.Now()
	tx, err := s.addTransaction(ctx, amount, description, kind, accountID)
	s.finish("add_transaction", start, err, MsgTransactionAdded)
	return tx, err
}

func (s *Store) addTransaction(ctx context.Context, amount Amount, description string, kind TransactionKind, accountID string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(ctx); err != nil {
		return Transaction{}, err
	}

	description = strings.TrimSpace(description)
	idx := s.accountIndex(accountID)
	switch {
	case !amount.IsPositive():
		return Transaction{}, ErrInvalidAmount
	case description == "":
		return Transaction{}, ErrEmptyDescription
	case !kind.Valid():
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	case idx < 0:
		return Transaction{}, fmt.Errorf("%w: %q", ErrUnknownAccount, accountID)
	}

	now := s.now()
	tx := Transaction{
		ID:          s.nextTransactionID(now),
		Description: description,
		Amount:      amount,
		Kind:        kind,
		AccountID:   accountID,
		OccurredAt:  now,
		DisplayDate: DisplayDate(now),
	}

	s.transactions = append([]Transaction{tx}, s.transactions...)
	s.accounts[idx].Balance = s.accounts[idx].Balance.Add(tx.Signed())
	s.metrics.RecordBalance(accountID, s.accounts[idx].Balance.Float64())

	s.logger.Debug("transaction added",
		logging.TransactionID(tx.ID),
		logging.AccountID(accountID),
		zap.String("kind", string(kind)),
		zap.Stringer("amount", amount),
	)

	return tx, s.persist(ctx, BlobTransactions, BlobAccounts)
}

// RemoveTransaction deletes a transaction and reverses its balance effect. The returned
// Undo can be passed to UndoRemove until it expires.
func (s *Store) RemoveTransaction(ctx context.Context, id int64) (Undo, error) {
	start := time.Now()
	undo, err := s.removeTransaction(ctx, id)
	s.finish("remove_transaction", start, err, MsgTransactionRemoved)
	return undo, err
}

func (s *Store) removeTransaction(ctx context.Context, id int64) (Undo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(ctx); err != nil {
		return Undo{}, err
	}
	pos := s.transactionIndex(id)
	if pos < 0 {
		return Undo{}, fmt.Errorf("%w: %d", ErrUnknownTransaction, id)
	}

	tx := s.transactions[pos]
	s.transactions = append(s.transactions[:pos:pos], s.transactions[pos+1:]...)

	if idx := s.accountIndex(tx.AccountID); idx >= 0 {
		s.accounts[idx].Balance = s.accounts[idx].Balance.Sub(tx.Signed())
		s.metrics.RecordBalance(tx.AccountID, s.accounts[idx].Balance.Float64())
	} else {
		s.logger.Warn("removed transaction of missing account", logging.TransactionID(id), logging.AccountID(tx.AccountID))
	}

	undo := Undo{TransactionID: id, ExpiresAt: s.now().Add(s.undoWindow)}
	s.pending.Set(undoKey(id), pendingUndo{tx: tx, expiresAt: undo.ExpiresAt}, s.undoWindow)

	return undo, s.persist(ctx, BlobTransactions, BlobAccounts)
}

// UndoRemove restores a transaction removed less than the undo window ago, placing it
// first in Transactions with its original fields and balance effect. Each removal can be
// undone once.
func (s *Store) UndoRemove(ctx context.Context, id int64) (Transaction, error) {
	start := time.Now()
	tx, err := s.undoRemove(ctx, id)

	switch {
	case err == nil:
		s.metrics.RecordUndo("restored")
	case IsNotFound(err):
		s.metrics.RecordUndo("expired")
	case IsPersistence(err):
		s.metrics.RecordUndo("restored")
	default:
		s.metrics.RecordUndo("failed")
	}

	s.finish("undo_remove", start, err, MsgTransactionRestored)
	return tx, err
}

func (s *Store) undoRemove(ctx context.Context, id int64) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(ctx); err != nil {
		return Transaction{}, err
	}

	key := undoKey(id)
	item, ok := s.pending.Get(key)
	if !ok {
		return Transaction{}, fmt.Errorf("%w: transaction %d", ErrUndoExpired, id)
	}
	s.pending.Delete(key)

	p := item.(pendingUndo)
	if s.now().After(p.expiresAt) || s.transactionIndex(id) >= 0 {
		return Transaction{}, fmt.Errorf("%w: transaction %d", ErrUndoExpired, id)
	}

	idx := s.accountIndex(p.tx.AccountID)
	if idx < 0 {
		return Transaction{}, fmt.Errorf("%w: %q no longer exists", ErrUnknownAccount, p.tx.AccountID)
	}

	s.transactions = append([]Transaction{p.tx}, s.transactions...)
	s.accounts[idx].Balance = s.accounts[idx].Balance.Add(p.tx.Signed())
	s.metrics.RecordBalance(p.tx.AccountID, s.accounts[idx].Balance.Float64())

	return p.tx, s.persist(ctx, BlobTransactions, BlobAccounts)
}

func undoKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// nextTransactionID derives an id from now that is greater than every id issued or
// loaded so far. The caller holds s.mu.
func (s *Store) nextTransactionID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastTxID {
		id = s.lastTxID + 1
	}
	s.lastTxID = id
	return id
}

func (s *Store) accountIndex(id string) int {
	for i, a := range s.accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) transactionIndex(id int64) int {
	for i, t := range s.transactions {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Transactions returns all transactions, most recent first.
func (s *Store) Transactions() []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transaction{}, s.transactions...)
}

// AccountTransactions returns the transactions of one account, most recent first.
func (s *Store) AccountTransactions(accountID string) []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Transaction{}
	for _, t := range s.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

// Accounts returns a copy of the accounts in display order.
func (s *Store) Accounts() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Account{}, s.accounts...)
}

// Account looks up an account by id.
func (s *Store) Account(id string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.accountIndex(id); idx >= 0 {
		return s.accounts[idx], true
	}
	return Account{}, false
}

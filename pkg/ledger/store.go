// Package ledger owns a user's accounts, transactions, savings goals and profile, keeps
// account balances consistent with the transactions that reference them, and persists
// everything as four JSON blobs in a kv.Store.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pocket-ledger/pkg/kv"
	"pocket-ledger/pkg/logging"
	"pocket-ledger/pkg/metrics"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Blob names, also the unprefixed storage keys.
const (
	BlobAccounts     = "accounts"
	BlobTransactions = "transactions"
	BlobGoals        = "goals"
	BlobProfile      = "userProfile"
)

var allBlobs = []string{BlobAccounts, BlobTransactions, BlobGoals, BlobProfile}

// Store is the ledger state manager. All methods are safe for concurrent use; mutations
// are serialized.
type Store struct {
	kv         kv.Store
	keys       kv.Namespace
	keyPrefix  string
	logger     *logging.Logger
	metrics    metrics.MetricsCollector
	notifier   Notifier
	now        func() time.Time
	newID      func() string
	undoWindow time.Duration

	loadOnce sync.Once
	ready    chan struct{}
	report   *LoadReport
	loadErr  error

	mu           sync.RWMutex
	state        State
	accounts     []Account
	transactions []Transaction
	goals        []Goal
	profile      UserProfile
	lastTxID     int64
	pending      *cache.Cache
}

// New creates a Store backed by store. It holds defaults until Load is called.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:         store,
		logger:     logging.Global().Named("ledger"),
		metrics:    metrics.NoOpCollector{},
		now:        time.Now,
		newID:      uuid.NewString,
		undoWindow: DefaultUndoWindow,
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.logger)
	}
	s.keys = kv.Namespace(s.keyPrefix)
	s.pending = cache.New(s.undoWindow, max(s.undoWindow, time.Second))

	s.accounts = SeedAccounts()
	s.transactions = []Transaction{}
	s.goals = []Goal{}
	s.profile = UserProfile{DisplayName: DefaultDisplayName}
	return s
}

// State reports where the store is in its load lifecycle.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready reports whether Load has completed. Mutations fail with ErrNotReady until then.
func (s *Store) Ready() bool {
	return s.State() == Ready
}

// WaitReady blocks until Load has completed or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load reads the four blobs, upgrades legacy records and marks the store Ready. Each
// blob that is missing, unreadable or corrupt falls back to its default without
// affecting the others. The store is Ready when Load returns, even when the returned
// error (a join of ErrPersistence errors, one per degraded blob) is non-nil. Load never
// writes. Only the first call does any work; later calls return its result.
func (s *Store) Load(ctx context.Context) (*LoadReport, error) {
	s.loadOnce.Do(func() {
		s.report, s.loadErr = s.load(ctx)
	})
	return s.report, s.loadErr
}

func (s *Store) load(ctx context.Context) (*LoadReport, error) {
	start := time.Now()

	s.mu.Lock()
	s.state = Loading
	s.mu.Unlock()

	s.logger.Info("loading ledger", logging.Backend(s.kv.Name()), zap.String("prefix", s.keyPrefix))

	report := &LoadReport{}
	snap := snapshot{
		accounts:     SeedAccounts(),
		transactions: []Transaction{},
		goals:        []Goal{},
		profile:      UserProfile{DisplayName: DefaultDisplayName},
	}

	keys := make([]string, len(allBlobs))
	for i, blob := range allBlobs {
		keys[i] = s.keys.Key(blob)
	}
	fetched := kv.GetEach(ctx, s.kv, keys)

	var errs []error
	for i, blob := range allBlobs {
		br := s.loadBlob(blob, fetched[i], &snap)
		report.set(br)
		s.metrics.RecordLoad(blob, string(br.Outcome))
		if br.Err != nil {
			errs = append(errs, fmt.Errorf("%w: load %s: %w", ErrPersistence, blob, br.Err))
		}
	}

	s.mu.Lock()
	s.accounts = snap.accounts
	s.transactions = snap.transactions
	s.goals = snap.goals
	s.profile = snap.profile
	for _, t := range snap.transactions {
		s.lastTxID = max(s.lastTxID, t.ID)
	}
	s.state = Ready
	s.recordBalances()
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("ledger ready",
		zap.Int("accounts", len(snap.accounts)),
		zap.Int("transactions", len(snap.transactions)),
		zap.Int("goals", len(snap.goals)),
		zap.Duration("duration", time.Since(start)),
	)

	for _, br := range report.Blobs() {
		if br.Outcome == OutcomeCorrupt || br.Outcome == OutcomeUnavailable {
			s.notifier.Notify(Notification{
				Level:   LevelError,
				Message: fmt.Sprintf("Não foi possível carregar %s; usando valores padrão", blobLabel(br.Blob)),
			})
		}
	}

	return report, errors.Join(errs...)
}

// loadBlob decodes one fetched blob into snap, leaving the default in place on any
// failure.
func (s *Store) loadBlob(blob string, fetched kv.Result, snap *snapshot) BlobReport {
	br := BlobReport{Blob: blob}

	data, err := fetched.Value, fetched.Err
	switch {
	case kv.IsNotFound(err):
		br.Outcome = OutcomeMissing
		return br
	case err != nil:
		br.Outcome = OutcomeUnavailable
		br.Err = err
		s.logger.Warn("blob unavailable, using default", logging.Blob(blob), zap.Error(err))
		return br
	}

	if isNullJSON(data) {
		br.Outcome = OutcomeMissing
		return br
	}

	var res decodeResult
	switch blob {
	case BlobAccounts:
		var accounts []Account
		accounts, res, err = decodeAccounts(data)
		if err == nil {
			snap.accounts = accounts
		}
	case BlobTransactions:
		var txs []Transaction
		txs, res, err = decodeTransactions(data)
		if err == nil {
			snap.transactions = txs
		}
	case BlobGoals:
		var goals []Goal
		goals, res, err = decodeGoals(data, s.newID)
		if err == nil {
			snap.goals = goals
		}
	case BlobProfile:
		var profile UserProfile
		profile, res, err = decodeProfile(data)
		if err == nil {
			snap.profile = profile
		}
	}

	if err != nil {
		br.Outcome = OutcomeCorrupt
		br.Err = err
		s.logger.Warn("blob corrupt, using default", logging.Blob(blob), zap.Int("bytes", len(data)), zap.Error(err))
		return br
	}

	br.Records = res.records
	br.Migrated = res.migrated
	br.Skipped = res.skipped
	br.Outcome = OutcomeLoaded
	if res.migrated > 0 {
		br.Outcome = OutcomeMigrated
		s.logger.Info("upgraded legacy records", logging.Blob(blob), zap.Int("migrated", res.migrated))
	}
	if res.skipped > 0 {
		s.logger.Warn("skipped unreadable records", logging.Blob(blob), zap.Int("skipped", res.skipped))
	}
	return br
}

type snapshot struct {
	accounts     []Account
	transactions []Transaction
	goals        []Goal
	profile      UserProfile
}

func blobLabel(blob string) string {
	switch blob {
	case BlobAccounts:
		return "as contas"
	case BlobTransactions:
		return "as movimentações"
	case BlobGoals:
		return "as metas"
	default:
		return "o perfil"
	}
}

// begin checks that a mutation may run. The caller holds s.mu.
func (s *Store) begin(ctx context.Context) error {
	if s.state != Ready {
		return ErrNotReady
	}
	return ctx.Err()
}

// persist writes the named blobs in one kv.SetMulti call. The caller holds s.mu.
func (s *Store) persist(ctx context.Context, blobs ...string) error {
	items := make(map[string][]byte, len(blobs))
	for _, blob := range blobs {
		data, err := s.encode(blob)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", ErrPersistence, blob, err)
		}
		items[s.keys.Key(blob)] = data
	}

	if err := kv.SetMulti(ctx, s.kv, items); err != nil {
		s.logger.Error("persist failed", logging.Blobs(blobs), zap.Error(err))
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, strings.Join(blobs, ","), err)
	}
	return nil
}

func (s *Store) encode(blob string) ([]byte, error) {
	switch blob {
	case BlobAccounts:
		return json.Marshal(s.accounts)
	case BlobTransactions:
		return json.Marshal(s.transactions)
	case BlobGoals:
		for i := range s.goals {
			s.goals[i].SchemaVersion = CurrentGoalSchema
		}
		return json.Marshal(s.goals)
	case BlobProfile:
		return json.Marshal(s.profile)
	}
	return nil, fmt.Errorf("unknown blob %q", blob)
}

// Flush rewrites all four blobs. Use it to store mutations whose write failed.
func (s *Store) Flush(ctx context.Context) error {
	start := time.Now()
	s.mu.Lock()
	err := s.begin(ctx)
	if err == nil {
		err = s.persist(ctx, allBlobs...)
	}
	s.mu.Unlock()
	s.finish("flush", start, err, "")
	return err
}

// finish records metrics for a mutation and notifies the user of its outcome. It must
// be called without s.mu held.
func (s *Store) finish(op string, start time.Time, err error, success string) {
	s.metrics.RecordMutation(op, ClassifyError(err), time.Since(start))

	if err != nil {
		s.logger.Debug("mutation failed", logging.Operation(op), zap.Error(err))
		s.notifier.Notify(Notification{Level: LevelError, Message: FailureMessage(err)})
		return
	}
	if success != "" {
		s.notifier.Notify(Notification{Level: LevelSuccess, Message: success})
	}
}

// recordBalances reports every account balance. The caller holds s.mu.
func (s *Store) recordBalances() {
	for _, a := range s.accounts {
		s.metrics.RecordBalance(a.ID, a.Balance.Float64())
	}
}

// Close releases the pending-undo holder. It does not close the kv.Store.
func (s *Store) Close() {
	s.pending.Flush()
}

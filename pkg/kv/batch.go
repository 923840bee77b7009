package kv

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchStore extends Store with multi-key operations.
//
// SetMulti must be all-or-nothing: after it returns an error, readers observe either
// every old value or every new value, never a mix. The ledger relies on this to keep
// the accounts and transactions blobs consistent with each other.
type BatchStore interface {
	Store

	// GetMulti retrieves several keys at once. Missing keys are absent from the result.
	GetMulti(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetMulti overwrites several keys atomically.
	SetMulti(ctx context.Context, items map[string][]byte) error
}

// GetMulti reads keys from s, using the native batch operation when s has one and
// parallel Gets otherwise. Missing keys are absent from the result; any other error
// aborts the read.
func GetMulti(ctx context.Context, s Store, keys []string) (map[string][]byte, error) {
	if bs, ok := s.(BatchStore); ok {
		return bs.GetMulti(ctx, keys)
	}

	results := make(map[string][]byte, len(keys))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			value, err := s.Get(gctx, key)
			if IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			results[key] = value
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Result is the outcome of reading one key with GetEach.
type Result struct {
	Value []byte
	Err   error
}

// GetEach reads keys concurrently and reports every key's outcome on its own, in the
// order of keys. Unlike GetMulti, a failing key does not cancel or hide the others.
func GetEach(ctx context.Context, s Store, keys []string) []Result {
	results := make([]Result, len(keys))

	var g errgroup.Group
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			value, err := s.Get(ctx, key)
			results[i] = Result{Value: value, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// SetMulti writes items to s, using the native atomic batch operation when s has one.
// Plain stores get sequential Sets in key order, which is not atomic; it stops at the
// first failure.
func SetMulti(ctx context.Context, s Store, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}
	if bs, ok := s.(BatchStore); ok {
		return bs.SetMulti(ctx, items)
	}

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Set(ctx, k, items[k]); err != nil {
			return err
		}
	}
	return nil
}

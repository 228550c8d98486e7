// Package badgerstore implements the domain stores on an embedded Badger
// database. Documents are JSON values under typed key prefixes; secondary
// indexes are empty values whose key carries the relation.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"eventticketing/internal/domain"
)

// Key prefixes for Badger storage.
const (
	userKeyPrefix        = "user/"
	usernameKeyPrefix    = "username/"
	eventKeyPrefix       = "event/"
	reviewKeyPrefix      = "review/"
	bookedKeyPrefix      = "booked/"       // booked/<eventID>/<userID>
	participantKeyPrefix = "participant/"  // participant/<userID>/<eventID>
	eventReviewKeyPrefix = "event_review/" // event_review/<eventID>/<reviewID>
)

// DefaultMaxAttempts bounds how often a transaction closure is re-run after a
// write conflict. Every booking writes its event document, so this must cover
// a burst of concurrent bookers on one event.
const DefaultMaxAttempts = 32

// Backoff between conflicting attempts grows from retryBaseDelay up to
// retryMaxDelay; the actual wait is drawn uniformly below that ceiling.
const (
	retryBaseDelay = 500 * time.Microsecond
	retryMaxDelay  = 20 * time.Millisecond
)

// runner executes fn against a Badger transaction. update is false for
// read-only work.
type runner func(update bool, fn func(txn *badger.Txn) error) error

// Store implements domain.Store on Badger.
type Store struct {
	db          *badger.DB
	maxAttempts int
}

// Open opens a Badger database in dir. An empty dir keeps all data in memory.
func Open(dir string, logger *slog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	if logger != nil {
		opts = opts.WithLogger(&slogAdapter{logger: logger.With("component", "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// NewStore returns a Store. maxAttempts < 1 uses DefaultMaxAttempts.
func NewStore(db *badger.DB, maxAttempts int) *Store {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Store{db: db, maxAttempts: maxAttempts}
}

// standalone runs a single repository call in its own transaction. Writes
// are re-run on conflict like WithinTx, so a racing duplicate surfaces as the
// repository's own error rather than badger.ErrConflict.
func (s *Store) standalone(update bool, fn func(txn *badger.Txn) error) error {
	if !update {
		return s.db.View(fn)
	}
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(retryDelay(attempt - 1))
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Store) Users() domain.UserRepository     { return &userRepository{run: s.standalone} }
func (s *Store) Events() domain.EventRepository   { return &eventRepository{run: s.standalone} }
func (s *Store) Reviews() domain.ReviewRepository { return &reviewRepository{run: s.standalone} }

// WithinTx runs fn in one read-write transaction. Badger detects conflicts
// on every key fn read, so a commit fails with badger.ErrConflict when another
// transaction changed one of them; fn is then re-run on a fresh snapshot.
// Each conflict means some other transaction committed; a jittered wait
// between attempts keeps contenders from colliding again in lockstep.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			if werr := sleepCtx(ctx, retryDelay(attempt-1)); werr != nil {
				return werr
			}
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.runTx(ctx, fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// retryDelay returns a random wait below an exponentially growing ceiling.
func retryDelay(retry int) time.Duration {
	ceiling := retryMaxDelay
	if retry < 16 {
		ceiling = min(retryBaseDelay<<retry, retryMaxDelay)
	}
	return rand.N(ceiling)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) error {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(ctx, &txRepositories{txn: txn}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return txn.Commit()
}

type txRepositories struct {
	txn *badger.Txn
}

func (r *txRepositories) run(_ bool, fn func(txn *badger.Txn) error) error {
	return fn(r.txn)
}

func (r *txRepositories) Users() domain.UserRepository     { return &userRepository{run: r.run} }
func (r *txRepositories) Events() domain.EventRepository   { return &eventRepository{run: r.run} }
func (r *txRepositories) Reviews() domain.ReviewRepository { return &reviewRepository{run: r.run} }

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// indexKeys returns the last path segment of every key under prefix.
func indexKeys(txn *badger.Txn, prefix string) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(prefix):]))
	}
	return ids
}

// syncIndex rewrites the index keys of old so that exactly those of cur
// exist, touching only the difference.
func syncIndex(txn *badger.Txn, keyFor func(id string) string, old, cur []string) error {
	keep := make(map[string]struct{}, len(cur))
	for _, id := range cur {
		keep[id] = struct{}{}
	}
	for _, id := range old {
		if _, ok := keep[id]; ok {
			delete(keep, id)
			continue
		}
		if err := txn.Delete([]byte(keyFor(id))); err != nil {
			return err
		}
	}
	for id := range keep {
		if err := txn.Set([]byte(keyFor(id)), nil); err != nil {
			return err
		}
	}
	return nil
}

// slogAdapter routes Badger's internal logging through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Warningf(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Infof(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

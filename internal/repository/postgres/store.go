package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"eventticketing/internal/domain"
)

//go:embed schema.sql
var schema string

// Postgres error codes the store reacts to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// DefaultMaxAttempts bounds how often a transaction is re-run after a
// serialization failure or deadlock.
const DefaultMaxAttempts = 5

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.Store on Postgres.
type Store struct {
	DB          *sql.DB
	maxAttempts int
}

// NewStore returns a Store. maxAttempts < 1 uses DefaultMaxAttempts.
func NewStore(db *sql.DB, maxAttempts int) *Store {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Store{DB: db, maxAttempts: maxAttempts}
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Users() domain.UserRepository     { return &userRepository{DB: s.DB} }
func (s *Store) Events() domain.EventRepository   { return &eventRepository{DB: s.DB} }
func (s *Store) Reviews() domain.ReviewRepository { return &reviewRepository{DB: s.DB} }

// WithinTx runs fn in a transaction. Rows read through tx are locked with
// SELECT ... FOR UPDATE until commit, so callers serialize on the documents
// they touch. Serialization failures and deadlocks re-run fn; any other error,
// including context cancellation, rolls back and is returned as is.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.runTx(ctx, fn)
		if !isRetryable(err) {
			return err
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &txRepositories{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txRepositories struct {
	tx *sql.Tx
}

func (r *txRepositories) Users() domain.UserRepository {
	return &userRepository{DB: r.tx, forUpdate: true}
}

func (r *txRepositories) Events() domain.EventRepository {
	return &eventRepository{DB: r.tx, forUpdate: true}
}

func (r *txRepositories) Reviews() domain.ReviewRepository {
	return &reviewRepository{DB: r.tx}
}

func pqCode(err error) string {
	var perr *pq.Error
	if errors.As(err, &perr) {
		return string(perr.Code)
	}
	return ""
}

func isRetryable(err error) bool {
	switch pqCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

// validID reports whether id is a canonical UUID. Ids are checked before
// querying because Postgres rejects any other text with an error that
// aborts the surrounding transaction, while such an id simply matches no row.
func validID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}

func lockClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

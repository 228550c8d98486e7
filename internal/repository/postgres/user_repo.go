package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventticketing/internal/domain"
)

const userColumns = `id, name, username, email, password_hash, salt, admin, events, added_events, reviews, created_at, updated_at`

type userRepository struct {
	DB        querier
	forUpdate bool
}

// NewUserRepository returns a domain.UserRepository implemented with Postgres.
func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

// Create inserts u. A taken username yields ErrDuplicateUsername without
// raising an error inside the transaction, so the caller can still read the
// existing row.
func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (name, username, username_key, email, password_hash, salt, admin, events, added_events, reviews, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (username_key) DO NOTHING
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		u.Name, u.Username, domain.UsernameKey(u.Username), u.Email, u.PasswordHash, u.Salt, u.Admin,
		pq.Array(nonNil(u.Events)), pq.Array(nonNil(u.AddedEvents)), pq.Array(nonNil(u.Reviews)),
		u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || pqCode(err) == codeUniqueViolation {
			return domain.ErrDuplicateUsername
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.ErrUserNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1` + lockClause(r.forUpdate)
	return r.getOne(ctx, query, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username_key = $1` + lockClause(r.forUpdate)
	return r.getOne(ctx, query, domain.UsernameKey(username))
}

func (r *userRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	if !validID(u.ID) {
		return domain.ErrUserNotFound
	}
	query := `
		UPDATE users
		SET name = $1, email = $2, admin = $3, events = $4, added_events = $5, reviews = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := r.DB.ExecContext(ctx, query,
		u.Name, u.Email, u.Admin,
		pq.Array(nonNil(u.Events)), pq.Array(nonNil(u.AddedEvents)), pq.Array(nonNil(u.Reviews)),
		u.UpdatedAt, u.ID,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ListByBookedEvent(ctx context.Context, eventID string) ([]*domain.User, error) {
	if !validID(eventID) {
		return []*domain.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE $1 = ANY(events) ORDER BY id` + lockClause(r.forUpdate)
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.Salt, &u.Admin,
		pq.Array(&u.Events), pq.Array(&u.AddedEvents), pq.Array(&u.Reviews),
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventticketing/internal/domain"
)

const eventColumns = `id, title, date, venue, price, description, created_by, participants, num_users, all_reviews, created_at, updated_at`

type eventRepository struct {
	DB        querier
	forUpdate bool
}

// NewEventRepository returns a domain.EventRepository implemented with Postgres.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, date, venue, price, description, created_by, participants, num_users, all_reviews, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, cardinality($7::uuid[]), $8, $9, $10)
		RETURNING id, num_users
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Date, e.Venue, e.Price, e.Description, e.CreatedBy,
		pq.Array(nonNil(e.Participants)), pq.Array(nonNil(e.AllReviews)),
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID, &e.NumUsers)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if !validID(id) {
		return nil, domain.ErrEventNotFound
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1` + lockClause(r.forUpdate)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// Update writes the whole document. num_users is derived from the written
// participant set in the same statement.
func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	if !validID(e.ID) {
		return domain.ErrEventNotFound
	}
	query := `
		UPDATE events
		SET title = $1, date = $2, venue = $3, price = $4, description = $5,
			participants = $6, num_users = cardinality($6::uuid[]), all_reviews = $7, updated_at = $8
		WHERE id = $9
		RETURNING num_users
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.Title, e.Date, e.Venue, e.Price, e.Description,
		pq.Array(nonNil(e.Participants)), pq.Array(nonNil(e.AllReviews)),
		e.UpdatedAt, e.ID,
	).Scan(&e.NumUsers)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrEventNotFound
		}
		return err
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrEventNotFound
	}
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// List filters by a literal case-insensitive title substring and exact price.
// total is the number of matching rows before pagination.
func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter, page domain.PaginationParams) ([]*domain.Event, int, error) {
	query := `
		SELECT ` + eventColumns + `, COUNT(*) OVER() AS total
		FROM events
		WHERE ($1 = '' OR strpos(lower(title), lower($1)) > 0)
			AND ($2::numeric IS NULL OR price = $2)
		ORDER BY date, id
		LIMIT $3 OFFSET $4
	`
	var price sql.NullFloat64
	if filter.Price != nil {
		price = sql.NullFloat64{Float64: *filter.Price, Valid: true}
	}
	var limit sql.NullInt64
	if page.PageSize > 0 {
		limit = sql.NullInt64{Int64: int64(page.PageSize), Valid: true}
	}
	rows, err := r.DB.QueryContext(ctx, query, filter.Title, price, limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	total := 0
	for rows.Next() {
		e := &domain.Event{}
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Date, &e.Venue, &e.Price, &e.Description, &e.CreatedBy,
			pq.Array(&e.Participants), &e.NumUsers, pq.Array(&e.AllReviews), &e.CreatedAt, &e.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

func (r *eventRepository) ListByParticipant(ctx context.Context, userID string) ([]*domain.Event, error) {
	if !validID(userID) {
		return []*domain.Event{}, nil
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE $1 = ANY(participants) ORDER BY date, id`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(
		&e.ID, &e.Title, &e.Date, &e.Venue, &e.Price, &e.Description, &e.CreatedBy,
		pq.Array(&e.Participants), &e.NumUsers, pq.Array(&e.AllReviews), &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventticketing/internal/domain"
)

const reviewColumns = `id, user_id, event_id, rating, review_text, created_at`

type reviewRepository struct {
	DB querier
}

// NewReviewRepository returns a domain.ReviewRepository implemented with Postgres.
func NewReviewRepository(db *sql.DB) domain.ReviewRepository {
	return &reviewRepository{DB: db}
}

func (r *reviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	query := `
		INSERT INTO reviews (user_id, event_id, rating, review_text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, rv.UserID, rv.EventID, rv.Rating, rv.Text, rv.CreatedAt).Scan(&rv.ID)
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	rv := &domain.Review{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&rv.ID, &rv.UserID, &rv.EventID, &rv.Rating, &rv.Text, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rv, nil
}

func (r *reviewRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE event_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, eventID)
}

func (r *reviewRepository) DeleteByEventID(ctx context.Context, eventID string) ([]*domain.Review, error) {
	query := `DELETE FROM reviews WHERE event_id = $1 RETURNING ` + reviewColumns
	return r.list(ctx, query, eventID)
}

func (r *reviewRepository) list(ctx context.Context, query, eventID string) ([]*domain.Review, error) {
	if !validID(eventID) {
		return []*domain.Review{}, nil
	}
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]*domain.Review, 0)
	for rows.Next() {
		rv := &domain.Review{}
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.EventID, &rv.Rating, &rv.Text, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

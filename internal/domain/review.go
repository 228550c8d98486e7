package domain

import (
	"context"
	"time"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is feedback a participant left on an event. It is immutable once
// created and only removed when its event is deleted.
// swagger:model Review
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"review_text"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewReview returns a new Review. ID is typically set by the repository on create.
func NewReview(userID, eventID string, rating int, text string, createdAt time.Time) *Review {
	return &Review{
		UserID:    userID,
		EventID:   eventID,
		Rating:    rating,
		Text:      text,
		CreatedAt: createdAt,
	}
}

// ReviewInput is the feedback submitted for an event.
type ReviewInput struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"review_text" validate:"required"`
}

// ReviewRepository defines the interface for review storage.
type ReviewRepository interface {
	Create(ctx context.Context, review *Review) error
	GetByID(ctx context.Context, id string) (*Review, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Review, error)
	// DeleteByEventID removes every review of eventID and returns the removed reviews.
	DeleteByEventID(ctx context.Context, eventID string) ([]*Review, error)
}

// ReviewService records feedback on attended events.
type ReviewService interface {
	SubmitReview(ctx context.Context, callerID, username, eventID string, in ReviewInput) (*Review, error)
	ListEventReviews(ctx context.Context, eventID string) ([]*Review, error)
}

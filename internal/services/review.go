package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"eventticketing/internal/domain"
	"eventticketing/internal/metrics"
	"eventticketing/internal/validation"
)

type reviewService struct {
	store            domain.Store
	policy           *AccessPolicy
	logger           *slog.Logger
	requirePastEvent bool
	contextTimeout   time.Duration
	now              func() time.Time
}

// NewReviewService returns a ReviewService. Only current participants may
// review an event; with requirePastEvent the event date must also have passed.
func NewReviewService(store domain.Store, logger *slog.Logger, requirePastEvent bool, timeout time.Duration) domain.ReviewService {
	return &reviewService{
		store:            store,
		policy:           NewAccessPolicy(store.Users()),
		logger:           logger,
		requirePastEvent: requirePastEvent,
		contextTimeout:   timeout,
		now:              time.Now,
	}
}

func (s *reviewService) SubmitReview(ctx context.Context, callerID, username, eventID string, in domain.ReviewInput) (review *domain.Review, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordOperation("submit_review", err, time.Since(start))
		if err != nil {
			s.logger.DebugContext(ctx, "review rejected", "event_id", eventID, "username", username, "error", err)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.policy.requireActAs(ctx, callerID, username); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		event, err := tx.Events().GetByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		user, err := tx.Users().GetByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if !slices.Contains(user.Events, event.ID) {
			return domain.ErrNotParticipant
		}
		now := s.now()
		if s.requirePastEvent && event.Date.After(now) {
			return domain.ErrEventNotFinished
		}

		review = domain.NewReview(user.ID, event.ID, in.Rating, in.Text, now)
		if err := tx.Reviews().Create(ctx, review); err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		event.AllReviews = append(event.AllReviews, review.ID)
		user.Reviews = append(user.Reviews, review.ID)
		event.UpdatedAt, user.UpdatedAt = now, now
		if err := tx.Events().Update(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if err := tx.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.AsStorageError("submit review", err)
	}
	return review, nil
}

func (s *reviewService) ListEventReviews(ctx context.Context, eventID string) ([]*domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.store.Events().GetByID(ctx, eventID); err != nil {
		return nil, domain.AsStorageError("get event", err)
	}
	reviews, err := s.store.Reviews().ListByEventID(ctx, eventID)
	if err != nil {
		return nil, domain.AsStorageError("list reviews", err)
	}
	return reviews, nil
}

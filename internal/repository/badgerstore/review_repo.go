package badgerstore

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"eventticketing/internal/domain"
)

type reviewRepository struct {
	run runner
}

func reviewKey(id string) string { return reviewKeyPrefix + id }

func eventReviewKey(eventID, reviewID string) string {
	return eventReviewKeyPrefix + eventID + "/" + reviewID
}

func (r *reviewRepository) Create(_ context.Context, rv *domain.Review) error {
	return r.run(true, func(txn *badger.Txn) error {
		rv.ID = uuid.NewString()
		if err := setJSON(txn, reviewKey(rv.ID), rv); err != nil {
			return err
		}
		return txn.Set([]byte(eventReviewKey(rv.EventID, rv.ID)), nil)
	})
}

func (r *reviewRepository) GetByID(_ context.Context, id string) (*domain.Review, error) {
	var rv *domain.Review
	err := r.run(false, func(txn *badger.Txn) error {
		var err error
		rv, err = loadReview(txn, id)
		return err
	})
	return rv, err
}

func (r *reviewRepository) ListByEventID(_ context.Context, eventID string) ([]*domain.Review, error) {
	var reviews []*domain.Review
	err := r.run(false, func(txn *badger.Txn) error {
		var err error
		reviews, err = loadEventReviews(txn, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) DeleteByEventID(_ context.Context, eventID string) ([]*domain.Review, error) {
	var reviews []*domain.Review
	err := r.run(true, func(txn *badger.Txn) error {
		var err error
		reviews, err = loadEventReviews(txn, eventID)
		if err != nil {
			return err
		}
		for _, rv := range reviews {
			if err := txn.Delete([]byte(reviewKey(rv.ID))); err != nil {
				return err
			}
			if err := txn.Delete([]byte(eventReviewKey(eventID, rv.ID))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func loadEventReviews(txn *badger.Txn, eventID string) ([]*domain.Review, error) {
	reviews := make([]*domain.Review, 0)
	for _, id := range indexKeys(txn, eventReviewKeyPrefix+eventID+"/") {
		rv, err := loadReview(txn, id)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].CreatedAt.Before(reviews[j].CreatedAt)
		}
		return reviews[i].ID < reviews[j].ID
	})
	return reviews, nil
}

func loadReview(txn *badger.Txn, id string) (*domain.Review, error) {
	rv := &domain.Review{}
	if err := getJSON(txn, reviewKey(id), rv); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rv, nil
}

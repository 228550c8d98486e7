package services

import (
	"context"
	"time"

	"eventticketing/internal/domain"
)

type eventQueryService struct {
	store          domain.Store
	policy         *AccessPolicy
	contextTimeout time.Duration
}

// NewEventQueryService returns the read-only event views.
func NewEventQueryService(store domain.Store, timeout time.Duration) domain.EventQueryService {
	return &eventQueryService{
		store:          store,
		policy:         NewAccessPolicy(store.Users()),
		contextTimeout: timeout,
	}
}

func (s *eventQueryService) ListEvents(ctx context.Context, filter domain.EventFilter, page domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, total, err := s.store.Events().List(ctx, filter, page)
	if err != nil {
		return nil, 0, domain.AsStorageError("list events", err)
	}
	return events, total, nil
}

func (s *eventQueryService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, domain.AsStorageError("get event", err)
	}
	return event, nil
}

// ListUserEvents returns the events username is a participant of.
func (s *eventQueryService) ListUserEvents(ctx context.Context, callerID, username string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	caller, err := s.policy.requireActAs(ctx, callerID, username)
	if err != nil {
		return nil, err
	}
	events, err := s.store.Events().ListByParticipant(ctx, caller.ID)
	if err != nil {
		return nil, domain.AsStorageError("list user events", err)
	}
	return events, nil
}

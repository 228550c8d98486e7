package badgerstore

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"eventticketing/internal/domain"
)

type eventRepository struct {
	run runner
}

func eventKey(id string) string { return eventKeyPrefix + id }

// participantKeys indexes eventID under each of its participants.
func participantKeys(eventID string) func(userID string) string {
	return func(userID string) string { return participantKeyPrefix + userID + "/" + eventID }
}

func (r *eventRepository) Create(_ context.Context, e *domain.Event) error {
	return r.run(true, func(txn *badger.Txn) error {
		e.ID = uuid.NewString()
		e.NumUsers = len(e.Participants)
		if err := setJSON(txn, eventKey(e.ID), e); err != nil {
			return err
		}
		return syncIndex(txn, participantKeys(e.ID), nil, e.Participants)
	})
}

func (r *eventRepository) GetByID(_ context.Context, id string) (*domain.Event, error) {
	var e *domain.Event
	err := r.run(false, func(txn *badger.Txn) error {
		var err error
		e, err = loadEvent(txn, id)
		return err
	})
	return e, err
}

func (r *eventRepository) Update(_ context.Context, e *domain.Event) error {
	return r.run(true, func(txn *badger.Txn) error {
		old, err := loadEvent(txn, e.ID)
		if err != nil {
			return err
		}
		e.NumUsers = len(e.Participants)
		if err := setJSON(txn, eventKey(e.ID), e); err != nil {
			return err
		}
		return syncIndex(txn, participantKeys(e.ID), old.Participants, e.Participants)
	})
}

func (r *eventRepository) Delete(_ context.Context, id string) error {
	return r.run(true, func(txn *badger.Txn) error {
		old, err := loadEvent(txn, id)
		if err != nil {
			return err
		}
		if err := syncIndex(txn, participantKeys(id), old.Participants, nil); err != nil {
			return err
		}
		return txn.Delete([]byte(eventKey(id)))
	})
}

// List scans every event document and filters in memory.
func (r *eventRepository) List(_ context.Context, filter domain.EventFilter, page domain.PaginationParams) ([]*domain.Event, int, error) {
	var matched []*domain.Event
	title := strings.ToLower(filter.Title)
	err := r.run(false, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(eventKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			e := &domain.Event{}
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, e)
			}); err != nil {
				return err
			}
			if title != "" && !strings.Contains(strings.ToLower(e.Title), title) {
				continue
			}
			if filter.Price != nil && e.Price != *filter.Price {
				continue
			}
			matched = append(matched, e)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sortEvents(matched)
	start, end := page.Window(len(matched))
	events := make([]*domain.Event, 0, end-start)
	events = append(events, matched[start:end]...)
	return events, len(matched), nil
}

func (r *eventRepository) ListByParticipant(_ context.Context, userID string) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0)
	err := r.run(false, func(txn *badger.Txn) error {
		for _, id := range indexKeys(txn, participantKeyPrefix+userID+"/") {
			e, err := loadEvent(txn, id)
			if err != nil {
				return err
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortEvents(events)
	return events, nil
}

func sortEvents(events []*domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].ID < events[j].ID
	})
}

func loadEvent(txn *badger.Txn, id string) (*domain.Event, error) {
	e := &domain.Event{}
	if err := getJSON(txn, eventKey(id), e); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

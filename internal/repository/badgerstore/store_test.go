package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventticketing/internal/domain"
)

func newTestStore(t *testing.T, maxAttempts int) *Store {
	t.Helper()
	db, err := Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, maxAttempts)
}

func seedEvent(t *testing.T, s *Store, title string, price float64, date time.Time) *domain.Event {
	t.Helper()
	e := domain.NewEvent(domain.EventFields{
		Title: title, Date: date, Venue: "Hall", Price: &price, Description: "d",
	}, "admin-1", date, date)
	require.NoError(t, s.Events().Create(context.Background(), e))
	return e
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)
	now := time.Now().UTC()

	alice := domain.NewUser("Alice", "Alice", "", false, now, now)
	require.NoError(t, s.Users().Create(ctx, alice))
	require.NotEmpty(t, alice.ID)

	t.Run("username lookup ignores case", func(t *testing.T) {
		got, err := s.Users().GetByUsername(ctx, "aLiCe")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, "Alice", got.Username)
	})

	t.Run("credentials are persisted", func(t *testing.T) {
		carol := domain.NewUser("Carol", "carol", "carol@example.com", true, now, now)
		carol.PasswordHash = "hash"
		carol.Salt = "salt"
		require.NoError(t, s.Users().Create(ctx, carol))

		got, err := s.Users().GetByUsername(ctx, "CAROL")
		require.NoError(t, err)
		assert.Equal(t, "hash", got.PasswordHash)
		assert.Equal(t, "salt", got.Salt)
		assert.True(t, got.Admin)
		assert.Equal(t, "carol@example.com", got.Email)

		got.Events = []string{"ev-9"}
		require.NoError(t, s.Users().Update(ctx, got))
		got, err = s.Users().GetByID(ctx, carol.ID)
		require.NoError(t, err)
		assert.Equal(t, "hash", got.PasswordHash)
		assert.Equal(t, "salt", got.Salt)
		assert.Equal(t, []string{"ev-9"}, got.Events)
		assert.Equal(t, []string{}, got.Reviews)
	})

	t.Run("duplicate username", func(t *testing.T) {
		err := s.Users().Create(ctx, domain.NewUser("Other", "ALICE", "", false, now, now))
		require.ErrorIs(t, err, domain.ErrDuplicateUsername)
	})

	t.Run("concurrent sign-ups keep one account", func(t *testing.T) {
		const n = 10
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = s.Users().Create(ctx, domain.NewUser("Dave", "dave", "", false, now, now))
			}()
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			require.ErrorIs(t, err, domain.ErrDuplicateUsername)
		}
		assert.Equal(t, 1, created)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := s.Users().GetByID(ctx, "nope")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
		_, err = s.Users().GetByUsername(ctx, "nobody")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
		err = s.Users().Update(ctx, &domain.User{ID: "nope"})
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("booked index follows Events", func(t *testing.T) {
		bob := domain.NewUser("Bob", "bob", "", false, now, now)
		require.NoError(t, s.Users().Create(ctx, bob))

		alice.Events = []string{"ev-1", "ev-2"}
		require.NoError(t, s.Users().Update(ctx, alice))
		bob.Events = []string{"ev-1"}
		require.NoError(t, s.Users().Update(ctx, bob))

		users, err := s.Users().ListByBookedEvent(ctx, "ev-1")
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.True(t, users[0].ID < users[1].ID)

		alice.Events = []string{"ev-2"}
		require.NoError(t, s.Users().Update(ctx, alice))
		users, err = s.Users().ListByBookedEvent(ctx, "ev-1")
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, bob.ID, users[0].ID)
	})
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	gig := seedEvent(t, s, "Summer Gig", 10, base.Add(48*time.Hour))
	seedEvent(t, s, "Winter gig", 20, base.Add(24*time.Hour))
	seedEvent(t, s, "Talk (.*)", 10, base)

	t.Run("update derives num_users and participant index", func(t *testing.T) {
		gig.Participants = []string{"user-1", "user-2"}
		gig.NumUsers = 99
		require.NoError(t, s.Events().Update(ctx, gig))

		got, err := s.Events().GetByID(ctx, gig.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.NumUsers)

		events, err := s.Events().ListByParticipant(ctx, "user-2")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, gig.ID, events[0].ID)
	})

	t.Run("list filters", func(t *testing.T) {
		ten := 10.0
		tests := []struct {
			name       string
			filter     domain.EventFilter
			wantTitles []string
		}{
			{"no filter ordered by date", domain.EventFilter{}, []string{"Talk (.*)", "Winter gig", "Summer Gig"}},
			{"title substring ignores case", domain.EventFilter{Title: "GIG"}, []string{"Winter gig", "Summer Gig"}},
			{"title is literal", domain.EventFilter{Title: "(.*)"}, []string{"Talk (.*)"}},
			{"exact price", domain.EventFilter{Price: &ten}, []string{"Talk (.*)", "Summer Gig"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				events, total, err := s.Events().List(ctx, tt.filter, domain.PaginationParams{})
				require.NoError(t, err)
				assert.Equal(t, len(tt.wantTitles), total)
				titles := make([]string, 0, len(events))
				for _, e := range events {
					titles = append(titles, e.Title)
				}
				assert.Equal(t, tt.wantTitles, titles)
			})
		}
	})

	t.Run("list paginates", func(t *testing.T) {
		events, total, err := s.Events().List(ctx, domain.EventFilter{}, domain.PaginationParams{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, events, 1)
		assert.Equal(t, "Summer Gig", events[0].Title)
	})

	t.Run("delete clears the participant index", func(t *testing.T) {
		require.NoError(t, s.Events().Delete(ctx, gig.ID))
		_, err := s.Events().GetByID(ctx, gig.ID)
		require.ErrorIs(t, err, domain.ErrEventNotFound)

		events, err := s.Events().ListByParticipant(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, events)

		require.ErrorIs(t, s.Events().Delete(ctx, gig.ID), domain.ErrEventNotFound)
	})
}

func TestReviewRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)
	now := time.Now().UTC()

	first := domain.NewReview("user-1", "ev-1", 5, "great", now)
	second := domain.NewReview("user-2", "ev-1", 3, "fine", now.Add(time.Second))
	other := domain.NewReview("user-1", "ev-2", 4, "ok", now)
	for _, rv := range []*domain.Review{second, first, other} {
		require.NoError(t, s.Reviews().Create(ctx, rv))
	}

	reviews, err := s.Reviews().ListByEventID(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, first.ID, reviews[0].ID)

	removed, err := s.Reviews().DeleteByEventID(ctx, "ev-1")
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	_, err = s.Reviews().GetByID(ctx, first.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	reviews, err = s.Reviews().ListByEventID(ctx, "ev-2")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("error discards every write", func(t *testing.T) {
		s := newTestStore(t, 0)
		boom := errors.New("boom")
		var createdID string
		err := s.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
			u := domain.NewUser("Carol", "carol", "", false, base, base)
			if err := tx.Users().Create(ctx, u); err != nil {
				return err
			}
			createdID = u.ID
			// Reads inside the transaction see its own writes.
			if _, err := tx.Users().GetByUsername(ctx, "CAROL"); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)
		_, err = s.Users().GetByID(ctx, createdID)
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("conflict re-runs the closure", func(t *testing.T) {
		s := newTestStore(t, 0)
		e := seedEvent(t, s, "Gig", 1, base)

		calls := 0
		err := s.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
			calls++
			got, err := tx.Events().GetByID(ctx, e.ID)
			if err != nil {
				return err
			}
			if calls == 1 {
				// A concurrent writer commits after our read.
				outside := *got
				outside.Venue = "Elsewhere"
				require.NoError(t, s.Events().Update(ctx, &outside))
			}
			got.Title = "Renamed"
			return tx.Events().Update(ctx, got)
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)

		got, err := s.Events().GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, "Elsewhere", got.Venue)
	})

	t.Run("default budget absorbs a burst on one event", func(t *testing.T) {
		s := newTestStore(t, 0)
		e := seedEvent(t, s, "Gig", 1, base)

		const n = 20
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = s.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
					got, err := tx.Events().GetByID(ctx, e.ID)
					if err != nil {
						return err
					}
					got.Participants = append(got.Participants, fmt.Sprintf("user-%02d", i))
					return tx.Events().Update(ctx, got)
				})
			}()
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		got, err := s.Events().GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, n, got.NumUsers)
		assert.Len(t, got.Participants, n)
	})

	t.Run("attempts are bounded", func(t *testing.T) {
		s := newTestStore(t, 2)
		e := seedEvent(t, s, "Gig", 1, base)

		calls := 0
		err := s.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
			calls++
			got, err := tx.Events().GetByID(ctx, e.ID)
			if err != nil {
				return err
			}
			outside := *got
			require.NoError(t, s.Events().Update(ctx, &outside))
			return tx.Events().Update(ctx, got)
		})
		require.ErrorIs(t, err, badger.ErrConflict)
		assert.Equal(t, 2, calls)
	})

	t.Run("canceled context never runs", func(t *testing.T) {
		s := newTestStore(t, 0)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := s.WithinTx(cctx, func(context.Context, domain.Repositories) error {
			t.Fatal("fn must not run")
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventticketing/internal/domain"
)

var eventCols = []string{"id", "title", "date", "venue", "price", "description", "created_by", "participants", "num_users", "all_reviews", "created_at", "updated_at"}

func TestEventRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 25.0

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		wantErr bool
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WithArgs("Gig", now, "Hall", 25.0, "Loud", adminID,
						pq.Array([]string{}), pq.Array([]string{}), now, now).
					WillReturnRows(sqlmock.NewRows([]string{"id", "num_users"}).AddRow(eventID1, 0))
			},
			wantID: eventID1,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			e := domain.NewEvent(domain.EventFields{
				Title: "Gig", Date: now, Venue: "Hall", Price: &price, Description: "Loud",
			}, adminID, now, now)
			err = NewEventRepository(db).Create(ctx, e)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, e.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT (.+) FROM events WHERE id = \$1$`).
			WithArgs(eventID1).
			WillReturnRows(sqlmock.NewRows(eventCols).
				AddRow(eventID1, "Gig", now, "Hall", 10.5, "Loud", adminID, pgArray(userID1, userID2), 2, "{}", now, now))

		e, err := NewEventRepository(db).GetByID(ctx, eventID1)
		require.NoError(t, err)
		assert.Equal(t, []string{userID1, userID2}, e.Participants)
		assert.Equal(t, 2, e.NumUsers)
		assert.Equal(t, 10.5, e.Price)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM events WHERE id = \$1`).
			WillReturnError(sql.ErrNoRows)

		_, err = NewEventRepository(db).GetByID(ctx, missingID)
		require.ErrorIs(t, err, domain.ErrEventNotFound)
	})
}

func TestEventRepository_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("num_users follows the participant set", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		e := &domain.Event{ID: eventID1, Title: "Gig", Date: now, Venue: "Hall", Description: "Loud",
			Participants: []string{userID1}, NumUsers: 7, UpdatedAt: now}
		mock.ExpectQuery(`UPDATE events`).
			WithArgs("Gig", now, "Hall", 0.0, "Loud", pq.Array([]string{userID1}), pq.Array([]string{}), now, eventID1).
			WillReturnRows(sqlmock.NewRows([]string{"num_users"}).AddRow(1))

		require.NoError(t, NewEventRepository(db).Update(ctx, e))
		assert.Equal(t, 1, e.NumUsers)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`UPDATE events`).WillReturnError(sql.ErrNoRows)

		err = NewEventRepository(db).Update(ctx, &domain.Event{ID: missingID})
		require.ErrorIs(t, err, domain.ErrEventNotFound)
	})
}

func TestEventRepository_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).
					WithArgs(eventID1).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM events`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrEventNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewEventRepository(db).Delete(ctx, eventID1)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_List(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 10.0

	t.Run("filters and paginates", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT (.+) COUNT\(\*\) OVER\(\) AS total`).
			WithArgs("gig", 10.0, int64(2), int64(2)).
			WillReturnRows(sqlmock.NewRows(append(eventCols, "total")).
				AddRow(eventID3, "Gig 3", now, "Hall", 10.0, "d", adminID, "{}", 0, "{}", now, now, 5))

		events, total, err := NewEventRepository(db).List(ctx,
			domain.EventFilter{Title: "gig", Price: &price},
			domain.PaginationParams{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, events, 1)
		assert.Equal(t, eventID3, events[0].ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no filter and no limit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM events`).
			WithArgs("", nil, nil, int64(0)).
			WillReturnRows(sqlmock.NewRows(append(eventCols, "total")))

		events, total, err := NewEventRepository(db).List(ctx, domain.EventFilter{}, domain.PaginationParams{})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, events)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_ListByParticipant(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM events WHERE \$1 = ANY\(participants\)`).
		WithArgs(userID1).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(eventID1, "Gig", now, "Hall", 1.0, "d", adminID, pgArray(userID1), 1, "{}", now, now))

	events, err := NewEventRepository(db).ListByParticipant(ctx, userID1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].HasParticipant(userID1))
	require.NoError(t, mock.ExpectationsWereMet())
}

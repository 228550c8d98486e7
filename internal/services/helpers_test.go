package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventticketing/internal/domain"
	"eventticketing/internal/repository/badgerstore"
)

const testTimeout = 5 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeHasher is a fast, deterministic PasswordHasher.
type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) { return "salt", nil }

func (fakeHasher) Hash(salt, password string) (string, error) { return salt + ":" + password, nil }

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return errors.New("mismatch")
	}
	return nil
}

// recordingEmailService records every email it is asked to send.
type recordingEmailService struct {
	mu       sync.Mutex
	welcomes []*domain.WelcomeMessageEmailData
	bookings []*domain.BookingConfirmationEmailData
	err      error
}

func (r *recordingEmailService) SendWelcomeMessage(_ context.Context, data *domain.WelcomeMessageEmailData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.welcomes = append(r.welcomes, data)
	return r.err
}

func (r *recordingEmailService) SendBookingConfirmation(_ context.Context, data *domain.BookingConfirmationEmailData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = append(r.bookings, data)
	return r.err
}

func newTestStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	db, err := badgerstore.Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return badgerstore.NewStore(db, 0)
}

func createUser(t *testing.T, store domain.Store, username string, admin bool) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.NewUser(username, username, "", admin, now, now)
	u.Salt, u.PasswordHash = "salt", "salt:password"
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func eventFields(title string, date time.Time) domain.EventFields {
	price := 15.0
	return domain.EventFields{Title: title, Date: date, Venue: "Main Hall", Price: &price, Description: "An evening"}
}

func getUser(t *testing.T, store domain.Store, id string) *domain.User {
	t.Helper()
	u, err := store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func getEvent(t *testing.T, store domain.Store, id string) *domain.Event {
	t.Helper()
	e, err := store.Events().GetByID(context.Background(), id)
	require.NoError(t, err)
	return e
}

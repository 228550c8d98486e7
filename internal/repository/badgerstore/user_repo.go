package badgerstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"eventticketing/internal/domain"
)

type userRepository struct {
	run runner
}

// userDoc is the stored form of a user. Unlike the API shape it keeps the
// credential fields.
type userDoc struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"password_hash"`
	Salt         string    `json:"salt"`
	Admin        bool      `json:"admin"`
	Events       []string  `json:"events"`
	AddedEvents  []string  `json:"added_events"`
	Reviews      []string  `json:"reviews"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toUserDoc(u *domain.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Salt:         u.Salt,
		Admin:        u.Admin,
		Events:       u.Events,
		AddedEvents:  u.AddedEvents,
		Reviews:      u.Reviews,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) user() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Name:         d.Name,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Salt:         d.Salt,
		Admin:        d.Admin,
		Events:       nonNil(d.Events),
		AddedEvents:  nonNil(d.AddedEvents),
		Reviews:      nonNil(d.Reviews),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func saveUser(txn *badger.Txn, u *domain.User) error {
	return setJSON(txn, userKey(u.ID), toUserDoc(u))
}

func userKey(id string) string { return userKeyPrefix + id }

func usernameKey(username string) string { return usernameKeyPrefix + domain.UsernameKey(username) }

func bookedKey(eventID, userID string) string { return bookedKeyPrefix + eventID + "/" + userID }

// bookedKeys indexes userID under each event it booked.
func bookedKeys(userID string) func(eventID string) string {
	return func(eventID string) string { return bookedKey(eventID, userID) }
}

func (r *userRepository) Create(_ context.Context, u *domain.User) error {
	return r.run(true, func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(usernameKey(u.Username)))
		switch {
		case err == nil:
			return domain.ErrDuplicateUsername
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		u.ID = uuid.NewString()
		if err := saveUser(txn, u); err != nil {
			return err
		}
		if err := txn.Set([]byte(usernameKey(u.Username)), []byte(u.ID)); err != nil {
			return err
		}
		return syncIndex(txn, bookedKeys(u.ID), nil, u.Events)
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var u *domain.User
	err := r.run(false, func(txn *badger.Txn) error {
		var err error
		u, err = loadUser(txn, id)
		return err
	})
	return u, err
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	var u *domain.User
	err := r.run(false, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(usernameKey(username)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		u, err = loadUser(txn, string(id))
		return err
	})
	return u, err
}

func (r *userRepository) Update(_ context.Context, u *domain.User) error {
	return r.run(true, func(txn *badger.Txn) error {
		old, err := loadUser(txn, u.ID)
		if err != nil {
			return err
		}
		// Username and its index key never change after creation.
		u.Username = old.Username
		if err := saveUser(txn, u); err != nil {
			return err
		}
		return syncIndex(txn, bookedKeys(u.ID), old.Events, u.Events)
	})
}

func (r *userRepository) ListByBookedEvent(_ context.Context, eventID string) ([]*domain.User, error) {
	users := make([]*domain.User, 0)
	err := r.run(false, func(txn *badger.Txn) error {
		ids := indexKeys(txn, bookedKeyPrefix+eventID+"/")
		sort.Strings(ids)
		for _, id := range ids {
			u, err := loadUser(txn, id)
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func loadUser(txn *badger.Txn, id string) (*domain.User, error) {
	var doc userDoc
	if err := getJSON(txn, userKey(id), &doc); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return doc.user(), nil
}

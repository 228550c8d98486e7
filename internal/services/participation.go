package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"eventticketing/internal/domain"
	"eventticketing/internal/metrics"
	"eventticketing/internal/validation"
)

type participationService struct {
	store          domain.Store
	policy         *AccessPolicy
	hasher         domain.PasswordHasher
	emailService   domain.EmailService
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewParticipationService returns the engine that owns every change to the
// user/event booking relation. emailService may be nil.
func NewParticipationService(
	store domain.Store,
	hasher domain.PasswordHasher,
	emailService domain.EmailService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.ParticipationService {
	return &participationService{
		store:          store,
		policy:         NewAccessPolicy(store.Users()),
		hasher:         hasher,
		emailService:   emailService,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *participationService) Book(ctx context.Context, callerID, username, eventID string) (booking *domain.Booking, err error) {
	defer s.observe(ctx, "book", time.Now(), &err, slog.String("event_id", eventID), slog.String("username", username))
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.policy.requireActAs(ctx, callerID, username); err != nil {
		return nil, err
	}

	var user *domain.User
	var event *domain.Event
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		var err error
		if event, err = tx.Events().GetByID(ctx, eventID); err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if user, err = tx.Users().GetByUsername(ctx, username); err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if slices.Contains(user.Events, event.ID) {
			return domain.ErrAlreadyBooked
		}
		link(user, event)
		return s.writePair(ctx, tx, user, event)
	})
	if err != nil {
		return nil, domain.AsStorageError("book", err)
	}

	s.sendBookingConfirmation(ctx, user, event)
	return &domain.Booking{
		UserID:   user.ID,
		Username: user.Username,
		EventID:  event.ID,
		NumUsers: event.NumUsers,
		Changed:  true,
	}, nil
}

func (s *participationService) Unbook(ctx context.Context, callerID, username, eventID string) (booking *domain.Booking, err error) {
	defer s.observe(ctx, "unbook", time.Now(), &err, slog.String("event_id", eventID), slog.String("username", username))
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.policy.requireActAs(ctx, callerID, username); err != nil {
		return nil, err
	}

	booking = &domain.Booking{Username: username, EventID: eventID}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		event, err := tx.Events().GetByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		user, err := tx.Users().GetByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		booking.UserID, booking.Username = user.ID, user.Username
		booking.Changed = unlink(user, event)
		booking.NumUsers = event.NumUsers
		if !booking.Changed {
			return nil
		}
		return s.writePair(ctx, tx, user, event)
	})
	if err != nil {
		return nil, domain.AsStorageError("unbook", err)
	}
	return booking, nil
}

func (s *participationService) writePair(ctx context.Context, tx domain.Repositories, user *domain.User, event *domain.Event) error {
	now := s.now()
	user.UpdatedAt, event.UpdatedAt = now, now
	if err := tx.Events().Update(ctx, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if err := tx.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *participationService) CreateEvent(ctx context.Context, callerID string, fields domain.EventFields, participantList string) (result *domain.EnrollResult, err error) {
	defer s.observe(ctx, "create_event", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	caller, err := s.policy.requireAdmin(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(fields); err != nil {
		return nil, err
	}

	list := domain.ParseParticipantList(participantList)
	// Placeholder credentials survive transaction retries so bcrypt runs
	// once per provisioned username.
	credentials := make(map[string][2]string)

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		result = &domain.EnrollResult{
			Enrolled:    make([]string, 0, len(list.Usernames)),
			Provisioned: make([]string, 0),
			Skipped:     list.Skipped,
		}
		if result.Skipped == nil {
			result.Skipped = []domain.SkippedToken{}
		}

		now := s.now()
		event := domain.NewEvent(fields, caller.ID, now, now)
		if err := tx.Events().Create(ctx, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}

		// Resolve every user this operation touches in sorted key order.
		keys := make([]string, 0, len(list.Usernames)+1)
		keys = append(keys, domain.UsernameKey(caller.Username))
		for _, name := range list.Usernames {
			keys = append(keys, domain.UsernameKey(name))
		}
		sort.Strings(keys)
		keys = slices.Compact(keys)

		users := make(map[string]*domain.User, len(keys))
		provisioned := make(map[string]bool)
		for _, key := range keys {
			u, err := tx.Users().GetByUsername(ctx, key)
			if errors.Is(err, domain.ErrUserNotFound) && key != domain.UsernameKey(caller.Username) {
				var created bool
				u, created, err = s.provision(ctx, tx, usernameFor(key, list.Usernames), credentials, now)
				provisioned[key] = created
			}
			if err != nil {
				return fmt.Errorf("resolve user %q: %w", key, err)
			}
			users[key] = u
		}

		creator := users[domain.UsernameKey(caller.Username)]
		if !slices.Contains(creator.AddedEvents, event.ID) {
			creator.AddedEvents = append(creator.AddedEvents, event.ID)
		}
		for _, name := range list.Usernames {
			u := users[domain.UsernameKey(name)]
			link(u, event)
			result.Enrolled = append(result.Enrolled, u.Username)
			if provisioned[domain.UsernameKey(name)] {
				result.Provisioned = append(result.Provisioned, u.Username)
			}
		}

		event.UpdatedAt = now
		if err := tx.Events().Update(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		for _, key := range keys {
			u := users[key]
			u.UpdatedAt = now
			if err := tx.Users().Update(ctx, u); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
		}
		result.Event = event
		return nil
	})
	if err != nil {
		return nil, domain.AsStorageError("create event", err)
	}
	if n := len(result.Provisioned); n > 0 {
		metrics.ProvisionedUsersTotal.Add(float64(n))
	}
	return result, nil
}

// provision creates a minimal non-admin account for username whose
// credential is a random value nobody knows. It reports false when another
// operation created the account first and the existing one is returned.
func (s *participationService) provision(ctx context.Context, tx domain.Repositories, username string, credentials map[string][2]string, now time.Time) (*domain.User, bool, error) {
	cred, ok := credentials[username]
	if !ok {
		salt, err := s.hasher.GenerateSalt()
		if err != nil {
			return nil, false, err
		}
		hash, err := s.hasher.Hash(salt, uuid.NewString())
		if err != nil {
			return nil, false, err
		}
		cred = [2]string{salt, hash}
		credentials[username] = cred
	}
	u := domain.NewUser(username, username, "", false, now, now)
	u.Salt, u.PasswordHash = cred[0], cred[1]
	err := tx.Users().Create(ctx, u)
	if errors.Is(err, domain.ErrDuplicateUsername) {
		// A concurrent operation created the user after our lookup; link it.
		existing, err := tx.Users().GetByUsername(ctx, username)
		return existing, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// usernameFor returns the spelling of key as it appeared in names.
func usernameFor(key string, names []string) string {
	for _, name := range names {
		if domain.UsernameKey(name) == key {
			return name
		}
	}
	return key
}

func (s *participationService) EditEvent(ctx context.Context, callerID, eventID string, fields domain.EventFields) (event *domain.Event, err error) {
	defer s.observe(ctx, "edit_event", time.Now(), &err, slog.String("event_id", eventID))
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.policy.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(fields); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		var err error
		if event, err = tx.Events().GetByID(ctx, eventID); err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		event.Apply(fields)
		event.UpdatedAt = s.now()
		if err := tx.Events().Update(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.AsStorageError("edit event", err)
	}
	return event, nil
}

// DeleteEvent removes the event and every reference to it: bookings,
// reviews, the reviews' ids on their authors and the creator's AddedEvents.
// Deleting an id that no longer exists succeeds without writing.
func (s *participationService) DeleteEvent(ctx context.Context, callerID, eventID string) (err error) {
	defer s.observe(ctx, "delete_event", time.Now(), &err, slog.String("event_id", eventID))
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.policy.requireAdmin(ctx, callerID); err != nil {
		return err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		event, err := tx.Events().GetByID(ctx, eventID)
		if errors.Is(err, domain.ErrEventNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		booked, err := tx.Users().ListByBookedEvent(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("list booked users: %w", err)
		}
		touched := make(map[string]*domain.User, len(booked))
		for _, u := range booked {
			unlink(u, event)
			touched[u.ID] = u
		}

		reviews, err := tx.Reviews().DeleteByEventID(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("delete reviews: %w", err)
		}
		removedByAuthor := make(map[string][]string)
		for _, rv := range reviews {
			removedByAuthor[rv.UserID] = append(removedByAuthor[rv.UserID], rv.ID)
		}

		others := make([]string, 0, len(removedByAuthor)+1)
		for id := range removedByAuthor {
			if _, ok := touched[id]; !ok {
				others = append(others, id)
			}
		}
		if _, ok := touched[event.CreatedBy]; !ok && !slices.Contains(others, event.CreatedBy) {
			others = append(others, event.CreatedBy)
		}
		sort.Strings(others)
		for _, id := range others {
			u, err := tx.Users().GetByID(ctx, id)
			if errors.Is(err, domain.ErrUserNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get user: %w", err)
			}
			touched[id] = u
		}

		for id, reviewIDs := range removedByAuthor {
			if u, ok := touched[id]; ok {
				u.Reviews = slices.DeleteFunc(u.Reviews, func(r string) bool { return slices.Contains(reviewIDs, r) })
			}
		}
		if creator, ok := touched[event.CreatedBy]; ok {
			creator.AddedEvents, _ = remove(creator.AddedEvents, event.ID)
		}

		ids := make([]string, 0, len(touched))
		for id := range touched {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		now := s.now()
		for _, id := range ids {
			u := touched[id]
			u.UpdatedAt = now
			if err := tx.Users().Update(ctx, u); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
		}
		if err := tx.Events().Delete(ctx, event.ID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return nil
	})
	return domain.AsStorageError("delete event", err)
}

func (s *participationService) sendBookingConfirmation(ctx context.Context, user *domain.User, event *domain.Event) {
	if s.emailService == nil || user.Email == "" {
		return
	}
	err := s.emailService.SendBookingConfirmation(context.WithoutCancel(ctx), &domain.BookingConfirmationEmailData{
		Email:      user.Email,
		Name:       user.Name,
		EventTitle: event.Title,
		Venue:      event.Venue,
		Date:       event.Date,
		Price:      event.Price,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "booking confirmation not sent", "event_id", event.ID, "username", user.Username, "error", err)
	}
}

// observe records metrics and logs the outcome of an engine operation.
func (s *participationService) observe(ctx context.Context, op string, start time.Time, errp *error, attrs ...slog.Attr) {
	err := *errp
	metrics.RecordOperation(op, err, time.Since(start))
	attrs = append(attrs, slog.String("op", op))
	switch {
	case err == nil:
		s.logger.LogAttrs(ctx, slog.LevelDebug, "operation completed", attrs...)
	case errors.Is(err, domain.ErrStorageFailure):
		s.logger.LogAttrs(ctx, slog.LevelError, "operation failed", append(attrs, slog.Any("error", err))...)
	default:
		s.logger.LogAttrs(ctx, slog.LevelDebug, "operation rejected", append(attrs, slog.Any("error", err))...)
	}
}

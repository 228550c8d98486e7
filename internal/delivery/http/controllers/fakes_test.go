package controllers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventticketing/internal/delivery/http/middleware"
	"eventticketing/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testEventID = "3f1c1b3e-8f4e-4a8e-9a57-0c6f0f1f2a10"
	testCaller  = "user-123"
)

// withURLParams attaches chi route parameters to r, as the router would.
func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withCaller(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithCaller(r.Context(), testCaller))
}

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	user       *domain.User
	token      string
	err        error
	lastInput  domain.SignUpInput
	lastMethod string
	lastLogin  [2]string
}

func (f *fakeAuthService) SignUp(_ context.Context, in domain.SignUpInput) (*domain.User, error) {
	f.lastMethod, f.lastInput = "signup", in
	return f.user, f.err
}

func (f *fakeAuthService) Register(_ context.Context, in domain.SignUpInput) (*domain.User, error) {
	f.lastMethod, f.lastInput = "register", in
	return f.user, f.err
}

func (f *fakeAuthService) Login(_ context.Context, username, password string) (string, *domain.User, error) {
	f.lastLogin = [2]string{username, password}
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeAuthService) GetByID(_ context.Context, _ string) (*domain.User, error) {
	return f.user, f.err
}

// fakeEventQueryService implements domain.EventQueryService for handler tests.
type fakeEventQueryService struct {
	events       []*domain.Event
	total        int
	event        *domain.Event
	err          error
	lastFilter   domain.EventFilter
	lastPage     domain.PaginationParams
	lastEventID  string
	lastCallerID string
	lastUsername string
}

func (f *fakeEventQueryService) ListEvents(_ context.Context, filter domain.EventFilter, page domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastFilter, f.lastPage = filter, page
	return f.events, f.total, f.err
}

func (f *fakeEventQueryService) GetEvent(_ context.Context, eventID string) (*domain.Event, error) {
	f.lastEventID = eventID
	return f.event, f.err
}

func (f *fakeEventQueryService) ListUserEvents(_ context.Context, callerID, username string) ([]*domain.Event, error) {
	f.lastCallerID, f.lastUsername = callerID, username
	return f.events, f.err
}

// fakeParticipationService implements domain.ParticipationService for handler tests.
type fakeParticipationService struct {
	booking         *domain.Booking
	enroll          *domain.EnrollResult
	event           *domain.Event
	err             error
	lastCallerID    string
	lastUsername    string
	lastEventID     string
	lastFields      domain.EventFields
	lastParticipant string
}

func (f *fakeParticipationService) Book(_ context.Context, callerID, username, eventID string) (*domain.Booking, error) {
	f.lastCallerID, f.lastUsername, f.lastEventID = callerID, username, eventID
	return f.booking, f.err
}

func (f *fakeParticipationService) Unbook(_ context.Context, callerID, username, eventID string) (*domain.Booking, error) {
	f.lastCallerID, f.lastUsername, f.lastEventID = callerID, username, eventID
	return f.booking, f.err
}

func (f *fakeParticipationService) CreateEvent(_ context.Context, callerID string, fields domain.EventFields, participantList string) (*domain.EnrollResult, error) {
	f.lastCallerID, f.lastFields, f.lastParticipant = callerID, fields, participantList
	return f.enroll, f.err
}

func (f *fakeParticipationService) EditEvent(_ context.Context, callerID, eventID string, fields domain.EventFields) (*domain.Event, error) {
	f.lastCallerID, f.lastEventID, f.lastFields = callerID, eventID, fields
	return f.event, f.err
}

func (f *fakeParticipationService) DeleteEvent(_ context.Context, callerID, eventID string) error {
	f.lastCallerID, f.lastEventID = callerID, eventID
	return f.err
}

// fakeReviewService implements domain.ReviewService for handler tests.
type fakeReviewService struct {
	review       *domain.Review
	reviews      []*domain.Review
	err          error
	lastCallerID string
	lastUsername string
	lastEventID  string
	lastInput    domain.ReviewInput
}

func (f *fakeReviewService) SubmitReview(_ context.Context, callerID, username, eventID string, in domain.ReviewInput) (*domain.Review, error) {
	f.lastCallerID, f.lastUsername, f.lastEventID, f.lastInput = callerID, username, eventID, in
	return f.review, f.err
}

func (f *fakeReviewService) ListEventReviews(_ context.Context, eventID string) ([]*domain.Review, error) {
	f.lastEventID = eventID
	return f.reviews, f.err
}

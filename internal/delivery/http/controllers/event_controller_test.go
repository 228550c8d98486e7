package controllers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/domain"
)

func newEventController(q *fakeEventQueryService, p *fakeParticipationService, rv *fakeReviewService) *EventController {
	return NewEventController(testLogger, q, p, rv)
}

func TestEventController_ListEvents(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantFilter domain.EventFilter
		wantPage   domain.PaginationParams
	}{
		{
			name:       "defaults",
			wantStatus: http.StatusOK,
			wantPage:   domain.PaginationParams{Page: 1, PageSize: 20},
		},
		{
			name:       "title and price filter",
			query:      "?title=%20Go%20&price=12.5&page=2&page_size=5",
			wantStatus: http.StatusOK,
			wantFilter: domain.EventFilter{Title: "Go", Price: new(12.5)},
			wantPage:   domain.PaginationParams{Page: 2, PageSize: 5},
		},
		{
			name:       "bad price",
			query:      "?price=free",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeEventQueryService{
				events: []*domain.Event{{ID: testEventID, Title: "GopherCon"}},
				total:  11,
			}
			ctrl := newEventController(q, &fakeParticipationService{}, &fakeReviewService{})
			rr := httptest.NewRecorder()

			ctrl.ListEvents(rr, httptest.NewRequest(http.MethodGet, "/events"+tt.query, nil))

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantFilter, q.lastFilter)
			assert.Equal(t, tt.wantPage, q.lastPage)

			var envelope struct {
				Data ListEventsResponse `json:"data"`
			}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			require.Len(t, envelope.Data.Items, 1)
			assert.Equal(t, 11, envelope.Data.Pagination.Total)
		})
	}
}

func TestEventController_ListEventsEmptyIsArray(t *testing.T) {
	ctrl := newEventController(&fakeEventQueryService{}, &fakeParticipationService{}, &fakeReviewService{})
	rr := httptest.NewRecorder()

	ctrl.ListEvents(rr, httptest.NewRequest(http.MethodGet, "/events", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"items":[]`)
}

func TestEventController_GetEvent(t *testing.T) {
	tests := []struct {
		name        string
		eventID     string
		fakeErr     error
		wantStatus  int
		wantEventID string
	}{
		{"found", testEventID, nil, http.StatusOK, testEventID},
		{"not found", testEventID, domain.ErrEventNotFound, http.StatusNotFound, testEventID},
		{"malformed id is looked up as nil uuid", "not-a-uuid", domain.ErrEventNotFound, http.StatusNotFound, uuid.Nil.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeEventQueryService{event: &domain.Event{ID: tt.eventID}, err: tt.fakeErr}
			ctrl := newEventController(q, &fakeParticipationService{}, &fakeReviewService{})
			req := withURLParams(httptest.NewRequest(http.MethodGet, "/events/"+tt.eventID, nil), "eventID", tt.eventID)
			rr := httptest.NewRecorder()

			ctrl.GetEvent(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantEventID, q.lastEventID)
		})
	}
}

func TestEventController_ListEventReviews(t *testing.T) {
	rv := &fakeReviewService{reviews: []*domain.Review{{ID: "r-1", EventID: testEventID, Rating: 4, Text: "good"}}}
	ctrl := newEventController(&fakeEventQueryService{}, &fakeParticipationService{}, rv)
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/events/"+testEventID+"/reviews", nil), "eventID", testEventID)
	rr := httptest.NewRecorder()

	ctrl.ListEventReviews(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, testEventID, rv.lastEventID)
	assert.Contains(t, rr.Body.String(), `"review_text":"good"`)
}

func TestEventController_CreateEvent(t *testing.T) {
	validBody := `{"title":"GopherCon","date":"2026-11-02T18:30:00Z","venue":"Main Hall","price":0,"description":"Talks","participants":"alice, bob"}`
	tests := []struct {
		name           string
		body           string
		noUserContext  bool
		fakeErr        error
		wantStatus     int
		wantBodySubstr string
	}{
		{name: "success", body: validBody, wantStatus: http.StatusCreated},
		{name: "no user in context", body: validBody, noUserContext: true, wantStatus: http.StatusUnauthorized, wantBodySubstr: "unauthorized"},
		{name: "unknown field rejected", body: `{"title":"x","num_users":5}`, wantStatus: http.StatusBadRequest, wantBodySubstr: "unknown field"},
		{name: "not admin", body: validBody, fakeErr: domain.ErrAdminRequired, wantStatus: http.StatusForbidden, wantBodySubstr: "admin required"},
		{name: "missing field", body: validBody, fakeErr: domain.NewFieldError("venue", ""), wantStatus: http.StatusBadRequest, wantBodySubstr: "missing venue"},
		{name: "storage failure", body: validBody, fakeErr: domain.AsStorageError("create event", errors.New("disk full")), wantStatus: http.StatusInternalServerError, wantBodySubstr: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeParticipationService{
				err: tt.fakeErr,
				enroll: &domain.EnrollResult{
					Event:       &domain.Event{ID: testEventID, Title: "GopherCon", NumUsers: 2},
					Enrolled:    []string{"alice", "bob"},
					Provisioned: []string{"bob"},
				},
			}
			ctrl := newEventController(&fakeEventQueryService{}, p, &fakeReviewService{})
			req := httptest.NewRequest(http.MethodPost, "/admin/events", bytes.NewBufferString(tt.body))
			if !tt.noUserContext {
				req = withCaller(req)
			}
			rr := httptest.NewRecorder()

			ctrl.CreateEvent(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			envelope := decodeEnvelope(t, rr)
			if tt.wantStatus != http.StatusCreated {
				require.NotNil(t, envelope.Error)
				assert.Contains(t, envelope.Error.Message, tt.wantBodySubstr)
				return
			}
			require.Nil(t, envelope.Error)
			assert.Equal(t, testCaller, p.lastCallerID)
			assert.Equal(t, "alice, bob", p.lastParticipant)
			assert.Equal(t, "GopherCon", p.lastFields.Title)
			assert.Equal(t, time.Date(2026, 11, 2, 18, 30, 0, 0, time.UTC), p.lastFields.Date.UTC())
			require.NotNil(t, p.lastFields.Price)
			assert.Zero(t, *p.lastFields.Price)
		})
	}
}

func TestEventController_EditEvent(t *testing.T) {
	body := `{"title":"GopherCon EU","date":"2026-11-02T18:30:00Z","venue":"Hall B","price":25,"description":"Talks"}`

	t.Run("success", func(t *testing.T) {
		p := &fakeParticipationService{event: &domain.Event{ID: testEventID, Title: "GopherCon EU"}}
		ctrl := newEventController(&fakeEventQueryService{}, p, &fakeReviewService{})
		req := withCaller(withURLParams(httptest.NewRequest(http.MethodPut, "/admin/events/"+testEventID, bytes.NewBufferString(body)), "eventID", testEventID))
		rr := httptest.NewRecorder()

		ctrl.EditEvent(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, testEventID, p.lastEventID)
		assert.Equal(t, "Hall B", p.lastFields.Venue)
	})

	t.Run("participants cannot be edited", func(t *testing.T) {
		ctrl := newEventController(&fakeEventQueryService{}, &fakeParticipationService{}, &fakeReviewService{})
		req := withCaller(withURLParams(httptest.NewRequest(http.MethodPut, "/admin/events/"+testEventID, bytes.NewBufferString(`{"participants":"eve"}`)), "eventID", testEventID))
		rr := httptest.NewRecorder()

		ctrl.EditEvent(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		p := &fakeParticipationService{err: domain.ErrEventNotFound}
		ctrl := newEventController(&fakeEventQueryService{}, p, &fakeReviewService{})
		req := withCaller(withURLParams(httptest.NewRequest(http.MethodPut, "/admin/events/"+testEventID, bytes.NewBufferString(body)), "eventID", testEventID))
		rr := httptest.NewRecorder()

		ctrl.EditEvent(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
		envelope := decodeEnvelope(t, rr)
		assert.Equal(t, helpers.ErrCodeNotFound, envelope.Error.Code)
	})
}

func TestEventController_DeleteEvent(t *testing.T) {
	tests := []struct {
		name        string
		eventID     string
		fakeErr     error
		wantStatus  int
		wantEventID string
	}{
		{"deleted", testEventID, nil, http.StatusNoContent, testEventID},
		{"malformed id still checks admin", "nope", domain.ErrAdminRequired, http.StatusForbidden, uuid.Nil.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeParticipationService{err: tt.fakeErr}
			ctrl := newEventController(&fakeEventQueryService{}, p, &fakeReviewService{})
			req := withCaller(withURLParams(httptest.NewRequest(http.MethodDelete, "/admin/events/"+tt.eventID, nil), "eventID", tt.eventID))
			rr := httptest.NewRecorder()

			ctrl.DeleteEvent(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, testCaller, p.lastCallerID)
			assert.Equal(t, tt.wantEventID, p.lastEventID)
			if tt.wantStatus == http.StatusNoContent {
				assert.Empty(t, rr.Body.String())
			}
		})
	}
}

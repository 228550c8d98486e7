package controllers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/delivery/http/middleware"
	"eventticketing/internal/domain"
)

// eventIDParam returns the eventID path parameter. Stored ids are UUIDs, so a
// malformed id is replaced with the nil UUID, which never names an event. The
// services then report it as not found after their usual access checks.
func eventIDParam(r *http.Request) string {
	id := chi.URLParam(r, "eventID")
	if uuid.Validate(id) != nil {
		return uuid.Nil.String()
	}
	return id
}

// CreateEventRequest is the request body for POST /admin/events.
// Participants is a comma-separated list of usernames; unknown usernames are provisioned.
type CreateEventRequest struct {
	domain.EventFields
	Participants string `json:"participants"`
}

// EditEventRequest is the request body for PUT /admin/events/{eventID}.
type EditEventRequest struct {
	domain.EventFields
}

// ListEventsResponse is the response body for GET /events.
type ListEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// EventSuccessResponse is the success response envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CreateEventSuccessResponse is the success response envelope for POST /admin/events (201).
type CreateEventSuccessResponse struct {
	Data  *domain.EnrollResult `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// ReviewsSuccessResponse is the success response envelope for GET /events/{eventID}/reviews (200).
type ReviewsSuccessResponse struct {
	Data  []*domain.Review  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger        *slog.Logger
	Queries       domain.EventQueryService
	Participation domain.ParticipationService
	Reviews       domain.ReviewService
}

func NewEventController(logger *slog.Logger, queries domain.EventQueryService, participation domain.ParticipationService, reviews domain.ReviewService) *EventController {
	return &EventController{
		Logger:        logger,
		Queries:       queries,
		Participation: participation,
		Reviews:       reviews,
	}
}

// ListEvents godoc
// @Summary List events
// @Description Returns a paginated list of events ordered by date. title filters by case-insensitive substring; price matches exactly.
// @Tags events
// @Produce json
// @Param title query string false "Title substring (case-insensitive)"
// @Param price query number false "Exact price"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100, 0 for all)"
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q, err := helpers.ParseEventListQuery(r.URL.Query())
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	events, total, err := c.Queries.ListEvents(r.Context(), q.Filter, q.Page)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{Items: events, Pagination: helpers.NewPaginationMeta(q.Page, total)})
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := eventIDParam(r)
	event, err := c.Queries.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListEventReviews godoc
// @Summary List reviews of an event
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.ReviewsSuccessResponse "data contains the reviews"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/reviews [get]
func (c *EventController) ListEventReviews(w http.ResponseWriter, r *http.Request) {
	eventID := eventIDParam(r)
	reviews, err := c.Reviews.ListEventReviews(r.Context(), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if reviews == nil {
		reviews = []*domain.Review{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reviews)
}

// CreateEvent godoc
// @Summary Create an event
// @Description Admin only. Creates the event and books every listed participant in one transaction. Unknown usernames get an account provisioned; malformed tokens are skipped and reported.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event fields and participant list"
// @Success 201 {object} controllers.CreateEventSuccessResponse "data contains the event, enrolled, provisioned and skipped"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not admin)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	result, err := c.Participation.CreateEvent(r.Context(), callerID, req.EventFields, req.Participants)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, result)
}

// EditEvent godoc
// @Summary Edit an event
// @Description Admin only. Replaces title, date, venue, price and description. Participants are unchanged.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param event body EditEventRequest true "Event fields"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not admin)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID} [put]
func (c *EventController) EditEvent(w http.ResponseWriter, r *http.Request) {
	var req EditEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	eventID := eventIDParam(r)
	event, err := c.Participation.EditEvent(r.Context(), callerID, eventID, req.EventFields)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Admin only. Removes the event, unbooks every participant and deletes its reviews. Deleting an unknown event succeeds.
// @Tags admin
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 204 "event deleted"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not admin)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Participation.DeleteEvent(r.Context(), callerID, eventIDParam(r)); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

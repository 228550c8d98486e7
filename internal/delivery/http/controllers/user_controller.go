package controllers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/delivery/http/middleware"
	"eventticketing/internal/domain"
)

// SubmitReviewRequest is the request body for POST /u/{username}/reviews/{eventID}.
type SubmitReviewRequest struct {
	domain.ReviewInput
}

// BookingSuccessResponse is the success response envelope for booking endpoints.
type BookingSuccessResponse struct {
	Data  *domain.Booking   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserEventsSuccessResponse is the success response envelope for GET /u/{username}/events (200).
type UserEventsSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ReviewSuccessResponse is the success response envelope for POST /u/{username}/reviews/{eventID} (201).
type ReviewSuccessResponse struct {
	Data  *domain.Review    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserController serves the routes scoped to one user: their bookings and reviews.
// The caller must be that user.
type UserController struct {
	Logger        *slog.Logger
	Queries       domain.EventQueryService
	Participation domain.ParticipationService
	Reviews       domain.ReviewService
}

func NewUserController(logger *slog.Logger, queries domain.EventQueryService, participation domain.ParticipationService, reviews domain.ReviewService) *UserController {
	return &UserController{
		Logger:        logger,
		Queries:       queries,
		Participation: participation,
		Reviews:       reviews,
	}
}

// ListUserEvents godoc
// @Summary List a user's booked events
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} controllers.UserEventsSuccessResponse "data contains the booked events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not this user)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /u/{username}/events [get]
func (c *UserController) ListUserEvents(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	events, err := c.Queries.ListUserEvents(r.Context(), callerID, chi.URLParam(r, "username"))
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// Book godoc
// @Summary Book an event
// @Description Adds the user to the event's participants. Booking the same event twice is a conflict.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.BookingSuccessResponse "data contains the booking and the new participant count"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not this user)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already booked)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /u/{username}/bookings/{eventID} [post]
func (c *UserController) Book(w http.ResponseWriter, r *http.Request) {
	callerID, eventID, ok := c.bookingTarget(w, r)
	if !ok {
		return
	}
	booking, err := c.Participation.Book(r.Context(), callerID, chi.URLParam(r, "username"), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, booking)
}

// Unbook godoc
// @Summary Cancel a booking
// @Description Removes the user from the event's participants. Cancelling a booking that does not exist succeeds with changed=false.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.BookingSuccessResponse "data contains the booking and the new participant count"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not this user)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /u/{username}/bookings/{eventID} [delete]
func (c *UserController) Unbook(w http.ResponseWriter, r *http.Request) {
	callerID, eventID, ok := c.bookingTarget(w, r)
	if !ok {
		return
	}
	booking, err := c.Participation.Unbook(r.Context(), callerID, chi.URLParam(r, "username"), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, booking)
}

// SubmitReview godoc
// @Summary Review an attended event
// @Description The user must have booked the event. Rating is 1 to 5.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Param eventID path string true "Event ID (UUID)"
// @Param body body SubmitReviewRequest true "Rating and text"
// @Success 201 {object} controllers.ReviewSuccessResponse "data contains the review"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not this user or not a participant)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /u/{username}/reviews/{eventID} [post]
func (c *UserController) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req SubmitReviewRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	callerID, eventID, ok := c.bookingTarget(w, r)
	if !ok {
		return
	}
	review, err := c.Reviews.SubmitReview(r.Context(), callerID, chi.URLParam(r, "username"), eventID, req.ReviewInput)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, review)
}

// bookingTarget reads the caller and the event id path parameter. It writes
// the 401 response itself when there is no caller.
func (c *UserController) bookingTarget(w http.ResponseWriter, r *http.Request) (callerID, eventID string, ok bool) {
	callerID, ok = middleware.CallerID(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", "", false
	}
	return callerID, eventIDParam(r), true
}

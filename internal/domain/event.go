package domain

import (
	"context"
	"slices"
	"time"
)

// Event represents a bookable event published by an admin.
// Participants and NumUsers are only mutated by the participation engine;
// NumUsers always equals len(Participants) once an operation completes.
// swagger:model Event
type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Date         time.Time `json:"date"`
	Venue        string    `json:"venue"`
	Price        float64   `json:"price"`
	Description  string    `json:"description"`
	CreatedBy    string    `json:"created_by"`
	Participants []string  `json:"participants"`
	NumUsers     int       `json:"num_users"`
	AllReviews   []string  `json:"all_reviews"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EventFields are the admin-editable fields of an event. Validation reports
// the first missing field in declaration order.
type EventFields struct {
	Title       string    `json:"title" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	Venue       string    `json:"venue" validate:"required"`
	Price       *float64  `json:"price" validate:"required,gte=0"`
	Description string    `json:"description" validate:"required"`
}

// NewEvent returns a new Event built from fields with no participants. ID is typically set by the repository on create.
func NewEvent(fields EventFields, createdBy string, createdAt, updatedAt time.Time) *Event {
	e := &Event{
		CreatedBy:    createdBy,
		Participants: []string{},
		AllReviews:   []string{},
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
	e.Apply(fields)
	return e
}

// Apply replaces the editable fields of e.
func (e *Event) Apply(fields EventFields) {
	e.Title = fields.Title
	e.Date = fields.Date
	e.Venue = fields.Venue
	if fields.Price != nil {
		e.Price = *fields.Price
	}
	e.Description = fields.Description
}

// HasParticipant reports whether userID is in the participant set.
func (e *Event) HasParticipant(userID string) bool {
	return slices.Contains(e.Participants, userID)
}

// EventFilter narrows ListEvents. Title matches as a case-insensitive
// substring; Price matches exactly.
type EventFilter struct {
	Title string
	Price *float64
}

// EventRepository defines the interface for event storage.
// Update persists the whole document; stores derive num_users from Participants.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter EventFilter, page PaginationParams) ([]*Event, int, error)
	ListByParticipant(ctx context.Context, userID string) ([]*Event, error)
}

// EventQueryService exposes read-only event views.
type EventQueryService interface {
	ListEvents(ctx context.Context, filter EventFilter, page PaginationParams) ([]*Event, int, error)
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListUserEvents(ctx context.Context, callerID, username string) ([]*Event, error)
}

package domain

import "context"

// Booking is the outcome of a book or unbook: the pairing and the event's
// participant count after the operation.
// swagger:model Booking
type Booking struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	EventID  string `json:"event_id"`
	NumUsers int    `json:"num_users"`
	// Changed is false when an unbook found no pairing to remove.
	Changed bool `json:"changed"`
}

// EnrollResult is the outcome of creating an event with a participant list.
// swagger:model EnrollResult
type EnrollResult struct {
	Event       *Event         `json:"event"`
	Enrolled    []string       `json:"enrolled"`
	Provisioned []string       `json:"provisioned"`
	Skipped     []SkippedToken `json:"skipped"`
}

// ParticipationService enacts every mutation of the user/event booking
// relation. Each method is atomic: on error nothing was written.
type ParticipationService interface {
	Book(ctx context.Context, callerID, username, eventID string) (*Booking, error)
	Unbook(ctx context.Context, callerID, username, eventID string) (*Booking, error)
	CreateEvent(ctx context.Context, callerID string, fields EventFields, participantList string) (*EnrollResult, error)
	EditEvent(ctx context.Context, callerID, eventID string, fields EventFields) (*Event, error)
	DeleteEvent(ctx context.Context, callerID, eventID string) error
}

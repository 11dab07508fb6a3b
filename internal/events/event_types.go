package events

import (
	"time"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated EventType = "complaint_created"
	EventResponseAdded    EventType = "response_added"
	EventStatusChanged    EventType = "status_changed"
	EventComplaintRated   EventType = "complaint_rated"
)

// Types lists every event type.
var Types = []EventType{EventComplaintCreated, EventResponseAdded, EventStatusChanged, EventComplaintRated}

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Category string `json:"category"`
	Title    string `json:"title"`
}

// ResponseAddedPayload payload.
type ResponseAddedPayload struct {
	ResponseID  string `json:"response_id"`
	FromAdmin   bool   `json:"from_admin"`
	BodyPreview string `json:"body_preview"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
}

// ComplaintRatedPayload payload.
type ComplaintRatedPayload struct {
	Rating int `json:"rating"`
}

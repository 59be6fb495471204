package notifications

import "time"

// Event types pushed to the admin feed.
const (
	EventProjectCreated    = "project.created"
	EventProjectApproved   = "project.approved"
	EventProjectReviewed   = "project.reviewed"
	EventDonationSucceeded = "donation.succeeded"
)

// Event is a single message on the admin websocket feed.
type Event struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, data map[string]interface{}) Event {
	return Event{Type: eventType, Data: data, Timestamp: time.Now()}
}

// Package feedback defines the feedback event read model.
//
// Feedback events are owned by the dashboard application; this engine only
// ever reads a time-bounded slice of them per project when assembling a
// digest or formatting an immediate delivery.
package feedback

import "time"

// Event is one piece of feedback submitted through the widget.
type Event struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
	Email     string    `json:"email,omitempty"`
	URL       string    `json:"url,omitempty"`
	Type      string    `json:"type,omitempty"`

	// Rating is 1–5, or nil when the submitter gave none.
	Rating *int `json:"rating,omitempty"`

	Tags []string `json:"tags,omitempty"`
}

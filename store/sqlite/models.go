package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/endpoint"
	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/internal/entity"
	"github.com/feedbacksdev/fanout/project"
)

// projectModel is the grove model for the fanout_projects table.
// JSON columns are stored as TEXT.
type projectModel struct {
	grove.BaseModel `grove:"table:fanout_projects"`

	ID        string    `grove:"id,pk"`
	Name      string    `grove:"name"`
	Webhooks  string    `grove:"webhooks"` // JSON object
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toProjectModel(p *project.Project) *projectModel {
	return &projectModel{
		ID:        p.ID,
		Name:      p.Name,
		Webhooks:  string(p.Webhooks),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromProjectModel(m *projectModel) *project.Project {
	var webhooks json.RawMessage
	if m.Webhooks != "" {
		webhooks = json.RawMessage(m.Webhooks)
	}
	return &project.Project{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       m.ID,
		Name:     m.Name,
		Webhooks: webhooks,
	}
}

// feedbackModel is the grove model for the fanout_feedback table.
type feedbackModel struct {
	grove.BaseModel `grove:"table:fanout_feedback"`

	ID        string    `grove:"id,pk"`
	ProjectID string    `grove:"project_id"`
	Message   string    `grove:"message"`
	Email     string    `grove:"email"`
	URL       string    `grove:"url"`
	Type      string    `grove:"type"`
	Rating    *int      `grove:"rating"`
	Tags      string    `grove:"tags"` // JSON array
	CreatedAt time.Time `grove:"created_at"`
}

func toFeedbackModel(evt *feedback.Event) *feedbackModel {
	tags, _ := json.Marshal(evt.Tags) //nolint:errcheck // best-effort

	return &feedbackModel{
		ID:        evt.ID,
		ProjectID: evt.ProjectID,
		Message:   evt.Message,
		Email:     evt.Email,
		URL:       evt.URL,
		Type:      evt.Type,
		Rating:    evt.Rating,
		Tags:      string(tags),
		CreatedAt: evt.CreatedAt,
	}
}

func fromFeedbackModel(m *feedbackModel) *feedback.Event {
	var tags []string
	if m.Tags != "" {
		_ = json.Unmarshal([]byte(m.Tags), &tags) //nolint:errcheck // best-effort
	}
	return &feedback.Event{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		Message:   m.Message,
		Email:     m.Email,
		URL:       m.URL,
		Type:      m.Type,
		Rating:    m.Rating,
		Tags:      tags,
		CreatedAt: m.CreatedAt,
	}
}

// recordModel is the grove model for the fanout_deliveries table.
type recordModel struct {
	grove.BaseModel `grove:"table:fanout_deliveries"`

	ID             string    `grove:"id,pk"`
	ProjectID      string    `grove:"project_id"`
	EndpointID     string    `grove:"endpoint_id"`
	Kind           string    `grove:"kind"`
	URL            string    `grove:"url"`
	Event          string    `grove:"event"`
	Status         string    `grove:"status"`
	StatusCode     int       `grove:"status_code"`
	Error          string    `grove:"error"`
	ResponseTimeMs int       `grove:"response_time_ms"`
	Payload        string    `grove:"payload"` // JSON body as sent
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toRecordModel(rec *delivery.Record) *recordModel {
	return &recordModel{
		ID:             rec.ID,
		ProjectID:      rec.ProjectID,
		EndpointID:     rec.EndpointID,
		Kind:           string(rec.Kind),
		URL:            rec.URL,
		Event:          rec.Event,
		Status:         string(rec.Status),
		StatusCode:     rec.StatusCode,
		Error:          rec.Error,
		ResponseTimeMs: rec.ResponseTimeMs,
		Payload:        string(rec.Payload),
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func fromRecordModel(m *recordModel) *delivery.Record {
	var payload json.RawMessage
	if m.Payload != "" {
		payload = json.RawMessage(m.Payload)
	}
	return &delivery.Record{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             m.ID,
		ProjectID:      m.ProjectID,
		EndpointID:     m.EndpointID,
		Kind:           endpoint.Kind(m.Kind),
		URL:            m.URL,
		Event:          m.Event,
		Status:         delivery.Status(m.Status),
		StatusCode:     m.StatusCode,
		Error:          m.Error,
		ResponseTimeMs: m.ResponseTimeMs,
		Payload:        payload,
	}
}

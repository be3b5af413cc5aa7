package postgres

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
type projectModel struct {
	grove.BaseModel `grove:"table:fanout_projects"`

	ID        string          `grove:"id,pk"`
	Name      string          `grove:"name"`
	Webhooks  json.RawMessage `grove:"webhooks,type:jsonb"`
	CreatedAt time.Time       `grove:"created_at"`
	UpdatedAt time.Time       `grove:"updated_at"`
}

func toProjectModel(p *project.Project) *projectModel {
	return &projectModel{
		ID:        p.ID,
		Name:      p.Name,
		Webhooks:  p.Webhooks,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromProjectModel(m *projectModel) *project.Project {
	return &project.Project{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       m.ID,
		Name:     m.Name,
		Webhooks: m.Webhooks,
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
	Tags      []string  `grove:"tags,array"`
	CreatedAt time.Time `grove:"created_at"`
}

func toFeedbackModel(evt *feedback.Event) *feedbackModel {
	return &feedbackModel{
		ID:        evt.ID,
		ProjectID: evt.ProjectID,
		Message:   evt.Message,
		Email:     evt.Email,
		URL:       evt.URL,
		Type:      evt.Type,
		Rating:    evt.Rating,
		Tags:      evt.Tags,
		CreatedAt: evt.CreatedAt,
	}
}

func fromFeedbackModel(m *feedbackModel) *feedback.Event {
	return &feedback.Event{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		Message:   m.Message,
		Email:     m.Email,
		URL:       m.URL,
		Type:      m.Type,
		Rating:    m.Rating,
		Tags:      m.Tags,
		CreatedAt: m.CreatedAt,
	}
}

// recordModel is the grove model for the fanout_deliveries table.
type recordModel struct {
	grove.BaseModel `grove:"table:fanout_deliveries"`

	ID             string          `grove:"id,pk"`
	ProjectID      string          `grove:"project_id"`
	EndpointID     string          `grove:"endpoint_id"`
	Kind           string          `grove:"kind"`
	URL            string          `grove:"url"`
	Event          string          `grove:"event"`
	Status         string          `grove:"status"`
	StatusCode     int             `grove:"status_code"`
	Error          string          `grove:"error"`
	ResponseTimeMs int             `grove:"response_time_ms"`
	Payload        json.RawMessage `grove:"payload,type:jsonb"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
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
		Payload:        rec.Payload,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func fromRecordModel(m *recordModel) *delivery.Record {
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
		Payload:        m.Payload,
	}
}

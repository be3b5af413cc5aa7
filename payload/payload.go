// Package payload builds the kind-specific wire payloads for feedback
// deliveries: plain chat text, rich chat embeds, signed generic JSON, and
// issue-tracker create requests.
package payload

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/feedbacksdev/fanout/feedback"
)

// Source identifies this system in generic payloads.
const Source = "feedbacks.dev"

// Event names emitted by the engine.
const (
	EventFeedbackCreated = "feedback.created"
	EventFeedbackDigest  = "feedback.digest"
	EventTest            = "test"
)

// DefaultText is the chat text synthesized when a resend's original payload
// lacks one.
const DefaultText = "New feedback received via feedbacks.dev"

// Slack builds the chat-message payload: a bare text field.
func Slack(evt *feedback.Event, projectName string) map[string]any {
	return map[string]any{"text": slackText(evt, projectName)}
}

func slackText(evt *feedback.Event, projectName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":speech_balloon: New feedback for *%s*\n", projectName)
	fmt.Fprintf(&b, "> %s", evt.Message)
	if evt.Rating != nil {
		fmt.Fprintf(&b, "\nRating: %s", stars(*evt.Rating))
	}
	if evt.Email != "" {
		fmt.Fprintf(&b, "\nFrom: %s", evt.Email)
	}
	if evt.URL != "" {
		fmt.Fprintf(&b, "\nPage: %s", evt.URL)
	}
	return b.String()
}

// Discord builds the chat-embed payload. The compact format collapses to a
// bare content field.
func Discord(evt *feedback.Event, projectName string, compact bool) map[string]any {
	if compact {
		return map[string]any{"content": slackText(evt, projectName)}
	}

	fields := []map[string]any{}
	if evt.Rating != nil {
		fields = append(fields, map[string]any{
			"name": "Rating", "value": stars(*evt.Rating), "inline": true,
		})
	}
	if evt.Type != "" {
		fields = append(fields, map[string]any{
			"name": "Type", "value": evt.Type, "inline": true,
		})
	}
	if evt.Email != "" {
		fields = append(fields, map[string]any{
			"name": "From", "value": evt.Email, "inline": true,
		})
	}
	if evt.URL != "" {
		fields = append(fields, map[string]any{
			"name": "Page", "value": evt.URL, "inline": false,
		})
	}

	embed := map[string]any{
		"title":       "New feedback for " + projectName,
		"description": evt.Message,
		"color":       0x6366F1,
		"timestamp":   evt.CreatedAt.UTC().Format(time.RFC3339),
	}
	if len(fields) > 0 {
		embed["fields"] = fields
	}
	return map[string]any{"embeds": []map[string]any{embed}}
}

// Generic builds the signed generic payload for one feedback event and
// canonicalizes it to the JSON bytes that will be both signed and sent.
func Generic(evt *feedback.Event, projectName string) ([]byte, error) {
	p := genericEnvelope{
		Type:      EventFeedbackCreated,
		Source:    Source,
		Project:   projectName,
		Timestamp: time.Now().UTC(),
		Data:      summarize(evt),
	}
	return json.Marshal(p)
}

// genericEnvelope is the outer shape of every generic-signed payload.
type genericEnvelope struct {
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Project   string    `json:"project"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Issue is the create-issue request posted to the repository REST API.
type Issue struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
}

// GitHub builds the issue-tracker payload for one feedback event.
func GitHub(evt *feedback.Event, projectName string) Issue {
	title := evt.Message
	if len(title) > 80 {
		title = title[:77] + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", evt.Message)
	if evt.Rating != nil {
		fmt.Fprintf(&b, "\n**Rating:** %d/5", *evt.Rating)
	}
	if evt.Type != "" {
		fmt.Fprintf(&b, "\n**Type:** %s", evt.Type)
	}
	if evt.Email != "" {
		fmt.Fprintf(&b, "\n**From:** %s", evt.Email)
	}
	if evt.URL != "" {
		fmt.Fprintf(&b, "\n**Page:** %s", evt.URL)
	}
	fmt.Fprintf(&b, "\n\n_Submitted via %s (%s)_", Source, projectName)

	labels := []string{"feedback"}
	if evt.Type != "" {
		labels = append(labels, evt.Type)
	}
	return Issue{Title: "[Feedback] " + title, Body: b.String(), Labels: labels}
}

// TestChat builds a minimal connectivity-probe payload for the chat kinds.
func TestChat(projectName string, compact bool) map[string]any {
	text := fmt.Sprintf("Test delivery from %s for project %q - your webhook is connected.", Source, projectName)
	if compact {
		return map[string]any{"content": text}
	}
	return map[string]any{"text": text}
}

// TestGeneric builds the canonical signed test payload.
func TestGeneric(projectName string) ([]byte, error) {
	p := genericEnvelope{
		Type:      EventTest,
		Source:    Source,
		Project:   projectName,
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"message": "test delivery"},
	}
	return json.Marshal(p)
}

// TestIssue builds the connectivity-probe issue payload.
func TestIssue(projectName string) Issue {
	return Issue{
		Title:  "[Feedback] Test issue from " + Source,
		Body:   fmt.Sprintf("Connectivity test for project %q. Safe to close.", projectName),
		Labels: []string{"feedback"},
	}
}

// summary is the per-event shape embedded in generic payloads.
type summary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
	Email     string    `json:"email,omitempty"`
	URL       string    `json:"url,omitempty"`
	Type      string    `json:"type,omitempty"`
	Rating    *int      `json:"rating,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

func summarize(evt *feedback.Event) summary {
	return summary{
		ID:        evt.ID,
		CreatedAt: evt.CreatedAt,
		Message:   evt.Message,
		Email:     evt.Email,
		URL:       evt.URL,
		Type:      evt.Type,
		Rating:    evt.Rating,
		Tags:      evt.Tags,
	}
}

func stars(rating int) string {
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

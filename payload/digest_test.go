package payload_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/payload"
)

func ratedEvent(id string, rating *int, typ string) *feedback.Event {
	return &feedback.Event{
		ID:        id,
		ProjectID: "proj_1",
		CreatedAt: time.Now().UTC(),
		Message:   "msg " + id,
		Type:      typ,
		Rating:    rating,
	}
}

func TestSummarize(t *testing.T) {
	events := []*feedback.Event{
		ratedEvent("fb_1", intPtr(1), "bug"),
		ratedEvent("fb_2", intPtr(2), "bug"),
		ratedEvent("fb_3", nil, "praise"),
	}

	stats := payload.Summarize(events)
	if stats.Count != 3 {
		t.Errorf("count = %d, want 3", stats.Count)
	}
	if stats.AvgRating == nil || *stats.AvgRating != 1.5 {
		t.Errorf("avg = %v, want 1.5 (unrated events excluded from the mean)", stats.AvgRating)
	}
	if stats.ByType["bug"] != 2 || stats.ByType["praise"] != 1 {
		t.Errorf("byType = %v", stats.ByType)
	}
}

func TestSummarizeNoRatings(t *testing.T) {
	stats := payload.Summarize([]*feedback.Event{
		ratedEvent("fb_1", nil, ""),
	})
	if stats.AvgRating != nil {
		t.Errorf("expected nil average when nothing is rated, got %v", *stats.AvgRating)
	}
	if stats.ByType[""] != 1 {
		t.Errorf("untyped events should count under the empty type, got %v", stats.ByType)
	}
}

func TestSummarizeIgnoresOutOfRangeRatings(t *testing.T) {
	stats := payload.Summarize([]*feedback.Event{
		ratedEvent("fb_1", intPtr(7), "bug"),
		ratedEvent("fb_2", intPtr(3), "bug"),
	})
	if stats.AvgRating == nil || *stats.AvgRating != 3 {
		t.Errorf("ratings outside [1,5] must not enter the mean, got %v", stats.AvgRating)
	}
}

func TestDigestChatText(t *testing.T) {
	w := payload.Window{
		From: time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	avg := 4.3333333
	stats := payload.Stats{Count: 7, AvgRating: &avg, ByType: map[string]int{"bug": 3, "praise": 4}}

	p := payload.DigestChat("Acme", w, stats)
	text, _ := p["text"].(string)
	if !strings.Contains(text, "Feedback received: 7") {
		t.Errorf("missing count in %q", text)
	}
	if !strings.Contains(text, "4.33 / 5") {
		t.Errorf("average must render with two decimals, got %q", text)
	}
	if !strings.Contains(text, "bug 3, praise 4") {
		t.Errorf("type breakdown should be sorted by type name, got %q", text)
	}
}

func TestDigestGenericCapsSummaries(t *testing.T) {
	events := make([]*feedback.Event, 0, 30)
	for i := 0; i < 30; i++ {
		events = append(events, ratedEvent(fmt.Sprintf("fb_%02d", i), nil, "bug"))
	}
	stats := payload.Summarize(events)

	w := payload.Window{From: time.Now().Add(-time.Hour), To: time.Now()}
	body, err := payload.DigestGeneric("Acme", w, stats, events)
	if err != nil {
		t.Fatal(err)
	}

	var env struct {
		Type string `json:"type"`
		Data struct {
			Stats struct {
				Count int `json:"count"`
			} `json:"stats"`
			Feedback []struct {
				ID string `json:"id"`
			} `json:"feedback"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != payload.EventFeedbackDigest {
		t.Errorf("type = %q", env.Type)
	}
	if env.Data.Stats.Count != 30 {
		t.Errorf("stats must count the full window, got %d", env.Data.Stats.Count)
	}
	if len(env.Data.Feedback) != payload.MaxDigestSummaries {
		t.Fatalf("expected %d summaries, got %d", payload.MaxDigestSummaries, len(env.Data.Feedback))
	}
	// The embedded summaries are the most recent events.
	if env.Data.Feedback[0].ID != "fb_05" {
		t.Errorf("expected oldest surviving summary fb_05, got %q", env.Data.Feedback[0].ID)
	}
}

func TestDigestIssue(t *testing.T) {
	avg := 2.0
	stats := payload.Stats{Count: 4, AvgRating: &avg, ByType: map[string]int{"bug": 4}}
	w := payload.Window{From: time.Now().Add(-time.Hour), To: time.Now()}

	issue := payload.DigestIssue("Acme", w, stats)
	if !strings.Contains(issue.Title, "4 new") {
		t.Errorf("title = %q", issue.Title)
	}
	if !strings.Contains(issue.Body, "**Average rating:** 2.00 / 5") {
		t.Errorf("body = %q", issue.Body)
	}
	if len(issue.Labels) != 2 || issue.Labels[1] != "digest" {
		t.Errorf("labels = %v", issue.Labels)
	}
}

package payload

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/feedbacksdev/fanout/feedback"
)

// MaxDigestSummaries caps how many per-event summaries a generic digest
// payload carries. Older events beyond the cap are dropped from the summary
// list but still counted in the stats.
const MaxDigestSummaries = 25

// Stats aggregates a digest window's feedback events.
type Stats struct {
	// Count is the number of events in the filtered window.
	Count int `json:"count"`

	// AvgRating is the arithmetic mean over events carrying a rating in
	// [1,5]. Nil when no event in the window was rated. Full precision;
	// display strings round to two decimals.
	AvgRating *float64 `json:"averageRating,omitempty"`

	// ByType counts events per feedback type. Untyped events count under "".
	ByType map[string]int `json:"byType,omitempty"`
}

// Summarize computes digest statistics over a filtered event set.
func Summarize(events []*feedback.Event) Stats {
	s := Stats{Count: len(events), ByType: make(map[string]int)}

	var sum, rated int
	for _, evt := range events {
		s.ByType[evt.Type]++
		if evt.Rating != nil && *evt.Rating >= 1 && *evt.Rating <= 5 {
			sum += *evt.Rating
			rated++
		}
	}
	if rated > 0 {
		avg := float64(sum) / float64(rated)
		s.AvgRating = &avg
	}
	return s
}

// Window is the time span a digest covers.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// DigestChat builds the chat-message digest payload.
func DigestChat(projectName string, w Window, stats Stats) map[string]any {
	return map[string]any{"text": digestText(projectName, w, stats)}
}

// DigestDiscord builds the chat-embed digest payload. Compact format
// collapses to a bare content field.
func DigestDiscord(projectName string, w Window, stats Stats, compact bool) map[string]any {
	if compact {
		return map[string]any{"content": digestText(projectName, w, stats)}
	}

	fields := []map[string]any{
		{"name": "Feedback received", "value": fmt.Sprintf("%d", stats.Count), "inline": true},
	}
	if stats.AvgRating != nil {
		fields = append(fields, map[string]any{
			"name": "Average rating", "value": fmt.Sprintf("%.2f / 5", *stats.AvgRating), "inline": true,
		})
	}
	if line := typeBreakdown(stats.ByType); line != "" {
		fields = append(fields, map[string]any{
			"name": "By type", "value": line, "inline": false,
		})
	}

	embed := map[string]any{
		"title":     "Hourly feedback digest - " + projectName,
		"color":     0x6366F1,
		"timestamp": w.To.UTC().Format(time.RFC3339),
		"fields":    fields,
	}
	return map[string]any{"embeds": []map[string]any{embed}}
}

// DigestGeneric builds the signed generic digest payload and canonicalizes it
// to the JSON bytes that will be both signed and sent. Up to
// MaxDigestSummaries of the most recent events are embedded.
func DigestGeneric(projectName string, w Window, stats Stats, events []*feedback.Event) ([]byte, error) {
	recent := events
	if len(recent) > MaxDigestSummaries {
		recent = recent[len(recent)-MaxDigestSummaries:]
	}
	summaries := make([]summary, 0, len(recent))
	for _, evt := range recent {
		summaries = append(summaries, summarize(evt))
	}

	p := genericEnvelope{
		Type:      EventFeedbackDigest,
		Source:    Source,
		Project:   projectName,
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"window":   w,
			"stats":    stats,
			"feedback": summaries,
		},
	}
	return json.Marshal(p)
}

// DigestIssue builds the issue-tracker digest payload.
func DigestIssue(projectName string, w Window, stats Stats) Issue {
	var b strings.Builder
	fmt.Fprintf(&b, "Feedback digest for %s\n\n", projectName)
	fmt.Fprintf(&b, "**Window:** %s - %s\n", w.From.UTC().Format(time.RFC3339), w.To.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Feedback received:** %d\n", stats.Count)
	if stats.AvgRating != nil {
		fmt.Fprintf(&b, "**Average rating:** %.2f / 5\n", *stats.AvgRating)
	}
	if line := typeBreakdown(stats.ByType); line != "" {
		fmt.Fprintf(&b, "**By type:** %s\n", line)
	}

	title := fmt.Sprintf("[Feedback digest] %d new in the last hour", stats.Count)
	return Issue{Title: title, Body: b.String(), Labels: []string{"feedback", "digest"}}
}

func digestText(projectName string, w Window, stats Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":bar_chart: Hourly feedback digest for *%s* (since %s)\n",
		projectName, w.From.UTC().Format("15:04 MST"))
	fmt.Fprintf(&b, "Feedback received: %d", stats.Count)
	if stats.AvgRating != nil {
		fmt.Fprintf(&b, "\nAverage rating: %.2f / 5", *stats.AvgRating)
	}
	if line := typeBreakdown(stats.ByType); line != "" {
		fmt.Fprintf(&b, "\nBy type: %s", line)
	}
	return b.String()
}

func typeBreakdown(byType map[string]int) string {
	keys := make([]string, 0, len(byType))
	for k := range byType {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, t := range keys {
		name := t
		if name == "" {
			name = "other"
		}
		parts = append(parts, fmt.Sprintf("%s %d", name, byType[t]))
	}
	return strings.Join(parts, ", ")
}

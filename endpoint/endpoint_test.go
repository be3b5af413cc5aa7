package endpoint_test

import (
	"testing"
	"time"

	"github.com/feedbacksdev/fanout/endpoint"
	"github.com/feedbacksdev/fanout/feedback"
)

func intPtr(n int) *int { return &n }

func TestModeExplicitDeliveryWins(t *testing.T) {
	ep := &endpoint.Endpoint{Delivery: endpoint.DeliveryImmediate, Events: []string{"digest"}}
	if got := ep.Mode(); got != endpoint.DeliveryImmediate {
		t.Errorf("Mode() = %q, want immediate", got)
	}

	ep = &endpoint.Endpoint{Delivery: endpoint.DeliveryDigest}
	if got := ep.Mode(); got != endpoint.DeliveryDigest {
		t.Errorf("Mode() = %q, want digest", got)
	}
}

func TestModeLegacyEventsList(t *testing.T) {
	ep := &endpoint.Endpoint{Events: []string{"digest"}}
	if got := ep.Mode(); got != endpoint.DeliveryDigest {
		t.Errorf("legacy digest marker: Mode() = %q, want digest", got)
	}

	ep = &endpoint.Endpoint{Events: []string{endpoint.EventDigest}}
	if got := ep.Mode(); got != endpoint.DeliveryDigest {
		t.Errorf("feedback.digest marker: Mode() = %q, want digest", got)
	}

	ep = &endpoint.Endpoint{Events: []string{"feedback.created"}}
	if got := ep.Mode(); got != endpoint.DeliveryImmediate {
		t.Errorf("no digest marker: Mode() = %q, want immediate", got)
	}
}

func TestEligibleImmediate(t *testing.T) {
	base := endpoint.Endpoint{
		Kind:    endpoint.KindSlack,
		URL:     "https://hooks.slack.com/services/T/B/X",
		Enabled: true,
	}

	if !base.EligibleImmediate("feedback.created") {
		t.Error("enabled immediate endpoint with no events list should be eligible")
	}

	disabled := base
	disabled.Enabled = false
	if disabled.EligibleImmediate("feedback.created") {
		t.Error("disabled endpoint must never be eligible")
	}

	noDest := base
	noDest.URL = ""
	if noDest.EligibleImmediate("feedback.created") {
		t.Error("endpoint without destination must never be eligible")
	}

	digest := base
	digest.Delivery = endpoint.DeliveryDigest
	if digest.EligibleImmediate("feedback.created") {
		t.Error("digest endpoint must not receive immediate deliveries")
	}

	filtered := base
	filtered.Events = []string{"feedback.*"}
	if !filtered.EligibleImmediate("feedback.created") {
		t.Error("wildcard events entry should match feedback.created")
	}
	if filtered.EligibleImmediate("endpoint.test") {
		t.Error("events list should exclude non-matching events")
	}
}

func TestEligibleDigestInterval(t *testing.T) {
	ep := endpoint.Endpoint{
		Kind:     endpoint.KindDiscord,
		URL:      "https://discord.com/api/webhooks/1/x",
		Enabled:  true,
		Delivery: endpoint.DeliveryDigest,
	}

	if !ep.EligibleDigest() {
		t.Error("empty interval should default to hourly and be eligible")
	}

	ep.DigestInterval = endpoint.IntervalHourly
	if !ep.EligibleDigest() {
		t.Error("hourly interval should be eligible")
	}

	ep.DigestInterval = "daily"
	if ep.EligibleDigest() {
		t.Error("unsupported interval must exclude the endpoint from the sweep")
	}
}

func TestGitHubDestination(t *testing.T) {
	ep := endpoint.Endpoint{Kind: endpoint.KindGitHub, Enabled: true, Repo: "acme/feedback"}
	if ep.HasDestination() {
		t.Error("github endpoint without token has no destination")
	}
	ep.Token = "ghp_x"
	if !ep.HasDestination() {
		t.Error("github endpoint with repo and token has a destination")
	}
}

func newEvent(rating *int, typ string, tags ...string) *feedback.Event {
	return &feedback.Event{
		ID:        "fb_test",
		ProjectID: "proj_1",
		CreatedAt: time.Now().UTC(),
		Message:   "hello",
		Type:      typ,
		Rating:    rating,
		Tags:      tags,
	}
}

func TestRulesNilPassesEverything(t *testing.T) {
	var r *endpoint.Rules
	if !r.Match(newEvent(intPtr(5), "praise")) {
		t.Error("nil rules must pass every event")
	}
}

func TestRulesRatingMax(t *testing.T) {
	r := &endpoint.Rules{RatingMax: 3}

	if !r.Match(newEvent(intPtr(2), "bug")) {
		t.Error("rating below cap should pass")
	}
	if !r.Match(newEvent(intPtr(3), "bug")) {
		t.Error("rating at cap should pass")
	}
	if r.Match(newEvent(intPtr(4), "bug")) {
		t.Error("rating above cap should be excluded")
	}
	if !r.Match(newEvent(nil, "bug")) {
		t.Error("unrated event must never be excluded by ratingMax")
	}
}

func TestRulesTypes(t *testing.T) {
	r := &endpoint.Rules{Types: []string{"bug", "complaint"}}

	if !r.Match(newEvent(nil, "bug")) {
		t.Error("listed type should pass")
	}
	if !r.Match(newEvent(nil, "BUG")) {
		t.Error("type comparison is case-insensitive")
	}
	if r.Match(newEvent(nil, "praise")) {
		t.Error("unlisted type should be excluded")
	}
}

func TestRulesTagsInclude(t *testing.T) {
	r := &endpoint.Rules{TagsInclude: []string{"Urgent", "billing"}}

	if !r.Match(newEvent(nil, "bug", "urgent")) {
		t.Error("tag intersection is case-insensitive")
	}
	if r.Match(newEvent(nil, "bug", "cosmetic")) {
		t.Error("event without an intersecting tag should be excluded")
	}
	if r.Match(newEvent(nil, "bug")) {
		t.Error("event with no tags cannot intersect a non-empty include list")
	}
}

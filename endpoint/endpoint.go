// Package endpoint models a project's webhook destinations.
//
// A project's stored configuration is an arbitrary JSON blob keyed by kind.
// This package isolates that stringly-typed concern to one adapter: Normalize
// converts both the legacy single-object shape and the array-based shape into
// a uniform Registry of typed Endpoint values, and Validate rejects bad
// configuration with structured field paths before it is ever persisted.
package endpoint

import (
	"strings"

	"github.com/feedbacksdev/fanout/feedback"
)

// Kind is the wire-format family of a webhook destination.
type Kind string

// Supported endpoint kinds.
const (
	// KindSlack delivers a simple chat text message ({"text": ...}).
	KindSlack Kind = "slack"

	// KindDiscord delivers a rich chat embed, or bare content in compact format.
	KindDiscord Kind = "discord"

	// KindGeneric delivers an HMAC-signed JSON payload to a customer endpoint.
	KindGeneric Kind = "generic"

	// KindGitHub creates an issue in a repository via the REST API.
	KindGitHub Kind = "github"
)

// Kinds lists all supported kinds in canonical order.
var Kinds = []Kind{KindSlack, KindDiscord, KindGeneric, KindGitHub}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSlack, KindDiscord, KindGeneric, KindGitHub:
		return true
	}
	return false
}

// DeliveryMode determines when an endpoint receives events.
type DeliveryMode string

const (
	// DeliveryImmediate delivers one message per feedback event.
	DeliveryImmediate DeliveryMode = "immediate"

	// DeliveryDigest batches events into a periodic summary.
	DeliveryDigest DeliveryMode = "digest"
)

// EventDigest is the event name a digest delivery is logged under, and the
// legacy marker in an endpoint's events list that opts it into digest mode.
const EventDigest = "feedback.digest"

// IntervalHourly is the only digest interval currently honored.
const IntervalHourly = "hourly"

// Endpoint is one configured outbound destination for feedback notifications.
type Endpoint struct {
	// ID is the stable endpoint identifier. Derived deterministically from
	// the destination when the configuration carries none.
	ID string `json:"id,omitempty"`

	// Kind is set during normalization from the configuration key.
	Kind Kind `json:"-"`

	// URL is the destination address. Unused by the github kind.
	URL string `json:"url,omitempty"`

	// Enabled gates the endpoint for both immediate and digest dispatch.
	Enabled bool `json:"enabled"`

	// Delivery selects immediate or digest mode. Legacy configs leave it
	// empty and are resolved through the events list.
	Delivery DeliveryMode `json:"delivery,omitempty"`

	// Events is an optional explicit list of subscribed event names.
	Events []string `json:"events,omitempty"`

	// DigestInterval is the digest cadence. Empty means hourly.
	DigestInterval string `json:"digestInterval,omitempty"`

	// Rules optionally filters which feedback events this endpoint sees.
	Rules *Rules `json:"rules,omitempty"`

	// Secret is the shared signing secret. Generic kind only.
	Secret string `json:"secret,omitempty"`

	// Format is an optional rendering toggle for chat kinds ("compact").
	Format string `json:"format,omitempty"`

	// RateLimit is the maximum immediate deliveries per second. 0 = unlimited.
	RateLimit int `json:"rateLimit,omitempty"`

	// Repo is the "owner/name" repository identifier. GitHub kind only.
	Repo string `json:"repo,omitempty"`

	// Token is the API access token. GitHub kind only.
	Token string `json:"token,omitempty"`
}

// FormatCompact collapses chat payloads to a bare text field.
const FormatCompact = "compact"

// HasDestination reports whether the endpoint has somewhere to send to.
func (ep *Endpoint) HasDestination() bool {
	if ep.Kind == KindGitHub {
		return ep.Repo != "" && ep.Token != ""
	}
	return ep.URL != ""
}

// Mode resolves the effective delivery mode. An explicit delivery field wins;
// legacy configs are digest only when their events list says so.
func (ep *Endpoint) Mode() DeliveryMode {
	if ep.Delivery == DeliveryDigest {
		return DeliveryDigest
	}
	if ep.Delivery == DeliveryImmediate {
		return DeliveryImmediate
	}
	for _, e := range ep.Events {
		if e == "digest" || e == EventDigest {
			return DeliveryDigest
		}
	}
	return DeliveryImmediate
}

// EligibleImmediate reports whether the endpoint should receive an immediate
// delivery for the named event.
func (ep *Endpoint) EligibleImmediate(event string) bool {
	if !ep.Enabled || !ep.HasDestination() {
		return false
	}
	if ep.Mode() != DeliveryImmediate {
		return false
	}
	if len(ep.Events) == 0 {
		return true
	}
	for _, pattern := range ep.Events {
		if Match(pattern, event) {
			return true
		}
	}
	return false
}

// EligibleDigest reports whether the endpoint qualifies for the hourly digest.
func (ep *Endpoint) EligibleDigest() bool {
	if !ep.Enabled || !ep.HasDestination() {
		return false
	}
	if ep.Mode() != DeliveryDigest {
		return false
	}
	return ep.DigestInterval == "" || ep.DigestInterval == IntervalHourly
}

// Rules filters which feedback events an endpoint receives.
type Rules struct {
	// RatingMax excludes events rated above this value. 0 means no cap.
	// Unrated events are never excluded by this rule.
	RatingMax int `json:"ratingMax,omitempty"`

	// Types is an allow-list of feedback types. Empty means all types.
	Types []string `json:"types,omitempty"`

	// TagsInclude requires the event's tags to intersect this set
	// (case-insensitive). Empty imposes no filter.
	TagsInclude []string `json:"tagsInclude,omitempty"`
}

// Match reports whether a feedback event passes the rules. A nil Rules
// passes everything.
func (r *Rules) Match(evt *feedback.Event) bool {
	if r == nil {
		return true
	}
	if r.RatingMax > 0 && evt.Rating != nil && *evt.Rating > r.RatingMax {
		return false
	}
	if len(r.Types) > 0 {
		ok := false
		for _, t := range r.Types {
			if strings.EqualFold(t, evt.Type) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(r.TagsInclude) > 0 {
		if !tagsIntersect(r.TagsInclude, evt.Tags) {
			return false
		}
	}
	return true
}

// tagsIntersect reports whether the two tag sets share at least one tag,
// compared case-insensitively.
func tagsIntersect(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

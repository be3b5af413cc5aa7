package endpoint

import (
	"encoding/json"

	"github.com/feedbacksdev/fanout/id"
)

// Registry is the normalized view of a project's webhook configuration:
// a uniform list of typed endpoints per kind.
type Registry struct {
	byKind map[Kind][]Endpoint
}

// ForKind returns the endpoints configured for one kind.
func (r *Registry) ForKind(k Kind) []Endpoint {
	if r == nil {
		return nil
	}
	return r.byKind[k]
}

// All returns every configured endpoint in canonical kind order.
func (r *Registry) All() []Endpoint {
	if r == nil {
		return nil
	}
	var out []Endpoint
	for _, k := range Kinds {
		out = append(out, r.byKind[k]...)
	}
	return out
}

// Immediate returns the endpoints eligible for immediate delivery of the
// named event.
func (r *Registry) Immediate(event string) []Endpoint {
	var out []Endpoint
	for _, ep := range r.All() {
		if ep.EligibleImmediate(event) {
			out = append(out, ep)
		}
	}
	return out
}

// Digest returns the endpoints eligible for the hourly digest.
func (r *Registry) Digest() []Endpoint {
	var out []Endpoint
	for _, ep := range r.All() {
		if ep.EligibleDigest() {
			out = append(out, ep)
		}
	}
	return out
}

// Find locates an endpoint by kind and id. An empty id returns the first
// enabled endpoint of that kind. Returns nil when nothing matches.
func (r *Registry) Find(kind Kind, epID string) *Endpoint {
	for _, ep := range r.ForKind(kind) {
		if epID == "" {
			if ep.Enabled {
				return &ep
			}
			continue
		}
		if ep.ID == epID {
			return &ep
		}
	}
	return nil
}

// rawConfig is the stored webhooks blob: one optional entry per kind.
type rawConfig struct {
	Slack   json.RawMessage `json:"slack,omitempty"`
	Discord json.RawMessage `json:"discord,omitempty"`
	Generic json.RawMessage `json:"generic,omitempty"`
	GitHub  json.RawMessage `json:"github,omitempty"`
}

func (c *rawConfig) forKind(k Kind) json.RawMessage {
	switch k {
	case KindSlack:
		return c.Slack
	case KindDiscord:
		return c.Discord
	case KindGeneric:
		return c.Generic
	case KindGitHub:
		return c.GitHub
	}
	return nil
}

// arrayShape is the modern per-kind configuration shape.
type arrayShape struct {
	Endpoints []Endpoint `json:"endpoints"`
}

// Normalize converts a project's raw webhooks JSON into a Registry.
//
// Each kind accepts either the array shape {"endpoints": [...]} or the legacy
// single-object shape {url, enabled, secret, ...}, which is treated as one
// synthesized endpoint. Normalization never fails: malformed entries are
// skipped and endpoints missing a destination are filtered out later by the
// dispatcher's optional-field checks.
func Normalize(raw json.RawMessage) *Registry {
	reg := &Registry{byKind: make(map[Kind][]Endpoint)}
	if len(raw) == 0 {
		return reg
	}

	var cfg rawConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return reg
	}

	for _, k := range Kinds {
		kindRaw := cfg.forKind(k)
		if len(kindRaw) == 0 {
			continue
		}

		var shape arrayShape
		if err := json.Unmarshal(kindRaw, &shape); err == nil && shape.Endpoints != nil {
			for _, ep := range shape.Endpoints {
				reg.byKind[k] = append(reg.byKind[k], finish(ep, k))
			}
			continue
		}

		// Legacy single-object shape.
		var ep Endpoint
		if err := json.Unmarshal(kindRaw, &ep); err != nil {
			continue
		}
		reg.byKind[k] = append(reg.byKind[k], finish(ep, k))
	}

	return reg
}

// finish stamps the kind and synthesizes a deterministic id when absent.
func finish(ep Endpoint, k Kind) Endpoint {
	ep.Kind = k
	if ep.ID == "" {
		target := ep.URL
		if k == KindGitHub && target == "" {
			target = ep.Repo
		}
		ep.ID = id.DeriveEndpointID(target)
	}
	return ep
}

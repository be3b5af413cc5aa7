// Package id defines identity helpers for fanout entities.
//
// Delivery records get globally unique, K-sortable TypeID identifiers
// (UUIDv7-based, "prefix_suffix" format). Endpoint identifiers come from the
// project's webhook configuration; when a configured endpoint carries no id,
// one is derived deterministically from its URL so the same endpoint keeps
// the same id across process restarts without persisting anything.
package id

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for fanout entity types.
const (
	PrefixDelivery Prefix = "dlv"
	PrefixFeedback Prefix = "fb"
	PrefixSecret   Prefix = "whsec"
)

// New generates a new globally unique TypeID string with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) string {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return tid.String()
}

// NewDeliveryID generates a new unique delivery record id.
func NewDeliveryID() string { return New(PrefixDelivery) }

// NewFeedbackID generates a new unique feedback event id.
func NewFeedbackID() string { return New(PrefixFeedback) }

// Parse validates a TypeID string and checks its prefix.
func Parse(s string, expected Prefix) (string, error) {
	if s == "" {
		return "", fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("id: parse %q: %w", s, err)
	}
	if tid.Prefix() != string(expected) {
		return "", fmt.Errorf("id: expected prefix %q, got %q", expected, tid.Prefix())
	}
	return tid.String(), nil
}

// ParseDeliveryID validates a string as a "dlv" TypeID.
func ParseDeliveryID(s string) (string, error) { return Parse(s, PrefixDelivery) }

// endpointIDBytes is the number of hash bytes kept in a derived endpoint id.
const endpointIDBytes = 8

// DeriveEndpointID returns a stable endpoint id for a configured destination
// URL. The derivation is a pure function of the URL: the same URL always
// produces the same id, so ids synthesized for legacy single-object configs
// survive restarts without a persisted id.
func DeriveEndpointID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "ep_" + hex.EncodeToString(sum[:endpointIDBytes])
}

package endpoint

import "strings"

// Match checks if an event name matches a subscription entry.
//
// Supported patterns:
//
//	"feedback.created"  → exact match
//	"feedback.*"        → matches feedback.created, feedback.rated, etc.
//	"*"                 → matches everything
func Match(pattern, event string) bool {
	if pattern == "*" {
		return true
	}

	if pattern == event {
		return true
	}

	patternParts := strings.Split(pattern, ".")
	eventParts := strings.Split(event, ".")

	if len(patternParts) != len(eventParts) {
		return false
	}

	for i, pp := range patternParts {
		if pp == "*" {
			continue
		}
		if pp != eventParts[i] {
			return false
		}
	}

	return true
}

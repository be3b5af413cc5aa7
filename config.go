package fanout

import "time"

// Config holds the configuration for an Engine instance.
type Config struct {
	// RequestTimeout is the hard HTTP timeout per delivery attempt.
	RequestTimeout time.Duration

	// DigestWindow is the trailing time span one digest sweep covers.
	DigestWindow time.Duration
}

// DefaultConfig returns a Config with the production defaults: a 4 second
// delivery timeout and an hourly digest window.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 4 * time.Second,
		DigestWindow:   time.Hour,
	}
}

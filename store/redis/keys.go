package redis

// Key prefixes for primary entity storage.
const (
	prefixProject  = "fanout:project:"
	prefixFeedback = "fanout:fb:"
	prefixRecord   = "fanout:del:"
)

// Key prefixes for sorted set indexes, scored by created_at.
const (
	zProjectAll      = "fanout:z:project:all"
	zFeedbackProject = "fanout:z:fb:"  // + project ID
	zRecordProject   = "fanout:z:del:" // + project ID
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

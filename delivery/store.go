package delivery

import "context"

// Store defines the persistence contract for the delivery log.
// The log is append-only: records are inserted once and read back for the
// log view and for resend, never updated.
type Store interface {
	// AppendRecord inserts one delivery record.
	AppendRecord(ctx context.Context, rec *Record) error

	// GetRecord returns a record by id.
	GetRecord(ctx context.Context, recordID string) (*Record, error)

	// ListRecords returns a project's delivery history, newest first.
	ListRecords(ctx context.Context, projectID string, opts ListOpts) ([]*Record, error)

	// CountRecords returns the number of logged deliveries for a project.
	// An empty status counts all records.
	CountRecords(ctx context.Context, projectID string, status Status) (int64, error)
}

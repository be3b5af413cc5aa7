package fanout

import (
	"errors"

	"github.com/feedbacksdev/fanout/delivery"
)

// Sentinel errors returned by engine operations.
var (
	// ErrNoStore is returned when an engine is created without a store.
	ErrNoStore = errors.New("fanout: store is required")

	// ErrProjectNotFound is returned when a project cannot be found.
	ErrProjectNotFound = errors.New("fanout: project not found")

	// ErrStoreClosed is returned when a store operation is attempted after
	// the store is closed.
	ErrStoreClosed = errors.New("fanout: store is closed")

	// ErrNotConfigured is returned when the target endpoint for a test
	// delivery is missing, disabled, or has no destination.
	ErrNotConfigured = delivery.ErrNotConfigured

	// ErrDeliveryNotFound is returned when a delivery record cannot be
	// found for resend.
	ErrDeliveryNotFound = delivery.ErrRecordNotFound
)

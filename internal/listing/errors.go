package listing

import (
	"errors"
	"fmt"

	"github.com/erazemk/powerlister/internal/store"
)

// ErrOperationInProgress is returned when another lifecycle operation is still running.
var ErrOperationInProgress = errors.New("another listing operation is in progress")

// CapabilityError is returned for marketplaces that cannot be driven automatically.
type CapabilityError struct {
	Marketplace string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("marketplace %s does not support automated listing", e.Marketplace)
}

// RemoteOperationError is returned when a marketplace call fails. Err is set
// when the call did not complete; otherwise Message carries the reported reason.
type RemoteOperationError struct {
	Marketplace string
	Op          string
	Message     string
	Err         error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("%s on %s failed: %s", e.Op, e.Marketplace, e.Message)
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// NotFoundError is returned for unknown items and marketplaces and for
// listings that do not exist. It matches store.ErrNotFound.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

func remoteError(marketplaceID, op string, err error, reported string) error {
	if err != nil {
		return &RemoteOperationError{Marketplace: marketplaceID, Op: op, Message: err.Error(), Err: err}
	}
	if reported == "" {
		reported = "unknown error"
	}
	return &RemoteOperationError{Marketplace: marketplaceID, Op: op, Message: reported}
}

package domain

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation marks a cart line that escaped the clamp rules.
// No valid operation sequence can produce it; it exists so tests can
// assert that.
var ErrInvariantViolation = errors.New("cart invariant violated")

// FetchError wraps a failed catalog list call. The previous snapshot
// stays intact when one of these is returned.
type FetchError struct {
	Status int // HTTP status, 0 when the request never got a response
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog fetch failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("catalog fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PurchaseReason classifies why a single purchase was refused.
type PurchaseReason string

const (
	ReasonOutOfStock   PurchaseReason = "out_of_stock"
	ReasonItemNotFound PurchaseReason = "item_not_found"
	ReasonNetworkError PurchaseReason = "network_error"
	ReasonUnauthorized PurchaseReason = "unauthorized"
)

// PurchaseError is the typed form of any per-line checkout failure.
// It never crosses the Checkout Coordinator boundary raw; the
// coordinator converts it into a rejected outcome.
type PurchaseError struct {
	SweetID int64
	Reason  PurchaseReason
	Err     error
}

func (e *PurchaseError) Error() string {
	return fmt.Sprintf("purchase of sweet %d failed (%s): %v", e.SweetID, e.Reason, e.Err)
}

func (e *PurchaseError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the purchase reason from err, falling back to
// network_error for anything untyped (raw transport failures).
func ReasonOf(err error) PurchaseReason {
	var perr *PurchaseError
	if errors.As(err, &perr) {
		return perr.Reason
	}
	return ReasonNetworkError
}

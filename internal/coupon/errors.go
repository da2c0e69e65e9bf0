package coupon

import (
	"errors"
	"fmt"
)

// ErrEmptyCode is returned for a blank code; no lookup is made.
var ErrEmptyCode = errors.New("empty coupon code")

// Reason identifies why a coupon was refused
type Reason string

const (
	ReasonInvalid      Reason = "invalid"
	ReasonNotYetActive Reason = "not_yet_active"
	ReasonExpired      Reason = "expired"
	ReasonMinOrder     Reason = "min_order"
	ReasonMinPhotos    Reason = "min_photos"
	ReasonExhausted    Reason = "exhausted"
)

// RejectionError carries the reason and the message shown to the customer.
type RejectionError struct {
	Reason  Reason
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("coupon rejected (%s): %s", e.Reason, e.Message)
}

func reject(reason Reason, format string, args ...interface{}) *RejectionError {
	return &RejectionError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

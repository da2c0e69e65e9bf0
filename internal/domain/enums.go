package domain

// CheckoutStep is the position of a session in the checkout flow
type CheckoutStep string

const (
	StepCart     CheckoutStep = "cart"
	StepCheckout CheckoutStep = "checkout"
	StepPayment  CheckoutStep = "payment"
)

func (s CheckoutStep) String() string {
	return string(s)
}

// IsValid checks if the step is known
func (s CheckoutStep) IsValid() bool {
	switch s {
	case StepCart, StepCheckout, StepPayment:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a step transition is allowed.
// Payment is only left by navigating away, never through the flow.
func (s CheckoutStep) CanTransitionTo(next CheckoutStep) bool {
	switch s {
	case StepCart:
		return next == StepCheckout
	case StepCheckout:
		return next == StepCart || next == StepPayment
	case StepPayment:
		return false
	default:
		return false
	}
}

// PaymentStatus is reported by the payment-status endpoint
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// IsPaid checks if the order has been paid
func (s PaymentStatus) IsPaid() bool {
	return s == PaymentPaid
}

// DiscountType selects how a coupon value is applied
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// IsValid checks if the discount type is known
func (t DiscountType) IsValid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

package payment

import "errors"

var (
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrClientNotFound        = errors.New("client not found")
	ErrAmountMismatch        = errors.New("notified amount does not match payment")
	ErrCurrencyMismatch      = errors.New("notified currency does not match payment")
	ErrDuplicateNotification = errors.New("notification already received")
	ErrInvalidCheckout       = errors.New("invalid checkout request")
	ErrNotRefundable         = errors.New("payment cannot be refunded")
)

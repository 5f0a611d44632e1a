package payment

import (
	"errors"
	"net/http"

	"sslcommerz-gateway/internal/sslcommerz"
)

// StatusCode maps service and gateway errors onto HTTP responses.
func StatusCode(err error) int {
	var (
		malformed *sslcommerz.MalformedCallbackError
		gwErr     *sslcommerz.GatewayError
		cfgErr    *sslcommerz.ConfigurationError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrDuplicateNotification):
		return http.StatusOK
	case errors.As(err, &malformed), errors.Is(err, ErrInvalidCheckout):
		return http.StatusBadRequest
	case errors.Is(err, sslcommerz.ErrVerificationFailed):
		return http.StatusUnauthorized
	case errors.As(err, &cfgErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &gwErr):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrPaymentNotFound), errors.Is(err, ErrClientNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAmountMismatch), errors.Is(err, ErrCurrencyMismatch), errors.Is(err, ErrNotRefundable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the error text safe to return to a caller.
func PublicMessage(err error) string {
	var gwErr *sslcommerz.GatewayError
	switch code := StatusCode(err); {
	case code == http.StatusPaymentRequired && errors.As(err, &gwErr):
		return gwErr.Reason
	case code == http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}

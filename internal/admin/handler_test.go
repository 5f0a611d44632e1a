package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sslcommerz-gateway/internal/payment"
	"sslcommerz-gateway/internal/sslcommerz"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Checkout(ctx context.Context, in payment.CheckoutInput) (*sslcommerz.Session, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sslcommerz.Session), args.Error(1)
}

func (m *MockService) HandleNotification(ctx context.Context, query, form map[string]string) (*sslcommerz.NormalizedResult, error) {
	args := m.Called(ctx, query, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sslcommerz.NormalizedResult), args.Error(1)
}

func (m *MockService) HandleReturn(ctx context.Context, query map[string]string) sslcommerz.ReturnResult {
	return m.Called(ctx, query).Get(0).(sslcommerz.ReturnResult)
}

func (m *MockService) Refund(ctx context.Context, in payment.RefundInput) (*sslcommerz.RefundResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sslcommerz.RefundResult), args.Error(1)
}

func (m *MockService) ValidateCredentials(ctx context.Context, creds sslcommerz.Credentials) error {
	return m.Called(ctx, creds).Error(0)
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_CheckoutHandler(t *testing.T) {
	body := `{"client_id":"7","amount":"1000","currency":"BDT","invoices":[{"id":"1","amount":"500.00"},{"id":"2","amount":"500.00"}]}`

	t.Run("Created", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("Checkout", mock.Anything, mock.MatchedBy(func(in payment.CheckoutInput) bool {
			return in.ClientID == "7" && in.Amount.Equal(decimal.NewFromInt(1000)) && len(in.Invoices) == 2
		})).Return(&sslcommerz.Session{TransactionRef: "TXN-1", SessionKey: "SK", RedirectURL: "https://gw/SK"}, nil)

		w := httptest.NewRecorder()
		h.CheckoutHandler(w, jsonRequest("/payments/checkout", body))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"redirect_url":"https://gw/SK"`)
	})

	t.Run("GatewayRejection", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("Checkout", mock.Anything, mock.Anything).Return(nil, &sslcommerz.GatewayError{Reason: "Invalid Store ID"})

		w := httptest.NewRecorder()
		h.CheckoutHandler(w, jsonRequest("/payments/checkout", body))

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		assert.JSONEq(t, `{"error":"Invalid Store ID"}`, w.Body.String())
	})

	t.Run("BadJSON", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		w := httptest.NewRecorder()
		h.CheckoutHandler(w, jsonRequest("/payments/checkout", `{"client_id":`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
	})

	t.Run("UnknownField", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		w := httptest.NewRecorder()
		h.CheckoutHandler(w, jsonRequest("/payments/checkout", `{"client_id":"7","store_passwd":"x"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_RefundHandler(t *testing.T) {
	t.Run("Refunded", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		ref := "RF-1"
		svc.On("Refund", mock.Anything, mock.MatchedBy(func(in payment.RefundInput) bool {
			return in.TranID == "TXN-1" && in.Amount.Equal(decimal.RequireFromString("250.5"))
		})).Return(&sslcommerz.RefundResult{Status: sslcommerz.StatusRefunded, ReferenceID: &ref, TransactionID: "BANK-9"}, nil)

		w := httptest.NewRecorder()
		h.RefundHandler(w, jsonRequest("/payments/refunds", `{"tran_id":"TXN-1","amount":250.5,"notes":"dup"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"reference_id":"RF-1"`)
	})

	t.Run("MissingTranID", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		w := httptest.NewRecorder()
		h.RefundHandler(w, jsonRequest("/payments/refunds", `{"amount":"1"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("NotRefundable", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("Refund", mock.Anything, mock.Anything).Return(nil, payment.ErrNotRefundable)

		w := httptest.NewRecorder()
		h.RefundHandler(w, jsonRequest("/payments/refunds", `{"tran_id":"TXN-1"}`))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("InternalError", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("Refund", mock.Anything, mock.Anything).Return(nil, errors.New("pq: broken pipe"))

		w := httptest.NewRecorder()
		h.RefundHandler(w, jsonRequest("/payments/refunds", `{"tran_id":"TXN-1"}`))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
	})
}

func TestHandler_ValidateSettingsHandler(t *testing.T) {
	creds := sslcommerz.Credentials{StoreID: "store-1", StorePassword: "secret", Sandbox: true}
	body := `{"store_id":"store-1","store_password":"secret","sandbox":true}`

	t.Run("Valid", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("ValidateCredentials", mock.Anything, creds).Return(nil)

		w := httptest.NewRecorder()
		h.ValidateSettingsHandler(w, jsonRequest("/settings/validate", body))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"valid":true}`, w.Body.String())
	})

	t.Run("Rejected", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("ValidateCredentials", mock.Anything, creds).
			Return(&sslcommerz.ConfigurationError{Field: "store_password", Err: errors.New("rejected")})

		w := httptest.NewRecorder()
		h.ValidateSettingsHandler(w, jsonRequest("/settings/validate", body))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "store_password")
	})
}

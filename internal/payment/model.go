package payment

import (
	"time"

	"sslcommerz-gateway/internal/sslcommerz"

	"github.com/shopspring/decimal"
)

const Provider = "SSLCOMMERZ"

// Payment is one initiated gateway transaction, keyed by its tran_id.
type Payment struct {
	ID             int64
	TranID         string
	ClientID       string
	Amount         decimal.Decimal
	// RefundedAmount is the total of accepted refunds.
	RefundedAmount decimal.Decimal
	Currency       string
	Status         sslcommerz.Status
	Invoices       string // value_a encoding
	SessionKey     string
	GatewayURL     string
	BankTranID     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CheckoutInput struct {
	ClientID  string                   `json:"client_id"`
	Amount    decimal.Decimal          `json:"amount"`
	Currency  string                   `json:"currency"`
	ReturnURL string                   `json:"return_url"`
	Invoices  []sslcommerz.InvoiceLine `json:"invoices"`
}

type RefundInput struct {
	TranID string `json:"tran_id"`
	// Amount defaults to the amount not yet refunded when zero.
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes"`
}

// ClientContact is the billing client data needed to open a payment session.
type ClientContact struct {
	ID          string
	FirstName   string
	LastName    string
	CompanyName string
	Email       string
	Numbers     []sslcommerz.ContactNumber
}

func (c *ClientContact) DisplayName() string {
	if name := sslcommerz.CustomerName(c.FirstName, c.LastName); name != "" {
		return name
	}
	return c.CompanyName
}

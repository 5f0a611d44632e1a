package sslcommerz

import (
	"github.com/shopspring/decimal"
)

// Credentials identify a merchant store on the gateway.
type Credentials struct {
	StoreID       string
	StorePassword string
	Sandbox       bool
}

type InvoiceLine struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

// ChargeRequest is the host-side view of a payment to initiate.
type ChargeRequest struct {
	ClientID       string
	Amount         decimal.Decimal
	Currency       string
	TransactionRef string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	ReturnURL      string
	NotifyURL      string
	Invoices       []InvoiceLine
}

// ContactNumber mirrors a single entry of a client's contact numbers.
type ContactNumber struct {
	Number   string
	Type     string // phone | fax
	Location string // home | work | mobile
}

type Status string

const (
	StatusApproved   Status = "approved"
	StatusDeclined   Status = "declined"
	StatusVoid       Status = "void"
	StatusPending    Status = "pending"
	StatusReconciled Status = "reconciled"
	StatusRefunded   Status = "refunded"
	StatusReturned   Status = "returned"
	StatusError      Status = "error"
)

// NormalizedResult is a verified gateway notification expressed in host terms.
type NormalizedResult struct {
	ClientID      string          `json:"client_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        Status          `json:"status"`
	ReferenceID   *string         `json:"reference_id"`
	TransactionID string          `json:"transaction_id"`
	TranID        string          `json:"tran_id"`
	Invoices      []InvoiceLine   `json:"invoices"`
}

// Session is returned by a successful payment initiation.
type Session struct {
	TransactionRef string `json:"transaction_ref"`
	SessionKey     string `json:"session_key"`
	RedirectURL    string `json:"redirect_url"`
}

// ReturnResult is the degraded result of a customer redirect back from the gateway.
// The gateway posts nothing useful on redirect, so only the query markers are known.
type ReturnResult struct {
	ClientID string `json:"client_id"`
	Status   Status `json:"status"`
	Canceled bool   `json:"canceled"`
	Failed   bool   `json:"failed"`
}

type RefundRequest struct {
	ReferenceID   string
	TransactionID string
	Amount        decimal.Decimal
	Notes         string
}

type RefundResult struct {
	Status        Status  `json:"status"`
	ReferenceID   *string `json:"reference_id"`
	TransactionID string  `json:"transaction_id"`
	Message       string  `json:"message,omitempty"`
}

package sslcommerz

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"sslcommerz-gateway/internal/logger"
	"sslcommerz-gateway/internal/metrics"
	"sslcommerz-gateway/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway is the surface the billing platform uses to drive SSLCommerz.
type Gateway interface {
	BuildProcess(ctx context.Context, req ChargeRequest) (*Session, error)
	Validate(ctx context.Context, query, form map[string]string) (*NormalizedResult, error)
	Success(query map[string]string) ReturnResult
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	ValidateCredentials(ctx context.Context, creds Credentials) error
}

var _ Gateway = (*Adapter)(nil)

// Fixed parameters of the trial initiation used to check credentials.
const (
	trialAmount   = 1000
	trialCurrency = "BDT"
	trialName     = "Billing"
	trialEmail    = "noreply@sslcommerz.com"
	trialURL      = "https://sslcommerz.com"
)

type Adapter struct {
	creds      Credentials
	client     *Client
	httpClient *http.Client
	baseURL    string
	newRef     func() string
}

type Option func(*Adapter)

func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

// WithBaseURL points the adapter at a different API host.
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = u }
}

func WithTransactionRefs(fn func() string) Option {
	return func(a *Adapter) { a.newRef = fn }
}

func NewAdapter(creds Credentials, opts ...Option) *Adapter {
	if creds.StoreID == "" {
		logger.L().Warn("SSLCommerz store id is empty")
	}

	a := &Adapter{
		creds:  creds,
		newRef: utils.GenerateTransactionRef,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.client = a.clientFor(creds)
	return a
}

func (a *Adapter) clientFor(creds Credentials) *Client {
	c := NewClient(creds, a.httpClient)
	if a.baseURL != "" {
		c.baseURL = a.baseURL
	}
	return c
}

// BuildProcess initiates a payment session and returns where to send the customer.
func (a *Adapter) BuildProcess(ctx context.Context, req ChargeRequest) (*Session, error) {
	if req.TransactionRef == "" {
		req.TransactionRef = a.newRef()
	}

	log := logger.FromCtx(ctx).With(
		zap.String("tran_id", req.TransactionRef),
		zap.String("client_id", req.ClientID),
	)

	params, err := BuildPaymentParams(a.creds, req)
	if err != nil {
		log.Error("Failed to build payment request", zap.Error(err))
		return nil, err
	}
	log.Info("input", zap.Any("params", redactParams(params)), zap.Bool("acceptable", true))

	res, err := a.client.InitiatePayment(ctx, params)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(res.Status, "SUCCESS") {
		log.Warn("output",
			zap.String("status", res.Status),
			zap.String("failed_reason", res.FailedReason),
			zap.Bool("acceptable", false),
		)
		return nil, &GatewayError{Reason: res.FailedReason}
	}

	log.Info("output",
		zap.String("status", res.Status),
		zap.String("session_key", res.SessionKey),
		zap.Bool("acceptable", true),
	)

	return &Session{
		TransactionRef: req.TransactionRef,
		SessionKey:     res.SessionKey,
		RedirectURL:    res.GatewayPageURL,
	}, nil
}

// Validate authenticates a server-to-server notification and normalizes it.
// Verification failures are reported through the error status, not as an error.
func (a *Adapter) Validate(ctx context.Context, query, form map[string]string) (*NormalizedResult, error) {
	tranID := form["tran_id"]
	if tranID == "" {
		return nil, &MalformedCallbackError{Field: "tran_id"}
	}

	log := logger.FromCtx(ctx).With(zap.String("tran_id", tranID))

	details, err := a.client.GetPayment(ctx, tranID)
	if err != nil {
		return nil, err
	}

	verifyErr := VerifyCallback(form, a.creds.StorePassword)
	metrics.ObserveVerification(verifyErr == nil, verificationReason(verifyErr))

	status := MapValidationStatus(details.Status, verifyErr == nil)

	amount, err := decimal.NewFromString(string(details.CurrencyAmount))
	if err != nil {
		log.Warn("Unparsable currency amount", zap.String("currency_amount", string(details.CurrencyAmount)))
		status = StatusError
		amount = decimal.Zero
	}

	transactionID := details.BankTranID
	if transactionID == "" {
		transactionID = tranID
	}

	clientID := query["client_id"]
	if clientID == "" {
		clientID = form["value_b"]
	}

	log.Info("output",
		zap.String("gateway_status", details.Status),
		zap.String("status", string(status)),
		zap.String("bank_tran_id", details.BankTranID),
		zap.NamedError("verification", verifyErr),
		zap.Bool("acceptable", Acceptable(status)),
	)

	return &NormalizedResult{
		ClientID:      clientID,
		Amount:        amount.Round(2),
		Currency:      details.CurrencyType,
		Status:        status,
		TransactionID: transactionID,
		TranID:        tranID,
		Invoices:      DecodeInvoices(form["value_a"]),
	}, nil
}

// Success reads the markers of a customer redirect. The status is provisional;
// the notification path is authoritative.
func (a *Adapter) Success(query map[string]string) ReturnResult {
	return ReturnResult{
		ClientID: query["client_id"],
		Status:   StatusApproved,
		Canceled: query["cancel"] == "true",
		Failed:   query["fail"] == "true",
	}
}

func (a *Adapter) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("bank_tran_id", req.TransactionID))

	params := RefundParams{
		BankTranID:    req.TransactionID,
		RefundAmount:  FormatAmount(req.Amount),
		RefundRemarks: req.Notes,
	}
	log.Info("input",
		zap.String("refund_amount", params.RefundAmount),
		zap.String("refund_remarks", params.RefundRemarks),
		zap.Bool("acceptable", true),
	)

	res, err := a.client.RefundPayment(ctx, params)
	if err != nil {
		return nil, err
	}

	status := MapRefundStatus(res.Status)
	log.Info("output",
		zap.String("gateway_status", res.Status),
		zap.String("status", string(status)),
		zap.String("error_reason", res.ErrorReason),
		zap.Bool("acceptable", Acceptable(status)),
	)

	result := &RefundResult{
		Status:        status,
		TransactionID: req.TransactionID,
		Message:       res.ErrorReason,
	}
	if res.RefundRefID != "" {
		ref := res.RefundRefID
		result.ReferenceID = &ref
	}
	return result, nil
}

// ValidateCredentials runs a trial initiation with the candidate credentials.
func (a *Adapter) ValidateCredentials(ctx context.Context, creds Credentials) error {
	if strings.TrimSpace(creds.StoreID) == "" {
		return &ConfigurationError{Field: "store_id", Err: errors.New("store id is required")}
	}
	if creds.StorePassword == "" {
		return &ConfigurationError{Field: "store_password", Err: errors.New("store password is required")}
	}

	params := url.Values{}
	params.Set("store_id", creds.StoreID)
	params.Set("store_passwd", creds.StorePassword)
	params.Set("total_amount", FormatAmount(decimal.NewFromInt(trialAmount)))
	params.Set("currency", trialCurrency)
	params.Set("tran_id", a.newRef())
	params.Set("emi_option", "0")
	params.Set("cus_name", trialName)
	params.Set("cus_email", trialEmail)
	params.Set("success_url", trialURL)
	params.Set("fail_url", trialURL)
	params.Set("cancel_url", trialURL)
	params.Set("shipping_method", shippingMethod)
	params.Set("product_name", productName)
	params.Set("product_category", productCategory)
	params.Set("product_profile", productProfile)

	res, err := a.clientFor(creds).InitiatePayment(ctx, params)
	if err != nil {
		return &ConfigurationError{Field: "store_password", Err: err}
	}
	if res.SessionKey == "" {
		return &ConfigurationError{Field: "store_password", Err: &GatewayError{Reason: res.FailedReason}}
	}
	return nil
}

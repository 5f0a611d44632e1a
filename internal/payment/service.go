package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sslcommerz-gateway/internal/logger"
	"sslcommerz-gateway/internal/metrics"
	"sslcommerz-gateway/internal/sslcommerz"
	"sslcommerz-gateway/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultCurrency = "BDT"

type Service interface {
	Checkout(ctx context.Context, in CheckoutInput) (*sslcommerz.Session, error)
	HandleNotification(ctx context.Context, query, form map[string]string) (*sslcommerz.NormalizedResult, error)
	HandleReturn(ctx context.Context, query map[string]string) sslcommerz.ReturnResult
	Refund(ctx context.Context, in RefundInput) (*sslcommerz.RefundResult, error)
	ValidateCredentials(ctx context.Context, creds sslcommerz.Credentials) error
}

type service struct {
	repo      Repository
	gateway   sslcommerz.Gateway
	notifyURL string
	returnURL string
	newRef    func() string
}

// NewService wires the repository to the gateway. notifyURL is sent as the
// IPN target; returnURL is used for checkouts that do not name one.
func NewService(repo Repository, gateway sslcommerz.Gateway, notifyURL, returnURL string) Service {
	return &service{
		repo:      repo,
		gateway:   gateway,
		notifyURL: notifyURL,
		returnURL: returnURL,
		newRef:    utils.GenerateTransactionRef,
	}
}

func (s *service) Checkout(ctx context.Context, in CheckoutInput) (*sslcommerz.Session, error) {
	log := logger.FromCtx(ctx).With(zap.String("client_id", in.ClientID))

	if strings.TrimSpace(in.ClientID) == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalidCheckout)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidCheckout)
	}
	returnURL := in.ReturnURL
	if returnURL == "" {
		returnURL = s.returnURL
	}
	if returnURL == "" {
		return nil, fmt.Errorf("%w: return_url is required", ErrInvalidCheckout)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if err := validateInvoices(in.Invoices); err != nil {
		return nil, err
	}

	contact, err := s.repo.GetClientContact(ctx, in.ClientID)
	if err != nil {
		log.Error("Failed to load client contact", zap.Error(err))
		return nil, err
	}

	amount := in.Amount.Round(2)
	req := sslcommerz.ChargeRequest{
		ClientID:       in.ClientID,
		Amount:         amount,
		Currency:       currency,
		TransactionRef: s.newRef(),
		CustomerName:   contact.DisplayName(),
		CustomerEmail:  contact.Email,
		CustomerPhone:  sslcommerz.SelectPhone(contact.Numbers),
		ReturnURL:      returnURL,
		NotifyURL:      s.notifyURL,
		Invoices:       in.Invoices,
	}

	session, err := s.gateway.BuildProcess(ctx, req)
	if err != nil {
		log.Warn("Payment initiation failed", zap.String("tran_id", req.TransactionRef), zap.Error(err))
		return nil, err
	}

	p := &Payment{
		TranID:     session.TransactionRef,
		ClientID:   in.ClientID,
		Amount:     amount,
		Currency:   currency,
		Status:     sslcommerz.StatusPending,
		Invoices:   sslcommerz.EncodeInvoices(in.Invoices),
		SessionKey: session.SessionKey,
		GatewayURL: session.RedirectURL,
	}
	if _, err := s.repo.SavePayment(ctx, p); err != nil {
		log.Error("Failed to store initiated payment", zap.String("tran_id", p.TranID), zap.Error(err))
		return nil, err
	}

	metrics.IncPayment("initiated")
	log.Info("Payment session created",
		zap.String("tran_id", p.TranID),
		zap.String("amount", sslcommerz.FormatAmount(amount)),
		zap.String("currency", currency),
	)
	return session, nil
}

// validateInvoices keeps allocations intact through the value_a encoding.
func validateInvoices(invoices []sslcommerz.InvoiceLine) error {
	for _, inv := range invoices {
		if !inv.Encodable() {
			return fmt.Errorf("%w: invoice %q=%q cannot be encoded", ErrInvalidCheckout, inv.ID, inv.Amount)
		}
		amount, err := decimal.NewFromString(inv.Amount)
		if err != nil || !amount.IsPositive() {
			return fmt.Errorf("%w: invoice %s amount %q is not a positive number", ErrInvalidCheckout, inv.ID, inv.Amount)
		}
	}
	return nil
}

// HandleNotification validates a gateway notification and applies it to the
// stored payment. Each (transaction, status) pair is processed once; a pair
// whose processing failed transiently is processed again on redelivery.
func (s *service) HandleNotification(ctx context.Context, query, form map[string]string) (*sslcommerz.NormalizedResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("tran_id", form["tran_id"]))

	res, err := s.gateway.Validate(ctx, query, form)
	if err != nil {
		metrics.IncNotification("rejected")
		log.Warn("Notification could not be validated", zap.Error(err))
		return nil, err
	}

	payload, err := json.Marshal(form)
	if err != nil {
		return nil, err
	}

	eventID := res.TransactionID + ":" + string(res.Status)
	webhookID, isDup, err := s.repo.SavePaymentWebhook(
		ctx, Provider, eventID, string(res.Status), res.TranID, payload, res.Status != sslcommerz.StatusError,
	)
	if err != nil {
		metrics.IncNotification("failed")
		log.Error("Failed to record notification", zap.Error(err))
		return nil, err
	}
	if isDup {
		metrics.IncNotification("duplicate")
		log.Info("Duplicate notification ignored", zap.String("event_id", eventID))
		return res, ErrDuplicateNotification
	}

	if err := s.applyNotification(ctx, res); err != nil {
		outcome := "failed"
		if errors.Is(err, sslcommerz.ErrVerificationFailed) {
			outcome = "rejected"
		}
		metrics.IncNotification(outcome)
		retry := retryable(err)
		log.Warn("Notification not applied",
			zap.String("event_id", eventID),
			zap.Bool("retryable", retry),
			zap.Error(err),
		)
		if markErr := s.repo.MarkWebhookFailed(ctx, webhookID, err.Error(), retry); markErr != nil {
			log.Error("Failed to mark notification failed", zap.Error(markErr))
		}
		return res, err
	}

	if err := s.repo.MarkWebhookProcessed(ctx, webhookID); err != nil {
		log.Error("Failed to mark notification processed", zap.Error(err))
	}

	metrics.IncNotification("processed")
	metrics.IncPayment(string(res.Status))
	log.Info("Notification applied",
		zap.String("status", string(res.Status)),
		zap.String("bank_tran_id", res.TransactionID),
	)
	return res, nil
}

func (s *service) applyNotification(ctx context.Context, res *sslcommerz.NormalizedResult) error {
	if res.Status == sslcommerz.StatusError {
		return sslcommerz.ErrVerificationFailed
	}

	p, err := s.repo.GetPaymentByTranID(ctx, res.TranID)
	if err != nil {
		return err
	}

	if !p.Amount.Equal(res.Amount) {
		return fmt.Errorf("%w: expected %s, got %s", ErrAmountMismatch,
			sslcommerz.FormatAmount(p.Amount), sslcommerz.FormatAmount(res.Amount))
	}
	if !strings.EqualFold(p.Currency, res.Currency) {
		return fmt.Errorf("%w: expected %s, got %s", ErrCurrencyMismatch, p.Currency, res.Currency)
	}

	if !canTransition(p.Status, res.Status) {
		logger.FromCtx(ctx).Info("Stale notification kept as audit only",
			zap.String("current", string(p.Status)),
			zap.String("notified", string(res.Status)),
		)
		return nil
	}

	// Allocations come from the stored payment; value_a is not always signed.
	return s.repo.SettlePayment(ctx, p.TranID, res.Status, res.TransactionID, sslcommerz.DecodeInvoices(p.Invoices))
}

// retryable reports whether a failed notification should stay open for the
// gateway's next delivery. A missing payment may still be mid-checkout.
func retryable(err error) bool {
	return errors.Is(err, ErrPaymentNotFound) || StatusCode(err) >= http.StatusInternalServerError
}

// canTransition keeps settled payments from being reopened by late notifications.
func canTransition(from, to sslcommerz.Status) bool {
	switch from {
	case sslcommerz.StatusRefunded, sslcommerz.StatusReturned:
		return false
	case sslcommerz.StatusApproved:
		return to == sslcommerz.StatusRefunded || to == sslcommerz.StatusReturned
	default:
		return true
	}
}

func (s *service) HandleReturn(ctx context.Context, query map[string]string) sslcommerz.ReturnResult {
	res := s.gateway.Success(query)
	logger.FromCtx(ctx).Info("Customer returned from gateway",
		zap.String("client_id", res.ClientID),
		zap.Bool("canceled", res.Canceled),
		zap.Bool("failed", res.Failed),
	)
	return res
}

func (s *service) Refund(ctx context.Context, in RefundInput) (*sslcommerz.RefundResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("tran_id", in.TranID))

	p, err := s.repo.GetPaymentByTranID(ctx, in.TranID)
	if err != nil {
		return nil, err
	}
	if p.Status != sslcommerz.StatusApproved || p.BankTranID == "" {
		return nil, fmt.Errorf("%w: status %s", ErrNotRefundable, p.Status)
	}

	refundable := p.Amount.Sub(p.RefundedAmount)
	amount := in.Amount
	if amount.IsZero() {
		amount = refundable
	}
	if !amount.IsPositive() || amount.GreaterThan(refundable) {
		return nil, fmt.Errorf("%w: amount %s exceeds refundable %s", ErrNotRefundable,
			sslcommerz.FormatAmount(amount), sslcommerz.FormatAmount(refundable))
	}

	res, err := s.gateway.Refund(ctx, sslcommerz.RefundRequest{
		ReferenceID:   p.TranID,
		TransactionID: p.BankTranID,
		Amount:        amount,
		Notes:         in.Notes,
	})
	if err != nil {
		log.Error("Refund request failed", zap.Error(err))
		return nil, err
	}

	paymentStatus := p.Status
	if res.Status == sslcommerz.StatusRefunded {
		paymentStatus, err = s.repo.RecordRefund(ctx, p.TranID, amount)
		if err != nil {
			log.Error("Failed to store refund", zap.Error(err))
			return nil, err
		}
	}

	metrics.IncPayment(string(res.Status))
	log.Info("Refund processed",
		zap.String("status", string(res.Status)),
		zap.String("payment_status", string(paymentStatus)),
		zap.String("amount", sslcommerz.FormatAmount(amount)),
		zap.String("reference_id", utils.PtrString(res.ReferenceID)),
	)
	return res, nil
}

func (s *service) ValidateCredentials(ctx context.Context, creds sslcommerz.Credentials) error {
	log := logger.FromCtx(ctx).With(zap.String("store_id", creds.StoreID), zap.Bool("sandbox", creds.Sandbox))

	if err := s.gateway.ValidateCredentials(ctx, creds); err != nil {
		log.Warn("Store credentials rejected", zap.Error(err))
		return err
	}

	log.Info("Store credentials accepted")
	return nil
}

package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sslcommerz-gateway/internal/sslcommerz"

	"github.com/shopspring/decimal"
)

type Repository interface {
	SavePayment(ctx context.Context, p *Payment) (int64, error)
	GetPaymentByTranID(ctx context.Context, tranID string) (*Payment, error)
	GetClientContact(ctx context.Context, clientID string) (*ClientContact, error)

	// SettlePayment stores a notified status and, for approvals, records each
	// invoice allocation once. Both happen in one transaction.
	SettlePayment(ctx context.Context, tranID string, status sslcommerz.Status, bankTranID string, invoices []sslcommerz.InvoiceLine) error
	// RecordRefund adds amount to the refunded total and returns the resulting
	// status. It fails with ErrNotRefundable when the total would exceed the payment.
	RecordRefund(ctx context.Context, tranID string, amount decimal.Decimal) (sslcommerz.Status, error)

	// SavePaymentWebhook reports a duplicate only for events already closed;
	// an event whose earlier attempt failed transiently, or was abandoned, is
	// handed back for retry.
	SavePaymentWebhook(
		ctx context.Context,
		provider string,
		eventID string,
		eventType string,
		tranID string,
		payload json.RawMessage,
		signatureValid bool,
	) (webhookID int64, isDuplicate bool, err error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string, retryable bool) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePayment(ctx context.Context, p *Payment) (int64, error) {
	const q = `
	INSERT INTO payments (
		tran_id,
		client_id,
		amount,
		currency,
		status,
		invoices,
		session_key,
		gateway_url,
		provider
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		p.TranID, p.ClientID, p.Amount, p.Currency, string(p.Status),
		p.Invoices, p.SessionKey, p.GatewayURL, Provider,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment %s: %w", p.TranID, err)
	}

	p.ID = id
	return id, nil
}

func (r *repository) SettlePayment(
	ctx context.Context,
	tranID string,
	status sslcommerz.Status,
	bankTranID string,
	invoices []sslcommerz.InvoiceLine,
) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const updateQ = `
	UPDATE payments
	SET status = $1,
		bank_tran_id = COALESCE(NULLIF($2, ''), bank_tran_id),
		updated_at = now()
	WHERE tran_id = $3;
	`

	res, err := tx.ExecContext(ctx, updateQ, string(status), bankTranID, tranID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPaymentNotFound
	}

	if status == sslcommerz.StatusApproved {
		const invoiceQ = `
		INSERT INTO invoice_payments (tran_id, invoice_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (tran_id, invoice_id) DO NOTHING;
		`

		for _, inv := range invoices {
			if _, err := tx.ExecContext(ctx, invoiceQ, tranID, inv.ID, inv.Amount); err != nil {
				return fmt.Errorf("apply invoice %s: %w", inv.ID, err)
			}
		}
	}

	return tx.Commit()
}

func (r *repository) RecordRefund(ctx context.Context, tranID string, amount decimal.Decimal) (sslcommerz.Status, error) {
	const q = `
	UPDATE payments
	SET refunded_amount = refunded_amount + $1,
		status = CASE WHEN refunded_amount + $1 >= amount THEN 'refunded' ELSE status END,
		updated_at = now()
	WHERE tran_id = $2
		AND status = 'approved'
		AND refunded_amount + $1 <= amount
	RETURNING status;
	`

	var status string
	err := r.db.QueryRowContext(ctx, q, amount, tranID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: refund of %s on %s", ErrNotRefundable, sslcommerz.FormatAmount(amount), tranID)
	}
	if err != nil {
		return "", err
	}
	return sslcommerz.Status(status), nil
}

func (r *repository) GetPaymentByTranID(ctx context.Context, tranID string) (*Payment, error) {
	const q = `
	SELECT id, tran_id, client_id, amount, refunded_amount, currency, status, invoices,
		session_key, gateway_url, bank_tran_id, created_at, updated_at
	FROM payments
	WHERE tran_id = $1;
	`

	var (
		p          Payment
		status     string
		bankTranID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, tranID).Scan(
		&p.ID, &p.TranID, &p.ClientID, &p.Amount, &p.RefundedAmount, &p.Currency, &status, &p.Invoices,
		&p.SessionKey, &p.GatewayURL, &bankTranID, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Status = sslcommerz.Status(status)
	p.BankTranID = bankTranID.String
	return &p, nil
}

func (r *repository) GetClientContact(ctx context.Context, clientID string) (*ClientContact, error) {
	const clientQ = `
	SELECT id, first_name, last_name, company_name, email
	FROM clients
	WHERE id = $1;
	`

	var c ClientContact
	err := r.db.QueryRowContext(ctx, clientQ, clientID).Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.CompanyName, &c.Email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}

	const numbersQ = `
	SELECT number, type, location
	FROM client_contact_numbers
	WHERE client_id = $1
	ORDER BY id;
	`

	rows, err := r.db.QueryContext(ctx, numbersQ, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var n sslcommerz.ContactNumber
		if err := rows.Scan(&n.Number, &n.Type, &n.Location); err != nil {
			return nil, err
		}
		c.Numbers = append(c.Numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *repository) SavePaymentWebhook(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	tranID string,
	payload json.RawMessage,
	signatureValid bool,
) (int64, bool, error) {

	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_id,
		event_type,
		tran_id,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET
		payload = EXCLUDED.payload,
		attempts = payment_webhooks.attempts + 1,
		claimed_at = now(),
		process_error = NULL
	WHERE payment_webhooks.processed_at IS NULL
		AND (
			payment_webhooks.process_error IS NOT NULL
			OR payment_webhooks.claimed_at < now() - interval '5 minutes'
		)
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		q,
		provider,
		eventID,
		eventType,
		tranID,
		signatureValid,
		payload,
	).Scan(&id)

	if err != nil {
		// The conflict update is skipped for closed or in-flight events, so no row comes back.
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	const q = `
	UPDATE payment_webhooks
	SET processed_at = now()
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID)
	return err
}

// MarkWebhookFailed records why an event was not applied. A retryable failure
// leaves processed_at unset so the next delivery of the event is processed again.
func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string, retryable bool) error {
	const q = `
	UPDATE payment_webhooks
	SET process_error = $2,
		processed_at = CASE WHEN $3::boolean THEN NULL ELSE now() END
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason, retryable)
	return err
}

package sslcommerz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sslcommerz-gateway/internal/logger"
	"sslcommerz-gateway/internal/metrics"

	"go.uber.org/zap"
)

const (
	sandboxBaseURL = "https://sandbox.sslcommerz.com"
	liveBaseURL    = "https://securepay.sslcommerz.com"

	initiatePath   = "/gwprocess/v4/api.php"
	merchantTxPath = "/validator/api/merchantTransIDvalidationAPI.php"
)

// BaseURL returns the API host for the given environment.
func BaseURL(sandbox bool) string {
	if sandbox {
		return sandboxBaseURL
	}
	return liveBaseURL
}

type InitiateResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

type PaymentDetails struct {
	Status         string     `json:"status"`
	TranID         string     `json:"tran_id"`
	ValID          string     `json:"val_id"`
	BankTranID     string     `json:"bank_tran_id"`
	CurrencyType   string     `json:"currency_type"`
	CurrencyAmount flexString `json:"currency_amount"`
	Amount         flexString `json:"amount"`
	Currency       string     `json:"currency"`
}

type transactionQueryResponse struct {
	APIConnect      string           `json:"APIConnect"`
	NoOfTransFound  flexString       `json:"no_of_trans_found"`
	Element         []PaymentDetails `json:"element"`
	FailedReason    string           `json:"failedreason"`
	ErrorReasonText string           `json:"errorReason"`
}

type RefundParams struct {
	BankTranID    string
	RefundAmount  string
	RefundRemarks string
}

type RefundResponse struct {
	APIConnect  string `json:"APIConnect"`
	BankTranID  string `json:"bank_tran_id"`
	TransID     string `json:"trans_id"`
	RefundRefID string `json:"refund_ref_id"`
	Status      string `json:"status"`
	ErrorReason string `json:"errorReason"`
}

// flexString accepts both JSON strings and numbers; the API is not consistent.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	}
	*f = flexString(s)
	return nil
}

// Client talks to the SSLCommerz REST endpoints for one store.
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
}

func NewClient(creds Credentials, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		creds:      creds,
		baseURL:    BaseURL(creds.Sandbox),
		httpClient: httpClient,
	}
}

// InitiatePayment posts the initiation form and returns the decoded answer.
// A FAILED answer is not an error at this level.
func (c *Client) InitiatePayment(ctx context.Context, params url.Values) (*InitiateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+initiatePath, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var res InitiateResponse
	if err := c.do(ctx, "initiate", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetPayment looks a transaction up by the merchant transaction id.
func (c *Client) GetPayment(ctx context.Context, tranID string) (*PaymentDetails, error) {
	q := c.authQuery()
	q.Set("tran_id", tranID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+merchantTxPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var res transactionQueryResponse
	if err := c.do(ctx, "query", req, &res); err != nil {
		return nil, err
	}
	if len(res.Element) == 0 {
		reason := res.FailedReason
		if reason == "" {
			reason = res.ErrorReasonText
		}
		if reason == "" {
			reason = "transaction not found"
		}
		return nil, &GatewayError{Reason: reason}
	}
	return &res.Element[0], nil
}

// RefundPayment requests a refund of a settled transaction.
func (c *Client) RefundPayment(ctx context.Context, p RefundParams) (*RefundResponse, error) {
	q := c.authQuery()
	q.Set("bank_tran_id", p.BankTranID)
	q.Set("refund_amount", p.RefundAmount)
	q.Set("refund_remarks", p.RefundRemarks)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+merchantTxPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var res RefundResponse
	if err := c.do(ctx, "refund", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) authQuery() url.Values {
	q := url.Values{}
	q.Set("store_id", c.creds.StoreID)
	q.Set("store_passwd", c.creds.StorePassword)
	q.Set("format", "json")
	return q
}

func (c *Client) do(ctx context.Context, operation string, req *http.Request, out any) error {
	log := logger.FromCtx(ctx).With(zap.String("operation", operation))
	timer := metrics.StartTimer()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveGatewayCall(operation, "transport_error", timer.Duration())
		log.Error("SSLCommerz request failed", zap.Error(err))
		return fmt.Errorf("sslcommerz %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveGatewayCall(operation, "transport_error", timer.Duration())
		log.Error("Failed to read response body", zap.Error(err))
		return fmt.Errorf("failed to read sslcommerz response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveGatewayCall(operation, "http_error", timer.Duration())
		log.Error("SSLCommerz returned non-success status",
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("response", body),
		)
		return fmt.Errorf("sslcommerz %s error: http %d: %s", operation, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.ObserveGatewayCall(operation, "decode_error", timer.Duration())
		log.Error("Failed decoding SSLCommerz response", zap.Error(err))
		return fmt.Errorf("decode sslcommerz %s response: %w", operation, err)
	}

	metrics.ObserveGatewayCall(operation, "ok", timer.Duration())
	return nil
}

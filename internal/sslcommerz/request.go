package sslcommerz

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Fixed product descriptors required by the v4 initiation API. Invoices are
// never shipped.
const (
	shippingMethod  = "NO"
	productName     = "Invoice Payment"
	productCategory = "Billing"
	productProfile  = "non-physical-goods"
)

// FormatAmount renders an amount with exactly two decimals, rounding half away
// from zero.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

var phonePriority = []string{"home", "work", "mobile"}

// SelectPhone picks the contact phone: home, else work, else mobile. Only
// numbers of type "phone" qualify.
func SelectPhone(numbers []ContactNumber) string {
	for _, location := range phonePriority {
		for _, n := range numbers {
			if n.Type == "phone" && n.Location == location {
				return n.Number
			}
		}
	}
	return ""
}

// CustomerName joins the non-empty name parts with a single space.
func CustomerName(parts ...string) string {
	name := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimFunc(p, unicode.IsSpace); p != "" {
			name = append(name, p)
		}
	}
	return strings.Join(name, " ")
}

// CallbackURLs derives the success, fail and cancel URLs from one return URL.
// The markers are the only way to learn why a customer came back.
func CallbackURLs(returnURL, clientID string) (success, fail, cancel string, err error) {
	base, err := url.Parse(returnURL)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid return url: %w", err)
	}

	withMarker := func(marker string) string {
		u := *base
		q := u.Query()
		q.Set("client_id", clientID)
		if marker != "" {
			q.Set(marker, "true")
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	return withMarker(""), withMarker("fail"), withMarker("cancel"), nil
}

// BuildPaymentParams turns a charge request into the initiation form fields.
func BuildPaymentParams(creds Credentials, req ChargeRequest) (url.Values, error) {
	success, fail, cancel, err := CallbackURLs(req.ReturnURL, req.ClientID)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("store_id", creds.StoreID)
	params.Set("store_passwd", creds.StorePassword)
	params.Set("total_amount", FormatAmount(req.Amount))
	params.Set("currency", req.Currency)
	params.Set("tran_id", req.TransactionRef)
	params.Set("success_url", success)
	params.Set("fail_url", fail)
	params.Set("cancel_url", cancel)
	params.Set("emi_option", "0")
	params.Set("cus_name", req.CustomerName)
	params.Set("cus_email", req.CustomerEmail)
	params.Set("cus_phone", DigitsOnly(req.CustomerPhone))
	params.Set("value_a", EncodeInvoices(req.Invoices))
	params.Set("value_b", req.ClientID)
	params.Set("shipping_method", shippingMethod)
	params.Set("product_name", productName)
	params.Set("product_category", productCategory)
	params.Set("product_profile", productProfile)
	if req.NotifyURL != "" {
		params.Set("ipn_url", req.NotifyURL)
	}
	return params, nil
}

// redactParams returns a copy safe for logging.
func redactParams(params url.Values) url.Values {
	out := make(url.Values, len(params))
	for k, v := range params {
		if k == "store_passwd" {
			out[k] = []string{"***"}
			continue
		}
		out[k] = v
	}
	return out
}

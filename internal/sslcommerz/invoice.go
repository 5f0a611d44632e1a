package sslcommerz

import "strings"

const (
	invoiceSeparator = "|"
	amountSeparator  = "="
)

// EncodeInvoices packs invoice lines into the value_a pass-through field as
// id1=amount1|id2=amount2. Ids and amounts must not contain '|' or '='.
func EncodeInvoices(invoices []InvoiceLine) string {
	parts := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		parts = append(parts, inv.ID+amountSeparator+inv.Amount)
	}
	return strings.Join(parts, invoiceSeparator)
}

// DecodeInvoices reverses EncodeInvoices. Segments without '=' are skipped.
func DecodeInvoices(s string) []InvoiceLine {
	invoices := make([]InvoiceLine, 0)
	for _, pair := range strings.Split(s, invoiceSeparator) {
		id, amount, ok := strings.Cut(pair, amountSeparator)
		if !ok {
			continue
		}
		invoices = append(invoices, InvoiceLine{ID: id, Amount: amount})
	}
	return invoices
}

// Encodable reports whether the line survives EncodeInvoices and
// DecodeInvoices unchanged.
func (l InvoiceLine) Encodable() bool {
	if l.ID == "" || l.Amount == "" {
		return false
	}
	return !strings.ContainsAny(l.ID+l.Amount, invoiceSeparator+amountSeparator)
}

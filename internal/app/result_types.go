package app

import "invoice-app/internal/core"

// LoginChallenge is returned by StartLogin. Destination is masked for display.
// DevCode carries the plaintext code only when OTP delivery is disabled
// (local development); it is empty in production.
type LoginChallenge struct {
	UserID      int    `json:"user_id"`
	Channel     string `json:"channel"` // "email", "sms", or "none"
	Destination string `json:"destination,omitempty"`
	DevCode     string `json:"dev_code,omitempty"`
}

// CustomerListResult is returned by ListCustomers.
type CustomerListResult struct {
	Customers []core.Customer `json:"customers"`
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// InvoiceResult is returned by invoice lifecycle operations. Items and
// Payments are populated by GetInvoice and left nil by list-shaped callers.
type InvoiceResult struct {
	Invoice  *core.Invoice  `json:"invoice"`
	Payments []core.Payment `json:"payments,omitempty"`
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []core.Invoice `json:"invoices"`
}

// PaymentListResult is returned by ListPayments and ListInvoicePayments.
type PaymentListResult struct {
	Payments []core.Payment `json:"payments"`
}

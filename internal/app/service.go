package app

import (
	"context"

	"invoice-app/internal/core"
)

// ApplicationService is the single interface all transport adapters call.
// It decouples presentation from business logic. Implementations must contain
// no HTTP concerns, no fmt.Println, and no display logic of any kind.
// Every tenant-scoped method takes the authenticated owner's user ID
// explicitly; adapters resolve it from their session mechanism.
type ApplicationService interface {
	// StartLogin resolves or creates the account for the given identifier
	// (email, phone, or username), issues a one-time code, and returns the
	// challenge describing where the code was sent.
	StartLogin(ctx context.Context, identifier string) (*LoginChallenge, error)

	// CompleteLogin verifies the one-time code and returns the user on success.
	CompleteLogin(ctx context.Context, userID int, code string) (*core.User, error)

	// GetUser returns the profile of the given user.
	GetUser(ctx context.Context, userID int) (*core.User, error)

	// GetSettings returns business settings for the user, or defaults when
	// nothing has been saved yet.
	GetSettings(ctx context.Context, ownerID int) (*core.UserSettings, error)

	// SaveSettings upserts the user's business settings and marks the
	// account onboarded.
	SaveSettings(ctx context.Context, ownerID int, req SaveSettingsRequest) (*core.UserSettings, error)

	// SetLogoPath records the stored path of an uploaded business logo.
	SetLogoPath(ctx context.Context, ownerID int, path string) error

	// GetDashboard returns per-status invoice counts, the outstanding pending
	// balance, and the most recent invoices.
	GetDashboard(ctx context.Context, ownerID int) (*core.DashboardStats, error)

	// CreateCustomer creates a customer with a generated customer code.
	CreateCustomer(ctx context.Context, ownerID int, req CustomerRequest) (*core.Customer, error)

	// ListCustomers returns all of the owner's customers, newest first.
	ListCustomers(ctx context.Context, ownerID int) (*CustomerListResult, error)

	// GetCustomer returns a single customer owned by ownerID.
	GetCustomer(ctx context.Context, ownerID, customerID int) (*core.Customer, error)

	// UpdateCustomer overwrites the customer's editable fields.
	UpdateCustomer(ctx context.Context, ownerID, customerID int, req UpdateCustomerRequest) (*core.Customer, error)

	// DeleteCustomer removes a customer that has no invoices.
	DeleteCustomer(ctx context.Context, ownerID, customerID int) error

	// CreateProduct creates a product, generating a SKU when none is supplied.
	CreateProduct(ctx context.Context, ownerID int, req ProductRequest) (*core.Product, error)

	// ListProducts returns all of the owner's products, newest first.
	ListProducts(ctx context.Context, ownerID int) (*ProductListResult, error)

	// GetProduct returns a single product owned by ownerID.
	GetProduct(ctx context.Context, ownerID, productID int) (*core.Product, error)

	// UpdateProduct overwrites the product's editable fields. The SKU is immutable.
	UpdateProduct(ctx context.Context, ownerID, productID int, req UpdateProductRequest) (*core.Product, error)

	// DeleteProduct removes a product. Invoice lines keep their snapshot.
	DeleteProduct(ctx context.Context, ownerID, productID int) error

	// CreateInvoice creates a pending invoice with computed totals and a
	// generated invoice number.
	CreateInvoice(ctx context.Context, ownerID int, req CreateInvoiceRequest) (*InvoiceResult, error)

	// ListInvoices returns the owner's invoices, optionally filtered by status.
	ListInvoices(ctx context.Context, ownerID int, status string) (*InvoiceListResult, error)

	// GetInvoice returns an invoice with its line items and payments.
	GetInvoice(ctx context.Context, ownerID, invoiceID int) (*InvoiceResult, error)

	// DeleteInvoice removes an invoice along with its items and payments.
	DeleteInvoice(ctx context.Context, ownerID, invoiceID int) error

	// SetInvoiceStatus sets an explicit lifecycle status and returns the
	// updated invoice. Unknown status values leave the invoice untouched.
	SetInvoiceStatus(ctx context.Context, ownerID, invoiceID int, status string) (*InvoiceResult, error)

	// RecordPayment records a payment against an invoice and returns the
	// invoice with its recomputed balance and status.
	RecordPayment(ctx context.Context, ownerID, invoiceID int, req RecordPaymentRequest) (*InvoiceResult, error)

	// ListInvoicePayments returns all payments recorded against one invoice.
	ListInvoicePayments(ctx context.Context, ownerID, invoiceID int) (*PaymentListResult, error)

	// ListPayments returns all of the owner's payments, newest first.
	ListPayments(ctx context.Context, ownerID int) (*PaymentListResult, error)

	// DraftInvoice turns a natural language description into a structured
	// invoice draft for the client to review and submit.
	DraftInvoice(ctx context.Context, ownerID int, text string) (*core.InvoiceDraft, error)
}

package app

import "github.com/shopspring/decimal"

// CustomerRequest is the input for creating a customer.
type CustomerRequest struct {
	CustomerName string `json:"customer_name" validate:"required,max=200"`
	Address      string `json:"address" validate:"max=500"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"max=50"`
}

// UpdateCustomerRequest is the input for updating a customer.
type UpdateCustomerRequest struct {
	CustomerName string `json:"customer_name" validate:"required,max=200"`
	Address      string `json:"address" validate:"max=500"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"max=50"`
	IsActive     *bool  `json:"is_active"` // nil means leave active
}

// ProductRequest is the input for creating a product.
type ProductRequest struct {
	SKU         string          `json:"sku" validate:"max=40"` // empty means "generate one"
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=1000"`
	Unit        string          `json:"unit" validate:"max=20"`
	Price       decimal.Decimal `json:"price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// UpdateProductRequest is the input for updating a product.
type UpdateProductRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=1000"`
	Unit        string          `json:"unit" validate:"max=20"`
	Price       decimal.Decimal `json:"price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	IsActive    *bool           `json:"is_active"`
}

// InvoiceLineRequest is a single line within a CreateInvoiceRequest.
type InvoiceLineRequest struct {
	ProductID   *int            `json:"product_id"` // optional catalog reference
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// CreateInvoiceRequest is the input for creating an invoice.
type CreateInvoiceRequest struct {
	CustomerID     int                  `json:"customer_id" validate:"required,gt=0"`
	InvoiceDate    string               `json:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate        string               `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	TaxInclusive   bool                 `json:"tax_inclusive"`
	Notes          string               `json:"notes" validate:"max=2000"`
	Items          []InvoiceLineRequest `json:"items" validate:"required,min=1,dive"`
}

// RecordPaymentRequest is the input for recording a payment against an invoice.
type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method" validate:"required,max=50"`
	PaymentDate string          `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	ReferenceNo string          `json:"reference_no" validate:"max=100"`
}

// SaveSettingsRequest is the input for saving business settings.
type SaveSettingsRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=200"`
	Address     string `json:"address" validate:"max=500"`
	Phone       string `json:"phone" validate:"max=50"`
}

// StartLoginRequest is the input for requesting a one-time login code.
type StartLoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=200"`
}

// CompleteLoginRequest is the input for verifying a one-time login code.
type CompleteLoginRequest struct {
	UserID int    `json:"user_id" validate:"required,gt=0"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

// DraftInvoiceRequest is the input for AI-assisted invoice drafting.
type DraftInvoiceRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

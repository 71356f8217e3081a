package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusCompleted InvoiceStatus = "completed"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// ValidStatus reports whether s is one of the three known invoice states.
func ValidStatus(s InvoiceStatus) bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusCompleted, InvoiceStatusCancelled:
		return true
	}
	return false
}

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Onboarded bool      `json:"onboarded"`
	CreatedAt time.Time `json:"created_at"`
}

type UserSettings struct {
	UserID      int    `json:"user_id"`
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	LogoPath    string `json:"logo_path"`
}

type Customer struct {
	ID           int       `json:"id"`
	OwnerID      int       `json:"owner_id"`
	CustomerCode string    `json:"customer_code"`
	CustomerName string    `json:"customer_name"`
	Address      string    `json:"address"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID          int             `json:"id"`
	OwnerID     int             `json:"owner_id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LineItem is the ephemeral input to the totals engine. Once an invoice is
// saved each item is persisted as an InvoiceItem with its own breakdown.
type LineItem struct {
	ProductID   *int            `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"` // percent
}

type InvoiceItem struct {
	ID           int             `json:"id"`
	InvoiceID    int             `json:"invoice_id"`
	ProductID    *int            `json:"product_id,omitempty"`
	Description  string          `json:"description"`
	Qty          decimal.Decimal `json:"qty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
	LineTax      decimal.Decimal `json:"line_tax"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

type Invoice struct {
	ID              int             `json:"id"`
	OwnerID         int             `json:"owner_id"`
	InvoiceNo       string          `json:"invoice_no"`
	CustomerID      int             `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	InvoiceDate     string          `json:"invoice_date"`
	DueDate         *string         `json:"due_date,omitempty"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxInclusive    bool            `json:"tax_inclusive"`
	SubTotal        decimal.Decimal `json:"sub_total"`
	TaxTotal        decimal.Decimal `json:"tax_total"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	BalanceDue      decimal.Decimal `json:"balance_due"`
	Status          InvoiceStatus   `json:"status"`
	StatusChangedAt time.Time       `json:"status_changed_at"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []InvoiceItem   `json:"items,omitempty"`
}

type Payment struct {
	ID          int             `json:"id"`
	InvoiceID   int             `json:"invoice_id"`
	InvoiceNo   string          `json:"invoice_no,omitempty"`
	PaymentDate string          `json:"payment_date"`
	Method      string          `json:"method"`
	ReferenceNo string          `json:"reference_no"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InvoiceDraft is the AI-generated draft extracted from free-text input.
// It is advisory only: a submitted draft goes through the same validation
// as a hand-entered invoice.
type InvoiceDraft struct {
	CustomerName   string          `json:"customer_name" jsonschema_description:"The customer the invoice is addressed to, as mentioned in the text"`
	InvoiceDate    string          `json:"invoice_date" jsonschema_description:"Invoice date in YYYY-MM-DD format. Use today's date if unspecified."`
	DueDate        string          `json:"due_date" jsonschema_description:"Due date in YYYY-MM-DD format, or empty string if not mentioned"`
	DiscountAmount string          `json:"discount_amount" jsonschema_description:"Flat discount amount as a decimal string, '0' if none"`
	TaxInclusive   bool            `json:"tax_inclusive" jsonschema_description:"True if the stated prices already include tax"`
	Notes          string          `json:"notes" jsonschema_description:"Any remarks or terms mentioned for the invoice"`
	Lines          []DraftLineItem `json:"lines" jsonschema_description:"The billable line items extracted from the text"`
}

type DraftLineItem struct {
	Description string `json:"description" jsonschema_description:"What is being billed on this line"`
	Qty         string `json:"qty" jsonschema_description:"Quantity as a decimal string, e.g. '2' or '1.5'"`
	UnitPrice   string `json:"unit_price" jsonschema_description:"Price per unit as a decimal string"`
	TaxRate     string `json:"tax_rate" jsonschema_description:"Tax rate percent as a decimal string, '0' if none"`
}

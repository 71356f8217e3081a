package app

import (
	"context"
	"os"
	"strings"

	"invoice-app/internal/ai"
	"invoice-app/internal/core"
)

type appService struct {
	users     core.UserService
	customers core.CustomerService
	products  core.ProductService
	invoices  core.InvoiceService
	reporting core.ReportingService
	agent     ai.AgentService
}

// NewAppService constructs an appService that satisfies ApplicationService.
// agent may be nil when no AI provider is configured; DraftInvoice then
// returns a validation error instead of calling out.
func NewAppService(
	users core.UserService,
	customers core.CustomerService,
	products core.ProductService,
	invoices core.InvoiceService,
	reporting core.ReportingService,
	agent ai.AgentService,
) ApplicationService {
	return &appService{
		users:     users,
		customers: customers,
		products:  products,
		invoices:  invoices,
		reporting: reporting,
		agent:     agent,
	}
}

// ── Auth ──────────────────────────────────────────────────────────────────────

// StartLogin resolves the account, picks a delivery channel from the profile,
// and issues a one-time code. With OTP_DELIVERY unset or "dev" the code is
// echoed back in the challenge instead of being sent anywhere.
func (s *appService) StartLogin(ctx context.Context, identifier string) (*LoginChallenge, error) {
	user, err := s.users.FindOrCreateUser(ctx, identifier)
	if err != nil {
		return nil, err
	}

	channel, destination := "none", ""
	switch {
	case user.Email != nil && *user.Email != "":
		channel, destination = "email", *user.Email
	case user.Phone != nil && *user.Phone != "":
		channel, destination = "sms", *user.Phone
	}

	code, err := s.users.CreateOTP(ctx, user.ID, channel, destination)
	if err != nil {
		return nil, err
	}

	challenge := &LoginChallenge{UserID: user.ID, Channel: channel}
	switch channel {
	case "email":
		challenge.Destination = maskEmail(destination)
	case "sms":
		challenge.Destination = maskPhone(destination)
	}
	if os.Getenv("OTP_DELIVERY") != "live" {
		challenge.DevCode = code
	}
	return challenge, nil
}

func (s *appService) CompleteLogin(ctx context.Context, userID int, code string) (*core.User, error) {
	if err := s.users.ValidateOTP(ctx, userID, code); err != nil {
		return nil, err
	}
	return s.users.GetUser(ctx, userID)
}

func (s *appService) GetUser(ctx context.Context, userID int) (*core.User, error) {
	return s.users.GetUser(ctx, userID)
}

// maskEmail keeps the first character of the local part: "a***@example.com".
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// maskPhone keeps the last three digits: "*******199".
func maskPhone(phone string) string {
	if len(phone) <= 3 {
		return "***"
	}
	return strings.Repeat("*", len(phone)-3) + phone[len(phone)-3:]
}

// ── Settings ──────────────────────────────────────────────────────────────────

func (s *appService) GetSettings(ctx context.Context, ownerID int) (*core.UserSettings, error) {
	return s.users.GetSettings(ctx, ownerID)
}

func (s *appService) SaveSettings(ctx context.Context, ownerID int, req SaveSettingsRequest) (*core.UserSettings, error) {
	return s.users.SaveSettings(ctx, ownerID, req.DisplayName, req.Address, req.Phone)
}

func (s *appService) SetLogoPath(ctx context.Context, ownerID int, path string) error {
	return s.users.SetLogoPath(ctx, ownerID, path)
}

// ── Dashboard ─────────────────────────────────────────────────────────────────

func (s *appService) GetDashboard(ctx context.Context, ownerID int) (*core.DashboardStats, error) {
	return s.reporting.GetDashboardStats(ctx, ownerID)
}

// ── Customers ─────────────────────────────────────────────────────────────────

func (s *appService) CreateCustomer(ctx context.Context, ownerID int, req CustomerRequest) (*core.Customer, error) {
	return s.customers.CreateCustomer(ctx, ownerID, req.CustomerName, req.Address, req.Email, req.Phone)
}

func (s *appService) ListCustomers(ctx context.Context, ownerID int) (*CustomerListResult, error) {
	customers, err := s.customers.GetCustomers(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *appService) GetCustomer(ctx context.Context, ownerID, customerID int) (*core.Customer, error) {
	return s.customers.GetCustomer(ctx, ownerID, customerID)
}

func (s *appService) UpdateCustomer(ctx context.Context, ownerID, customerID int, req UpdateCustomerRequest) (*core.Customer, error) {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	return s.customers.UpdateCustomer(ctx, ownerID, customerID, req.CustomerName, req.Address, req.Email, req.Phone, isActive)
}

func (s *appService) DeleteCustomer(ctx context.Context, ownerID, customerID int) error {
	return s.customers.DeleteCustomer(ctx, ownerID, customerID)
}

// ── Products ──────────────────────────────────────────────────────────────────

func (s *appService) CreateProduct(ctx context.Context, ownerID int, req ProductRequest) (*core.Product, error) {
	return s.products.CreateProduct(ctx, ownerID, req.SKU, req.Name, req.Description, req.Unit, req.Price, req.TaxRate)
}

func (s *appService) ListProducts(ctx context.Context, ownerID int) (*ProductListResult, error) {
	products, err := s.products.GetProducts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) GetProduct(ctx context.Context, ownerID, productID int) (*core.Product, error) {
	return s.products.GetProduct(ctx, ownerID, productID)
}

func (s *appService) UpdateProduct(ctx context.Context, ownerID, productID int, req UpdateProductRequest) (*core.Product, error) {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	return s.products.UpdateProduct(ctx, ownerID, productID, req.Name, req.Description, req.Unit, req.Price, req.TaxRate, isActive)
}

func (s *appService) DeleteProduct(ctx context.Context, ownerID, productID int) error {
	return s.products.DeleteProduct(ctx, ownerID, productID)
}

// ── Invoices ──────────────────────────────────────────────────────────────────

func (s *appService) CreateInvoice(ctx context.Context, ownerID int, req CreateInvoiceRequest) (*InvoiceResult, error) {
	items := make([]core.LineItem, len(req.Items))
	for i, l := range req.Items {
		items[i] = core.LineItem{
			ProductID:   l.ProductID,
			Description: l.Description,
			Qty:         l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
		}
	}

	in := core.InvoiceInput{
		CustomerID:     req.CustomerID,
		InvoiceDate:    req.InvoiceDate,
		DiscountAmount: req.DiscountAmount,
		TaxInclusive:   req.TaxInclusive,
		Notes:          req.Notes,
		Items:          items,
	}
	if req.DueDate != "" {
		in.DueDate = &req.DueDate
	}

	invoice, err := s.invoices.CreateInvoice(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: invoice}, nil
}

func (s *appService) ListInvoices(ctx context.Context, ownerID int, status string) (*InvoiceListResult, error) {
	var statusPtr *core.InvoiceStatus
	if status != "" {
		st := core.InvoiceStatus(status)
		statusPtr = &st
	}

	invoices, err := s.invoices.GetInvoices(ctx, ownerID, statusPtr)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

func (s *appService) GetInvoice(ctx context.Context, ownerID, invoiceID int) (*InvoiceResult, error) {
	invoice, err := s.invoices.GetInvoice(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.invoices.GetInvoicePayments(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: invoice, Payments: payments}, nil
}

func (s *appService) DeleteInvoice(ctx context.Context, ownerID, invoiceID int) error {
	return s.invoices.DeleteInvoice(ctx, ownerID, invoiceID)
}

func (s *appService) SetInvoiceStatus(ctx context.Context, ownerID, invoiceID int, status string) (*InvoiceResult, error) {
	if err := s.invoices.SetStatus(ctx, ownerID, invoiceID, core.InvoiceStatus(status)); err != nil {
		return nil, err
	}
	invoice, err := s.invoices.GetInvoice(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: invoice}, nil
}

// ── Payments ──────────────────────────────────────────────────────────────────

func (s *appService) RecordPayment(ctx context.Context, ownerID, invoiceID int, req RecordPaymentRequest) (*InvoiceResult, error) {
	_, err := s.invoices.RecordPayment(ctx, ownerID, invoiceID, req.Amount, req.Method, req.PaymentDate, req.ReferenceNo)
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, ownerID, invoiceID)
}

func (s *appService) ListInvoicePayments(ctx context.Context, ownerID, invoiceID int) (*PaymentListResult, error) {
	payments, err := s.invoices.GetInvoicePayments(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	return &PaymentListResult{Payments: payments}, nil
}

func (s *appService) ListPayments(ctx context.Context, ownerID int) (*PaymentListResult, error) {
	payments, err := s.invoices.GetPayments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &PaymentListResult{Payments: payments}, nil
}

// ── AI ────────────────────────────────────────────────────────────────────────

func (s *appService) DraftInvoice(ctx context.Context, ownerID int, text string) (*core.InvoiceDraft, error) {
	if s.agent == nil {
		return nil, &core.ValidationError{Msg: "AI drafting is not configured"}
	}
	return s.agent.DraftInvoice(ctx, text)
}

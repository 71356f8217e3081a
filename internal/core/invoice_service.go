package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// balanceEpsilon tolerates rounding drift when deciding whether an invoice
// is fully paid.
var balanceEpsilon = decimal.RequireFromString("0.00001")

// overpayTolerance bounds how far a single payment may exceed the remaining
// balance before it is rejected.
var overpayTolerance = decimal.RequireFromString("0.01")

// InvoiceInput carries the caller-supplied fields for a new invoice.
type InvoiceInput struct {
	CustomerID     int
	InvoiceDate    string // YYYY-MM-DD; empty means today
	DueDate        *string
	DiscountAmount decimal.Decimal
	TaxInclusive   bool
	Notes          string
	Items          []LineItem
}

// InvoiceService owns the invoice lifecycle: creation with computed totals,
// explicit status changes, payment recording, and balance reconciliation.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, ownerID int, in InvoiceInput) (*Invoice, error)
	GetInvoice(ctx context.Context, ownerID, invoiceID int) (*Invoice, error)
	GetInvoices(ctx context.Context, ownerID int, status *InvoiceStatus) ([]Invoice, error)
	DeleteInvoice(ctx context.Context, ownerID, invoiceID int) error

	// SetStatus performs an explicit, unrestricted status change. An unknown
	// status value is a silent no-op, mirroring the whitelist behavior the
	// app has always had. status_changed_at moves only on an actual change.
	SetStatus(ctx context.Context, ownerID, invoiceID int, newStatus InvoiceStatus) error

	// RecordPayment appends a payment and recomputes the invoice balance in
	// one transaction. The invoice row is locked FOR UPDATE before the
	// balance check so two concurrent payments cannot both pass it.
	RecordPayment(ctx context.Context, ownerID, invoiceID int, amount decimal.Decimal, method, paymentDate, referenceNo string) (*Payment, error)

	// RecomputeBalance re-derives amount_paid and balance_due from the
	// payments table and flips status to completed when the balance reaches
	// zero. Idempotent: with no new payments a second call is a no-op.
	RecomputeBalance(ctx context.Context, ownerID, invoiceID int) error

	GetInvoicePayments(ctx context.Context, ownerID, invoiceID int) ([]Payment, error)
	GetPayments(ctx context.Context, ownerID int) ([]Payment, error)
}

type invoiceService struct {
	pool *pgxpool.Pool
}

func NewInvoiceService(pool *pgxpool.Pool) InvoiceService {
	return &invoiceService{pool: pool}
}

// ── Creation ─────────────────────────────────────────────────────────────────

func (s *invoiceService) CreateInvoice(ctx context.Context, ownerID int, in InvoiceInput) (*Invoice, error) {
	if in.CustomerID <= 0 {
		return nil, validationf("please select a customer")
	}
	if in.DiscountAmount.IsNegative() {
		return nil, validationf("discount cannot be negative")
	}
	if in.InvoiceDate == "" {
		in.InvoiceDate = time.Now().Format("2006-01-02")
	}

	// Keep only usable items: the totals engine would skip the rest anyway,
	// and persisting a line that contributes nothing helps nobody.
	var items []LineItem
	for _, it := range in.Items {
		it.Description = strings.TrimSpace(it.Description)
		if it.Description != "" && it.Qty.GreaterThan(decimal.Zero) && !it.UnitPrice.IsNegative() {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return nil, validationf("please add at least one line item")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Customer must exist and belong to this owner.
	ok, err := rowExists(ctx, tx,
		"SELECT 1 FROM customers WHERE id = $1 AND owner_id = $2",
		in.CustomerID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}
	if !ok {
		return nil, notFound("customer", in.CustomerID)
	}

	// Product references, when present, must belong to this owner too.
	for i, it := range items {
		if it.ProductID == nil {
			continue
		}
		ok, err := rowExists(ctx, tx,
			"SELECT 1 FROM products WHERE id = $1 AND owner_id = $2",
			*it.ProductID, ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify product on line %d: %w", i+1, err)
		}
		if !ok {
			return nil, validationf("line %d references an unknown product", i+1)
		}
	}

	totals := ComputeTotals(items, in.DiscountAmount, in.TaxInclusive)

	invoiceNo, err := GenerateInvoiceNo(ctx, func(ctx context.Context, candidate string) (bool, error) {
		return rowExists(ctx, tx,
			"SELECT 1 FROM invoices WHERE owner_id = $1 AND invoice_no = $2 LIMIT 1",
			ownerID, candidate)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	var invoiceID int
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices
			(owner_id, invoice_no, customer_id, invoice_date, due_date, discount_amount, tax_inclusive, notes,
			 status, status_changed_at, sub_total, tax_total, grand_total, amount_paid, balance_due)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', NOW(), $9, $10, $11, 0, $11)
		RETURNING id
	`, ownerID, invoiceNo, in.CustomerID, in.InvoiceDate, in.DueDate, in.DiscountAmount, in.TaxInclusive,
		in.Notes, totals.SubTotal, totals.TaxTotal, totals.GrandTotal).Scan(&invoiceID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{Msg: "invoice number collision, please retry"}
		}
		return nil, fmt.Errorf("failed to insert invoice: %w", err)
	}

	for i, it := range items {
		// Per-line breakdown from the same engine, so the sum of lines
		// reproduces the invoice totals (sans discount) by construction.
		line := ComputeLineBreakdown(it, in.TaxInclusive)
		_, err = tx.Exec(ctx, `
			INSERT INTO invoice_items
				(invoice_id, product_id, description, qty, unit_price, tax_rate, line_subtotal, line_tax, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, invoiceID, it.ProductID, it.Description, it.Qty, it.UnitPrice, it.TaxRate,
			line.SubTotal, line.TaxTotal, line.GrandTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to insert invoice line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice creation: %w", err)
	}

	return s.GetInvoice(ctx, ownerID, invoiceID)
}

// ── Queries ──────────────────────────────────────────────────────────────────

const invoiceColumns = `
	i.id, i.owner_id, i.invoice_no, i.customer_id, c.customer_name,
	i.invoice_date::text, i.due_date::text, i.discount_amount, i.tax_inclusive,
	i.sub_total, i.tax_total, i.grand_total, i.amount_paid, i.balance_due,
	i.status, i.status_changed_at, i.notes, i.created_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.OwnerID, &inv.InvoiceNo, &inv.CustomerID, &inv.CustomerName,
		&inv.InvoiceDate, &inv.DueDate, &inv.DiscountAmount, &inv.TaxInclusive,
		&inv.SubTotal, &inv.TaxTotal, &inv.GrandTotal, &inv.AmountPaid, &inv.BalanceDue,
		&inv.Status, &inv.StatusChangedAt, &inv.Notes, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, ownerID, invoiceID int) (*Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.id = $1 AND i.owner_id = $2
	`, invoiceID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("invoice", invoiceID)
		}
		return nil, fmt.Errorf("failed to fetch invoice %d: %w", invoiceID, err)
	}

	items, err := fetchInvoiceItems(ctx, s.pool, invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

func (s *invoiceService) GetInvoices(ctx context.Context, ownerID int, status *InvoiceStatus) ([]Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.owner_id = $1`
	args := []any{ownerID}
	if status != nil {
		query += " AND i.status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY i.created_at DESC, i.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func fetchInvoiceItems(ctx context.Context, q pgxRowQuerier, invoiceID int) ([]InvoiceItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, product_id, description, qty, unit_price, tax_rate,
		       line_subtotal, line_tax, line_total
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice items: %w", err)
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.Description,
			&it.Qty, &it.UnitPrice, &it.TaxRate,
			&it.LineSubtotal, &it.LineTax, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, ownerID, invoiceID int) error {
	// Items and payments cascade-delete with the invoice row.
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM invoices WHERE id = $1 AND owner_id = $2", invoiceID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice %d: %w", invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("invoice", invoiceID)
	}
	return nil
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *invoiceService) SetStatus(ctx context.Context, ownerID, invoiceID int, newStatus InvoiceStatus) error {
	if !ValidStatus(newStatus) {
		return nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE invoices
		SET status = $1,
		    status_changed_at = CASE WHEN status <> $1 THEN NOW() ELSE status_changed_at END
		WHERE id = $2 AND owner_id = $3
	`, newStatus, invoiceID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to set status on invoice %d: %w", invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("invoice", invoiceID)
	}
	return nil
}

func (s *invoiceService) RecordPayment(ctx context.Context, ownerID, invoiceID int, amount decimal.Decimal, method, paymentDate, referenceNo string) (*Payment, error) {
	method = strings.TrimSpace(method)
	if paymentDate == "" {
		paymentDate = time.Now().Format("2006-01-02")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the invoice row before the balance check. A concurrent
	// RecordPayment on the same invoice blocks here until this transaction
	// commits, then re-reads the shrunk balance and fails validation.
	var status InvoiceStatus
	var balanceDue decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT status, balance_due FROM invoices WHERE id = $1 AND owner_id = $2 FOR UPDATE",
		invoiceID, ownerID,
	).Scan(&status, &balanceDue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("invoice", invoiceID)
		}
		return nil, fmt.Errorf("failed to fetch invoice %d: %w", invoiceID, err)
	}

	if status == InvoiceStatusCancelled {
		return nil, validationf("cannot add a payment to a cancelled invoice")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, validationf("enter a valid amount greater than 0")
	}
	if balanceDue.IsNegative() {
		balanceDue = decimal.Zero
	}
	if amount.Sub(balanceDue).GreaterThanOrEqual(overpayTolerance) {
		return nil, validationf("amount exceeds the remaining balance")
	}
	if method == "" {
		return nil, validationf("please specify a payment method (Cash / Bank / Online)")
	}

	var p Payment
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, payment_date, method, reference_no, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, invoice_id, payment_date::text, method, reference_no, amount, created_at
	`, invoiceID, paymentDate, method, referenceNo, amount).Scan(
		&p.ID, &p.InvoiceID, &p.PaymentDate, &p.Method, &p.ReferenceNo, &p.Amount, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	if err := recomputeBalanceTx(ctx, tx, invoiceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return &p, nil
}

func (s *invoiceService) RecomputeBalance(ctx context.Context, ownerID, invoiceID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var one int
	err = tx.QueryRow(ctx,
		"SELECT 1 FROM invoices WHERE id = $1 AND owner_id = $2 FOR UPDATE",
		invoiceID, ownerID,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("invoice", invoiceID)
		}
		return fmt.Errorf("failed to fetch invoice %d: %w", invoiceID, err)
	}

	if err := recomputeBalanceTx(ctx, tx, invoiceID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// recomputeBalanceTx re-derives amount_paid/balance_due from the payments
// table and flips status to completed once the balance reaches zero.
// Paying a pending invoice down without clearing it keeps it pending: there
// is no part-paid state. Runs inside the caller's transaction; the caller
// must already hold the invoice row lock.
func recomputeBalanceTx(ctx context.Context, tx pgx.Tx, invoiceID int) error {
	var paid decimal.Decimal
	err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1",
		invoiceID,
	).Scan(&paid)
	if err != nil {
		return fmt.Errorf("failed to sum payments for invoice %d: %w", invoiceID, err)
	}

	var grand decimal.Decimal
	var status InvoiceStatus
	err = tx.QueryRow(ctx,
		"SELECT grand_total, status FROM invoices WHERE id = $1",
		invoiceID,
	).Scan(&grand, &status)
	if err != nil {
		return fmt.Errorf("failed to read invoice %d for recompute: %w", invoiceID, err)
	}

	balance := grand.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	newStatus := status
	if balance.LessThanOrEqual(balanceEpsilon) {
		newStatus = InvoiceStatusCompleted
	}

	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET amount_paid = $1, balance_due = $2, status = $3,
		    status_changed_at = CASE WHEN status <> $3 THEN NOW() ELSE status_changed_at END
		WHERE id = $4
	`, paid.Round(2), balance.Round(2), newStatus, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to update invoice %d balance: %w", invoiceID, err)
	}
	return nil
}

// ── Payment queries ──────────────────────────────────────────────────────────

func (s *invoiceService) GetInvoicePayments(ctx context.Context, ownerID, invoiceID int) ([]Payment, error) {
	if _, err := s.GetInvoice(ctx, ownerID, invoiceID); err != nil {
		return nil, err
	}
	return fetchPayments(ctx, s.pool, `
		SELECT p.id, p.invoice_id, i.invoice_no, p.payment_date::text, p.method, p.reference_no, p.amount, p.created_at
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE p.invoice_id = $1
		ORDER BY p.payment_date, p.id
	`, invoiceID)
}

func (s *invoiceService) GetPayments(ctx context.Context, ownerID int) ([]Payment, error) {
	return fetchPayments(ctx, s.pool, `
		SELECT p.id, p.invoice_id, i.invoice_no, p.payment_date::text, p.method, p.reference_no, p.amount, p.created_at
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.owner_id = $1
		ORDER BY p.created_at DESC, p.id DESC
	`, ownerID)
}

func fetchPayments(ctx context.Context, q pgxRowQuerier, query string, args ...any) ([]Payment, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.InvoiceNo, &p.PaymentDate,
			&p.Method, &p.ReferenceNo, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

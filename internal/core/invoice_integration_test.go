package core_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"invoice-app/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE payments, invoice_items, invoices, products, customers, otp_codes, user_settings, users RESTART IDENTITY CASCADE;

		INSERT INTO users (id, username, email, onboarded) VALUES
		(1, 'alice', 'alice@example.com', true),
		(2, 'bob',   'bob@example.com',   true);
		SELECT setval('users_id_seq', 10);

		INSERT INTO user_settings (user_id, display_name) VALUES (1, 'Alice Ltd'), (2, 'Bob Co');

		INSERT INTO customers (id, owner_id, customer_code, customer_name, email) VALUES
		(1, 1, 'CUST-A00001', 'Acme Corp',       'billing@acme.com'),
		(2, 1, 'CUST-A00002', 'Beta Industries', 'billing@beta.in'),
		(3, 2, 'CUST-B00001', 'Gamma LLC',       'ap@gamma.io');
		SELECT setval('customers_id_seq', 10);

		INSERT INTO products (id, owner_id, sku, name, unit, price, tax_rate) VALUES
		(1, 1, 'SKU-000001', 'Widget',     'pcs',  100.00, 15.00),
		(2, 1, 'SKU-000002', 'Consulting', 'hour', 250.00, 0.00),
		(3, 2, 'SKU-000003', 'Gadget',     'pcs',   42.00, 5.00);
		SELECT setval('products_id_seq', 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

// standardInvoice creates the 2 × 100 @ 15% exclusive invoice (grand 230.00)
// used across the lifecycle tests.
func standardInvoice(t *testing.T, svc core.InvoiceService, ownerID int) *core.Invoice {
	t.Helper()
	inv, err := svc.CreateInvoice(context.Background(), ownerID, core.InvoiceInput{
		CustomerID:  1,
		InvoiceDate: "2026-03-01",
		Items: []core.LineItem{
			{Description: "Widget", Qty: d("2"), UnitPrice: d("100"), TaxRate: d("15")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	return inv
}

func TestInvoiceService_CreateComputesTotals(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)

	if inv.Status != core.InvoiceStatusPending {
		t.Errorf("status = %s, want pending", inv.Status)
	}
	if !inv.SubTotal.Equal(d("200.00")) || !inv.TaxTotal.Equal(d("30.00")) || !inv.GrandTotal.Equal(d("230.00")) {
		t.Errorf("totals = %s/%s/%s, want 200.00/30.00/230.00", inv.SubTotal, inv.TaxTotal, inv.GrandTotal)
	}
	if !inv.AmountPaid.IsZero() {
		t.Errorf("amount_paid = %s, want 0", inv.AmountPaid)
	}
	if !inv.BalanceDue.Equal(inv.GrandTotal) {
		t.Errorf("balance_due = %s, want %s", inv.BalanceDue, inv.GrandTotal)
	}
	if !invoiceNoRe.MatchString(inv.InvoiceNo) {
		t.Errorf("invoice_no %q does not match INV-YYYYMMDD-XXXXX", inv.InvoiceNo)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(inv.Items))
	}
	line := inv.Items[0]
	if !line.LineSubtotal.Equal(d("200.00")) || !line.LineTax.Equal(d("30.00")) || !line.LineTotal.Equal(d("230.00")) {
		t.Errorf("line breakdown = %s/%s/%s, want 200.00/30.00/230.00", line.LineSubtotal, line.LineTax, line.LineTotal)
	}

	// Re-fetch to confirm the persisted row round-trips at the cent level.
	fetched, err := svc.GetInvoice(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if !fetched.GrandTotal.Equal(d("230.00")) {
		t.Errorf("persisted grand_total = %s, want 230.00", fetched.GrandTotal)
	}
}

func TestInvoiceService_CreateValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	var vErr *core.ValidationError
	var nfErr *core.NotFoundError

	// No line items.
	_, err := svc.CreateInvoice(ctx, 1, core.InvoiceInput{CustomerID: 1})
	if !errors.As(err, &vErr) {
		t.Errorf("no items: expected ValidationError, got %v", err)
	}

	// Items that all filter out (zero qty, negative price, blank description).
	_, err = svc.CreateInvoice(ctx, 1, core.InvoiceInput{
		CustomerID: 1,
		Items: []core.LineItem{
			{Description: "zero qty", Qty: d("0"), UnitPrice: d("10")},
			{Description: "neg price", Qty: d("1"), UnitPrice: d("-10")},
			{Description: "   ", Qty: d("1"), UnitPrice: d("10")},
		},
	})
	if !errors.As(err, &vErr) {
		t.Errorf("all-invalid items: expected ValidationError, got %v", err)
	}

	// Customer belonging to another owner is indistinguishable from absent.
	_, err = svc.CreateInvoice(ctx, 1, core.InvoiceInput{
		CustomerID: 3,
		Items:      []core.LineItem{{Description: "x", Qty: d("1"), UnitPrice: d("10")}},
	})
	if !errors.As(err, &nfErr) {
		t.Errorf("cross-owner customer: expected NotFoundError, got %v", err)
	}
}

func TestInvoiceService_FullPaymentCompletes(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)

	if _, err := svc.RecordPayment(ctx, 1, inv.ID, d("230.00"), "Bank", "2026-03-05", "TXN-1"); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	paid, err := svc.GetInvoice(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if !paid.BalanceDue.IsZero() {
		t.Errorf("balance_due = %s, want 0.00", paid.BalanceDue)
	}
	if !paid.AmountPaid.Equal(d("230.00")) {
		t.Errorf("amount_paid = %s, want 230.00", paid.AmountPaid)
	}
	if paid.Status != core.InvoiceStatusCompleted {
		t.Errorf("status = %s, want completed", paid.Status)
	}
	if !paid.StatusChangedAt.After(inv.StatusChangedAt) {
		t.Errorf("status_changed_at did not advance on completion")
	}
}

func TestInvoiceService_PaidInvoiceRejectsFurtherPayments(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)
	if _, err := svc.RecordPayment(ctx, 1, inv.ID, d("230.00"), "Bank", "2026-03-05", "TXN-1"); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	// The over-payment guard holds at zero balance too: a completed invoice
	// accepts no further payments, down to the cent tolerance.
	var vErr *core.ValidationError
	for _, amount := range []string{"0.01", "50.00", "230.00"} {
		_, err := svc.RecordPayment(ctx, 1, inv.ID, d(amount), "Cash", "2026-03-06", "")
		if !errors.As(err, &vErr) {
			t.Errorf("payment of %s on paid invoice: expected ValidationError, got %v", amount, err)
		}
	}

	after, err := svc.GetInvoice(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if !after.AmountPaid.Equal(d("230.00")) {
		t.Errorf("amount_paid = %s, want 230.00 (rejected payments must not land)", after.AmountPaid)
	}
	if !after.BalanceDue.IsZero() {
		t.Errorf("balance_due = %s, want 0.00", after.BalanceDue)
	}
}

func TestInvoiceService_ConcurrentFullPaymentsOnlyOneLands(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)

	// Two racing full payments: the row lock serializes them, so the second
	// re-reads a zero balance and fails validation.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			_, err := svc.RecordPayment(ctx, 1, inv.ID, d("230.00"), "Bank", "2026-03-05", ref)
			errs <- err
		}("TXN-" + string(rune('A'+i)))
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	var vErr *core.ValidationError
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &vErr):
			rejected++
		default:
			t.Fatalf("unexpected error from concurrent RecordPayment: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Errorf("succeeded=%d rejected=%d, want exactly one of each", succeeded, rejected)
	}

	after, err := svc.GetInvoice(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if after.AmountPaid.GreaterThan(after.GrandTotal) {
		t.Errorf("amount_paid %s exceeds grand_total %s", after.AmountPaid, after.GrandTotal)
	}
	if !after.AmountPaid.Equal(d("230.00")) {
		t.Errorf("amount_paid = %s, want 230.00", after.AmountPaid)
	}
	if after.Status != core.InvoiceStatusCompleted {
		t.Errorf("status = %s, want completed", after.Status)
	}

	payments, err := svc.GetInvoicePayments(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoicePayments failed: %v", err)
	}
	if len(payments) != 1 {
		t.Errorf("got %d payments, want 1", len(payments))
	}
}

func TestInvoiceService_PartialPaymentStaysPending(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)

	if _, err := svc.RecordPayment(ctx, 1, inv.ID, d("100.00"), "Cash", "2026-03-05", ""); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	mid, err := svc.GetInvoice(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if mid.Status != core.InvoiceStatusPending {
		t.Errorf("status = %s, want pending (no part-paid state exists)", mid.Status)
	}
	if !mid.BalanceDue.Equal(d("130.00")) {
		t.Errorf("balance_due = %s, want 130.00", mid.BalanceDue)
	}
	if !mid.StatusChangedAt.Equal(inv.StatusChangedAt) {
		t.Errorf("status_changed_at moved without a status change")
	}

	// Clearing the remainder completes the invoice.
	if _, err := svc.RecordPayment(ctx, 1, inv.ID, d("130.00"), "Cash", "2026-03-06", ""); err != nil {
		t.Fatalf("second RecordPayment failed: %v", err)
	}
	done, err := svc.GetInvoice(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if done.Status != core.InvoiceStatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
}

func TestInvoiceService_PaymentValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)
	var vErr *core.ValidationError

	cases := []struct {
		name   string
		amount decimal.Decimal
		method string
	}{
		{"zero amount", d("0"), "Cash"},
		{"negative amount", d("-5"), "Cash"},
		{"exceeds balance beyond tolerance", d("230.01"), "Cash"},
		{"empty method", d("50"), "  "},
	}
	for _, tc := range cases {
		if _, err := svc.RecordPayment(ctx, 1, inv.ID, tc.amount, tc.method, "2026-03-05", ""); !errors.As(err, &vErr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}

	// Nothing was recorded and the invoice is untouched.
	after, err := svc.GetInvoice(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if !after.AmountPaid.IsZero() || after.Status != core.InvoiceStatusPending {
		t.Errorf("rejected payments must leave the invoice unchanged, got paid=%s status=%s", after.AmountPaid, after.Status)
	}
	payments, err := svc.GetInvoicePayments(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoicePayments failed: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("expected no payment rows, got %d", len(payments))
	}
}

func TestInvoiceService_CancelledInvoiceRejectsPayments(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)
	if err := svc.SetStatus(ctx, 1, inv.ID, core.InvoiceStatusCancelled); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	var vErr *core.ValidationError
	for _, amount := range []string{"230.00", "1.00", "0.01"} {
		if _, err := svc.RecordPayment(ctx, 1, inv.ID, d(amount), "Cash", "2026-03-05", ""); !errors.As(err, &vErr) {
			t.Errorf("amount %s on cancelled invoice: expected ValidationError, got %v", amount, err)
		}
	}
}

func TestInvoiceService_RecomputeBalanceIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)
	if _, err := svc.RecordPayment(ctx, 1, inv.ID, d("100.00"), "Cash", "2026-03-05", ""); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	first, err := svc.GetInvoice(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}

	if err := svc.RecomputeBalance(ctx, 1, inv.ID); err != nil {
		t.Fatalf("RecomputeBalance failed: %v", err)
	}
	second, err := svc.GetInvoice(ctx, 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}

	if !first.AmountPaid.Equal(second.AmountPaid) ||
		!first.BalanceDue.Equal(second.BalanceDue) ||
		first.Status != second.Status ||
		!first.StatusChangedAt.Equal(second.StatusChangedAt) {
		t.Errorf("recompute with no new payments changed the invoice: %+v vs %+v", first, second)
	}
}

func TestInvoiceService_SetStatus(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)

	// Unknown status is a silent no-op.
	if err := svc.SetStatus(ctx, 1, inv.ID, core.InvoiceStatus("archived")); err != nil {
		t.Errorf("unknown status should be a no-op, got %v", err)
	}
	same, _ := svc.GetInvoice(ctx, 1, inv.ID)
	if same.Status != core.InvoiceStatusPending {
		t.Errorf("status = %s after unknown-status call, want pending", same.Status)
	}

	// Same-status write keeps status_changed_at.
	if err := svc.SetStatus(ctx, 1, inv.ID, core.InvoiceStatusPending); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	unchanged, _ := svc.GetInvoice(ctx, 1, inv.ID)
	if !unchanged.StatusChangedAt.Equal(inv.StatusChangedAt) {
		t.Errorf("status_changed_at moved on a same-status write")
	}

	// Arbitrary explicit transitions are permitted, including completed → pending.
	for _, target := range []core.InvoiceStatus{core.InvoiceStatusCompleted, core.InvoiceStatusPending, core.InvoiceStatusCancelled} {
		if err := svc.SetStatus(ctx, 1, inv.ID, target); err != nil {
			t.Fatalf("SetStatus(%s) failed: %v", target, err)
		}
		got, _ := svc.GetInvoice(ctx, 1, inv.ID)
		if got.Status != target {
			t.Errorf("status = %s, want %s", got.Status, target)
		}
	}

	var nfErr *core.NotFoundError
	if err := svc.SetStatus(ctx, 2, inv.ID, core.InvoiceStatusPending); !errors.As(err, &nfErr) {
		t.Errorf("cross-owner SetStatus: expected NotFoundError, got %v", err)
	}
}

func TestInvoiceService_OwnerScope(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)

	var nfErr *core.NotFoundError
	if _, err := svc.GetInvoice(ctx, 2, inv.ID); !errors.As(err, &nfErr) {
		t.Errorf("expected NotFoundError for another owner's invoice, got %v", err)
	}
	if _, err := svc.RecordPayment(ctx, 2, inv.ID, d("10"), "Cash", "2026-03-05", ""); !errors.As(err, &nfErr) {
		t.Errorf("expected NotFoundError recording payment on another owner's invoice, got %v", err)
	}
	if err := svc.DeleteInvoice(ctx, 2, inv.ID); !errors.As(err, &nfErr) {
		t.Errorf("expected NotFoundError deleting another owner's invoice, got %v", err)
	}

	// Listing is scoped: bob sees nothing.
	list, err := svc.GetInvoices(ctx, 2, nil)
	if err != nil {
		t.Fatalf("GetInvoices failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("owner 2 sees %d invoices, want 0", len(list))
	}
}

func TestInvoiceService_DeleteCascades(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv := standardInvoice(t, svc, 1)
	if _, err := svc.RecordPayment(ctx, 1, inv.ID, d("50.00"), "Cash", "2026-03-05", ""); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	if err := svc.DeleteInvoice(ctx, 1, inv.ID); err != nil {
		t.Fatalf("DeleteInvoice failed: %v", err)
	}

	var itemCount, paymentCount int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoice_items WHERE invoice_id = $1", inv.ID).Scan(&itemCount); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM payments WHERE invoice_id = $1", inv.ID).Scan(&paymentCount); err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if itemCount != 0 || paymentCount != 0 {
		t.Errorf("cascade delete left %d items and %d payments", itemCount, paymentCount)
	}
}

func TestInvoiceService_StatusFilter(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewInvoiceService(pool)
	ctx := context.Background()

	a := standardInvoice(t, svc, 1)
	standardInvoice(t, svc, 1)
	if err := svc.SetStatus(ctx, 1, a.ID, core.InvoiceStatusCancelled); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	cancelled := core.InvoiceStatusCancelled
	list, err := svc.GetInvoices(ctx, 1, &cancelled)
	if err != nil {
		t.Fatalf("GetInvoices failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Errorf("status filter returned %d invoices, want exactly the cancelled one", len(list))
	}
}

package core_test

import (
	"context"
	"errors"
	"testing"

	"invoice-app/internal/core"
)

func TestUserService_FindOrCreateUser(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewUserService(pool)
	ctx := context.Background()

	// Existing user by email.
	u, err := svc.FindOrCreateUser(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindOrCreateUser failed: %v", err)
	}
	if u.ID != 1 {
		t.Errorf("expected existing user 1, got %d", u.ID)
	}

	// New email creates a user with a username derived from the local part.
	u2, err := svc.FindOrCreateUser(ctx, "Carol.Smith@Example.com")
	if err != nil {
		t.Fatalf("FindOrCreateUser failed: %v", err)
	}
	if u2.Username != "carol.smith" {
		t.Errorf("username = %q, want carol.smith", u2.Username)
	}
	if u2.Onboarded {
		t.Errorf("new user should not be onboarded")
	}

	// Same identifier resolves to the same user on the next login.
	again, err := svc.FindOrCreateUser(ctx, "carol.smith@example.com")
	if err != nil {
		t.Fatalf("FindOrCreateUser failed: %v", err)
	}
	if again.ID != u2.ID {
		t.Errorf("repeat login created a new user: %d vs %d", again.ID, u2.ID)
	}

	// Phone identifier.
	u3, err := svc.FindOrCreateUser(ctx, "+49 (30) 555-0199")
	if err != nil {
		t.Fatalf("FindOrCreateUser failed: %v", err)
	}
	if u3.Phone == nil || *u3.Phone != "+49305550199" {
		t.Errorf("phone not normalized: %v", u3.Phone)
	}

	var vErr *core.ValidationError
	if _, err := svc.FindOrCreateUser(ctx, "   "); !errors.As(err, &vErr) {
		t.Errorf("blank identifier: expected ValidationError, got %v", err)
	}
}

func TestUserService_OTPRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewUserService(pool)
	ctx := context.Background()

	code, err := svc.CreateOTP(ctx, 1, "email", "alice@example.com")
	if err != nil {
		t.Fatalf("CreateOTP failed: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("code %q is not 6 digits", code)
	}

	var vErr *core.ValidationError
	if err := svc.ValidateOTP(ctx, 1, "000000"); !errors.As(err, &vErr) {
		t.Errorf("wrong code: expected ValidationError, got %v", err)
	}
	if err := svc.ValidateOTP(ctx, 2, code); !errors.As(err, &vErr) {
		t.Errorf("another user's code: expected ValidationError, got %v", err)
	}

	if err := svc.ValidateOTP(ctx, 1, code); err != nil {
		t.Fatalf("ValidateOTP failed: %v", err)
	}

	// Codes are single use.
	if err := svc.ValidateOTP(ctx, 1, code); !errors.As(err, &vErr) {
		t.Errorf("reused code: expected ValidationError, got %v", err)
	}
}

func TestUserService_SettingsOnboarding(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := core.NewUserService(pool)
	ctx := context.Background()

	u, err := svc.FindOrCreateUser(ctx, "newbie@example.com")
	if err != nil {
		t.Fatalf("FindOrCreateUser failed: %v", err)
	}
	if u.Onboarded {
		t.Fatalf("fresh user must start un-onboarded")
	}

	st, err := svc.SaveSettings(ctx, u.ID, "Newbie Traders", "12 Harbour Rd", "+1 555 0100")
	if err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	if st.DisplayName != "Newbie Traders" {
		t.Errorf("display_name = %q", st.DisplayName)
	}

	after, err := svc.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !after.Onboarded {
		t.Errorf("first settings save should mark the user onboarded")
	}

	var vErr *core.ValidationError
	if _, err := svc.SaveSettings(ctx, u.ID, "  ", "", ""); !errors.As(err, &vErr) {
		t.Errorf("blank display name: expected ValidationError, got %v", err)
	}

	if err := svc.SetLogoPath(ctx, u.ID, "uploads/logo_1_abc123.png"); err != nil {
		t.Fatalf("SetLogoPath failed: %v", err)
	}
	st2, err := svc.GetSettings(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if st2.LogoPath != "uploads/logo_1_abc123.png" {
		t.Errorf("logo_path = %q", st2.LogoPath)
	}
}

func TestReportingService_DashboardStats(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	invoices := core.NewInvoiceService(pool)
	reporting := core.NewReportingService(pool)
	ctx := context.Background()

	standardInvoice(t, invoices, 1) // stays pending, 230.00
	b := standardInvoice(t, invoices, 1)
	c := standardInvoice(t, invoices, 1)
	if _, err := invoices.RecordPayment(ctx, 1, b.ID, d("230.00"), "Bank", "2026-03-05", ""); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if err := invoices.SetStatus(ctx, 1, c.ID, core.InvoiceStatusCancelled); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	stats, err := reporting.GetDashboardStats(ctx, 1)
	if err != nil {
		t.Fatalf("GetDashboardStats failed: %v", err)
	}
	if stats.PendingCount != 1 || stats.CompletedCount != 1 || stats.CancelledCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", stats.PendingCount, stats.CompletedCount, stats.CancelledCount)
	}
	if !stats.PendingBalance.Equal(d("230.00")) {
		t.Errorf("pending balance = %s, want 230.00", stats.PendingBalance)
	}
	if len(stats.Recent) != 3 {
		t.Errorf("recent = %d invoices, want 3", len(stats.Recent))
	}

	// Other owners see empty stats.
	empty, err := reporting.GetDashboardStats(ctx, 2)
	if err != nil {
		t.Fatalf("GetDashboardStats failed: %v", err)
	}
	if empty.PendingCount != 0 || len(empty.Recent) != 0 {
		t.Errorf("owner 2 stats not empty: %+v", empty)
	}
}

// seed-demo populates the database with a demo account, a small catalog,
// and one partially paid invoice. Safe to run repeatedly: it exits if the
// demo account already exists.
//
// Usage: go run ./cmd/seed-demo
package main

import (
	"context"
	"errors"
	"os"

	"invoice-app/internal/core"
	"invoice-app/internal/db"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const demoEmail = "demo@example.com"

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer pool.Close()

	var existing int
	err = pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", demoEmail).Scan(&existing)
	if err == nil {
		log.Info().Int("user_id", existing).Msg("demo account already exists, nothing to do")
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		log.Fatal().Err(err).Msg("check demo account")
	}

	users := core.NewUserService(pool)
	customers := core.NewCustomerService(pool)
	products := core.NewProductService(pool)
	invoices := core.NewInvoiceService(pool)

	user, err := users.FindOrCreateUser(ctx, demoEmail)
	if err != nil {
		log.Fatal().Err(err).Msg("create demo user")
	}
	if _, err := users.SaveSettings(ctx, user.ID, "Demo Trading Co.", "12 Harbor Road", "+1 555 0100"); err != nil {
		log.Fatal().Err(err).Msg("save demo settings")
	}

	acme, err := customers.CreateCustomer(ctx, user.ID, "Acme Corp", "1 Main St", "billing@acme.test", "+1 555 0101")
	if err != nil {
		log.Fatal().Err(err).Msg("create customer")
	}
	if _, err := customers.CreateCustomer(ctx, user.ID, "Globex Ltd", "2 Side Ave", "ap@globex.test", ""); err != nil {
		log.Fatal().Err(err).Msg("create customer")
	}

	seedProducts := []struct {
		name  string
		price string
		tax   string
	}{
		{"Consulting (hour)", "120.00", "15"},
		{"Support plan (month)", "49.00", "15"},
		{"Onsite visit", "300.00", "0"},
	}
	for _, p := range seedProducts {
		if _, err := products.CreateProduct(ctx, user.ID, "", p.name, "", "pcs",
			decimal.RequireFromString(p.price), decimal.RequireFromString(p.tax)); err != nil {
			log.Fatal().Err(err).Str("product", p.name).Msg("create product")
		}
	}

	invoice, err := invoices.CreateInvoice(ctx, user.ID, core.InvoiceInput{
		CustomerID: acme.ID,
		Items: []core.LineItem{
			{Description: "Consulting (hour)", Qty: decimal.NewFromInt(8), UnitPrice: decimal.RequireFromString("120.00"), TaxRate: decimal.NewFromInt(15)},
			{Description: "Onsite visit", Qty: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("300.00")},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create invoice")
	}

	if _, err := invoices.RecordPayment(ctx, user.ID, invoice.ID,
		decimal.RequireFromString("500.00"), "bank_transfer", "", "DEMO-1"); err != nil {
		log.Fatal().Err(err).Msg("record payment")
	}

	log.Info().
		Int("user_id", user.ID).
		Str("invoice_no", invoice.InvoiceNo).
		Msg("demo data seeded")
}

package core

import "github.com/shopspring/decimal"

// Totals is the invoice-level result of the totals engine, each figure
// rounded half-up to 2 decimal places.
type Totals struct {
	SubTotal   decimal.Decimal `json:"sub_total"`
	TaxTotal   decimal.Decimal `json:"tax_total"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)

// ComputeTotals computes sub-total, tax-total, and grand-total for a set of
// line items, a flat discount, and a tax mode.
//
// Items with qty <= 0 or unit price < 0 contribute nothing. This is a filter,
// not an error: callers that want a hard failure must validate before calling
// (CreateInvoice does). A negative tax rate is treated as 0.
//
// In tax-inclusive mode the unit price already contains tax, so the tax
// portion is back-calculated: lineTotal = qty * price,
// lineSubtotal = lineTotal / (1 + rate/100). Otherwise tax is added on top.
//
// Accumulation is additive at full precision; rounding happens once on the
// three final figures. The discount is applied a single time after summing
// all lines and never drives the grand total below zero.
func ComputeTotals(items []LineItem, discountAmount decimal.Decimal, taxInclusive bool) Totals {
	var sub, tax, grand decimal.Decimal

	for _, it := range items {
		if it.Qty.LessThanOrEqual(decimal.Zero) || it.UnitPrice.IsNegative() {
			continue
		}
		rate := it.TaxRate
		if rate.IsNegative() {
			rate = decimal.Zero
		}

		var lineSub, lineTax, lineTotal decimal.Decimal
		if taxInclusive {
			lineTotal = it.Qty.Mul(it.UnitPrice)
			lineSub = lineTotal.Div(one.Add(rate.Div(hundred)))
			lineTax = lineTotal.Sub(lineSub)
		} else {
			lineSub = it.Qty.Mul(it.UnitPrice)
			lineTax = lineSub.Mul(rate.Div(hundred))
			lineTotal = lineSub.Add(lineTax)
		}

		sub = sub.Add(lineSub)
		tax = tax.Add(lineTax)
		grand = grand.Add(lineTotal)
	}

	discount := discountAmount
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	grand = grand.Sub(discount)
	if grand.IsNegative() {
		grand = decimal.Zero
	}

	return Totals{
		SubTotal:   sub.Round(2),
		TaxTotal:   tax.Round(2),
		GrandTotal: grand.Round(2),
	}
}

// ComputeLineBreakdown derives the persisted subtotal/tax/total breakdown for
// one line item by running the engine on a single-item list with no discount.
// Summing all line breakdowns of an invoice reproduces its sub-total and
// tax-total within rounding.
func ComputeLineBreakdown(item LineItem, taxInclusive bool) Totals {
	return ComputeTotals([]LineItem{item}, decimal.Zero, taxInclusive)
}

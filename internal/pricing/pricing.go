// Package pricing computes per-line and per-sale amounts for a checkout.
//
// Every intermediate amount is rounded to two fractional digits, half away
// from zero, so line values add up exactly to the sale totals.
package pricing

import "github.com/shopspring/decimal"

var (
	DefaultVATPercentage = decimal.NewFromInt(15)

	hundred = decimal.NewFromInt(100)
)

const scale = 2

type LineInput struct {
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	VATPercentage      decimal.Decimal
}

type LineAmounts struct {
	SubtotalBeforeDiscount decimal.Decimal
	DiscountAmount         decimal.Decimal
	SubtotalAfterDiscount  decimal.Decimal
	VATAmount              decimal.Decimal
	FinalTotal             decimal.Decimal
	UnitPriceAfterDiscount decimal.Decimal
}

type Totals struct {
	SubtotalBeforeDiscount decimal.Decimal
	DiscountAmount         decimal.Decimal
	DiscountPercentage     decimal.Decimal
	SubtotalAfterDiscount  decimal.Decimal
	VATAmount              decimal.Decimal
	FinalTotal             decimal.Decimal
}

// Line prices a single sale line. Inputs are assumed validated.
func Line(in LineInput) LineAmounts {
	before := Round(in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))))
	discount := Round(before.Mul(in.DiscountPercentage).Div(hundred))
	after := before.Sub(discount)
	vat := Round(after.Mul(in.VATPercentage).Div(hundred))

	return LineAmounts{
		SubtotalBeforeDiscount: before,
		DiscountAmount:         discount,
		SubtotalAfterDiscount:  after,
		VATAmount:              vat,
		FinalTotal:             after.Add(vat),
		UnitPriceAfterDiscount: Round(in.UnitPrice.Mul(hundred.Sub(in.DiscountPercentage)).Div(hundred)),
	}
}

// Sum aggregates line amounts into sale totals.
func Sum(lines []LineAmounts) Totals {
	var t Totals
	for _, line := range lines {
		t.SubtotalBeforeDiscount = t.SubtotalBeforeDiscount.Add(line.SubtotalBeforeDiscount)
		t.DiscountAmount = t.DiscountAmount.Add(line.DiscountAmount)
		t.SubtotalAfterDiscount = t.SubtotalAfterDiscount.Add(line.SubtotalAfterDiscount)
		t.VATAmount = t.VATAmount.Add(line.VATAmount)
		t.FinalTotal = t.FinalTotal.Add(line.FinalTotal)
	}
	if t.SubtotalBeforeDiscount.IsPositive() {
		t.DiscountPercentage = Round(t.DiscountAmount.Mul(hundred).Div(t.SubtotalBeforeDiscount))
	}
	return t
}

func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(scale)
}

// ValidPercentage reports whether p lies in [0, 100].
func ValidPercentage(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

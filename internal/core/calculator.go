package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CalcInput holds the user-editable inputs of a detail line's money fields.
// Basis is the quantity or the weight, depending on the purchase profile.
type CalcInput struct {
	UnitPrice     decimal.NullDecimal
	MarkupPercent string
	Basis         decimal.NullDecimal
}

// Derived holds the computed money fields of a detail line.
type Derived struct {
	UnitCost      decimal.Decimal
	ExtendedTotal decimal.Decimal
}

// Calculate computes unit cost and extended total:
//
//	unitCost      = price + price*markup/100   (price when price <= 0)
//	extendedTotal = unitCost * basis
//
// Absent inputs count as zero. Both outputs are rounded to 2 decimals.
func Calculate(in CalcInput) Derived {
	price := in.UnitPrice.Decimal
	basis := in.Basis.Decimal

	unitCost := price
	if price.IsPositive() {
		pct := ParsePercent(in.MarkupPercent)
		unitCost = price.Add(price.Mul(pct).Div(hundred))
	}
	unitCost = unitCost.Round(2)

	return Derived{
		UnitCost:      unitCost,
		ExtendedTotal: unitCost.Mul(basis).Round(2),
	}
}

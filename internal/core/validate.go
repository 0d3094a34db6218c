package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validate checks a line against profile p before any network call.
// Absent optional numbers are fine; supplied numbers must not be negative.
// A zero unit price is accepted; only an absent one fails when required.
func Validate(p Profile, l DetailLine) error {
	v := map[string]string{}

	nonNegative(string(FieldQuantity), l.Quantity, v)
	nonNegative(string(FieldWeight), l.Weight, v)
	nonNegative(string(FieldUnitPrice), l.UnitPrice, v)
	if strings.TrimSpace(l.MarkupPercent) != "" && ParsePercent(l.MarkupPercent).IsNegative() {
		v[string(FieldMarkup)] = "must_not_be_negative"
	}

	if p.RequireUnitPrice && !l.UnitPrice.Valid {
		v[string(FieldUnitPrice)] = "required"
	}
	if p.RequireItem && l.ItemRef == nil {
		v[string(FieldItem)] = "required"
	}
	if p.RequireBank && l.BankRef == nil {
		v[string(FieldBank)] = "required"
	}

	if len(v) > 0 {
		return &ValidationError{Fields: v}
	}
	return nil
}

// ValidateHeader checks header fields before a header submission.
func ValidateHeader(h HeaderFields) error {
	v := map[string]string{}
	if strings.TrimSpace(h.OfficeRef) == "" {
		v["office_id"] = "required"
	}
	if strings.TrimSpace(h.SupplierRef) == "" {
		v["supplier_id"] = "required"
	}
	if strings.TrimSpace(h.OrderDate) == "" {
		v["order_date"] = "required"
	} else if _, err := time.Parse("2006-01-02", h.OrderDate); err != nil {
		v["order_date"] = "invalid_date"
	}
	if len(v) > 0 {
		return &ValidationError{Fields: v}
	}
	return nil
}

// validateDocument checks the header and every line, prefixing line failures
// with the line's local id.
func validateDocument(p Profile, h HeaderFields, lines []DetailLine) error {
	v := map[string]string{}
	if err := ValidateHeader(h); err != nil {
		for k, reason := range err.(*ValidationError).Fields {
			v[k] = reason
		}
	}
	for _, l := range lines {
		if err := Validate(p, l); err != nil {
			for k, reason := range err.(*ValidationError).Fields {
				v[fmt.Sprintf("line %d %s", l.LocalID, k)] = reason
			}
		}
	}
	if len(v) > 0 {
		return &ValidationError{Fields: v}
	}
	return nil
}

func nonNegative(field string, d decimal.NullDecimal, v map[string]string) {
	if d.Valid && d.Decimal.IsNegative() {
		v[field] = "must_not_be_negative"
	}
}

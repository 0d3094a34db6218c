package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// LineStatus is the reconciliation state of a detail line.
type LineStatus string

const (
	LineUnsaved  LineStatus = "UNSAVED"
	LineSaving   LineStatus = "SAVING"
	LineSaved    LineStatus = "SAVED"
	LineDeleting LineStatus = "DELETING"
	LineError    LineStatus = "ERROR"
)

// DetailLine is one child row of a purchase: an animal lot, a misc item or a
// payment installment.
type DetailLine struct {
	LocalID   int64  // client-only key, never sent to the server
	ServerRef string // backend-issued reference (encrypted PID); empty for new lines
	LegacyID  int64  // numeric row id some endpoints return instead of a PID
	ParentRef string

	ItemRef           *string
	ClassificationRef *string
	BankRef           *string

	Quantity      decimal.NullDecimal
	Weight        decimal.NullDecimal
	UnitPrice     decimal.NullDecimal
	MarkupPercent string // comma-decimal display form, e.g. "12,5"

	UnitCost      decimal.Decimal
	ExtendedTotal decimal.Decimal

	Note string

	Status  LineStatus
	Message string // last per-row error shown to the user
}

// Busy reports whether a remote call for the line is in flight.
func (l DetailLine) Busy() bool {
	return l.Status == LineSaving || l.Status == LineDeleting
}

// Ref returns the reference used to address the line remotely.
func (l DetailLine) Ref() string {
	if ref := strings.TrimSpace(l.ServerRef); ref != "" {
		return ref
	}
	if l.LegacyID > 0 {
		return strconv.FormatInt(l.LegacyID, 10)
	}
	return ""
}

// Fields returns the wire payload for the line.
func (l DetailLine) Fields() LineFields {
	f := LineFields{
		ParentRef:         l.ParentRef,
		ItemRef:           l.ItemRef,
		ClassificationRef: l.ClassificationRef,
		BankRef:           l.BankRef,
		Quantity:          l.Quantity,
		Weight:            l.Weight,
		UnitPrice:         l.UnitPrice,
		MarkupPercent:     ParsePercent(l.MarkupPercent),
		UnitCost:          l.UnitCost,
		ExtendedTotal:     l.ExtendedTotal,
		Note:              l.Note,
	}
	if ref := l.Ref(); ref != "" {
		f.ServerRef = &ref
	}
	return f
}

// LineFields is the payload exchanged with the backend for one detail line.
// ServerRef is null for creates.
type LineFields struct {
	ServerRef         *string             `json:"pid" jsonschema_description:"Server-issued line reference; null when creating"`
	ParentRef         string              `json:"parent_id,omitempty" jsonschema_description:"Persisted id of the purchase header"`
	ItemRef           *string             `json:"item_id" jsonschema_description:"Item or animal type from the item master list"`
	ClassificationRef *string             `json:"classification_id" jsonschema_description:"Classification from the classification master list"`
	BankRef           *string             `json:"bank_id" jsonschema_description:"Bank from the bank master list"`
	Quantity          decimal.NullDecimal `json:"quantity" jsonschema_description:"Head count, unit count or installment count; must not be negative"`
	Weight            decimal.NullDecimal `json:"weight" jsonschema_description:"Weight in kilograms; must not be negative"`
	UnitPrice         decimal.NullDecimal `json:"unit_price" jsonschema_description:"Price per unit of the totals basis; must not be negative"`
	MarkupPercent     decimal.Decimal     `json:"markup_percent" jsonschema_description:"Markup applied on top of the unit price, in percent"`
	UnitCost          decimal.Decimal     `json:"unit_cost" jsonschema_description:"Computed by the server: unit_price plus markup, rounded to 2 decimals"`
	ExtendedTotal     decimal.Decimal     `json:"extended_total" jsonschema_description:"Computed by the server: unit_cost times quantity or weight, rounded to 2 decimals"`
	Note              string              `json:"note"`
}

// LineFromFields builds a detail line from a wire payload and recomputes its
// derived fields for profile p.
func LineFromFields(p Profile, f LineFields) DetailLine {
	l := DetailLine{
		ParentRef:         f.ParentRef,
		ItemRef:           f.ItemRef,
		ClassificationRef: f.ClassificationRef,
		BankRef:           f.BankRef,
		Quantity:          f.Quantity,
		Weight:            f.Weight,
		UnitPrice:         f.UnitPrice,
		MarkupPercent:     FormatPercent(f.MarkupPercent),
		Note:              f.Note,
	}
	if f.ServerRef != nil {
		l.ServerRef = *f.ServerRef
	}
	p.recompute(&l)
	return l
}

// Field names a user-editable line attribute.
type Field string

const (
	FieldItem           Field = "item"
	FieldClassification Field = "classification"
	FieldBank           Field = "bank"
	FieldQuantity       Field = "quantity"
	FieldWeight         Field = "weight"
	FieldUnitPrice      Field = "unit_price"
	FieldMarkup         Field = "markup_percent"
	FieldNote           Field = "note"

	// Derived; never accepted as input.
	FieldUnitCost      Field = "unit_cost"
	FieldExtendedTotal Field = "extended_total"
)

// Totals are header aggregates computed from the current line collection.
type Totals struct {
	Quantity decimal.Decimal
	Weight   decimal.Decimal
	Price    decimal.Decimal
}

func (p Profile) basis(l DetailLine) decimal.NullDecimal {
	if p.Basis == BasisWeight {
		return l.Weight
	}
	return l.Quantity
}

func (p Profile) recompute(l *DetailLine) {
	d := Calculate(CalcInput{
		UnitPrice:     l.UnitPrice,
		MarkupPercent: l.MarkupPercent,
		Basis:         p.basis(*l),
	})
	l.UnitCost = d.UnitCost
	l.ExtendedTotal = d.ExtendedTotal
}

func optionalRef(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func cloneRef(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

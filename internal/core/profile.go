package core

import "fmt"

// PurchaseKind identifies a purchase screen: cattle lots, miscellaneous goods
// or payment installments. The reconciliation rules are the same for all of
// them; only the totals basis and required fields differ.
type PurchaseKind string

const (
	KindCattle  PurchaseKind = "cattle"
	KindMisc    PurchaseKind = "misc"
	KindPayment PurchaseKind = "payment"
)

// TotalBasis selects which line measure multiplies the unit cost.
type TotalBasis string

const (
	BasisQuantity TotalBasis = "quantity"
	BasisWeight   TotalBasis = "weight"
)

// Profile describes one purchase kind.
type Profile struct {
	Kind             PurchaseKind
	Resource         string // REST collection, e.g. "cattle-purchases"
	Basis            TotalBasis
	RequireUnitPrice bool
	RequireItem      bool
	RequireBank      bool
}

var defaultProfiles = map[PurchaseKind]Profile{
	KindCattle: {
		Kind:             KindCattle,
		Resource:         "cattle-purchases",
		Basis:            BasisWeight,
		RequireUnitPrice: true,
	},
	KindMisc: {
		Kind:             KindMisc,
		Resource:         "misc-purchases",
		Basis:            BasisQuantity,
		RequireUnitPrice: true,
		RequireItem:      true,
	},
	KindPayment: {
		Kind:             KindPayment,
		Resource:         "payments",
		Basis:            BasisQuantity,
		RequireUnitPrice: true,
		RequireBank:      true,
	},
}

// DefaultProfile returns the built-in profile for kind.
func DefaultProfile(kind PurchaseKind) (Profile, error) {
	p, ok := defaultProfiles[kind]
	if !ok {
		return Profile{}, fmt.Errorf("unknown purchase kind %q", kind)
	}
	return p, nil
}

// Kinds lists the built-in purchase kinds in display order.
func Kinds() []PurchaseKind {
	return []PurchaseKind{KindCattle, KindMisc, KindPayment}
}

// ParseKind validates a user-supplied kind.
func ParseKind(s string) (PurchaseKind, error) {
	k := PurchaseKind(s)
	if _, ok := defaultProfiles[k]; !ok {
		return "", fmt.Errorf("unknown purchase kind %q (want cattle, misc or payment)", s)
	}
	return k, nil
}

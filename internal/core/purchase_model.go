package core

import "context"

// HeaderFields are the editable attributes of a purchase header.
type HeaderFields struct {
	OfficeRef   string `json:"office_id"`
	SupplierRef string `json:"supplier_id"`
	OrderDate   string `json:"order_date"` // YYYY-MM-DD
	Note        string `json:"note"`
}

// PurchaseHeader is the parent document. ID is empty until the backend
// has persisted it. Totals are recomputed from the lines and are never
// authoritative.
type PurchaseHeader struct {
	ID string
	HeaderFields
	Totals Totals
}

// PurchaseDocument is the combined header + details read used to hydrate edit mode.
type PurchaseDocument struct {
	Header PurchaseHeader
	Lines  []DetailLine
}

// CreatedLine is the backend's answer to a single-row create.
type CreatedLine struct {
	ServerRef string
}

// CreatedDocument is the backend's answer to a combined header + details create.
// Lines are in submission order.
type CreatedDocument struct {
	ParentID string
	Lines    []CreatedLine
}

// DetailAPI is the single-row slice of the purchase backend.
type DetailAPI interface {
	// CreateDetailLine persists a new line under parentRef and returns its server reference.
	CreateDetailLine(ctx context.Context, parentRef string, fields LineFields) (*CreatedLine, error)

	// UpdateDetailLine overwrites an existing line.
	UpdateDetailLine(ctx context.Context, serverRef, parentRef string, fields LineFields) error

	// DeleteDetailLine removes an existing line.
	DeleteDetailLine(ctx context.Context, serverRef string) error
}

// HeaderAPI is the header slice of the purchase backend.
type HeaderAPI interface {
	// FetchHeaderWithDetails reads a header and all of its lines in one call.
	FetchHeaderWithDetails(ctx context.Context, parentID string) (*PurchaseDocument, error)

	// CreateHeader creates a header together with its lines in one submission.
	CreateHeader(ctx context.Context, header HeaderFields, lines []LineFields) (*CreatedDocument, error)

	// UpdateHeader edits header fields only.
	UpdateHeader(ctx context.Context, parentID string, header HeaderFields) error
}

// PurchaseAPI is everything a purchase screen needs from the backend.
type PurchaseAPI interface {
	HeaderAPI
	DetailAPI
}

// OptionKind names a master-data list.
type OptionKind string

const (
	OptionOffice         OptionKind = "office"
	OptionSupplier       OptionKind = "supplier"
	OptionItem           OptionKind = "item"
	OptionClassification OptionKind = "classification"
	OptionBank           OptionKind = "bank"
)

// OptionKinds lists every master-data list.
func OptionKinds() []OptionKind {
	return []OptionKind{OptionOffice, OptionSupplier, OptionItem, OptionClassification, OptionBank}
}

// Option is one entry of a master-data selector.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OptionProvider serves read-only master-data lists.
type OptionProvider interface {
	Options(ctx context.Context, kind OptionKind) ([]Option, error)
}

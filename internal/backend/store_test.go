package backend_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"livestock-purchasing/internal/backend"
	"livestock-purchasing/internal/core"

	"github.com/shopspring/decimal"
)

var testHeader = core.HeaderFields{
	OfficeRef:   "OFF-1",
	SupplierRef: "SUP-1",
	OrderDate:   "2024-03-15",
	Note:        "lot A",
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func strPtr(s string) *string { return &s }

func miscLine(qty, price, markup string) core.LineFields {
	return core.LineFields{
		ItemRef:       strPtr("feed"),
		Quantity:      dec(qty),
		UnitPrice:     dec(price),
		MarkupPercent: decimal.RequireFromString(markup),
	}
}

// runStoreContract exercises a Store through the Service the way the HTTP
// handlers do.
func runStoreContract(t *testing.T, store backend.Store) {
	ctx := context.Background()
	svc := backend.NewService(store, nil)
	misc, _ := svc.Profile(core.KindMisc)
	cattle, _ := svc.Profile(core.KindCattle)

	// Client-sent derived values are ignored.
	sent := miscLine("3", "100000", "12.5")
	sent.UnitCost = decimal.NewFromInt(1)
	sent.ExtendedTotal = decimal.NewFromInt(1)

	created, err := svc.CreatePurchase(ctx, misc, testHeader, []core.LineFields{sent, miscLine("2", "500", "0")})
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if created.ParentID == "" || len(created.Lines) != 2 || created.Lines[0].ServerRef == "" {
		t.Fatalf("created = %+v", created)
	}

	doc, err := svc.GetPurchase(ctx, misc, created.ParentID)
	if err != nil {
		t.Fatalf("GetPurchase: %v", err)
	}
	if doc.Header.OfficeRef != "OFF-1" || doc.Header.OrderDate != "2024-03-15" || len(doc.Lines) != 2 {
		t.Fatalf("doc = %+v", doc)
	}
	first := doc.Lines[0]
	if first.ServerRef != created.Lines[0].ServerRef || first.ParentRef != created.ParentID {
		t.Errorf("first line refs = %q/%q", first.ServerRef, first.ParentRef)
	}
	if !first.UnitCost.Equal(decimal.NewFromInt(112500)) || !first.ExtendedTotal.Equal(decimal.NewFromInt(337500)) {
		t.Errorf("first derived = %s/%s", first.UnitCost, first.ExtendedTotal)
	}
	if first.MarkupPercent != "12,5" {
		t.Errorf("markup = %q", first.MarkupPercent)
	}
	if !doc.Header.Totals.Price.Equal(decimal.NewFromInt(338500)) || !doc.Header.Totals.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("totals = %+v", doc.Header.Totals)
	}

	// Append, update by pid, update by legacy row id, delete.
	add := miscLine("1", "1000", "10")
	add.ParentRef = created.ParentID
	pid, err := svc.CreateLine(ctx, misc, add)
	if err != nil || pid == "" {
		t.Fatalf("CreateLine = %q, %v", pid, err)
	}
	if err := svc.UpdateLine(ctx, misc, pid, miscLine("4", "1000", "10")); err != nil {
		t.Fatalf("UpdateLine by pid: %v", err)
	}
	doc, _ = svc.GetPurchase(ctx, misc, created.ParentID)
	if len(doc.Lines) != 3 || !doc.Lines[2].ExtendedTotal.Equal(decimal.NewFromInt(4400)) {
		t.Fatalf("after update = %+v", doc.Lines)
	}
	legacy := strconv.FormatInt(doc.Lines[1].LegacyID, 10)
	if err := svc.UpdateLine(ctx, misc, legacy, miscLine("2", "600", "0")); err != nil {
		t.Fatalf("UpdateLine by row id: %v", err)
	}
	if err := svc.DeleteLine(ctx, misc, created.Lines[0].ServerRef); err != nil {
		t.Fatalf("DeleteLine: %v", err)
	}
	doc, _ = svc.GetPurchase(ctx, misc, created.ParentID)
	if len(doc.Lines) != 2 || !doc.Header.Totals.Price.Equal(decimal.NewFromInt(5600)) {
		t.Errorf("after delete: %d lines, total %s", len(doc.Lines), doc.Header.Totals.Price)
	}

	// Header-only update.
	changed := testHeader
	changed.Note = "revised"
	if err := svc.UpdateHeader(ctx, misc, created.ParentID, changed); err != nil {
		t.Fatalf("UpdateHeader: %v", err)
	}
	doc, _ = svc.GetPurchase(ctx, misc, created.ParentID)
	if doc.Header.Note != "revised" || len(doc.Lines) != 2 {
		t.Errorf("after header update = %+v", doc.Header)
	}

	// Purchases are scoped by kind.
	if _, err := svc.GetPurchase(ctx, cattle, created.ParentID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("cross-kind get error = %v", err)
	}
	if err := svc.DeleteLine(ctx, cattle, pid); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("cross-kind delete error = %v", err)
	}

	// Unknown references.
	missing := []struct {
		name string
		err  error
	}{
		{"get unknown id", func() error { _, err := svc.GetPurchase(ctx, misc, "not-a-uuid"); return err }()},
		{"get unknown uuid", func() error {
			_, err := svc.GetPurchase(ctx, misc, "00000000-0000-0000-0000-000000000000")
			return err
		}()},
		{"update unknown line", svc.UpdateLine(ctx, misc, "00000000-0000-0000-0000-000000000000", miscLine("1", "1", "0"))},
		{"delete deleted line", svc.DeleteLine(ctx, misc, created.Lines[0].ServerRef)},
		{"create under unknown parent", func() error {
			l := miscLine("1", "1", "0")
			l.ParentRef = "00000000-0000-0000-0000-000000000000"
			_, err := svc.CreateLine(ctx, misc, l)
			return err
		}()},
	}
	for _, m := range missing {
		if !errors.Is(m.err, backend.ErrNotFound) {
			t.Errorf("%s: error = %v, want ErrNotFound", m.name, m.err)
		}
	}
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, backend.NewMemoryStore())
}

func TestService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := backend.NewService(backend.NewMemoryStore(), nil)
	misc, _ := svc.Profile(core.KindMisc)

	tests := []struct {
		name       string
		call       func() error
		wantFields []string
	}{
		{
			name: "header and lines",
			call: func() error {
				_, err := svc.CreatePurchase(ctx, misc, core.HeaderFields{OrderDate: "15-03-2024"},
					[]core.LineFields{{Quantity: dec("-1")}})
				return err
			},
			wantFields: []string{"office_id", "supplier_id", "order_date", "details[0].quantity", "details[0].item", "details[0].unit_price"},
		},
		{
			name: "line without parent",
			call: func() error {
				_, err := svc.CreateLine(ctx, misc, miscLine("1", "1", "0"))
				return err
			},
			wantFields: []string{"parent_id"},
		},
		{
			name: "negative markup on update",
			call: func() error {
				return svc.UpdateLine(ctx, misc, "1", miscLine("1", "1", "-5"))
			},
			wantFields: []string{"markup_percent"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *core.ValidationError
			if err := tt.call(); !errors.As(err, &ve) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			for _, f := range tt.wantFields {
				if _, ok := ve.Fields[f]; !ok {
					t.Errorf("missing %q in %v", f, ve.Fields)
				}
			}
		})
	}
}

func TestService_ZeroPriceAccepted(t *testing.T) {
	ctx := context.Background()
	svc := backend.NewService(backend.NewMemoryStore(), nil)
	misc, _ := svc.Profile(core.KindMisc)
	if _, err := svc.CreatePurchase(ctx, misc, testHeader, []core.LineFields{miscLine("1", "0", "10")}); err != nil {
		t.Errorf("zero unit price rejected: %v", err)
	}
}

func TestService_ProfileByResource(t *testing.T) {
	custom := core.Profile{Kind: core.KindPayment, Resource: "installments", Basis: core.BasisQuantity}
	svc := backend.NewService(backend.NewMemoryStore(), map[core.PurchaseKind]core.Profile{core.KindPayment: custom})

	if p, ok := svc.ProfileByResource("installments"); !ok || p.Kind != core.KindPayment {
		t.Errorf("installments = %+v, %v", p, ok)
	}
	if _, ok := svc.ProfileByResource("payments"); ok {
		t.Error("overridden resource still resolves")
	}
	if p, ok := svc.ProfileByResource("cattle-purchases"); !ok || p.Kind != core.KindCattle {
		t.Errorf("cattle = %+v, %v", p, ok)
	}
	if got := len(svc.Profiles()); got != 3 {
		t.Errorf("Profiles() = %d, want 3", got)
	}
}

func TestService_Options(t *testing.T) {
	store := backend.NewMemoryStore()
	store.SetOptions(core.OptionBank, []core.Option{{Value: "B1", Label: "Bank Satu"}})
	svc := backend.NewService(store, nil)

	opts, err := svc.Options(context.Background(), core.OptionBank)
	if err != nil || len(opts) != 1 || opts[0].Label != "Bank Satu" {
		t.Errorf("Options = %+v, %v", opts, err)
	}
	empty, err := svc.Options(context.Background(), core.OptionOffice)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("empty list = %#v, %v", empty, err)
	}
	if _, err := svc.Options(context.Background(), "colour"); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("unknown kind error = %v", err)
	}
}

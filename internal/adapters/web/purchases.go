package web

import (
	"encoding/json"
	"net/http"

	"livestock-purchasing/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type headerJSON struct {
	ID string `json:"id"`
	core.HeaderFields
	TotalQuantity json.Number `json:"total_quantity"`
	TotalWeight   json.Number `json:"total_weight"`
	TotalPrice    json.Number `json:"total_price"`
}

// detailJSON carries both the pid and the numeric row id so older clients
// that address lines by id keep working.
type detailJSON struct {
	ID               int64        `json:"id"`
	PID              string       `json:"pid"`
	ParentID         string       `json:"parent_id"`
	ItemID           *string      `json:"item_id"`
	ClassificationID *string      `json:"classification_id"`
	BankID           *string      `json:"bank_id"`
	Quantity         *json.Number `json:"quantity"`
	Weight           *json.Number `json:"weight"`
	UnitPrice        *json.Number `json:"unit_price"`
	MarkupPercent    json.Number  `json:"markup_percent"`
	UnitCost         json.Number  `json:"unit_cost"`
	ExtendedTotal    json.Number  `json:"extended_total"`
	Note             string       `json:"note"`
}

type documentJSON struct {
	Header  headerJSON   `json:"header"`
	Details []detailJSON `json:"details"`
}

type createdLineJSON struct {
	PID string `json:"pid"`
}

type createdJSON struct {
	ID      string            `json:"id"`
	Details []createdLineJSON `json:"details"`
}

// number renders a decimal as a bare JSON number. Quoted decimals would be
// read back through the thousands parser by some clients.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func nullableNumber(d decimal.NullDecimal) *json.Number {
	if !d.Valid {
		return nil
	}
	n := number(d.Decimal)
	return &n
}

func toDocumentJSON(doc *core.PurchaseDocument) documentJSON {
	out := documentJSON{
		Header: headerJSON{
			ID:            doc.Header.ID,
			HeaderFields:  doc.Header.HeaderFields,
			TotalQuantity: number(doc.Header.Totals.Quantity),
			TotalWeight:   number(doc.Header.Totals.Weight),
			TotalPrice:    number(doc.Header.Totals.Price),
		},
		Details: make([]detailJSON, 0, len(doc.Lines)),
	}
	for _, l := range doc.Lines {
		out.Details = append(out.Details, detailJSON{
			ID:               l.LegacyID,
			PID:              l.ServerRef,
			ParentID:         l.ParentRef,
			ItemID:           l.ItemRef,
			ClassificationID: l.ClassificationRef,
			BankID:           l.BankRef,
			Quantity:         nullableNumber(l.Quantity),
			Weight:           nullableNumber(l.Weight),
			UnitPrice:        nullableNumber(l.UnitPrice),
			MarkupPercent:    number(core.ParsePercent(l.MarkupPercent)),
			UnitCost:         number(l.UnitCost),
			ExtendedTotal:    number(l.ExtendedTotal),
			Note:             l.Note,
		})
	}
	return out
}

// getPurchase handles GET /api/{resource}/{id}.
func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.GetPurchase(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "load purchase", err)
		return
	}
	writeOK(w, http.StatusOK, "", toDocumentJSON(doc))
}

// createPurchase handles POST /api/{resource} with a header and its lines.
func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	var req struct {
		Header  core.HeaderFields `json:"header"`
		Details []core.LineFields `json:"details"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.svc.CreatePurchase(r.Context(), p, req.Header, req.Details)
	if err != nil {
		writeServiceError(w, r, "save purchase", err)
		return
	}
	out := createdJSON{ID: created.ParentID, Details: make([]createdLineJSON, 0, len(created.Lines))}
	for _, l := range created.Lines {
		out.Details = append(out.Details, createdLineJSON{PID: l.ServerRef})
	}
	writeOK(w, http.StatusCreated, "purchase saved", out)
}

// updateHeader handles PUT /api/{resource}/{id}. Lines are untouched.
func (h *Handler) updateHeader(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	var header core.HeaderFields
	if !decodeJSON(w, r, &header) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.UpdateHeader(r.Context(), p, id, header); err != nil {
		writeServiceError(w, r, "update purchase", err)
		return
	}
	writeOK(w, http.StatusOK, "purchase updated", map[string]string{"id": id})
}

// createLine handles POST /api/{resource}/details.
func (h *Handler) createLine(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	var f core.LineFields
	if !decodeJSON(w, r, &f) {
		return
	}
	pid, err := h.svc.CreateLine(r.Context(), p, f)
	if err != nil {
		writeServiceError(w, r, "save line", err)
		return
	}
	writeOK(w, http.StatusCreated, "line saved", createdLineJSON{PID: pid})
}

// updateLine handles PUT /api/{resource}/details/{ref}. ref is a pid or a
// numeric row id.
func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	var f core.LineFields
	if !decodeJSON(w, r, &f) {
		return
	}
	ref := chi.URLParam(r, "ref")
	if err := h.svc.UpdateLine(r.Context(), p, ref, f); err != nil {
		writeServiceError(w, r, "save line", err)
		return
	}
	writeOK(w, http.StatusOK, "line updated", createdLineJSON{PID: ref})
}

// deleteLine handles DELETE /api/{resource}/details/{ref}.
func (h *Handler) deleteLine(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteLine(r.Context(), p, chi.URLParam(r, "ref")); err != nil {
		writeServiceError(w, r, "delete line", err)
		return
	}
	writeOK(w, http.StatusOK, "line deleted", nil)
}

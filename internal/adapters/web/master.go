package web

import (
	"net/http"
	"reflect"

	"livestock-purchasing/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

// listOptions handles GET /api/master/{kind}.
func (h *Handler) listOptions(w http.ResponseWriter, r *http.Request) {
	kind := core.OptionKind(chi.URLParam(r, "kind"))
	opts, err := h.svc.Options(r.Context(), kind)
	if err != nil {
		writeServiceError(w, r, "list "+string(kind), err)
		return
	}
	writeOK(w, http.StatusOK, "", opts)
}

// lineSchema handles GET /api/schema/{resource}: the JSON Schema of one
// detail line payload, with the resource's required fields.
func (h *Handler) lineSchema(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, LineSchema(p))
}

var (
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
)

// LineSchema reflects core.LineFields into a JSON Schema for profile p.
func LineSchema(p core.Profile) *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t {
			case decimalType:
				return &jsonschema.Schema{Type: "number"}
			case nullDecimalType:
				return &jsonschema.Schema{OneOf: []*jsonschema.Schema{{Type: "number"}, {Type: "null"}}}
			}
			return nil
		},
	}
	s := r.Reflect(&core.LineFields{})
	s.Title = p.Resource + " detail line"

	required := []string{}
	if p.RequireItem {
		required = append(required, "item_id")
	}
	if p.RequireBank {
		required = append(required, "bank_id")
	}
	if p.RequireUnitPrice {
		required = append(required, "unit_price")
	}
	s.Required = required
	return s
}

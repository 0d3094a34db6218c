package web_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"livestock-purchasing/internal/adapters/web"
	"livestock-purchasing/internal/backend"
	"livestock-purchasing/internal/core"
)

const testSecret = "test-secret"

type response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Errors  map[string]string `json:"errors"`
	Data    json.RawMessage   `json:"data"`
}

func newServer(t *testing.T, secret string) (*httptest.Server, *backend.MemoryStore) {
	t.Helper()
	store := backend.NewMemoryStore()
	store.SetOptions(core.OptionBank, []core.Option{{Value: "B1", Label: "Bank Satu"}})
	srv := httptest.NewServer(web.NewHandler(backend.NewService(store, nil), "", secret))
	t.Cleanup(srv.Close)
	return srv, store
}

func call(t *testing.T, method, url, token, body string) (int, response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out response
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t, testSecret)
	status, _ := call(t, http.MethodGet, srv.URL+"/api/health", "", "")
	if status != http.StatusOK {
		t.Errorf("health status = %d", status)
	}
}

func TestRequireAuth(t *testing.T) {
	srv, _ := newServer(t, testSecret)
	good, err := web.IssueToken(testSecret, "clerk-1", "clerk", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	other, _ := web.IssueToken("other-secret", "clerk-1", "clerk", time.Hour)
	expired, _ := web.IssueToken(testSecret, "clerk-1", "clerk", -time.Minute)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", other, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"valid", good, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, http.MethodGet, srv.URL+"/api/master/bank", tt.token, "")
			if status != tt.want {
				t.Errorf("status = %d, want %d (%s)", status, tt.want, body.Message)
			}
		})
	}
}

func TestIssueToken_EmptySecret(t *testing.T) {
	if _, err := web.IssueToken("", "x", "clerk", time.Hour); err == nil {
		t.Error("IssueToken accepted an empty secret")
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newServer(t, "")

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown resource", http.MethodGet, "/api/widgets/1", "", http.StatusNotFound, "NOT_FOUND"},
		{"unknown purchase", http.MethodGet, "/api/misc-purchases/00000000-0000-0000-0000-000000000000", "", http.StatusNotFound, "NOT_FOUND"},
		{"unknown option kind", http.MethodGet, "/api/master/colour", "", http.StatusNotFound, "NOT_FOUND"},
		{"bad json", http.MethodPost, "/api/misc-purchases", "{", http.StatusBadRequest, "BAD_REQUEST"},
		{"invalid header", http.MethodPost, "/api/misc-purchases", `{"header":{},"details":[]}`, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"line without parent", http.MethodPost, "/api/payments/details", `{"bank_id":"B1","unit_price":"1"}`, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, tt.method, srv.URL+tt.path, "", tt.body)
			if status != tt.wantStatus || body.Code != tt.wantCode {
				t.Errorf("got %d %s, want %d %s", status, body.Code, tt.wantStatus, tt.wantCode)
			}
			if body.Success {
				t.Error("error response has success=true")
			}
			if body.Message == "" {
				t.Error("error response without message")
			}
		})
	}
}

func TestCreatePurchase_Validation(t *testing.T) {
	srv, _ := newServer(t, "")
	status, body := call(t, http.MethodPost, srv.URL+"/api/misc-purchases",
		"", `{"header":{"office_id":"OFF-1","supplier_id":"SUP-1","order_date":"2024-03-15"},"details":[{"quantity":"-1"}]}`)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", status)
	}
	for _, f := range []string{"details[0].quantity", "details[0].item", "details[0].unit_price"} {
		if _, ok := body.Errors[f]; !ok {
			t.Errorf("missing %q in %v", f, body.Errors)
		}
	}
}

func TestPurchaseRoundTrip(t *testing.T) {
	srv, _ := newServer(t, "")

	status, created := call(t, http.MethodPost, srv.URL+"/api/misc-purchases", "", `{
		"header": {"office_id":"OFF-1","supplier_id":"SUP-1","order_date":"2024-03-15","note":"lot A"},
		"details": [{"item_id":"feed","quantity":3,"unit_price":"100000","markup_percent":"12.5","unit_cost":1,"extended_total":1}]
	}`)
	if status != http.StatusCreated || !created.Success {
		t.Fatalf("create = %d %+v", status, created)
	}
	var ids struct {
		ID      string `json:"id"`
		Details []struct {
			PID string `json:"pid"`
		} `json:"details"`
	}
	if err := json.Unmarshal(created.Data, &ids); err != nil || ids.ID == "" || len(ids.Details) != 1 {
		t.Fatalf("created data = %s (%v)", created.Data, err)
	}

	status, got := call(t, http.MethodGet, srv.URL+"/api/misc-purchases/"+ids.ID, "", "")
	if status != http.StatusOK {
		t.Fatalf("get = %d", status)
	}
	var doc struct {
		Header  map[string]any   `json:"header"`
		Details []map[string]any `json:"details"`
	}
	if err := json.Unmarshal(got.Data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Header["order_date"] != "2024-03-15" || doc.Header["total_price"] != float64(337500) {
		t.Errorf("header = %v", doc.Header)
	}
	d := doc.Details[0]
	if d["pid"] != ids.Details[0].PID || d["parent_id"] != ids.ID {
		t.Errorf("detail refs = %v", d)
	}
	if d["unit_cost"] != float64(112500) || d["extended_total"] != float64(337500) || d["markup_percent"] != 12.5 {
		t.Errorf("derived = %v", d)
	}
	if d["weight"] != nil {
		t.Errorf("absent weight = %v, want null", d["weight"])
	}

	status, _ = call(t, http.MethodPut, srv.URL+"/api/misc-purchases/details/"+ids.Details[0].PID, "",
		`{"item_id":"feed","quantity":"1","unit_price":"500"}`)
	if status != http.StatusOK {
		t.Errorf("update line = %d", status)
	}
	status, _ = call(t, http.MethodDelete, srv.URL+"/api/misc-purchases/details/"+ids.Details[0].PID, "", "")
	if status != http.StatusOK {
		t.Errorf("delete line = %d", status)
	}
	status, _ = call(t, http.MethodDelete, srv.URL+"/api/misc-purchases/details/"+ids.Details[0].PID, "", "")
	if status != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", status)
	}
}

func TestListOptions(t *testing.T) {
	srv, _ := newServer(t, "")
	status, body := call(t, http.MethodGet, srv.URL+"/api/master/bank", "", "")
	var opts []core.Option
	if err := json.Unmarshal(body.Data, &opts); err != nil || status != http.StatusOK {
		t.Fatalf("status %d, %v", status, err)
	}
	if len(opts) != 1 || opts[0].Label != "Bank Satu" {
		t.Errorf("options = %+v", opts)
	}
}

func TestLineSchema(t *testing.T) {
	tests := []struct {
		kind core.PurchaseKind
		want []string
	}{
		{core.KindCattle, []string{"unit_price"}},
		{core.KindMisc, []string{"item_id", "unit_price"}},
		{core.KindPayment, []string{"bank_id", "unit_price"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p, _ := core.DefaultProfile(tt.kind)
			s := web.LineSchema(p)
			if strings.Join(s.Required, ",") != strings.Join(tt.want, ",") {
				t.Errorf("required = %v, want %v", s.Required, tt.want)
			}
			raw, err := json.Marshal(s)
			if err != nil {
				t.Fatal(err)
			}
			for _, prop := range []string{`"unit_price"`, `"markup_percent"`, `"extended_total"`} {
				if !strings.Contains(string(raw), prop) {
					t.Errorf("schema lacks %s: %s", prop, raw)
				}
			}
		})
	}
}

func TestSchemaEndpoint(t *testing.T) {
	srv, _ := newServer(t, "")
	resp, err := http.Get(srv.URL + "/api/schema/payments")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var s struct {
		Title    string   `json:"title"`
		Required []string `json:"required"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Title != "payments detail line" || len(s.Required) != 2 {
		t.Errorf("schema = %+v", s)
	}
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"livestock-purchasing/internal/core"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const maxResponseBytes = 8 << 20

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the purchasing REST backend for one purchase profile.
// It implements core.PurchaseAPI and core.OptionProvider.
type Client struct {
	base    string
	token   string
	profile core.Profile
	http    *http.Client
}

// New returns a client for profile p.
func New(p core.Profile, opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("remote: invalid base URL %q: %w", base, err)
	}
	if p.Resource == "" {
		return nil, fmt.Errorf("remote: profile %s has no resource", p.Kind)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, token: opts.Token, profile: p, http: hc}, nil
}

// Profile returns the purchase profile the client was built for.
func (c *Client) Profile() core.Profile { return c.profile }

// FetchHeaderWithDetails loads a header and all of its lines.
func (c *Client) FetchHeaderWithDetails(ctx context.Context, parentID string) (*core.PurchaseDocument, error) {
	data, err := c.do(ctx, "fetch purchase", http.MethodGet, c.path(url.PathEscape(parentID)), nil)
	if err != nil {
		return nil, err
	}

	h := data.Get("header")
	if !h.Exists() {
		h = data
	}
	doc := &core.PurchaseDocument{Header: parseHeader(h)}
	if doc.Header.ID == "" {
		doc.Header.ID = parentID
	}
	for _, d := range data.Get("details").Array() {
		doc.Lines = append(doc.Lines, parseLine(d))
	}
	return doc, nil
}

// CreateHeader submits a header together with its lines.
func (c *Client) CreateHeader(ctx context.Context, header core.HeaderFields, lines []core.LineFields) (*core.CreatedDocument, error) {
	if lines == nil {
		lines = []core.LineFields{}
	}
	body := struct {
		Header  core.HeaderFields `json:"header"`
		Details []core.LineFields `json:"details"`
	}{header, lines}

	data, err := c.do(ctx, "create purchase", http.MethodPost, c.path(""), body)
	if err != nil {
		return nil, err
	}

	out := &core.CreatedDocument{ParentID: resolveRef(data, "id", "pid", "encrypted_pid")}
	for _, d := range data.Get("details").Array() {
		out.Lines = append(out.Lines, core.CreatedLine{ServerRef: lineRef(d)})
	}
	return out, nil
}

// UpdateHeader sends header fields only.
func (c *Client) UpdateHeader(ctx context.Context, parentID string, header core.HeaderFields) error {
	_, err := c.do(ctx, "update purchase", http.MethodPut, c.path(url.PathEscape(parentID)), header)
	return err
}

// CreateDetailLine persists one new line under parentRef.
func (c *Client) CreateDetailLine(ctx context.Context, parentRef string, fields core.LineFields) (*core.CreatedLine, error) {
	fields.ServerRef = nil
	fields.ParentRef = parentRef
	data, err := c.do(ctx, "create detail line", http.MethodPost, c.path("details"), fields)
	if err != nil {
		return nil, err
	}
	return &core.CreatedLine{ServerRef: lineRef(data)}, nil
}

// UpdateDetailLine overwrites one existing line.
func (c *Client) UpdateDetailLine(ctx context.Context, serverRef, parentRef string, fields core.LineFields) error {
	fields.ParentRef = parentRef
	fields.ServerRef = &serverRef
	_, err := c.do(ctx, "update detail line", http.MethodPut, c.path("details/"+url.PathEscape(serverRef)), fields)
	return err
}

// DeleteDetailLine removes one existing line.
func (c *Client) DeleteDetailLine(ctx context.Context, serverRef string) error {
	_, err := c.do(ctx, "delete detail line", http.MethodDelete, c.path("details/"+url.PathEscape(serverRef)), nil)
	return err
}

// Options lists one master-data kind. Entries may use value/id and label/name.
func (c *Client) Options(ctx context.Context, kind core.OptionKind) ([]core.Option, error) {
	data, err := c.do(ctx, "list "+string(kind), http.MethodGet, c.base+"/master/"+url.PathEscape(string(kind)), nil)
	if err != nil {
		return nil, err
	}
	items := data.Array()
	out := make([]core.Option, 0, len(items))
	for _, it := range items {
		value := firstString(it, "value", "id", "pid")
		if value == "" {
			continue
		}
		label := firstString(it, "label", "name", "text")
		if label == "" {
			label = value
		}
		out = append(out, core.Option{Value: value, Label: label})
	}
	return out, nil
}

func (c *Client) path(suffix string) string {
	p := c.base + "/" + c.profile.Resource
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

// do sends one request and unwraps the {success, message, data} envelope.
func (c *Client) do(ctx context.Context, op, method, target string, body any) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, &core.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, &core.RemoteError{Op: op, Status: resp.StatusCode, Err: err}
	}

	var envelope gjson.Result
	if gjson.ValidBytes(raw) {
		envelope = gjson.ParseBytes(raw)
	}
	message := strings.TrimSpace(envelope.Get("message").String())
	if message == "" {
		message = strings.TrimSpace(envelope.Get("error").String())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return gjson.Result{}, &core.RemoteError{Op: op, Status: resp.StatusCode, Message: message}
	}
	if s := envelope.Get("success"); s.Exists() && !s.Bool() {
		return gjson.Result{}, &core.RemoteError{Op: op, Status: resp.StatusCode, Message: message}
	}
	if d := envelope.Get("data"); d.Exists() {
		return d, nil
	}
	return envelope, nil
}

func parseHeader(r gjson.Result) core.PurchaseHeader {
	date := r.Get("order_date").String()
	if len(date) > 10 {
		date = date[:10]
	}
	return core.PurchaseHeader{
		ID: resolveRef(r, "id", "pid", "encrypted_pid"),
		HeaderFields: core.HeaderFields{
			OfficeRef:   r.Get("office_id").String(),
			SupplierRef: r.Get("supplier_id").String(),
			OrderDate:   date,
			Note:        r.Get("note").String(),
		},
	}
}

// parseLine maps one detail object. The server reference may arrive as pid,
// encrypted_pid or a string id; a numeric id is kept as the legacy alias.
func parseLine(r gjson.Result) core.DetailLine {
	l := core.DetailLine{
		ServerRef:         firstString(r, "pid", "encrypted_pid"),
		ParentRef:         firstString(r, "parent_id", "header_id"),
		ItemRef:           optionalString(r.Get("item_id")),
		ClassificationRef: optionalString(r.Get("classification_id")),
		BankRef:           optionalString(r.Get("bank_id")),
		Quantity:          nullableNumber(r.Get("quantity")),
		Weight:            nullableNumber(r.Get("weight")),
		UnitPrice:         nullableNumber(r.Get("unit_price")),
		MarkupPercent:     core.FormatPercentDisplay(r.Get("markup_percent").String()),
		Note:              r.Get("note").String(),
	}
	if id := r.Get("id"); id.Exists() && l.ServerRef == "" {
		if id.Type == gjson.Number {
			l.LegacyID = id.Int()
		} else if n, err := strconv.ParseInt(id.String(), 10, 64); err == nil {
			l.LegacyID = n
		} else {
			l.ServerRef = strings.TrimSpace(id.String())
		}
	}
	return l
}

// lineRef resolves the reference of a created line. The data may be the bare
// reference or an object carrying it.
func lineRef(r gjson.Result) string {
	if r.Type == gjson.String || r.Type == gjson.Number {
		return strings.TrimSpace(r.String())
	}
	return resolveRef(r, "pid", "encrypted_pid", "id")
}

func resolveRef(r gjson.Result, keys ...string) string {
	return firstString(r, keys...)
}

func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		v := r.Get(k)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

func optionalString(r gjson.Result) *string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	s := strings.TrimSpace(r.String())
	if s == "" {
		return nil
	}
	return &s
}

func nullableNumber(r gjson.Result) decimal.NullDecimal {
	switch r.Type {
	case gjson.Number:
		if d, err := decimal.NewFromString(r.Raw); err == nil {
			return decimal.NewNullDecimal(d)
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(r.Float()))
	case gjson.String:
		if strings.TrimSpace(r.String()) == "" {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(core.ParseThousands(r.String()))
	default:
		return decimal.NullDecimal{}
	}
}

package backend

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"livestock-purchasing/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	nextRow int64
	headers map[string]*memHeader
	lines   map[string]*memLine // by pid
	options map[core.OptionKind][]core.Option
}

type memHeader struct {
	kind   core.PurchaseKind
	fields core.HeaderFields
	order  []string // pids
}

type memLine struct {
	row      int64
	pid      string
	headerID string
	fields   core.LineFields
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		headers: make(map[string]*memHeader),
		lines:   make(map[string]*memLine),
		options: make(map[core.OptionKind][]core.Option),
	}
}

// SetOptions replaces one master-data list.
func (m *MemoryStore) SetOptions(kind core.OptionKind, opts []core.Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[kind] = append([]core.Option(nil), opts...)
}

func (m *MemoryStore) GetPurchase(_ context.Context, kind core.PurchaseKind, id string) (*core.PurchaseDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.headers[id]
	if !ok || h.kind != kind {
		return nil, fmt.Errorf("purchase %s: %w", id, ErrNotFound)
	}
	doc := &core.PurchaseDocument{
		Header: core.PurchaseHeader{
			ID:           id,
			HeaderFields: h.fields,
			Totals:       core.Totals{Quantity: decimal.Zero, Weight: decimal.Zero, Price: decimal.Zero},
		},
	}
	for _, pid := range h.order {
		ml := m.lines[pid]
		l := core.DetailLine{
			ServerRef:         ml.pid,
			LegacyID:          ml.row,
			ParentRef:         id,
			ItemRef:           ml.fields.ItemRef,
			ClassificationRef: ml.fields.ClassificationRef,
			BankRef:           ml.fields.BankRef,
			Quantity:          ml.fields.Quantity,
			Weight:            ml.fields.Weight,
			UnitPrice:         ml.fields.UnitPrice,
			MarkupPercent:     core.FormatPercent(ml.fields.MarkupPercent),
			UnitCost:          ml.fields.UnitCost,
			ExtendedTotal:     ml.fields.ExtendedTotal,
			Note:              ml.fields.Note,
		}
		doc.Lines = append(doc.Lines, l)
		doc.Header.Totals.Quantity = doc.Header.Totals.Quantity.Add(l.Quantity.Decimal)
		doc.Header.Totals.Weight = doc.Header.Totals.Weight.Add(l.Weight.Decimal)
		doc.Header.Totals.Price = doc.Header.Totals.Price.Add(l.ExtendedTotal)
	}
	return doc, nil
}

func (m *MemoryStore) CreatePurchase(_ context.Context, kind core.PurchaseKind, header core.HeaderFields, lines []core.LineFields) (*core.CreatedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.headers[id] = &memHeader{kind: kind, fields: header}
	out := &core.CreatedDocument{ParentID: id}
	for _, f := range lines {
		out.Lines = append(out.Lines, core.CreatedLine{ServerRef: m.insertLocked(id, f)})
	}
	return out, nil
}

func (m *MemoryStore) UpdateHeader(_ context.Context, kind core.PurchaseKind, id string, header core.HeaderFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.headers[id]
	if !ok || h.kind != kind {
		return fmt.Errorf("purchase %s: %w", id, ErrNotFound)
	}
	h.fields = header
	return nil
}

func (m *MemoryStore) CreateLine(_ context.Context, kind core.PurchaseKind, parentID string, line core.LineFields) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.headers[parentID]
	if !ok || h.kind != kind {
		return "", fmt.Errorf("purchase %s: %w", parentID, ErrNotFound)
	}
	return m.insertLocked(parentID, line), nil
}

func (m *MemoryStore) UpdateLine(_ context.Context, kind core.PurchaseKind, ref string, line core.LineFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ml, err := m.findLocked(kind, ref)
	if err != nil {
		return err
	}
	line.ParentRef = ml.headerID
	ml.fields = line
	return nil
}

func (m *MemoryStore) DeleteLine(_ context.Context, kind core.PurchaseKind, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ml, err := m.findLocked(kind, ref)
	if err != nil {
		return err
	}
	h := m.headers[ml.headerID]
	for i, pid := range h.order {
		if pid == ml.pid {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	delete(m.lines, ml.pid)
	return nil
}

func (m *MemoryStore) ListOptions(_ context.Context, kind core.OptionKind) ([]core.Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Option{}, m.options[kind]...), nil
}

func (m *MemoryStore) insertLocked(headerID string, f core.LineFields) string {
	m.nextRow++
	pid := uuid.NewString()
	f.ParentRef = headerID
	f.ServerRef = nil
	m.lines[pid] = &memLine{row: m.nextRow, pid: pid, headerID: headerID, fields: f}
	h := m.headers[headerID]
	h.order = append(h.order, pid)
	return pid
}

// findLocked resolves a pid or a numeric row id.
func (m *MemoryStore) findLocked(kind core.PurchaseKind, ref string) (*memLine, error) {
	ml, ok := m.lines[ref]
	if !ok {
		if row, err := strconv.ParseInt(ref, 10, 64); err == nil {
			for _, candidate := range m.lines {
				if candidate.row == row {
					ml, ok = candidate, true
					break
				}
			}
		}
	}
	if !ok || m.headers[ml.headerID].kind != kind {
		return nil, fmt.Errorf("detail line %s: %w", ref, ErrNotFound)
	}
	return ml, nil
}

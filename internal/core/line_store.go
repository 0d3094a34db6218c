package core

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// LineStore is the ordered, in-memory collection of detail lines for one
// purchase. Lines are keyed by a client-local id. Operations never perform I/O;
// the mutex only guards against a reconciler goroutine finishing while the
// user keeps editing other rows.
type LineStore struct {
	mu      sync.Mutex
	profile Profile
	nextID  int64
	order   []int64
	lines   map[int64]*DetailLine
}

// NewLineStore returns an empty store for profile p.
func NewLineStore(p Profile) *LineStore {
	return &LineStore{
		profile: p,
		lines:   make(map[int64]*DetailLine),
	}
}

// Profile returns the purchase profile the store computes with.
func (s *LineStore) Profile() Profile { return s.profile }

// LoadAll replaces the whole collection with lines hydrated from the backend.
// Every line gets a fresh local id and keeps its server reference as given.
func (s *LineStore) LoadAll(lines []DetailLine) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]int64, 0, len(lines))
	s.lines = make(map[int64]*DetailLine, len(lines))

	ids := make([]int64, 0, len(lines))
	for _, in := range lines {
		l := in
		l.LocalID = s.allocID()
		l.MarkupPercent = FormatPercentDisplay(l.MarkupPercent)
		l.Status = LineSaved
		l.Message = ""
		s.profile.recompute(&l)
		s.lines[l.LocalID] = &l
		s.order = append(s.order, l.LocalID)
		ids = append(ids, l.LocalID)
	}
	return ids
}

// AddBlank appends n new lines seeded from defaults (nil for empty lines).
// n < 1 adds a single line. The new lines have no server reference.
func (s *LineStore) AddBlank(defaults *DetailLine, n int) []int64 {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		l := DetailLine{}
		if defaults != nil {
			l = DetailLine{
				ParentRef:         defaults.ParentRef,
				ItemRef:           cloneRef(defaults.ItemRef),
				ClassificationRef: cloneRef(defaults.ClassificationRef),
				BankRef:           cloneRef(defaults.BankRef),
				Quantity:          defaults.Quantity,
				Weight:            defaults.Weight,
				UnitPrice:         defaults.UnitPrice,
				MarkupPercent:     FormatPercentDisplay(defaults.MarkupPercent),
				Note:              defaults.Note,
			}
		}
		l.LocalID = s.allocID()
		l.Status = LineUnsaved
		s.profile.recompute(&l)
		s.lines[l.LocalID] = &l
		s.order = append(s.order, l.LocalID)
		ids = append(ids, l.LocalID)
	}
	return ids
}

// UpdateField sets one field of one line from user input and recomputes the
// derived fields. Editing a saved line marks it unsaved. Numeric text that
// does not parse is rejected with a ValidationError and the line is left as is.
func (s *LineStore) UpdateField(localID int64, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[localID]
	if !ok {
		return &NotFoundError{LocalID: localID}
	}
	if l.Busy() {
		return ErrLineBusy
	}

	switch field {
	case FieldItem:
		l.ItemRef = optionalRef(value)
	case FieldClassification:
		l.ClassificationRef = optionalRef(value)
	case FieldBank:
		l.BankRef = optionalRef(value)
	case FieldQuantity, FieldWeight, FieldUnitPrice:
		n, ok := parseNullable(value)
		if !ok {
			return &ValidationError{Fields: map[string]string{string(field): "not_a_number"}}
		}
		switch field {
		case FieldQuantity:
			l.Quantity = n
		case FieldWeight:
			l.Weight = n
		default:
			l.UnitPrice = n
		}
	case FieldMarkup:
		l.MarkupPercent = FormatPercentDisplay(value)
	case FieldNote:
		l.Note = strings.TrimSpace(value)
	case FieldUnitCost, FieldExtendedTotal:
		return ErrDerivedField
	default:
		return fmt.Errorf("unknown field %q", field)
	}

	s.profile.recompute(l)
	if l.Status == LineSaved {
		l.Status = LineUnsaved
	}
	return nil
}

// Remove drops a line from the collection.
func (s *LineStore) Remove(localID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[localID]
	if !ok {
		return &NotFoundError{LocalID: localID}
	}
	if l.Busy() {
		return ErrLineBusy
	}
	s.removeLocked(localID)
	return nil
}

// ReplaceServerRef promotes a new line to existing in place after a successful
// create. Position and every other field are left untouched.
func (s *LineStore) ReplaceServerRef(localID int64, serverRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[localID]
	if !ok {
		return &NotFoundError{LocalID: localID}
	}
	l.ServerRef = strings.TrimSpace(serverRef)
	return nil
}

// SetParent stamps the header's persisted id on every line.
func (s *LineStore) SetParent(parentRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		l.ParentRef = parentRef
	}
}

func (s *LineStore) setParentOf(localID int64, parentRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lines[localID]; ok {
		l.ParentRef = parentRef
	}
}

// Get returns a copy of one line.
func (s *LineStore) Get(localID int64) (DetailLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[localID]
	if !ok {
		return DetailLine{}, false
	}
	return *l, true
}

// Lines returns copies of all lines in display order.
func (s *LineStore) Lines() []DetailLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DetailLine, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.lines[id])
	}
	return out
}

// Len returns the number of lines.
func (s *LineStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Totals sums quantity, weight and extended total over the collection.
func (s *LineStore) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := Totals{Quantity: decimal.Zero, Weight: decimal.Zero, Price: decimal.Zero}
	for _, id := range s.order {
		l := s.lines[id]
		t.Quantity = t.Quantity.Add(l.Quantity.Decimal)
		t.Weight = t.Weight.Add(l.Weight.Decimal)
		t.Price = t.Price.Add(l.ExtendedTotal)
	}
	return t
}

// begin moves a line into an in-flight status after check accepts it. The
// check runs under the store lock so validation sees exactly the values that
// will be sent. A rejected line keeps its status and shows the message.
func (s *LineStore) begin(localID int64, status LineStatus, check func(DetailLine) error) (DetailLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[localID]
	if !ok {
		return DetailLine{}, &NotFoundError{LocalID: localID}
	}
	if l.Busy() {
		return DetailLine{}, ErrLineBusy
	}
	if check != nil {
		if err := check(*l); err != nil {
			l.Message = UserMessage(err)
			return DetailLine{}, err
		}
	}
	l.Status = status
	l.Message = ""
	return *l, nil
}

// finish ends an in-flight call. It reports false when the line disappeared
// while the call was running, in which case the result is discarded.
func (s *LineStore) finish(localID int64, status LineStatus, message, serverRef string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[localID]
	if !ok {
		return false
	}
	if serverRef != "" {
		l.ServerRef = serverRef
	}
	l.Status = status
	l.Message = message
	return true
}

// finishRemove drops a line whose remote delete succeeded.
func (s *LineStore) finishRemove(localID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[localID]; !ok {
		return false
	}
	s.removeLocked(localID)
	return true
}

func (s *LineStore) removeLocked(localID int64) {
	delete(s.lines, localID)
	for i, id := range s.order {
		if id == localID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *LineStore) allocID() int64 {
	s.nextID++
	return s.nextID
}

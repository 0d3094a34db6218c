package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Mode is the editing mode of a purchase.
type Mode string

const (
	// ModeAdd accumulates lines locally; header and lines are created together on Submit.
	ModeAdd Mode = "add"
	// ModeEdit reconciles every line save/delete immediately against a persisted header.
	ModeEdit Mode = "edit"
)

// Coordinator ties a purchase header to its detail lines. Detail lines only
// reach the backend individually once the header has a persisted id.
type Coordinator struct {
	profile  Profile
	api      PurchaseAPI
	notifier Notifier
	store    *LineStore
	recon    *Reconciler

	mu         sync.Mutex
	mode       Mode
	header     PurchaseHeader
	submitting bool
}

// NewCoordinator starts an empty purchase in add mode.
func NewCoordinator(p Profile, api PurchaseAPI, notifier Notifier) *Coordinator {
	if notifier == nil {
		notifier = Discard
	}
	c := &Coordinator{
		profile:  p,
		api:      api,
		notifier: notifier,
		store:    NewLineStore(p),
		mode:     ModeAdd,
	}
	c.recon = NewReconciler(c.store, api, c.parentID, notifier)
	return c
}

// OpenCoordinator loads an existing purchase in edit mode.
func OpenCoordinator(ctx context.Context, p Profile, api PurchaseAPI, notifier Notifier, parentID string) (*Coordinator, error) {
	if strings.TrimSpace(parentID) == "" {
		return nil, fmt.Errorf("open %s purchase: empty id", p.Kind)
	}
	c := NewCoordinator(p, api, notifier)
	c.header.ID = parentID
	c.mode = ModeEdit
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Profile returns the purchase profile.
func (c *Coordinator) Profile() Profile { return c.profile }

// Mode returns the current editing mode.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Header returns the header with aggregates computed from the current lines.
func (c *Coordinator) Header() PurchaseHeader {
	c.mu.Lock()
	h := c.header
	c.mu.Unlock()
	h.Totals = c.store.Totals()
	return h
}

// SetHeader replaces the editable header fields. In edit mode the change is
// only sent on Submit.
func (c *Coordinator) SetHeader(f HeaderFields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header.HeaderFields = f
}

// Lines returns the current lines in display order.
func (c *Coordinator) Lines() []DetailLine { return c.store.Lines() }

// Line returns one line.
func (c *Coordinator) Line(localID int64) (DetailLine, bool) { return c.store.Get(localID) }

// Totals returns the aggregates of the current lines.
func (c *Coordinator) Totals() Totals { return c.store.Totals() }

// AddLines appends n blank lines seeded from defaults.
func (c *Coordinator) AddLines(defaults *DetailLine, n int) []int64 {
	ids := c.store.AddBlank(defaults, n)
	if parent := c.parentID(); parent != "" {
		for _, id := range ids {
			c.store.setParentOf(id, parent)
		}
	}
	return ids
}

// UpdateLine edits one field of one line.
func (c *Coordinator) UpdateLine(localID int64, field Field, value string) error {
	return c.store.UpdateField(localID, field, value)
}

// SaveLine persists one line. In add mode the line is only validated locally
// and waits for Submit.
func (c *Coordinator) SaveLine(ctx context.Context, localID int64) error {
	if c.Mode() == ModeAdd {
		line, ok := c.store.Get(localID)
		if !ok {
			return c.reject(localID, &NotFoundError{LocalID: localID})
		}
		if err := Validate(c.profile, line); err != nil {
			return c.reject(localID, err)
		}
		c.notifier.Notify(Notification{Level: NotifyInfo, LocalID: localID, Message: "line kept until the purchase is submitted"})
		return nil
	}
	return c.recon.SaveRow(ctx, localID)
}

// DeleteLine removes one line; persisted lines are deleted remotely first.
func (c *Coordinator) DeleteLine(ctx context.Context, localID int64) error {
	return c.recon.DeleteRow(ctx, localID)
}

// Submit sends the header. In add mode the header and every line go out in
// one combined create; on success the purchase switches to edit mode and the
// lines carry their server references. In edit mode only the header fields
// are updated. A failure is reported once for the whole submission. A second
// Submit while one is running is refused with ErrSubmitInFlight.
func (c *Coordinator) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return c.reject(0, ErrSubmitInFlight)
	}
	c.submitting = true
	mode := c.mode
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	if mode == ModeEdit {
		return c.submitEdit(ctx)
	}
	return c.submitAdd(ctx)
}

// submitAdd holds every line in SAVING while the combined create runs, so
// the values sent are the values the lines keep.
func (c *Coordinator) submitAdd(ctx context.Context) error {
	header := c.Header()

	var lines []DetailLine
	release := func() {
		for _, l := range lines {
			c.store.finish(l.LocalID, l.Status, "", "")
		}
	}
	for _, l := range c.store.Lines() {
		sent, err := c.store.begin(l.LocalID, LineSaving, nil)
		if err != nil {
			release()
			return c.reject(l.LocalID, err)
		}
		sent.Status = l.Status
		lines = append(lines, sent)
	}

	if err := validateDocument(c.profile, header.HeaderFields, lines); err != nil {
		release()
		return c.reject(0, err)
	}

	payload := make([]LineFields, 0, len(lines))
	for _, l := range lines {
		f := l.Fields()
		f.ServerRef = nil
		f.ParentRef = ""
		payload = append(payload, f)
	}

	doc, err := c.api.CreateHeader(ctx, header.HeaderFields, payload)
	if err == nil && (doc == nil || strings.TrimSpace(doc.ParentID) == "") {
		err = &RemoteError{Op: "create purchase", Message: "server returned no purchase id"}
	}
	if err != nil {
		release()
		return c.reject(0, asRemoteError("create purchase", err, "failed to save purchase"))
	}

	c.mu.Lock()
	c.header.ID = strings.TrimSpace(doc.ParentID)
	c.mode = ModeEdit
	c.mu.Unlock()

	if !refsComplete(doc.Lines, len(lines)) {
		// Without one reference per line the lines cannot be promoted safely.
		if err := c.Reload(ctx); err != nil {
			release()
			return c.reject(0, err)
		}
	} else {
		c.store.SetParent(doc.ParentID)
		for i, l := range lines {
			c.store.finish(l.LocalID, LineSaved, "", strings.TrimSpace(doc.Lines[i].ServerRef))
		}
	}

	c.notifier.Notify(Notification{Level: NotifySuccess, Message: "purchase saved"})
	return nil
}

func (c *Coordinator) submitEdit(ctx context.Context) error {
	header := c.Header()
	if err := ValidateHeader(header.HeaderFields); err != nil {
		return c.reject(0, err)
	}
	if err := c.api.UpdateHeader(ctx, header.ID, header.HeaderFields); err != nil {
		return c.reject(0, asRemoteError("update purchase", err, "failed to save purchase"))
	}
	c.notifier.Notify(Notification{Level: NotifySuccess, Message: "purchase updated"})
	return nil
}

// Reload refetches header and lines from the backend, discarding local edits.
// It is only ever triggered explicitly.
func (c *Coordinator) Reload(ctx context.Context) error {
	id := c.parentID()
	if id == "" {
		return &MissingParentError{}
	}
	doc, err := c.api.FetchHeaderWithDetails(ctx, id)
	if err != nil {
		return fmt.Errorf("load %s purchase %s: %w", c.profile.Kind, id, err)
	}

	lines := make([]DetailLine, len(doc.Lines))
	for i, l := range doc.Lines {
		if l.ParentRef == "" {
			l.ParentRef = id
		}
		lines[i] = l
	}
	c.store.LoadAll(lines)

	c.mu.Lock()
	c.header = doc.Header
	if c.header.ID == "" {
		c.header.ID = id
	}
	c.mode = ModeEdit
	c.mu.Unlock()
	return nil
}

func refsComplete(created []CreatedLine, want int) bool {
	if len(created) != want {
		return false
	}
	for _, cl := range created {
		if strings.TrimSpace(cl.ServerRef) == "" {
			return false
		}
	}
	return true
}

func (c *Coordinator) parentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeEdit {
		return ""
	}
	return c.header.ID
}

func (c *Coordinator) reject(localID int64, err error) error {
	c.notifier.Notify(Notification{Level: NotifyError, LocalID: localID, Message: UserMessage(err)})
	return err
}

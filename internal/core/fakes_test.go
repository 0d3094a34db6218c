package core_test

import (
	"context"
	"fmt"
	"sync"

	"livestock-purchasing/internal/core"
)

type updateCall struct {
	ServerRef string
	ParentRef string
	Fields    core.LineFields
}

// fakeAPI records every backend call and answers from canned responses.
type fakeAPI struct {
	mu sync.Mutex

	creates      []core.LineFields
	updates      []updateCall
	deletes      []string
	headerCreate []core.LineFields
	headerCalls  int
	headerUpdate []core.HeaderFields
	fetches      int

	createRef   string
	createErr   error
	updateErr   error
	deleteErr   error
	headerErr   error
	createdDoc  *core.CreatedDocument
	document    *core.PurchaseDocument
	fetchErr    error
	nextCreated int

	// block, when set, is waited on inside every detail call.
	block chan struct{}
	// entered, when set, receives once per CreateHeader call before it
	// waits on headerBlock.
	entered     chan struct{}
	headerBlock chan struct{}
}

func (f *fakeAPI) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) CreateDetailLine(ctx context.Context, parentRef string, fields core.LineFields) (*core.CreatedLine, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fields.ParentRef = parentRef
	f.creates = append(f.creates, fields)
	if f.createErr != nil {
		return nil, f.createErr
	}
	ref := f.createRef
	if ref == "" {
		f.nextCreated++
		ref = fmt.Sprintf("P%d", f.nextCreated)
	}
	return &core.CreatedLine{ServerRef: ref}, nil
}

func (f *fakeAPI) UpdateDetailLine(ctx context.Context, serverRef, parentRef string, fields core.LineFields) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{ServerRef: serverRef, ParentRef: parentRef, Fields: fields})
	return f.updateErr
}

func (f *fakeAPI) DeleteDetailLine(ctx context.Context, serverRef string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, serverRef)
	return f.deleteErr
}

func (f *fakeAPI) FetchHeaderWithDetails(_ context.Context, parentID string) (*core.PurchaseDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.document == nil {
		return &core.PurchaseDocument{Header: core.PurchaseHeader{ID: parentID}}, nil
	}
	doc := *f.document
	doc.Lines = append([]core.DetailLine(nil), f.document.Lines...)
	return &doc, nil
}

func (f *fakeAPI) CreateHeader(ctx context.Context, _ core.HeaderFields, lines []core.LineFields) (*core.CreatedDocument, error) {
	f.mu.Lock()
	f.headerCalls++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.headerBlock != nil {
		select {
		case <-f.headerBlock:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.headerCreate = append(f.headerCreate, lines...)
	if f.headerErr != nil {
		return nil, f.headerErr
	}
	if f.createdDoc != nil {
		return f.createdDoc, nil
	}
	doc := &core.CreatedDocument{ParentID: "H1"}
	for i := range lines {
		doc.Lines = append(doc.Lines, core.CreatedLine{ServerRef: fmt.Sprintf("H1-%d", i+1)})
	}
	return doc, nil
}

func (f *fakeAPI) UpdateHeader(_ context.Context, _ string, header core.HeaderFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headerUpdate = append(f.headerUpdate, header)
	return f.headerErr
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.updates) + len(f.deletes)
}

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	items []core.Notification
}

func (r *recorder) Notify(n core.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) last() core.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return core.Notification{}
	}
	return r.items[len(r.items)-1]
}

func mustProfile(kind core.PurchaseKind) core.Profile {
	p, err := core.DefaultProfile(kind)
	if err != nil {
		panic(err)
	}
	return p
}

func strPtr(s string) *string { return &s }

// createdRef is the server reference the default CreateHeader answer gives
// line i.
func (f *fakeAPI) createdRef(i int) string {
	return fmt.Sprintf("H1-%d", i+1)
}

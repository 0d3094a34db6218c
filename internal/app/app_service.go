package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"livestock-purchasing/internal/core"
	"livestock-purchasing/internal/export"

	"github.com/google/uuid"
)

type session struct {
	id    string
	coord *core.Coordinator

	mu    sync.Mutex
	queue []core.Notification
}

func (s *session) Notify(n core.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, n)
}

func (s *session) drain() []core.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.queue
	s.queue = nil
	return out
}

type appService struct {
	backends map[core.PurchaseKind]PurchaseBackend
	options  OptionSource

	mu       sync.Mutex
	sessions map[string]*session
}

// NewAppService constructs an appService that satisfies ApplicationService.
// backends holds one entry per purchase kind the caller can edit.
func NewAppService(backends []PurchaseBackend, options OptionSource) ApplicationService {
	byKind := make(map[core.PurchaseKind]PurchaseBackend, len(backends))
	for _, b := range backends {
		byKind[b.Profile().Kind] = b
	}
	return &appService{
		backends: byKind,
		options:  options,
		sessions: make(map[string]*session),
	}
}

func (s *appService) Kinds() []core.PurchaseKind {
	out := make([]core.PurchaseKind, 0, len(s.backends))
	for _, k := range core.Kinds() {
		if _, ok := s.backends[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func (s *appService) backend(kind core.PurchaseKind) (PurchaseBackend, error) {
	b, ok := s.backends[kind]
	if !ok {
		return nil, fmt.Errorf("no backend configured for %s purchases", kind)
	}
	return b, nil
}

// NewPurchase starts an empty purchase of kind in add mode.
func (s *appService) NewPurchase(_ context.Context, kind core.PurchaseKind) (*SessionResult, error) {
	b, err := s.backend(kind)
	if err != nil {
		return nil, err
	}
	sess := &session{id: uuid.NewString()}
	sess.coord = core.NewCoordinator(b.Profile(), b, sess)
	s.register(sess)
	return snapshot(sess), nil
}

// OpenPurchase loads an existing purchase in edit mode.
func (s *appService) OpenPurchase(ctx context.Context, kind core.PurchaseKind, id string) (*SessionResult, error) {
	b, err := s.backend(kind)
	if err != nil {
		return nil, err
	}
	sess := &session{id: uuid.NewString()}
	coord, err := core.OpenCoordinator(ctx, b.Profile(), b, sess, id)
	if err != nil {
		return nil, err
	}
	sess.coord = coord
	s.register(sess)
	return snapshot(sess), nil
}

func (s *appService) GetSession(sessionID string) (*SessionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

func (s *appService) CloseSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("close %s: %w", sessionID, ErrSessionNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *appService) SetHeader(_ context.Context, req SetHeaderRequest) (*SessionResult, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	sess.coord.SetHeader(req.Header)
	return snapshot(sess), nil
}

// AddLines appends req.Count lines and applies the defaults to each. A bad
// default leaves the lines in place and reports the first failure.
func (s *appService) AddLines(_ context.Context, req AddLinesRequest) (*SessionResult, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if req.Count <= 0 {
		return nil, fmt.Errorf("line count must be positive, got %d", req.Count)
	}
	var firstErr error
	for _, id := range sess.coord.AddLines(nil, req.Count) {
		for _, d := range req.Defaults {
			if err := sess.coord.UpdateLine(id, d.Field, d.Value); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("default %s: %w", d.Field, err)
			}
		}
	}
	return snapshot(sess), firstErr
}

func (s *appService) SetLineField(_ context.Context, req SetLineFieldRequest) (*LineResult, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.coord.UpdateLine(req.LocalID, req.Field, req.Value); err != nil {
		return nil, err
	}
	return lineResult(sess, req.LocalID)
}

func (s *appService) SaveLine(ctx context.Context, sessionID string, localID int64) (*LineResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.coord.SaveLine(ctx, localID); err != nil {
		return nil, err
	}
	return lineResult(sess, localID)
}

func (s *appService) DeleteLine(ctx context.Context, sessionID string, localID int64) (*SessionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.coord.DeleteLine(ctx, localID); err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

func (s *appService) Submit(ctx context.Context, sessionID string) (*SessionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.coord.Submit(ctx); err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

func (s *appService) Reload(ctx context.Context, sessionID string) (*SessionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.coord.Reload(ctx); err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

func (s *appService) ListOptions(ctx context.Context, kind core.OptionKind) (*OptionListResult, error) {
	opts, err := s.options.Options(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s options: %w", kind, err)
	}
	return &OptionListResult{Kind: kind, Options: opts}, nil
}

func (s *appService) InvalidateOptions(kind core.OptionKind) {
	if kind == "" {
		s.options.InvalidateAll()
		return
	}
	s.options.Invalidate(kind)
}

// ExportPurchase writes the session's purchase as XLSX. Master-data lists
// that fail to load fall back to raw ids.
func (s *appService) ExportPurchase(ctx context.Context, sessionID string, w io.Writer) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	labels := export.Labels{}
	for _, kind := range core.OptionKinds() {
		opts, err := s.options.Options(ctx, kind)
		if err != nil {
			log.Printf("export: %s labels unavailable: %v", kind, err)
			continue
		}
		labels[kind] = opts
	}
	return export.WritePurchaseXLSX(w, sess.coord.Profile(), sess.coord.Header(), sess.coord.Lines(), labels)
}

func (s *appService) Notifications(sessionID string) ([]core.Notification, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.drain(), nil
}

func (s *appService) register(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
}

func (s *appService) session(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

func snapshot(sess *session) *SessionResult {
	return &SessionResult{
		SessionID: sess.id,
		Profile:   sess.coord.Profile(),
		Mode:      sess.coord.Mode(),
		Header:    sess.coord.Header(),
		Lines:     sess.coord.Lines(),
	}
}

func lineResult(sess *session, localID int64) (*LineResult, error) {
	l, ok := sess.coord.Line(localID)
	if !ok {
		// Deleted concurrently.
		return nil, &core.NotFoundError{LocalID: localID}
	}
	return &LineResult{SessionID: sess.id, Line: l, Totals: sess.coord.Totals()}, nil
}

package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"livestock-purchasing/internal/core"
)

// ErrNotFound is returned when a purchase or detail line does not exist.
var ErrNotFound = errors.New("not found")

// Store persists purchases of every kind. Lines handed to a Store already
// carry their derived fields.
type Store interface {
	GetPurchase(ctx context.Context, kind core.PurchaseKind, id string) (*core.PurchaseDocument, error)
	CreatePurchase(ctx context.Context, kind core.PurchaseKind, header core.HeaderFields, lines []core.LineFields) (*core.CreatedDocument, error)
	UpdateHeader(ctx context.Context, kind core.PurchaseKind, id string, header core.HeaderFields) error

	// CreateLine appends a line to parentID and returns its pid.
	CreateLine(ctx context.Context, kind core.PurchaseKind, parentID string, line core.LineFields) (string, error)
	// UpdateLine and DeleteLine address a line by pid or by numeric row id.
	UpdateLine(ctx context.Context, kind core.PurchaseKind, ref string, line core.LineFields) error
	DeleteLine(ctx context.Context, kind core.PurchaseKind, ref string) error

	ListOptions(ctx context.Context, kind core.OptionKind) ([]core.Option, error)
}

// Service validates payloads and recomputes derived line fields before they
// reach the Store. Client-sent unit cost and extended total are ignored.
type Service struct {
	store    Store
	profiles map[core.PurchaseKind]core.Profile
}

// NewService wires a store. Kinds without a profile in profiles use the
// built-in one.
func NewService(store Store, profiles map[core.PurchaseKind]core.Profile) *Service {
	all := make(map[core.PurchaseKind]core.Profile, len(core.Kinds()))
	for _, k := range core.Kinds() {
		p, _ := core.DefaultProfile(k)
		all[k] = p
	}
	for k, p := range profiles {
		all[k] = p
	}
	return &Service{store: store, profiles: all}
}

// Profile returns the profile of kind.
func (s *Service) Profile(kind core.PurchaseKind) (core.Profile, bool) {
	p, ok := s.profiles[kind]
	return p, ok
}

// ProfileByResource resolves the REST collection name to a profile.
func (s *Service) ProfileByResource(resource string) (core.Profile, bool) {
	for _, p := range s.profiles {
		if p.Resource == resource {
			return p, true
		}
	}
	return core.Profile{}, false
}

// Profiles lists every configured profile in kind order.
func (s *Service) Profiles() []core.Profile {
	out := make([]core.Profile, 0, len(s.profiles))
	for _, k := range core.Kinds() {
		if p, ok := s.profiles[k]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) GetPurchase(ctx context.Context, p core.Profile, id string) (*core.PurchaseDocument, error) {
	return s.store.GetPurchase(ctx, p.Kind, strings.TrimSpace(id))
}

func (s *Service) CreatePurchase(ctx context.Context, p core.Profile, header core.HeaderFields, lines []core.LineFields) (*core.CreatedDocument, error) {
	v := map[string]string{}
	if err := core.ValidateHeader(header); err != nil {
		merge(v, "", err)
	}
	normalized := make([]core.LineFields, len(lines))
	for i, f := range lines {
		l := core.LineFromFields(p, f)
		if err := core.Validate(p, l); err != nil {
			merge(v, fmt.Sprintf("details[%d].", i), err)
		}
		normalized[i] = stored(l)
	}
	if len(v) > 0 {
		return nil, &core.ValidationError{Fields: v}
	}
	return s.store.CreatePurchase(ctx, p.Kind, header, normalized)
}

func (s *Service) UpdateHeader(ctx context.Context, p core.Profile, id string, header core.HeaderFields) error {
	if err := core.ValidateHeader(header); err != nil {
		return err
	}
	return s.store.UpdateHeader(ctx, p.Kind, strings.TrimSpace(id), header)
}

func (s *Service) CreateLine(ctx context.Context, p core.Profile, f core.LineFields) (string, error) {
	parent := strings.TrimSpace(f.ParentRef)
	if parent == "" {
		return "", &core.ValidationError{Fields: map[string]string{"parent_id": "required"}}
	}
	l := core.LineFromFields(p, f)
	if err := core.Validate(p, l); err != nil {
		return "", err
	}
	return s.store.CreateLine(ctx, p.Kind, parent, stored(l))
}

func (s *Service) UpdateLine(ctx context.Context, p core.Profile, ref string, f core.LineFields) error {
	l := core.LineFromFields(p, f)
	if err := core.Validate(p, l); err != nil {
		return err
	}
	return s.store.UpdateLine(ctx, p.Kind, strings.TrimSpace(ref), stored(l))
}

func (s *Service) DeleteLine(ctx context.Context, p core.Profile, ref string) error {
	return s.store.DeleteLine(ctx, p.Kind, strings.TrimSpace(ref))
}

// Options lists one master-data kind.
func (s *Service) Options(ctx context.Context, kind core.OptionKind) ([]core.Option, error) {
	for _, k := range core.OptionKinds() {
		if k == kind {
			return s.store.ListOptions(ctx, kind)
		}
	}
	return nil, fmt.Errorf("unknown option kind %q: %w", kind, ErrNotFound)
}

// stored converts a recomputed line back to its persisted form.
func stored(l core.DetailLine) core.LineFields {
	f := l.Fields()
	f.ServerRef = nil
	return f
}

func merge(dst map[string]string, prefix string, err error) {
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		dst[prefix+"error"] = err.Error()
		return
	}
	for k, reason := range ve.Fields {
		dst[prefix+k] = reason
	}
}

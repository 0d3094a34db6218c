package app

import (
	"context"
	"errors"
	"io"

	"livestock-purchasing/internal/core"
)

// ErrSessionNotFound is returned for an unknown or closed session id.
var ErrSessionNotFound = errors.New("session not found")

// PurchaseBackend is the remote purchase API of one profile.
type PurchaseBackend interface {
	core.PurchaseAPI
	Profile() core.Profile
}

// OptionSource serves master-data lists and can drop cached ones.
type OptionSource interface {
	core.OptionProvider
	Invalidate(kind core.OptionKind)
	InvalidateAll()
}

// ApplicationService is the single interface all UI adapters (REPL, CLI) call.
// It decouples presentation from the purchase editing logic. Implementations
// must contain no fmt.Println, no ANSI codes, and no display logic of any kind.
//
// Each open purchase screen is a session identified by an opaque id.
type ApplicationService interface {
	// Kinds lists the purchase kinds a backend is configured for.
	Kinds() []core.PurchaseKind

	// NewPurchase starts an empty purchase of kind in add mode.
	NewPurchase(ctx context.Context, kind core.PurchaseKind) (*SessionResult, error)

	// OpenPurchase loads an existing purchase in edit mode.
	OpenPurchase(ctx context.Context, kind core.PurchaseKind, id string) (*SessionResult, error)

	// GetSession returns the current state of a session.
	GetSession(sessionID string) (*SessionResult, error)

	// CloseSession drops a session and its pending notifications.
	CloseSession(sessionID string) error

	// SetHeader replaces the header fields. In edit mode they are sent on Submit.
	SetHeader(ctx context.Context, req SetHeaderRequest) (*SessionResult, error)

	// AddLines appends blank lines, optionally seeded with field values.
	AddLines(ctx context.Context, req AddLinesRequest) (*SessionResult, error)

	// SetLineField edits one field of one line and returns the recomputed line.
	SetLineField(ctx context.Context, req SetLineFieldRequest) (*LineResult, error)

	// SaveLine persists one line (edit mode) or validates it locally (add mode).
	SaveLine(ctx context.Context, sessionID string, localID int64) (*LineResult, error)

	// DeleteLine removes one line, remotely first when it is persisted.
	DeleteLine(ctx context.Context, sessionID string, localID int64) (*SessionResult, error)

	// Submit creates the purchase with all its lines (add mode) or updates the
	// header (edit mode).
	Submit(ctx context.Context, sessionID string) (*SessionResult, error)

	// Reload refetches the purchase, discarding local edits.
	Reload(ctx context.Context, sessionID string) (*SessionResult, error)

	// ListOptions returns one master-data list.
	ListOptions(ctx context.Context, kind core.OptionKind) (*OptionListResult, error)

	// InvalidateOptions drops a cached master-data list; an empty kind drops all.
	InvalidateOptions(kind core.OptionKind)

	// ExportPurchase writes the session's purchase as an XLSX workbook.
	ExportPurchase(ctx context.Context, sessionID string, w io.Writer) error

	// Notifications drains the notifications raised in a session since the last call.
	Notifications(sessionID string) ([]core.Notification, error)
}

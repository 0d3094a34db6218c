package app

import "livestock-purchasing/internal/core"

// SessionResult is returned by session-level operations.
type SessionResult struct {
	SessionID string
	Profile   core.Profile
	Mode      core.Mode
	Header    core.PurchaseHeader // Totals computed from Lines
	Lines     []core.DetailLine
}

// LineResult is returned by single-line operations.
type LineResult struct {
	SessionID string
	Line      core.DetailLine
	Totals    core.Totals
}

// OptionListResult is returned by ListOptions.
type OptionListResult struct {
	Kind    core.OptionKind
	Options []core.Option
}

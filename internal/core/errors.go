package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrLineBusy is returned when a line already has a request in flight.
	ErrLineBusy = errors.New("line has a request in flight")

	// ErrDerivedField is returned when a caller tries to edit unit cost or extended total.
	ErrDerivedField = errors.New("derived field cannot be edited")

	// ErrSubmitInFlight is returned when a purchase submission is already running.
	ErrSubmitInFlight = errors.New("purchase submission already in progress")
)

// ValidationError is a local, pre-network rejection. Fields maps a field name
// to a reason code ("required", "must_not_be_negative", ...).
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// MissingParentError is returned when a detail operation is attempted before the
// header has a persisted identifier.
type MissingParentError struct {
	LocalID int64
}

func (e *MissingParentError) Error() string {
	return fmt.Sprintf("line %d: purchase header has not been saved yet", e.LocalID)
}

// RemoteError is any failure reported by the backend. Message is the server's
// human-readable message when it sent one.
type RemoteError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NotFoundError is returned when a line cannot be resolved locally.
type NotFoundError struct {
	LocalID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("line %d not found", e.LocalID)
}

// asRemoteError normalizes a transport or backend failure. Server messages are
// kept verbatim; anything else gets the fallback message.
func asRemoteError(op string, err error, fallback string) *RemoteError {
	var re *RemoteError
	if errors.As(err, &re) {
		if re.Message == "" {
			cp := *re
			cp.Message = fallback
			return &cp
		}
		return re
	}
	return &RemoteError{Op: op, Message: fallback, Err: err}
}

// UserMessage renders err for a per-row notification.
func UserMessage(err error) string {
	var (
		ve *ValidationError
		mp *MissingParentError
		re *RemoteError
		nf *NotFoundError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &mp):
		return "save the purchase header first"
	case errors.As(err, &re):
		return re.Message
	case errors.As(err, &nf):
		return nf.Error()
	case errors.Is(err, ErrLineBusy):
		return "line is still being processed"
	default:
		return err.Error()
	}
}

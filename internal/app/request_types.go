package app

import "livestock-purchasing/internal/core"

// SetHeaderRequest is the input for SetHeader.
type SetHeaderRequest struct {
	SessionID string
	Header    core.HeaderFields
}

// AddLinesRequest is the input for AddLines. Defaults are applied to every
// new line in the order given.
type AddLinesRequest struct {
	SessionID string
	Count     int
	Defaults  []FieldValue
}

// FieldValue is one raw user edit.
type FieldValue struct {
	Field core.Field
	Value string
}

// SetLineFieldRequest is the input for SetLineField.
type SetLineFieldRequest struct {
	SessionID string
	LocalID   int64
	FieldValue
}

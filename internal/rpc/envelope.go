// Package rpc exposes the tool catalogue as a Go interface (Handlers) plus a
// thin in-process dispatcher, separating protocol framing from the
// storage/engine packages it dispatches into — except here the framing
// itself (the MCP transport) is out of scope, so Dispatch takes and returns
// plain Go values instead of a socket Request/Response pair.
package rpc

import (
	"encoding/json"
	"time"
)

// Code is the closed error-code vocabulary every envelope's Error uses.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "RESOURCE_NOT_FOUND"
	CodeDatabase   Code = "DATABASE_ERROR"
	CodeConflict   Code = "CONFLICT_ERROR"
	CodeOperation  Code = "OPERATION_FAILED"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// Meta is the envelope's bookkeeping block.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// EnvelopeError is the error payload of a failed envelope.
type EnvelopeError struct {
	Message string `json:"message"`
	Code    Code   `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the uniform response every tool handler returns.
type Envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    any            `json:"data,omitempty"`
	Error   *EnvelopeError `json:"error,omitempty"`
	Meta    Meta           `json:"metadata"`
}

// ServerVersion is the version reported in every envelope's metadata.
var ServerVersion = "0.1.0"

func ok(data any, message string) Envelope {
	return Envelope{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    Meta{Timestamp: time.Now(), Version: ServerVersion},
	}
}

func fail(code Code, message string, details any) Envelope {
	return Envelope{
		Success: false,
		Error:   &EnvelopeError{Message: message, Code: code, Details: details},
		Meta:    Meta{Timestamp: time.Now(), Version: ServerVersion},
	}
}

// fromError maps a storage/workflow error onto an envelope using a
// closed-sum-type match: RepositoryError's Kind decides
// NotFound/Conflict/Database; everything else falls through the specific
// domain error types before landing on INTERNAL_ERROR.
func fromError(err error) Envelope {
	return fail(codeFor(err), err.Error(), detailsFor(err))
}

func marshalArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
